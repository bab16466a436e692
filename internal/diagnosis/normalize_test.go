package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeConfidence(t *testing.T) {
	cases := map[string]float64{
		`{"confidence":95}`:      95,
		`{"confidence":"87%"}`:   87,
		`{"confidence":0.873}`:   87.3,
		`{"confidence":"0.5"}`:   50,
		`{"confidence":150}`:     100,
		`{"confidence":-3}`:      0,
		`{"confidence":66.666}`:  66.7,
		`{"confidence":" 42 % "}`: 42,
	}
	for payload, want := range cases {
		t.Run(payload, func(t *testing.T) {
			s := Summarize([]byte(payload))
			require.NotNil(t, s.Confidence)
			assert.InDelta(t, want, *s.Confidence, 1e-9)
		})
	}
}

func TestSummarizeMissingConfidence(t *testing.T) {
	assert.Nil(t, Summarize([]byte(`{"confidence":"high"}`)).Confidence)
	assert.Nil(t, Summarize([]byte(`{}`)).Confidence)
}

func TestSummarizeCondition(t *testing.T) {
	assert.Equal(t, "Eczema", Summarize([]byte(`{"disease":" Eczema "}`)).Condition)
	assert.Equal(t, "Tinea", Summarize([]byte(`{"disease":"","possible_diagnosis":"Tinea"}`)).Condition)
	assert.Empty(t, Summarize([]byte(`{"disease":42}`)).Condition)
}

func TestSummarizeNonObject(t *testing.T) {
	s := Summarize([]byte(`"just text"`))
	assert.Equal(t, SeverityUnknown, s.Severity)
	assert.Empty(t, s.Condition)
}

func TestNormalizeSeverity(t *testing.T) {
	cases := map[string]string{
		"Mild":                SeverityMild,
		"low":                 SeverityMild,
		"Moderate":            SeverityModerate,
		"mild to moderate":    SeverityModerate,
		"SEVERE":              SeveritySevere,
		"moderate to severe":  SeveritySevere,
		"seek emergency care": SeveritySevere,
		"":                    SeverityUnknown,
		"n/a":                 SeverityUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSeverity(in), in)
	}
}
