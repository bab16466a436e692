package diagnosis

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	SeverityMild     = "Mild"
	SeverityModerate = "Moderate"
	SeveritySevere   = "Severe"
	SeverityUnknown  = "Unknown"
)

var (
	conditionKeys = []string{"disease", "condition", "diagnosis", "possible_diagnosis"}
	hundred       = decimal.NewFromInt(100)
)

// Summary is the indexed view of a payload used for storage and stats.
type Summary struct {
	Condition string
	// Confidence is a percentage in [0,100], nil when absent or unreadable.
	Confidence *float64
	Severity   string
}

// Summarize reads the well-known keys of a payload. Anything it cannot
// interpret is left empty; the payload itself is never altered.
func Summarize(payload []byte) Summary {
	s := Summary{Severity: SeverityUnknown}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return s
	}
	for _, key := range conditionKeys {
		if v := root.Get(key); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			s.Condition = strings.TrimSpace(v.String())
			break
		}
	}
	if pct, ok := confidencePercent(root.Get("confidence")); ok {
		s.Confidence = &pct
	}
	s.Severity = NormalizeSeverity(root.Get("severity").String())
	return s
}

func confidencePercent(v gjson.Result) (float64, bool) {
	var (
		d       decimal.Decimal
		percent bool
	)
	switch v.Type {
	case gjson.Number:
		parsed, err := decimal.NewFromString(v.Raw)
		if err != nil {
			return 0, false
		}
		d = parsed
	case gjson.String:
		text := strings.TrimSpace(v.String())
		if strings.HasSuffix(text, "%") {
			percent = true
			text = strings.TrimSpace(strings.TrimSuffix(text, "%"))
		}
		parsed, err := decimal.NewFromString(text)
		if err != nil {
			return 0, false
		}
		d = parsed
	default:
		return 0, false
	}
	// 0.87 means 87%.
	if !percent && d.IsPositive() && d.LessThan(decimal.NewFromInt(1)) {
		d = d.Mul(hundred)
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(hundred) {
		d = hundred
	}
	return d.Round(1).InexactFloat64(), true
}

// NormalizeSeverity maps free-form severity text onto Mild, Moderate or
// Severe. The highest level mentioned wins.
func NormalizeSeverity(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case text == "":
		return SeverityUnknown
	case containsAny(text, "severe", "high", "critical", "serious", "emergency"):
		return SeveritySevere
	case containsAny(text, "moderate", "medium"):
		return SeverityModerate
	case containsAny(text, "mild", "low", "minor"):
		return SeverityMild
	}
	return SeverityUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
