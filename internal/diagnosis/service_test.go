package diagnosis

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"diagnoseme/internal/gateway/provider"
	"diagnoseme/internal/prompt"
	"diagnoseme/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply string
	err   error
	got   []provider.ChatPayload
}

func (f *fakeProvider) ID() string           { return "fake:vision" }
func (f *fakeProvider) Enabled() bool        { return true }
func (f *fakeProvider) SupportsVision() bool { return true }
func (f *fakeProvider) ExpectsJSON() bool    { return false }

func (f *fakeProvider) Call(_ context.Context, p provider.ChatPayload) (string, error) {
	f.got = append(f.got, p)
	return f.reply, f.err
}

type memRecorder struct {
	mu   sync.Mutex
	recs []*model.DiagnosisModel
	err  error
}

func (m *memRecorder) SaveDiagnosis(_ context.Context, rec *model.DiagnosisModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

var testImage = base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10})

func newTestService(t *testing.T, p provider.ModelProvider, rec Recorder) *Service {
	t.Helper()
	c, err := prompt.Builtin()
	require.NoError(t, err)
	svc, err := NewService(p, prompt.Static(c), Options{Recorder: rec})
	require.NoError(t, err)
	return svc
}

func TestDiagnoseReturnsValidJSONUnchanged(t *testing.T) {
	reply := `{"disease":"Contact dermatitis","confidence":88,"severity":"Mild","description":"Red itchy patch","treatment":"Avoid irritant","prevention":"Gloves"}`
	fp := &fakeProvider{reply: reply}
	rec := &memRecorder{}
	svc := newTestService(t, fp, rec)

	out, err := svc.Diagnose(context.Background(), Request{ImageBase64: testImage, TraceID: "trace-1"})
	require.NoError(t, err)
	assert.Equal(t, reply, string(out.Result.Payload))
	assert.False(t, out.Result.Extracted)
	assert.Equal(t, "trace-1", out.TraceID)
	assert.Equal(t, "classic", out.PromptName)
	assert.Equal(t, "Contact dermatitis", out.Summary.Condition)
	assert.Empty(t, out.SchemaIssues)

	require.Len(t, fp.got, 1)
	sent := fp.got[0]
	require.Len(t, sent.Images, 1)
	assert.Equal(t, "image/jpeg", sent.Images[0].MimeType)
	assert.Contains(t, sent.User, "Identify the potential medical condition")
	assert.Equal(t, "trace-1", sent.TraceID)

	require.Len(t, rec.recs, 1)
	saved := rec.recs[0]
	assert.Equal(t, model.DiagnosisStatusOK, saved.Status)
	assert.Equal(t, "Mild", saved.Severity)
	assert.Equal(t, 6, saved.ImageBytes)
	assert.JSONEq(t, reply, string(saved.Payload))
}

func TestDiagnoseExtractsEmbeddedObject(t *testing.T) {
	fp := &fakeProvider{reply: "Sure! Here is the assessment:\n{\"disease\":\"Ringworm\",\"severity\":\"Moderate\"}\nStay safe."}
	rec := &memRecorder{}
	svc := newTestService(t, fp, rec)

	out, err := svc.Diagnose(context.Background(), Request{ImageBase64: testImage})
	require.NoError(t, err)
	assert.Equal(t, `{"disease":"Ringworm","severity":"Moderate"}`, string(out.Result.Payload))
	assert.True(t, out.Result.Extracted)
	assert.NotEmpty(t, out.TraceID)
	assert.NotEmpty(t, out.SchemaIssues)

	require.Len(t, rec.recs, 1)
	assert.True(t, rec.recs[0].Extracted)
	assert.NotEmpty(t, rec.recs[0].SchemaIssues)
}

func TestDiagnoseNoJSONCarriesRaw(t *testing.T) {
	raw := "I cannot provide a diagnosis for this image."
	rec := &memRecorder{}
	svc := newTestService(t, &fakeProvider{reply: raw}, rec)

	out, err := svc.Diagnose(context.Background(), Request{ImageBase64: testImage})
	require.ErrorIs(t, err, ErrNoJSON)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, raw, pe.Raw)
	assert.Equal(t, raw, out.Raw)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, model.DiagnosisStatusNoJSON, rec.recs[0].Status)
	assert.Equal(t, raw, rec.recs[0].RawOutput)
}

func TestDiagnoseUnparseable(t *testing.T) {
	rec := &memRecorder{}
	svc := newTestService(t, &fakeProvider{reply: `{disease: 'Acne'}`}, rec)

	_, err := svc.Diagnose(context.Background(), Request{ImageBase64: testImage})
	require.ErrorIs(t, err, ErrUnparseable)
	require.Len(t, rec.recs, 1)
	assert.Equal(t, model.DiagnosisStatusParseError, rec.recs[0].Status)
}

func TestDiagnoseModelError(t *testing.T) {
	upstream := errors.New("quota exceeded")
	rec := &memRecorder{}
	svc := newTestService(t, &fakeProvider{err: upstream}, rec)

	_, err := svc.Diagnose(context.Background(), Request{ImageBase64: testImage})
	var me *ModelError
	require.ErrorAs(t, err, &me)
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, "fake:vision", me.ProviderID)
	require.Len(t, rec.recs, 1)
	assert.Equal(t, model.DiagnosisStatusModelError, rec.recs[0].Status)
}

func TestDiagnoseRejectsMissingImageWithoutCallingModel(t *testing.T) {
	fp := &fakeProvider{reply: "{}"}
	rec := &memRecorder{}
	svc := newTestService(t, fp, rec)

	_, err := svc.Diagnose(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoImage)
	_, err = svc.Diagnose(context.Background(), Request{ImageBase64: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Empty(t, fp.got)
	assert.Empty(t, rec.recs)
}

func TestDiagnoseStoreFailureIsNotFatal(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	svc := newTestService(t, &fakeProvider{reply: `{"disease":"Acne"}`}, rec)

	out, err := svc.Diagnose(context.Background(), Request{ImageBase64: testImage})
	require.NoError(t, err)
	assert.Equal(t, `{"disease":"Acne"}`, string(out.Result.Payload))
}

func TestNewServiceValidation(t *testing.T) {
	c, err := prompt.Builtin()
	require.NoError(t, err)
	_, err = NewService(nil, prompt.Static(c), Options{})
	assert.Error(t, err)
	_, err = NewService(&fakeProvider{}, prompt.Static(c), Options{PromptName: "missing"})
	assert.ErrorContains(t, err, "unknown prompt template")

	svc, err := NewService(&fakeProvider{}, prompt.Static(c), Options{PromptName: "home_care"})
	require.NoError(t, err)
	assert.Equal(t, "home_care", svc.promptName)
}
