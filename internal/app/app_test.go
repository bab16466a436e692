package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"diagnoseme/internal/config"
	"diagnoseme/internal/gateway/provider"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type stubModel struct{ reply string }

func (s stubModel) ID() string           { return "stub:vision" }
func (s stubModel) Enabled() bool        { return true }
func (s stubModel) SupportsVision() bool { return true }
func (s stubModel) ExpectsJSON() bool    { return false }

func (s stubModel) Call(context.Context, provider.ChatPayload) (string, error) {
	return s.reply, nil
}

const pngBase64 = "iVBORw0KGgo="

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Store.Path = filepath.Join(t.TempDir(), "diagnoseme.db")
	cfg.Model.PromptsPath = ""
	cfg.Admin.Token = "admin-token"
	return cfg
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestBuildServesDiagnosisAndRecordsIt(t *testing.T) {
	cfg := testConfig(t)
	reply := "Here you go:\n```json\n{\"disease\":\"Contact dermatitis\",\"confidence\":0.82,\"severity\":\"moderate\"}\n```"
	app, err := NewAppBuilder(cfg, WithProvider(stubModel{reply: reply})).Build(context.Background())
	require.NoError(t, err)
	defer app.Close()

	h := app.Server().Handler()
	w := post(h, "/api/diagnose", `{"imageBase64":"`+pngBase64+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"disease":"Contact dermatitis","confidence":0.82,"severity":"moderate"}`, w.Body.String())

	r := httptest.NewRequest(http.MethodGet, "/admin/diagnoses", nil)
	r.Header.Set("X-Admin-Token", "admin-token")
	lw := httptest.NewRecorder()
	h.ServeHTTP(lw, r)
	require.Equal(t, http.StatusOK, lw.Code)
	items := gjson.Get(lw.Body.String(), "items")
	require.Len(t, items.Array(), 1)
	assert.Equal(t, "ok", items.Get("0.status").String())
	assert.Equal(t, "Contact dermatitis", items.Get("0.condition").String())
	assert.Equal(t, 82.0, items.Get("0.confidence").Float())
	assert.Equal(t, "Moderate", items.Get("0.severity").String())
	assert.Equal(t, "image/png", items.Get("0.image_mime").String())
	assert.True(t, items.Get("0.extracted").Bool())
}

func TestBuildWiresRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RedisAddr = mr.Addr()
	cfg.RateLimit.Limit = 1

	app, err := NewAppBuilder(cfg, WithProvider(stubModel{reply: `{"disease":"x"}`})).Build(context.Background())
	require.NoError(t, err)
	defer app.Close()

	h := app.Server().Handler()
	assert.Equal(t, http.StatusOK, post(h, "/api/diagnose", `{"imageBase64":"`+pngBase64+`"}`).Code)
	w := post(h, "/api/diagnose", `{"imageBase64":"`+pngBase64+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestBuildRejectsUnknownPrompt(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	cfg.Model.Prompt = "does_not_exist"
	_, err := NewAppBuilder(cfg, WithProvider(stubModel{})).Build(context.Background())
	assert.ErrorContains(t, err, "unknown prompt template")
}

func TestNewAppNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestStartupSummary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	app, err := NewAppBuilder(cfg, WithProvider(stubModel{})).Build(context.Background())
	require.NoError(t, err)
	defer app.Close()

	var buf bytes.Buffer
	app.Summary.Fprint(&buf)
	out := buf.String()
	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "provider:   stub:vision")
	assert.Contains(t, out, "prompt:     classic (built-in)")
	assert.Contains(t, out, "available:  classic, home_care")
	assert.Contains(t, out, "store:      disabled")
	assert.Contains(t, out, "admin:      enabled")
}

func TestLoadPromptSourceFallsBackToBuiltin(t *testing.T) {
	src, origin, err := loadPromptSource(config.ModelConfig{PromptsPath: filepath.Join(t.TempDir(), "nope.yaml")})
	require.NoError(t, err)
	assert.Equal(t, "built-in", origin)
	assert.Equal(t, "classic", src.Catalog().Default().Name)
}

func TestBuildModelProviderWrapsBreaker(t *testing.T) {
	p, err := buildModelProvider(config.ModelConfig{Provider: "gemini", Model: "gemini-1.5-flash", TimeoutSeconds: 5, BreakerThreshold: 3, BreakerCooldownSeconds: 10})
	require.NoError(t, err)
	_, ok := p.(*provider.BreakerProvider)
	assert.True(t, ok)
	assert.Equal(t, "gemini:gemini-1.5-flash", p.ID())

	p, err = buildModelProvider(config.ModelConfig{Provider: "gemini", Model: "gemini-1.5-flash", BreakerThreshold: -1})
	require.NoError(t, err)
	_, ok = p.(*provider.BreakerProvider)
	assert.False(t, ok)
}
