package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{envAPIKey, envSiteURL, envSiteURLAlt, envHTTPAddr, envAdminToken, EnvConfigPath} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOptionalMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.App.HTTPAddr)
	assert.Equal(t, "https://diagnoseme.vercel.app", cfg.Site.URL)
	assert.Equal(t, "Diagnose Me", cfg.Site.Name)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "gemini-1.5-flash", cfg.Model.Model)
	assert.Equal(t, 0, cfg.Model.MaxRetries)
	assert.Equal(t, "image/jpeg", cfg.Model.MimeType)
	assert.True(t, cfg.Store.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes())
}

func TestLoadMissingFileIsErrorWhenRequired(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadExplicitValuesBeatDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  log_level: DEBUG
site:
  url: https://example.org/
store:
  enabled: false
model:
  breaker_threshold: 0
  max_retries: "2"
server:
  allowed_origins: ["https://a.example", " ", "https://a.example"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "https://example.org", cfg.Site.URL)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, 0, cfg.Model.BreakerThreshold)
	assert.Equal(t, 2, cfg.Model.MaxRetries)
	assert.Equal(t, []string{"https://a.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadIncludesMergeInOrder(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "site:\n  name: Base\nmodel:\n  timeout_seconds: 15\n")
	path := writeFile(t, dir, "config.yaml", "include: [base.yaml]\nsite:\n  name: Override\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Override", cfg.Site.Name)
	assert.Equal(t, 15, cfg.Model.TimeoutSeconds)
}

func TestLoadIncludeCycle(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "include cycle")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(envAPIKey, "from-env")
	t.Setenv(envSiteURLAlt, "https://public.example/")
	t.Setenv(envHTTPAddr, ":8080")
	t.Setenv(envAdminToken, "s3cret")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "model:\n  api_key: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model.APIKey)
	assert.Equal(t, "https://public.example", cfg.Site.URL)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.Admin.Token)

	t.Setenv(envSiteURL, "https://primary.example")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example", cfg.Site.URL)
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]string{
		"log level":   "app:\n  log_level: loud\n",
		"site url":    "site:\n  url: not-a-url\n",
		"retries":     "model:\n  max_retries: 9\n",
		"mime":        "model:\n  mime_type: text/plain\n",
		"openai":      "model:\n  provider: openai\n",
		"ratelimit":   "ratelimit:\n  enabled: true\n  redis_addr: ''\n",
		"mail":        "mail:\n  enabled: true\n  from: a@b.c\n",
		"body":        "server:\n  max_body_mb: 500\n",
		"origin":      "server:\n  allowed_origins: ['::nope']\n",
		"store path":  "store:\n  enabled: true\n  path: ''\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	path, required := ResolvePath()
	assert.Equal(t, DefaultPath, path)
	assert.False(t, required)

	t.Setenv(EnvConfigPath, "/etc/diagnoseme.yaml")
	path, required = ResolvePath()
	assert.Equal(t, "/etc/diagnoseme.yaml", path)
	assert.True(t, required)
}
