package config

import (
	"strings"
	"time"
)

// Config is the root configuration of the diagnoseme service.
type Config struct {
	App       AppConfig       `toml:"app"`
	Site      SiteConfig      `toml:"site"`
	Model     ModelConfig     `toml:"model"`
	Store     StoreConfig     `toml:"store"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Mail      MailConfig      `toml:"mail"`
	Admin     AdminConfig     `toml:"admin"`
	Server    ServerConfig    `toml:"server"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	// LogPath empty means stderr only.
	LogPath string `toml:"log_path"`
	// LLMLog empty disables the LLM dump.
	LLMLog  string `toml:"llm_log_path"`
	LLMDump bool   `toml:"llm_dump_payload"`
}

// SiteConfig feeds the SEO head, sitemap and contact page.
type SiteConfig struct {
	Name         string `toml:"name"`
	URL          string `toml:"url"`
	Description  string `toml:"description"`
	ContactEmail string `toml:"contact_email"`
	TwitterSite  string `toml:"twitter_site"`
}

// BaseURL returns the site URL without a trailing slash.
func (s SiteConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(s.URL), "/")
}

// ModelConfig describes the vision model endpoint.
type ModelConfig struct {
	ID                     string            `toml:"id"`
	Provider               string            `toml:"provider"`
	APIURL                 string            `toml:"api_url"`
	APIKey                 string            `toml:"api_key"`
	Model                  string            `toml:"model"`
	Headers                map[string]string `toml:"headers"`
	ExpectJSON             bool              `toml:"expect_json"`
	TimeoutSeconds         int               `toml:"timeout_seconds"`
	MaxRetries             int               `toml:"max_retries"`
	Temperature            float64           `toml:"temperature"`
	MaxTokens              int               `toml:"max_tokens"`
	MimeType               string            `toml:"mime_type"`
	Prompt                 string            `toml:"prompt"`
	PromptsPath            string            `toml:"prompts_path"`
	BreakerThreshold       int               `toml:"breaker_threshold"`
	BreakerCooldownSeconds int               `toml:"breaker_cooldown_seconds"`
}

func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func (m ModelConfig) BreakerCooldown() time.Duration {
	return time.Duration(m.BreakerCooldownSeconds) * time.Second
}

type StoreConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type RateLimitConfig struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Limit         int    `toml:"limit"`
	WindowSeconds int    `toml:"window_seconds"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// MailConfig controls forwarding of contact messages through SES.
type MailConfig struct {
	Enabled bool     `toml:"enabled"`
	Region  string   `toml:"region"`
	From    string   `toml:"from"`
	To      []string `toml:"to"`
}

// AdminConfig guards the /admin routes; an empty token disables them.
type AdminConfig struct {
	Token string `toml:"token"`
}

type ServerConfig struct {
	MaxBodyMB      int      `toml:"max_body_mb"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

func (s ServerConfig) MaxBodyBytes() int64 {
	return int64(s.MaxBodyMB) << 20
}

// keySet tracks the field paths explicitly set in config files or env.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule of one field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
