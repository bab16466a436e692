package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate runs basic sanity checks on the resolved config.
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Site.validate(); err != nil {
		return err
	}
	if err := c.Model.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.RateLimit.validate(); err != nil {
		return err
	}
	if err := c.Mail.validate(); err != nil {
		return err
	}
	return c.Server.validate()
}

func (a *AppConfig) validate() error {
	switch a.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug|info|warn|error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (s *SiteConfig) validate() error {
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("site.url must be an absolute http(s) URL, got %q", s.URL)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("site.name cannot be empty")
	}
	return nil
}

func (m *ModelConfig) validate() error {
	if m.TimeoutSeconds <= 0 {
		return fmt.Errorf("model.timeout_seconds must be > 0")
	}
	if m.MaxRetries < 0 || m.MaxRetries > 5 {
		return fmt.Errorf("model.max_retries must be within [0,5]")
	}
	if m.BreakerThreshold < 0 {
		return fmt.Errorf("model.breaker_threshold must be >= 0")
	}
	if m.MaxTokens < 0 {
		return fmt.Errorf("model.max_tokens must be >= 0")
	}
	if !strings.HasPrefix(m.MimeType, "image/") {
		return fmt.Errorf("model.mime_type must be an image type, got %q", m.MimeType)
	}
	if !isGemini(m.Provider) && strings.TrimSpace(m.Model) == "" {
		return fmt.Errorf("model.model is required for provider %s", m.Provider)
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if s.Enabled && strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("store.path cannot be empty when store is enabled")
	}
	return nil
}

func (r *RateLimitConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.RedisAddr) == "" {
		return fmt.Errorf("ratelimit.redis_addr is required when rate limiting is enabled")
	}
	if r.Limit <= 0 {
		return fmt.Errorf("ratelimit.limit must be > 0")
	}
	if r.WindowSeconds <= 0 {
		return fmt.Errorf("ratelimit.window_seconds must be > 0")
	}
	return nil
}

func (m *MailConfig) validate() error {
	if !m.Enabled {
		return nil
	}
	if strings.TrimSpace(m.From) == "" {
		return fmt.Errorf("mail.from is required when mail is enabled")
	}
	if len(m.To) == 0 {
		return fmt.Errorf("mail.to requires at least one recipient when mail is enabled")
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if s.MaxBodyMB <= 0 || s.MaxBodyMB > 50 {
		return fmt.Errorf("server.max_body_mb must be within [1,50]")
	}
	for _, origin := range s.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Host == "" {
			return fmt.Errorf("server.allowed_origins contains invalid origin %q", origin)
		}
	}
	return nil
}
