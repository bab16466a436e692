package config

import (
	"strings"
)

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":3000"
	defaultSiteName          = "Diagnose Me"
	defaultSiteURL           = "https://diagnoseme.vercel.app"
	defaultSiteDescription   = "Diagnose Me - AI-powered preliminary health condition diagnosis from medical images."
	defaultModelProvider     = "gemini"
	defaultModelName         = "gemini-1.5-flash"
	defaultModelTimeout      = 60
	defaultModelMime         = "image/jpeg"
	defaultBreakerThreshold  = 5
	defaultBreakerCooldown   = 30
	defaultStorePath         = "data/diagnoseme.db"
	defaultRedisAddr         = "127.0.0.1:6379"
	defaultRateLimit         = 10
	defaultRateWindowSeconds = 60
	defaultMailRegion        = "us-east-1"
	defaultMaxBodyMB         = 10
)

// applyDefaults fills every field the config sources left unset.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Site.applyDefaults(keys)
	c.Model.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.RateLimit.applyDefaults(keys)
	c.Mail.applyDefaults(keys)
	c.Server.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
	a.LogLevel = strings.ToLower(strings.TrimSpace(a.LogLevel))
}

func (s *SiteConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("site.name", &s.Name, defaultSiteName),
		stringFieldDefault("site.url", &s.URL, defaultSiteURL),
		stringFieldDefault("site.description", &s.Description, defaultSiteDescription),
	)
	s.URL = s.BaseURL()
}

func (m *ModelConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("model.provider", &m.Provider, defaultModelProvider),
		stringFieldDefault("model.mime_type", &m.MimeType, defaultModelMime),
		fieldDefault{
			key:   "model.model",
			need:  func() bool { return strings.TrimSpace(m.Model) == "" && isGemini(m.Provider) },
			apply: func() { m.Model = defaultModelName },
		},
		fieldDefault{
			key:   "model.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultModelTimeout },
		},
		fieldDefault{
			key:   "model.breaker_threshold",
			need:  func() bool { return m.BreakerThreshold == 0 },
			apply: func() { m.BreakerThreshold = defaultBreakerThreshold },
		},
		fieldDefault{
			key:   "model.breaker_cooldown_seconds",
			need:  func() bool { return m.BreakerCooldownSeconds <= 0 },
			apply: func() { m.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
	)
	m.Provider = strings.ToLower(strings.TrimSpace(m.Provider))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("store.enabled", &s.Enabled, true),
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (r *RateLimitConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ratelimit.redis_addr", &r.RedisAddr, defaultRedisAddr),
		fieldDefault{
			key:   "ratelimit.limit",
			need:  func() bool { return r.Limit <= 0 },
			apply: func() { r.Limit = defaultRateLimit },
		},
		fieldDefault{
			key:   "ratelimit.window_seconds",
			need:  func() bool { return r.WindowSeconds <= 0 },
			apply: func() { r.WindowSeconds = defaultRateWindowSeconds },
		},
	)
}

func (m *MailConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("mail.region", &m.Region, defaultMailRegion),
	)
	m.To = normalizeList(m.To)
}

func (s *ServerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "server.max_body_mb",
			need:  func() bool { return s.MaxBodyMB <= 0 },
			apply: func() { s.MaxBodyMB = defaultMaxBodyMB },
		},
	)
	s.AllowedOrigins = normalizeList(s.AllowedOrigins)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func isGemini(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "gemini", "google":
		return true
	}
	return false
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
