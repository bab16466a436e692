package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"diagnoseme/internal/config"
	"diagnoseme/internal/gateway/mailer"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/ratelimit"
	"diagnoseme/internal/store"
	"diagnoseme/internal/store/gormstore"
	sitehttp "diagnoseme/internal/transport/http/site"
)

func buildStore(cfg config.StoreConfig) (store.Store, error) {
	if !cfg.Enabled {
		logger.Infof("persistence disabled, diagnoses are not recorded")
		return store.Noop{}, nil
	}
	st, err := gormstore.NewGormStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("init store failed: %w", err)
	}
	path := cfg.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	logger.Infof("✓ diagnoses recorded to %s", path)
	return st, nil
}

// buildLimiter connects to Redis. An unreachable server is only logged; the
// limiter lets requests through on errors.
func buildLimiter(ctx context.Context, cfg config.RateLimitConfig) (sitehttp.Limiter, func() error, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	client := ratelimit.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	lim, err := ratelimit.New(client, cfg.Limit, cfg.Window())
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("redis %s unreachable, rate limiting inactive until it recovers: %v", cfg.RedisAddr, err)
	} else {
		logger.Infof("✓ rate limit %d req / %s via redis %s", cfg.Limit, cfg.Window(), cfg.RedisAddr)
	}
	return lim, client.Close, nil
}

func buildMailer(ctx context.Context, cfg config.MailConfig) (mailer.Mailer, error) {
	if !cfg.Enabled {
		return mailer.Noop{}, nil
	}
	m, err := mailer.NewSESMailer(ctx, cfg.Region, cfg.From, cfg.To)
	if err != nil {
		return nil, fmt.Errorf("init mailer failed: %w", err)
	}
	logger.Infof("✓ contact messages forwarded via SES (%s)", cfg.Region)
	return m, nil
}

func storeSummary(cfg config.StoreConfig) string {
	if !cfg.Enabled {
		return "disabled"
	}
	return cfg.Path
}

func rateLimitSummary(cfg config.RateLimitConfig, active bool) string {
	if !active {
		return "disabled"
	}
	return fmt.Sprintf("%d per %s (redis %s)", cfg.Limit, cfg.Window(), cfg.RedisAddr)
}
