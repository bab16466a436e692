package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"diagnoseme/internal/config"
	cfgloader "diagnoseme/internal/config/loader"
	"diagnoseme/internal/gateway/provider"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/pkg/circuit"
	"diagnoseme/internal/prompt"
)

func buildModelProvider(cfg config.ModelConfig) (provider.ModelProvider, error) {
	p, err := provider.BuildProvider(provider.ModelCfg{
		ID:             cfg.ID,
		Provider:       cfg.Provider,
		APIURL:         cfg.APIURL,
		APIKey:         cfg.APIKey,
		Model:          cfg.Model,
		Enabled:        true,
		Headers:        cfg.Headers,
		SupportsVision: true,
		ExpectJSON:     cfg.ExpectJSON,
		MaxRetries:     cfg.MaxRetries,
		Temperature:    cfg.Temperature,
		Timeout:        cfg.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("init model provider failed: %w", err)
	}
	logger.Infof("✓ model provider %s (timeout=%s retries=%d)", p.ID(), cfg.Timeout(), cfg.MaxRetries)
	if cfg.BreakerThreshold <= 0 {
		return p, nil
	}
	cb := circuit.NewCircuitBreaker(p.ID(), cfg.BreakerThreshold, cfg.BreakerCooldown())
	cb.SetStateChangeHandler(func(name string, from, to circuit.State) {
		logger.Warnf("model breaker %s: %s -> %s", name, from, to)
	})
	return provider.WithBreaker(p, cb), nil
}

// loadPromptSource watches prompts_path when the file exists and otherwise
// falls back to the catalog compiled into the binary.
func loadPromptSource(cfg config.ModelConfig) (prompt.Source, string, error) {
	path := strings.TrimSpace(cfg.PromptsPath)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			l, err := cfgloader.NewPromptLoader(path)
			if err != nil {
				return nil, "", err
			}
			l.Subscribe(func(s cfgloader.PromptSnapshot) {
				logger.Infof("prompt catalog reloaded v%d: %s", s.Version, strings.Join(s.Catalog.Names(), ", "))
			})
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			return l, path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("stat prompt catalog %s: %w", path, err)
		}
		logger.Warnf("prompt catalog %s not found, using built-in templates", path)
	}
	c, err := prompt.Builtin()
	if err != nil {
		return nil, "", err
	}
	return prompt.Static(c), "built-in", nil
}
