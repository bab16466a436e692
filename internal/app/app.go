package app

import (
	"context"
	"fmt"

	"diagnoseme/internal/config"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/store"
	sitehttp "diagnoseme/internal/transport/http/site"

	"golang.org/x/sync/errgroup"
)

// App owns the wired service: config, HTTP server and the resources that must
// be released on shutdown.
type App struct {
	cfg     *config.Config
	server  *sitehttp.Server
	store   store.Store
	closers []func() error
	Summary *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves until ctx is cancelled, then releases resources.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("http server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("✓ listening on %s", a.server.Addr())
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close releases the store and the redis client.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("close failed: %v", err)
		}
	}
	a.closers = nil
}

// Server exposes the HTTP server, mainly for tests.
func (a *App) Server() *sitehttp.Server {
	if a == nil {
		return nil
	}
	return a.server
}
