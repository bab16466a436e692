package app

import (
	"context"
	"fmt"
	"strings"

	"diagnoseme/internal/config"
	"diagnoseme/internal/diagnosis"
	"diagnoseme/internal/gateway/mailer"
	"diagnoseme/internal/gateway/provider"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/prompt"
	"diagnoseme/internal/store"
	sitehttp "diagnoseme/internal/transport/http/site"
)

// AppBuilder assembles the App; each external dependency comes from a
// replaceable constructor.
type AppBuilder struct {
	cfg *config.Config

	promptSourceFn func(config.ModelConfig) (prompt.Source, string, error)
	providerFn     func(config.ModelConfig) (provider.ModelProvider, error)
	storeFn        func(config.StoreConfig) (store.Store, error)
	limiterFn      func(context.Context, config.RateLimitConfig) (sitehttp.Limiter, func() error, error)
	mailerFn       func(context.Context, config.MailConfig) (mailer.Mailer, error)
	serverFn       func(sitehttp.ServerConfig) (*sitehttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func WithProvider(p provider.ModelProvider) AppBuilderOption {
	return func(b *AppBuilder) {
		b.providerFn = func(config.ModelConfig) (provider.ModelProvider, error) { return p, nil }
	}
}

func WithStore(s store.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(config.StoreConfig) (store.Store, error) { return s, nil }
	}
}

func WithLimiter(l sitehttp.Limiter) AppBuilderOption {
	return func(b *AppBuilder) {
		b.limiterFn = func(context.Context, config.RateLimitConfig) (sitehttp.Limiter, func() error, error) {
			return l, nil, nil
		}
	}
}

func WithMailer(m mailer.Mailer) AppBuilderOption {
	return func(b *AppBuilder) {
		b.mailerFn = func(context.Context, config.MailConfig) (mailer.Mailer, error) { return m, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		promptSourceFn: loadPromptSource,
		providerFn:     buildModelProvider,
		storeFn:        buildStore,
		limiterFn:      buildLimiter,
		mailerFn:       buildMailer,
		serverFn:       sitehttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	app := &App{cfg: cfg}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	prompts, promptOrigin, err := b.promptSourceFn(cfg.Model)
	if err != nil {
		return fail(err)
	}
	model, err := b.providerFn(cfg.Model)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(cfg.Model.APIKey) == "" {
		logger.Warnf("model.api_key is empty; calls to %s will be rejected upstream", model.ID())
	}

	st, err := b.storeFn(cfg.Store)
	if err != nil {
		return fail(err)
	}
	app.store = st
	app.closers = append(app.closers, st.Close)

	limiter, closeLimiter, err := b.limiterFn(ctx, cfg.RateLimit)
	if err != nil {
		return fail(err)
	}
	if closeLimiter != nil {
		app.closers = append(app.closers, closeLimiter)
	}

	mail, err := b.mailerFn(ctx, cfg.Mail)
	if err != nil {
		return fail(err)
	}

	svc, err := diagnosis.NewService(model, prompts, diagnosis.Options{
		PromptName:  cfg.Model.Prompt,
		DefaultMime: cfg.Model.MimeType,
		MaxTokens:   cfg.Model.MaxTokens,
		Recorder:    st,
		Schema:      diagnosis.NewSchemaChecker(),
	})
	if err != nil {
		return fail(fmt.Errorf("init diagnosis service failed: %w", err))
	}

	server, err := b.serverFn(sitehttp.ServerConfig{
		Addr:           cfg.App.HTTPAddr,
		Site:           cfg.Site,
		ModelName:      modelDisplayName(cfg.Model),
		Diagnoser:      svc,
		Store:          st,
		Mailer:         mail,
		Limiter:        limiter,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminToken:     cfg.Admin.Token,
	})
	if err != nil {
		return fail(fmt.Errorf("init http server failed: %w", err))
	}
	app.server = server

	promptName := cfg.Model.Prompt
	if promptName == "" {
		promptName = prompts.Catalog().Default().Name
	}
	app.Summary = &StartupSummary{
		Addr:        server.Addr(),
		SiteURL:     cfg.Site.BaseURL(),
		ProviderID:  model.ID(),
		Prompt:      promptName,
		PromptFrom:  promptOrigin,
		Prompts:     prompts.Catalog().Names(),
		StorePath:   storeSummary(cfg.Store),
		RateLimit:   rateLimitSummary(cfg.RateLimit, limiter != nil),
		MailEnabled: mail.Enabled(),
		AdminRoutes: cfg.Admin.Token != "",
		MaxBodyMB:   cfg.Server.MaxBodyMB,
	}
	return app, nil
}

func modelDisplayName(m config.ModelConfig) string {
	if name := strings.TrimSpace(m.Model); name != "" {
		return name
	}
	if strings.EqualFold(m.Provider, "gemini") {
		return "Gemini 1.5 Flash"
	}
	return m.Provider
}

// appBuilderDeps lets the injector depend on Build only.
type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
