package sitehttp

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"diagnoseme/internal/config"
	"diagnoseme/internal/diagnosis"
	"diagnoseme/internal/gateway/mailer"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/ratelimit"
	"diagnoseme/internal/store"
	webassets "diagnoseme/internal/transport/web"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Diagnoser runs one upload through the model.
type Diagnoser interface {
	Diagnose(ctx context.Context, req diagnosis.Request) (diagnosis.Outcome, error)
}

// Limiter decides whether a client may call the diagnose API again.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Server serves the public site, the JSON API and the admin views.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig lists the server dependencies. Store, Mailer and Limiter are
// optional.
type ServerConfig struct {
	Addr           string
	Site           config.SiteConfig
	ModelName      string
	Diagnoser      Diagnoser
	Store          store.Store
	Mailer         mailer.Mailer
	Limiter        Limiter
	MaxBodyBytes   int64
	AllowedOrigins []string
	AdminToken     string
}

const defaultMaxBodyBytes = 10 << 20

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Diagnoser == nil {
		return nil, errors.New("site http server requires a diagnoser")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if cfg.Store == nil {
		cfg.Store = store.Noop{}
	}
	if cfg.Mailer == nil {
		cfg.Mailer = mailer.Noop{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Site.Name == "" {
		cfg.Site.Name = "Diagnose Me"
	}
	cfg.Site.URL = cfg.Site.BaseURL()

	pages, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		recordMetrics(),
		securityHeaders(),
		cors(cfg.AllowedOrigins),
	)
	if err := serveStatic(router); err != nil {
		return nil, err
	}

	h := &handlers{cfg: cfg, pages: pages}
	h.registerPages(router)
	router.GET("/sitemap.xml", h.handleSitemap)
	router.GET("/robots.txt", h.handleRobots)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/diagnose", h.rateLimit(), limitBody(cfg.MaxBodyBytes, errImageTooLarge), h.handleDiagnose)
	api.POST("/contact", limitBody(contactMaxBody, errMessageTooLarge), h.handleContact)
	for _, method := range otherMethods {
		api.Handle(method, "/diagnose", methodNotAllowed)
		api.Handle(method, "/contact", methodNotAllowed)
	}

	if cfg.AdminToken != "" {
		h.registerAdmin(router.Group("/admin", requireAdmin(cfg.AdminToken)))
	}
	return &Server{addr: cfg.Addr, router: router}, nil
}

var otherMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

func methodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": errMethodNotAllowed})
}

// loadTemplates builds one template set per page, each paired with the
// layout. Templates on disk win over the embedded copies.
func loadTemplates() (map[string]*template.Template, error) {
	dirs := []string{
		"internal/transport/web/templates",
		"/app/internal/transport/web/templates",
		"web/templates",
		"/app/web/templates",
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		dirs = append(dirs, filepath.Join(dir, "web", "templates"))
	}
	for _, base := range dirs {
		if _, err := os.Stat(filepath.Join(base, "layout.html")); err != nil {
			continue
		}
		logger.Debugf("loading page templates from %s", base)
		return parsePages(os.DirFS(base))
	}
	fsys, err := fs.Sub(webassets.Templates, "templates")
	if err != nil {
		return nil, err
	}
	return parsePages(fsys)
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(sitePages))
	for _, p := range sitePages {
		tmpl, err := template.New(p.Name).ParseFS(fsys, "layout.html", p.Name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", p.Name, err)
		}
		out[p.Name] = tmpl
	}
	return out, nil
}

func serveStatic(router *gin.Engine) error {
	dirs := []string{
		"internal/transport/web/static",
		"/app/internal/transport/web/static",
		"web/static",
		"/app/web/static",
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		dirs = append(dirs, filepath.Join(dir, "web", "static"))
	}
	for _, base := range dirs {
		stat, err := os.Stat(base)
		if err == nil && stat.IsDir() {
			router.Static("/static", base)
			return nil
		}
	}
	// fallback to embedded static assets
	sub, err := fs.Sub(webassets.Static, "static")
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(sub))
	router.GET("/static/*filepath", func(c *gin.Context) {
		c.Request.URL.Path = c.Param("filepath")
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
