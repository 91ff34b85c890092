package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recolookup/app"
	"recolookup/internal/api"
	"recolookup/internal/logging"
	uimw "recolookup/ui/middleware"
)

//go:embed templates/* static/* content/*
var embeddedFiles embed.FS

// App is the HTTP front end: HTML pages on chi with the gin JSON API mounted under /api
type App struct {
	router    *chi.Mux
	service   *app.RecommendationService
	templates *template.Template
	about     template.HTML
	config    Config
}

// Config holds UI application configuration
type Config struct {
	Port           string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

// NewApp creates a new UI application
func NewApp(config Config, service *app.RecommendationService) (*App, error) {
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	about, err := renderMarkdown(embeddedFiles, "content/about.md")
	if err != nil {
		return nil, fmt.Errorf("failed to render about page: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		service:   service,
		templates: templates,
		about:     about,
		config:    config,
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(uimw.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(uimw.RequestLogger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	staticFS, _ := fs.Sub(embeddedFiles, "static")
	a.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages
	a.router.Get("/", a.handleIndex)
	a.router.Get("/search", a.handleSearch)
	a.router.Get("/about", a.handleAbout)

	a.router.Handle("/metrics", promhttp.Handler())

	// JSON API
	apiRouter := api.NewRouter(api.NewRecommendationHandler(a.service))
	a.router.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.config.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
		if a.config.RateLimit > 0 {
			r.Use(httprate.LimitByIP(a.config.RateLimit, a.config.RateWindow))
		}
		r.Mount("/api", apiRouter)
	})
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context) error {
	port := a.config.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("starting recommendation lookup server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}
