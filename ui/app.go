package ui

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"goannotate/app"
	"goannotate/internal"
	"goannotate/ports"
)

// App represents the annotation control surface
type App struct {
	router  *chi.Mux
	session *app.SessionService
	reader  ports.InteractionReader
	logger  *internal.Logger

	mu     sync.Mutex
	server *http.Server
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates a new UI application
func NewApp(session *app.SessionService, reader ports.InteractionReader) *App {
	a := &App{
		router:  chi.NewRouter(),
		session: session,
		reader:  reader,
		logger:  internal.DefaultLogger,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)

	a.router.Post("/feedback-config", a.handleActivateConfig)
	a.router.Get("/feedback-config", a.handleGetConfig)
	a.router.Get("/stats", a.handleStats)
	a.router.Get("/stats/export", a.handleStatsExport)

	a.router.Get("/test-cases/{id}", a.handleGetTestCase)
	a.router.Post("/test-cases/{id}/annotate/human", a.handleHumanAnnotation)

	a.router.Get("/interaction/{stepID}", a.handleInteractionForStep)

	a.router.Get("/api/test-cases/next", a.handleNextTestCase)
	a.router.Get("/api/test-cases/{id}/visualize", a.handleVisualize)
}

// Router exposes the configured handler.
func (a *App) Router() http.Handler {
	return a.router
}

// Serve starts the HTTP server on the configured port. It returns nil after
// a Shutdown call.
func (a *App) Serve(config Config) error {
	srv := &http.Server{Addr: ":" + config.Port, Handler: a.router}
	a.mu.Lock()
	a.server = srv
	a.mu.Unlock()

	a.logger.Info("Annotation server listening on :%s", config.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, letting in-flight requests drain until ctx
// expires.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
