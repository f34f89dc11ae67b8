package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aurora_schema_migrator/internal/config"
	"aurora_schema_migrator/internal/db"
)

// Ledger lists the migration versions recorded so far.
type Ledger interface {
	AppliedVersions(ctx context.Context) ([]string, error)
}

type Server struct {
	cfg              config.Config
	logger           requestLogger
	postsHandler     PostsHandler
	healthHandler    HealthHandler
	migrationHandler MigrationHandler
}

type requestLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

func New(cfg config.Config, logger requestLogger, exec db.Executor, ledger Ledger) *Server {
	return &Server{
		cfg:              cfg,
		logger:           logger,
		postsHandler:     PostsHandler{Exec: exec, Logger: logger},
		healthHandler:    HealthHandler{Exec: exec},
		migrationHandler: MigrationHandler{Ledger: ledger, Logger: logger},
	}
}

func (s *Server) Start(ctx context.Context) error {
	r := s.routes()
	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(s.logger))

	r.Get("/posts", s.postsHandler.List)
	r.Options("/posts", s.postsHandler.Preflight)

	r.Route("/api/v1", func(api chi.Router) {
		api.Method(http.MethodGet, "/health", s.healthHandler)
		api.Get("/migrations", s.migrationHandler.List)
	})

	return r
}
