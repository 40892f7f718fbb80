// Package api serves the reconciliation HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/openvera/internal/api/handlers"
	"github.com/eshaffer321/openvera/internal/api/middleware"
	"github.com/eshaffer321/openvera/internal/application/matching"
	"github.com/eshaffer321/openvera/internal/infrastructure/config"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Server)
}

// ConfigFrom converts the application's server settings.
func ConfigFrom(cfg config.ServerConfig) Config {
	return Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	matching   *matching.Service
}

// NewServer creates a new API server.
// If matchingService is nil, match runs cannot be started over HTTP.
func NewServer(cfg Config, repo storage.Repository, matchingService *matching.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		repo:     repo,
		matching: matchingService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig(s.config.AllowedOrigins)))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.repo)
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		runsHandler := handlers.NewRunsHandler(s.repo, s.matching)
		companiesHandler := handlers.NewCompaniesHandler(s.repo)

		// Companies
		r.Route("/companies/{companyID}", func(r chi.Router) {
			r.Post("/match", runsHandler.Start)
			r.Get("/summary", companiesHandler.Summary)
			r.Get("/documents", companiesHandler.Documents)
		})

		// Match ledger
		matchesHandler := handlers.NewMatchesHandler(s.repo)
		r.Get("/matches", matchesHandler.List)
		r.Post("/matches", matchesHandler.Create)
		r.Delete("/matches", matchesHandler.Remove)

		// Match runs (historical)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Match runs answer synchronously
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
