// Package server provides HTTP server management and lifecycle handling for
// the rotation service: middleware, routes and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/giygas/medicament-rotations/config"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/logging"
	"github.com/giygas/medicament-rotations/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const rateLimiterCleanup = 30 * time.Minute

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	handler     interfaces.HTTPHandler
	rateLimiter *RateLimiter
	config      *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:      router,
		handler:     handler,
		rateLimiter: NewRateLimiter(),
		config:      cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.Env == config.EnvProduction {
		s.router.Use(BlockDirectAccessMiddleware) // Before RealIPMiddleware to see the original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.Compress(5, "application/json"))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/medicines", s.handler.ServeMedicines)
		r.Post("/medicines/{id}/intakes", s.handler.RecordIntake)
		r.Get("/groups", s.handler.ServeGroups)
		r.Get("/groups/{groupId}/schedule", s.handler.ServeGroupSchedule)
		r.Get("/violations", s.handler.ServeViolations)
		r.Get("/days/{date}", s.handler.ServeDay)
		r.Post("/normalize", s.handler.Normalize)
	})
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}
	s.rateLimiter.StartCleanup(rateLimiterCleanup)

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
