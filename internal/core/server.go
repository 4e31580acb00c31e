// Package core provides the API chassis for the bite index service.
// It builds a chi router that serves both plain HTTP (local runs) and AWS
// Lambda proxy events (via chiadapter), and applies cross-cutting concerns
// (logging, identity, rate limiting, error formatting) before requests reach
// the domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"biteindex/internal/config"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records latency and count for one request.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server holds every dependency of the HTTP layer so tests can swap them.
type Server struct {
	Config         *config.Config
	Logger         *slog.Logger
	Validator      *Validator
	Metrics        MetricsCollector
	Authenticator  Authenticator  // Resolves Telegram initData to an Actor.
	RateLimitStore RateLimitStore // Nil disables rate limiting.
	HealthProbes   []HealthProbe

	// V1RouteRegistrars mount domain handlers under /v1. main.go fills it in
	// so core never imports handler packages.
	V1RouteRegistrars []func(chi.Router)

	// ShutdownHooks run in order during Shutdown (e.g. closing the DB pool).
	ShutdownHooks []func(ctx context.Context) error

	router *chi.Mux
}

// NewServer validates the critical dependencies and prepares an empty router.
// Call MountRoutes after populating the optional fields.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux. The Lambda adapter needs the
// concrete type.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown runs the registered hooks. It keeps going after a failing hook and
// returns the first error.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for i, hook := range s.ShutdownHooks {
		if err := hook(ctx); err != nil {
			s.Logger.Error("shutdown hook failed", slog.Int("hook", i), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown hook %d: %w", i, err)
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return firstErr
}
