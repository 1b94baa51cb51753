package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schedassist/internal/config"
)

// Server is the HTTP chassis for the solver callback service. It owns the
// router and the cross-cutting middleware; domain handlers are injected by
// the entry point before MountRoutes.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// SolutionHandler serves POST /v1/solution. Injected by main.
	SolutionHandler http.HandlerFunc

	// HealthProbes are checked by GET /healthz.
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer prepares the server for route mounting, failing fast on missing
// dependencies.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
