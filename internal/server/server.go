// Package server provides the HTTP API with health endpoints.
//
// It implements zero-downtime deployments with:
//   - Kubernetes-style health probes (liveness, readiness)
//   - Graceful shutdown with connection draining
//   - Configurable shutdown timeout
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/planner"
)

// Server provides the HTTP API with health endpoints.
type Server struct {
	httpServer      *http.Server
	svc             *planner.Service
	logger          *log.Logger
	inShutdown      atomic.Bool
	ready           atomic.Bool
	shutdownTimeout time.Duration
	strictErrors    bool

	webhookReceived atomic.Int64
	webhookLast     atomic.Int64
}

// Config holds server configuration.
type Config struct {
	// Address is the listen address (e.g., ":8087", "0.0.0.0:8087")
	Address string

	// StrictErrors surfaces failures as HTTP error statuses. When false,
	// failures are 200 responses with a structured success=false payload.
	StrictErrors bool

	// ShutdownTimeout is the maximum time to wait for connections to drain during shutdown.
	// Defaults to 30 seconds if not specified.
	ShutdownTimeout time.Duration

	// ReadTimeout is the maximum duration for reading the entire request.
	// Defaults to 10 seconds if not specified.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Defaults to 10 seconds if not specified.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request.
	// Defaults to 60 seconds if not specified.
	IdleTimeout time.Duration
}

// NewServer creates the HTTP API server.
func NewServer(svc *planner.Service, logger *log.Logger, cfg Config) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}

	s := &Server{
		svc:             svc,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		strictErrors:    cfg.StrictErrors,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)

	// Backward compatibility: /healthz maps to readiness.
	mux.HandleFunc("GET /healthz", s.handleReadiness)

	mux.HandleFunc("POST /api/plans", s.handleUpsertPlan)
	mux.HandleFunc("GET /api/plans", s.handleListPlans)
	mux.HandleFunc("GET /api/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("GET /api/plans/{id}/progress", s.handleGetProgress)

	mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/webhook/health", s.handleWebhookHealth)

	return mux
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server is stopped or encounters an error.
// Returns http.ErrServerClosed when the server is shut down gracefully.
func (s *Server) Start() error {
	s.ready.Store(true)
	return s.httpServer.ListenAndServe()
}

// Shutdown performs graceful shutdown of the HTTP server.
//
// It:
//  1. Marks the server as shutting down (readiness probes will fail)
//  2. Disables HTTP keep-alives to stop accepting new requests
//  3. Waits for existing connections to drain (up to ShutdownTimeout)
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.ready.Store(false)

	s.httpServer.SetKeepAlivesEnabled(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// IsShuttingDown returns whether the server is shutting down.
func (s *Server) IsShuttingDown() bool {
	return s.inShutdown.Load()
}

// handleLiveness handles liveness probe requests.
// GET /health/live
//
// Liveness always returns 200 while the process can serve requests,
// shutdown included.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.inShutdown.Load() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// handleReadiness handles readiness probe requests.
// GET /health/ready
//
// Returns 503 when the server is not ready to accept traffic.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() || s.inShutdown.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
