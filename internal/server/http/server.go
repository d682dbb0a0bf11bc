// Package httpserver provides the HTTP API that starts and inspects the
// worker's Temporal workflows.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/integrations-worker/internal/temporal"
)

// WorkflowClient defines the workflow operations used by the HTTP server.
// It is satisfied by *temporal.WorkflowClient.
type WorkflowClient interface {
	Start(ctx context.Context, name, workflowID string, args ...interface{}) (temporal.Execution, error)
	Result(ctx context.Context, workflowID, runID string, valuePtr interface{}) error
	DescribeWorkflow(ctx context.Context, workflowID, runID string) (*temporal.WorkflowDescription, error)
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, result interface{}) error
	CancelWorkflow(ctx context.Context, workflowID, runID string) error
	Health(ctx context.Context) error
}

var _ WorkflowClient = (*temporal.WorkflowClient)(nil)

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	workflows      WorkflowClient
	validate       *validator.Validate
	metricsHandler http.Handler
	metricsPath    string
	waitTimeout    time.Duration
	logger         zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// WaitTimeout bounds endpoints that wait for a workflow result.
	WaitTimeout time.Duration

	// MetricsPath is where MetricsHandler is mounted. Empty disables it.
	MetricsPath    string
	MetricsHandler http.Handler
}

// DefaultWaitTimeout is used when Config.WaitTimeout is zero.
const DefaultWaitTimeout = 2 * time.Minute

// NewServer creates a new HTTP server.
func NewServer(cfg Config, workflows WorkflowClient, logger zerolog.Logger) *Server {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}

	s := &Server{
		workflows:      workflows,
		validate:       newValidator(),
		metricsHandler: cfg.MetricsHandler,
		metricsPath:    cfg.MetricsPath,
		waitTimeout:    cfg.WaitTimeout,
		logger:         logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogMiddleware(s.logger))

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.metricsHandler != nil && s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, s.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Post("/searches", s.startSearch)
		r.Post("/tasks/{task}", s.startTask)
		r.Post("/pdf-conversions", s.convertPDF)
		r.Get("/runs/{workflowID}", s.getRun)
		r.Delete("/runs/{workflowID}", s.cancelRun)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness, which requires a reachable Temporal
// frontend.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.workflows.Health(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("temporal health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"temporal": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"temporal": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; an encode error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
