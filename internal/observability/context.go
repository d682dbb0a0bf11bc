package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	workflowKey
)

type workflowRef struct {
	workflowID string
	runID      string
}

// WithRequestID stores the HTTP correlation ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the correlation ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithWorkflow stores the identifiers of a started workflow run in ctx.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	return context.WithValue(ctx, workflowKey, workflowRef{workflowID: workflowID, runID: runID})
}

// WorkflowFromContext returns the workflow identifiers stored in ctx.
// Both are empty if none were stored.
func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	ref, _ := ctx.Value(workflowKey).(workflowRef)
	return ref.workflowID, ref.runID
}

// LoggerFromContext returns logger enriched with the request and workflow
// identifiers stored in ctx.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With().Str("request_id", id).Logger()
	}
	if wfID, runID := WorkflowFromContext(ctx); wfID != "" {
		logger = WithWorkflowContext(logger, wfID, runID)
	}
	return logger
}
