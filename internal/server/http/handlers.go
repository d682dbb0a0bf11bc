package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
	"github.com/helixir/integrations-worker/internal/temporal"
)

// task describes one entry of POST /api/v1/tasks/{task}.
type task struct {
	workflow string
	// newRequest returns a pointer to the zero request of the workflow.
	newRequest func() interface{}
	// bodyRequired rejects empty bodies.
	bodyRequired bool
}

var tasks = map[string]task{
	"page-title": {
		workflow:   temporal.PageTitleWorkflowName,
		newRequest: func() interface{} { return &temporal.PageRequest{} },
	},
	"star-count": {
		workflow:   temporal.StarCountWorkflowName,
		newRequest: func() interface{} { return &temporal.PageRequest{} },
	},
	"webpage-pdf": {
		workflow:   temporal.WebpagePDFWorkflowName,
		newRequest: func() interface{} { return &temporal.WebpagePDFRequest{} },
	},
	"resume-pdf": {
		workflow:     temporal.ResumePDFWorkflowName,
		newRequest:   func() interface{} { return &temporal.ResumePDFRequest{} },
		bodyRequired: true,
	},
	"hn-digest": {
		workflow:   temporal.HackerNewsDigestWorkflowName,
		newRequest: func() interface{} { return &temporal.DigestRequest{} },
	},
}

// startSearch handles POST /searches.
func (s *Server) startSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.bind(w, r, &req, false) {
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	exec, err := s.workflows.Start(r.Context(), temporal.SearchWorkflowName, "", req.Query)
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	s.logStarted(r, temporal.SearchWorkflowName, exec)
	writeJSON(w, http.StatusAccepted, startedFrom(temporal.SearchWorkflowName, exec))
}

// startTask handles POST /tasks/{task}.
func (s *Server) startTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "task")
	t, ok := tasks[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown task")
		return
	}

	req := t.newRequest()
	if !s.bind(w, r, req, !t.bodyRequired) {
		return
	}

	exec, err := s.workflows.Start(r.Context(), t.workflow, "", req)
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	s.logStarted(r, t.workflow, exec)
	writeJSON(w, http.StatusAccepted, startedFrom(t.workflow, exec))
}

// convertPDF handles POST /pdf-conversions. It starts the conversion and
// waits for it; a conversion that outlives the wait timeout is reported as
// accepted so the caller can poll /runs/{workflowID}.
func (s *Server) convertPDF(w http.ResponseWriter, r *http.Request) {
	var req temporal.PDFToImagesRequest
	if !s.bind(w, r, &req, false) {
		return
	}

	exec, err := s.workflows.Start(r.Context(), temporal.PDFToImagesWorkflowName, "", req)
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	s.logStarted(r, temporal.PDFToImagesWorkflowName, exec)

	ctx, cancel := context.WithTimeout(r.Context(), s.waitTimeout)
	defer cancel()

	var result domain.ConversionResult
	if err := s.workflows.Result(ctx, exec.WorkflowID, exec.RunID, &result); err != nil {
		if errors.Is(err, temporal.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			resp := startedFrom(temporal.PDFToImagesWorkflowName, exec)
			resp.Status = statusRunning
			writeJSON(w, http.StatusAccepted, resp)
			return
		}
		s.writeWorkflowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conversionResponse{
		WorkflowID: exec.WorkflowID,
		RunID:      exec.RunID,
		DocumentID: result.DocumentID,
		ImageCount: result.ImageCount,
		ImageURLs:  result.ImageURLs,
	})
}

// getRun handles GET /runs/{workflowID}. Running searches report their
// current stage; closed runs include their result or failure message.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := workflowIDParam(w, r)
	if !ok {
		return
	}

	desc, err := s.workflows.DescribeWorkflow(r.Context(), workflowID, "")
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}

	resp := runFromDescription(desc)
	if desc.Running() && desc.WorkflowType == temporal.SearchWorkflowName {
		var stage string
		if err := s.workflows.QueryWorkflow(r.Context(), desc.WorkflowID, desc.RunID, temporal.QueryStage, &stage); err != nil {
			logger := observability.LoggerFromContext(r.Context(), s.logger)
			// A run that completes between describe and query rejects the query.
			event := logger.Warn()
			if temporal.IsQueryFailed(err) {
				event = logger.Debug()
			}
			event.Err(err).Str("workflow_id", desc.WorkflowID).Msg("stage query failed")
		} else {
			resp.Stage = stage
		}
	}
	if !desc.Running() {
		var result interface{}
		if err := s.workflows.Result(r.Context(), desc.WorkflowID, desc.RunID, &result); err != nil {
			if !temporal.IsWorkflowFailed(err) {
				s.writeWorkflowError(w, r, err)
				return
			}
			resp.Error = failureMessage(err)
		} else {
			resp.Result = result
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// cancelRun handles DELETE /runs/{workflowID}. Cancellation is asynchronous;
// the search workflow still releases its browser session.
func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := workflowIDParam(w, r)
	if !ok {
		return
	}

	if err := s.workflows.CancelWorkflow(r.Context(), workflowID, ""); err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	logger := observability.LoggerFromContext(r.Context(), s.logger)
	logger.Info().Str("workflow_id", workflowID).Msg("workflow cancellation requested")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"workflow_id": workflowID,
		"status":      statusCancelRequested,
	})
}

func workflowIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	workflowID := strings.TrimSpace(chi.URLParam(r, "workflowID"))
	if workflowID == "" {
		writeError(w, http.StatusBadRequest, "workflow_id is required")
		return "", false
	}
	return workflowID, true
}

// writeWorkflowError maps workflow client errors to HTTP status codes.
// Internal error details are not leaked to clients.
func (s *Server) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case temporal.IsWorkflowNotFound(err):
		writeError(w, http.StatusNotFound, "workflow not found")
	case temporal.IsWorkflowAlreadyStarted(err):
		writeError(w, http.StatusConflict, "workflow already started")
	case errors.Is(err, temporal.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, temporal.ErrResourceExhausted):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case temporal.IsConnectionFailed(err), errors.Is(err, temporal.ErrClientClosed):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case temporal.IsWorkflowFailed(err):
		writeError(w, http.StatusUnprocessableEntity, failureMessage(err))
	default:
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("workflow request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) logStarted(r *http.Request, name string, exec temporal.Execution) {
	ctx := observability.WithWorkflow(r.Context(), exec.WorkflowID, exec.RunID)
	logger := observability.LoggerFromContext(ctx, s.logger)
	logger.Info().Str("workflow", name).Msg("workflow started")
}

// failureMessage returns the innermost message of a workflow failure, which
// is the application error raised by the failing activity.
func failureMessage(err error) string {
	msg := err.Error()
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		msg = e.Error()
	}
	return msg
}
