package httpserver

import (
	"time"

	"github.com/helixir/integrations-worker/internal/temporal"
)

type searchRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

type startedResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Workflow   string `json:"workflow"`
	Status     string `json:"status"`
}

type conversionResponse struct {
	WorkflowID string   `json:"workflow_id"`
	RunID      string   `json:"run_id"`
	DocumentID string   `json:"document_id"`
	ImageCount int      `json:"image_count"`
	ImageURLs  []string `json:"image_urls,omitempty"`
}

type runResponse struct {
	WorkflowID   string      `json:"workflow_id"`
	RunID        string      `json:"run_id"`
	WorkflowType string      `json:"workflow_type"`
	Status       string      `json:"status"`
	Stage        string      `json:"stage,omitempty"`
	StartTime    time.Time   `json:"start_time"`
	CloseTime    *time.Time  `json:"close_time,omitempty"`
	Duration     string      `json:"duration,omitempty"`
	Result       interface{} `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
}

const (
	statusStarted         = "started"
	statusRunning         = "running"
	statusCancelRequested = "cancel_requested"
)

func startedFrom(name string, exec temporal.Execution) startedResponse {
	return startedResponse{
		WorkflowID: exec.WorkflowID,
		RunID:      exec.RunID,
		Workflow:   name,
		Status:     statusStarted,
	}
}

func runFromDescription(d *temporal.WorkflowDescription) runResponse {
	resp := runResponse{
		WorkflowID:   d.WorkflowID,
		RunID:        d.RunID,
		WorkflowType: d.WorkflowType,
		Status:       d.Status,
		StartTime:    d.StartTime,
		CloseTime:    d.CloseTime,
	}
	if d.CloseTime != nil && !d.StartTime.IsZero() {
		resp.Duration = d.CloseTime.Sub(d.StartTime).String()
	}
	return resp
}
