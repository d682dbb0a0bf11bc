package workflows

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/integrations-worker/internal/domain"
	itemporal "github.com/helixir/integrations-worker/internal/temporal"
	"github.com/helixir/integrations-worker/internal/temporal/activities"
)

// Stages reported by the QueryStage handler of SearchWithRetryWorkflow.
const (
	StageStarting     = "starting"
	StageInitializing = "initializing"
	StageNavigating   = "navigating"
	StageSearching    = "searching"
	StageExtracting   = "extracting"
	StageFormatting   = "formatting"
	StageCompleted    = "completed"
	StageFailed       = "failed"
)

// SearchWithRetryWorkflow runs a web search in a remote browser and returns
// the formatted results. Each step is a separate activity with its own retry
// policy, reattaching to the session by ID. The session is released on every
// exit path, including cancellation; a failed release never fails the run.
func SearchWithRetryWorkflow(ctx workflow.Context, query string) (_ string, err error) {
	logger := workflow.GetLogger(ctx)

	stage := StageStarting
	if err := workflow.SetQueryHandler(ctx, itemporal.QueryStage, func() (string, error) {
		return stage, nil
	}); err != nil {
		return "", fmt.Errorf("register query handler: %w", err)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		stage = StageFailed
		return "", temporal.NewNonRetryableApplicationError("query must not be empty", domain.FailureInvalidInput, nil)
	}

	var a *activities.BrowserActivities
	var handle domain.SessionHandle

	defer func() {
		if err != nil {
			logger.Error("search failed", "stage", stage, "error", err)
			stage = StageFailed
		}
		if handle.IsZero() {
			return
		}
		cleanupCtx, cancel := workflow.NewDisconnectedContext(ctx)
		defer cancel()
		if cleanupErr := workflow.ExecuteActivity(cleanupPolicy.with(cleanupCtx), a.CleanupBrowser, handle).Get(cleanupCtx, nil); cleanupErr != nil {
			logger.Warn("browser cleanup failed", "sessionID", handle.SessionID, "error", cleanupErr)
		}
	}()

	stage = StageInitializing
	if err := workflow.ExecuteActivity(initPolicy.with(ctx), a.InitializeBrowser).Get(ctx, &handle); err != nil {
		return "", fmt.Errorf("initialize browser: %w", err)
	}
	logger.Info("browser initialized", "sessionID", handle.SessionID, "attemptID", handle.AttemptID)

	stage = StageNavigating
	if err := workflow.ExecuteActivity(navigatePolicy.with(ctx), a.NavigateToSearchPage, handle).Get(ctx, nil); err != nil {
		return "", fmt.Errorf("navigate to search page: %w", err)
	}

	stage = StageSearching
	input := activities.ExecuteSearchInput{Session: handle, Query: query}
	if err := workflow.ExecuteActivity(searchPolicy.with(ctx), a.ExecuteSearch, input).Get(ctx, nil); err != nil {
		return "", fmt.Errorf("execute search: %w", err)
	}

	stage = StageExtracting
	var records []domain.SearchResult
	if err := workflow.ExecuteActivity(extractPolicy.with(ctx), a.ExtractSearchResults, handle).Get(ctx, &records); err != nil {
		return "", fmt.Errorf("extract search results: %w", err)
	}

	stage = StageFormatting
	var formatted string
	if err := workflow.ExecuteActivity(formatPolicy.with(ctx), a.FormatResults, records).Get(ctx, &formatted); err != nil {
		return "", fmt.Errorf("format results: %w", err)
	}

	stage = StageCompleted
	logger.Info("search completed", "query", query, "results", len(records))
	return formatted, nil
}
