package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/integrations-worker/internal/browser"
	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
	"github.com/helixir/integrations-worker/internal/results"
)

// Fault injection stage names, as they appear in injected error messages.
const (
	StageInitialization = "browser initialization"
	StageNavigation     = "page navigation"
	StageSearch         = "search execution"
	StageExtraction     = "data extraction"
)

// SessionController creates remote browser sessions and reattaches to them by
// handle.
type SessionController interface {
	Create(ctx context.Context) (domain.SessionHandle, error)
	Attach(ctx context.Context, handle domain.SessionHandle) (browser.Page, error)
	Release(ctx context.Context, sessionID string) error
}

// ResultExtractor turns rendered page text into untyped result records.
type ResultExtractor interface {
	ExtractSearchResults(ctx context.Context, pageText string, limit int) ([]map[string]any, error)
}

// FaultInjector may fail ahead of a remote call.
type FaultInjector interface {
	Maybe(stage string) error
}

// SearchConfig configures the search steps.
type SearchConfig struct {
	// PageURL is the search engine landing page.
	PageURL string

	// InputSelector locates the query input.
	InputSelector string

	// SettleDelay is waited after submitting the query.
	SettleDelay time.Duration

	// ResultLimit caps the records requested from the extractor.
	ResultLimit int
}

// DefaultSearchConfig returns the search settings used when none are configured.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		PageURL:       "https://search.brave.com/",
		InputSelector: `input[name="q"]`,
		SettleDelay:   4 * time.Second,
		ResultLimit:   3,
	}
}

// BrowserActivities provides the steps of the resilient search workflow.
// Every step reattaches to the remote session by ID, so no connection is held
// between activities and any step can run on any worker.
type BrowserActivities struct {
	sessions  SessionController
	extractor ResultExtractor
	faults    FaultInjector
	cfg       SearchConfig
	metrics   *observability.Metrics
}

// NewBrowserActivities creates a new BrowserActivities instance.
// The metrics parameter may be nil.
func NewBrowserActivities(sessions SessionController, extractor ResultExtractor, faults FaultInjector, cfg SearchConfig, metrics *observability.Metrics) *BrowserActivities {
	def := DefaultSearchConfig()
	if cfg.PageURL == "" {
		cfg.PageURL = def.PageURL
	}
	if cfg.InputSelector == "" {
		cfg.InputSelector = def.InputSelector
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = def.ResultLimit
	}
	return &BrowserActivities{
		sessions:  sessions,
		extractor: extractor,
		faults:    faults,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// InitializeBrowser creates a remote browser session and checks that it can
// be attached to. A session that cannot be attached is released again.
func (a *BrowserActivities) InitializeBrowser(ctx context.Context) (_ domain.SessionHandle, err error) {
	defer track(a.metrics, "InitializeBrowser")(&err)
	logger := activity.GetLogger(ctx)

	if err := a.faults.Maybe(StageInitialization); err != nil {
		return domain.SessionHandle{}, err
	}

	handle, err := a.sessions.Create(ctx)
	if err != nil {
		return domain.SessionHandle{}, fmt.Errorf("create session: %w", err)
	}

	page, err := a.sessions.Attach(ctx, handle)
	if err != nil {
		if releaseErr := a.sessions.Release(ctx, handle.SessionID); releaseErr != nil {
			logger.Warn("failed to release unusable session", "sessionID", handle.SessionID, "error", releaseErr)
		}
		return domain.SessionHandle{}, fmt.Errorf("attach session: %w", err)
	}
	_ = page.Close()

	logger.Info("browser session ready", "sessionID", handle.SessionID, "attemptID", handle.AttemptID)
	return handle, nil
}

// NavigateToSearchPage loads the search engine in the session's tab.
func (a *BrowserActivities) NavigateToSearchPage(ctx context.Context, handle domain.SessionHandle) (err error) {
	defer track(a.metrics, "NavigateToSearchPage")(&err)

	if err := a.faults.Maybe(StageNavigation); err != nil {
		return err
	}

	page, err := a.attach(ctx, handle)
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()

	if err := page.Navigate(ctx, a.cfg.PageURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", a.cfg.PageURL, err)
	}

	activity.GetLogger(ctx).Info("search page loaded", "sessionID", handle.SessionID, "url", a.cfg.PageURL)
	return nil
}

// ExecuteSearch types the query, submits it and waits for the results to
// render.
func (a *BrowserActivities) ExecuteSearch(ctx context.Context, input ExecuteSearchInput) (err error) {
	defer track(a.metrics, "ExecuteSearch")(&err)

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return domain.NewFieldError("query", "must not be empty")
	}
	if err := a.faults.Maybe(StageSearch); err != nil {
		return err
	}

	page, err := a.attach(ctx, input.Session)
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()

	if err := page.TypeAndSubmit(ctx, a.cfg.InputSelector, query); err != nil {
		return fmt.Errorf("submit query: %w", err)
	}
	if err := page.WaitIdle(ctx, a.cfg.SettleDelay); err != nil {
		return err
	}

	activity.GetLogger(ctx).Info("search submitted", "sessionID", input.Session.SessionID, "query", query)
	return nil
}

// ExtractSearchResults reads the results page and validates the extracted
// records. A CAPTCHA or "sorry" page fails with domain.ErrBlockedPage before
// any extraction is attempted.
func (a *BrowserActivities) ExtractSearchResults(ctx context.Context, handle domain.SessionHandle) (_ []domain.SearchResult, err error) {
	defer track(a.metrics, "ExtractSearchResults")(&err)
	logger := activity.GetLogger(ctx)

	if err := a.faults.Maybe(StageExtraction); err != nil {
		return nil, err
	}

	page, err := a.attach(ctx, handle)
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	current, err := page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page url: %w", err)
	}
	if IsBlockedURL(current) {
		a.metrics.RecordSearchValidationFailed(domain.FailureBlockedPage)
		return nil, fmt.Errorf("%w: CAPTCHA detected at %s", domain.ErrBlockedPage, current)
	}

	text, err := page.Text(ctx, "body")
	if err != nil {
		return nil, fmt.Errorf("read page text: %w", err)
	}

	records, err := a.extractor.ExtractSearchResults(ctx, text, a.cfg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("extract results: %w", err)
	}

	valid, err := results.Validate(records)
	if err != nil {
		var verr *results.ValidationError
		if errors.As(err, &verr) {
			a.metrics.RecordSearchValidationFailed(verr.FailureType())
		}
		logger.Warn("search results rejected", "sessionID", handle.SessionID, "records", len(records), "error", err)
		return nil, err
	}

	a.metrics.RecordSearchResults(len(valid))
	logger.Info("search results extracted", "sessionID", handle.SessionID, "records", len(records), "valid", len(valid))
	return valid, nil
}

// CleanupBrowser releases the session. It never fails: cleanup errors are
// logged and swallowed so they cannot mask the workflow outcome.
func (a *BrowserActivities) CleanupBrowser(ctx context.Context, handle domain.SessionHandle) error {
	logger := activity.GetLogger(ctx)
	if handle.IsZero() {
		return nil
	}

	if err := a.sessions.Release(ctx, handle.SessionID); err != nil {
		a.metrics.RecordSessionCleanupFailed()
		logger.Warn("browser cleanup failed", "sessionID", handle.SessionID, "error", err)
		return nil
	}

	logger.Info("browser session released", "sessionID", handle.SessionID)
	return nil
}

// FormatResults renders validated results as the workflow's text output.
func (a *BrowserActivities) FormatResults(ctx context.Context, records []domain.SearchResult) (_ string, err error) {
	defer track(a.metrics, "FormatResults")(&err)
	return results.Format(records)
}

func (a *BrowserActivities) attach(ctx context.Context, handle domain.SessionHandle) (browser.Page, error) {
	if handle.IsZero() {
		return nil, domain.NewFieldError("session", "handle is empty")
	}
	page, err := a.sessions.Attach(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("reattach session %s: %w", handle.SessionID, err)
	}
	return page, nil
}

// IsBlockedURL reports whether rawURL is an anti-bot interstitial.
func IsBlockedURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "/sorry/") || strings.Contains(lower, "captcha")
}
