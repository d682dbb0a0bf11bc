// Package activities provides the Temporal activity implementations of the
// integrations worker: browser search steps, single page tasks, document
// rendering and conversion, and the Hacker News digest.
//
// Activity inputs and outputs cross the Temporal serialization boundary, so
// every field is exported and JSON encodable. Errors leave an activity as
// Temporal application errors carrying a failure type name; invalid input is
// marked non-retryable, everything else is left to the retry policy.
package activities

import (
	"time"

	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
	"github.com/helixir/integrations-worker/internal/temporal/resilience"
)

// ExecuteSearchInput contains the parameters of ExecuteSearch.
type ExecuteSearchInput struct {
	// Session is the handle returned by InitializeBrowser.
	Session domain.SessionHandle

	// Query is typed into the search box.
	Query string
}

// FetchArticleInput contains the parameters of FetchArticleContent.
type FetchArticleInput struct {
	// URL is the article link.
	URL string

	// Limit caps the returned text in runes. Zero uses the configured limit.
	Limit int
}

// SendDigestInput contains the parameters of SendDigestEmail.
type SendDigestInput struct {
	// Articles are the summarized articles, in listing order.
	Articles []domain.Article

	// To overrides the configured recipients.
	To []string

	// Subject overrides the configured subject.
	Subject string
}

// track records the start of an activity and returns a function that records
// its outcome and converts the returned error into an application error.
// Use it with a named error result:
//
//	defer track(a.metrics, "InitializeBrowser")(&err)
func track(metrics *observability.Metrics, name string) func(*error) {
	metrics.RecordActivityStarted(name)
	start := time.Now()
	return func(errp *error) {
		elapsed := time.Since(start).Seconds()
		if *errp == nil {
			metrics.RecordActivityCompleted(name, elapsed)
			return
		}
		metrics.RecordActivityFailed(name, resilience.FailureType(*errp), elapsed)
		*errp = resilience.ToApplicationError(*errp)
	}
}
