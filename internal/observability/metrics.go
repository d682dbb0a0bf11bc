package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the integrations worker.
// Metrics are organized by subsystem: activities, browser sessions, search
// results, fault injection, LLM calls, documents, storage and email. All
// counters and histograms are registered via promauto with the default
// Prometheus registry.
//
// Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// ActivitiesStarted counts activity executions, labeled by activity name.
	ActivitiesStarted *prometheus.CounterVec

	// ActivitiesFailed counts failed activity executions, labeled by activity name and failure type.
	ActivitiesFailed *prometheus.CounterVec

	// ActivityDuration observes activity execution duration in seconds, labeled by activity name.
	ActivityDuration *prometheus.HistogramVec

	// FaultsInjected counts simulated network faults, labeled by stage.
	FaultsInjected *prometheus.CounterVec

	// BrowserSessionsCreated counts remote browser sessions created.
	BrowserSessionsCreated prometheus.Counter

	// BrowserSessionsReleased counts remote browser sessions released.
	BrowserSessionsReleased prometheus.Counter

	// BrowserSessionsCleanupFailed counts cleanup attempts that failed and were ignored.
	BrowserSessionsCleanupFailed prometheus.Counter

	// ProviderRequestsTotal counts requests to the browser provider API, labeled by endpoint.
	ProviderRequestsTotal *prometheus.CounterVec

	// ProviderRequestsFailed counts failed provider API requests, labeled by endpoint and error type.
	ProviderRequestsFailed *prometheus.CounterVec

	// ProviderRequestDuration observes provider API request duration in seconds, labeled by endpoint.
	ProviderRequestDuration *prometheus.HistogramVec

	// ProviderRateLimited counts rate-limited responses from the provider API.
	ProviderRateLimited prometheus.Counter

	// SearchResultsValidated observes the number of results that passed validation per extraction.
	SearchResultsValidated prometheus.Histogram

	// SearchValidationFailed counts extractions rejected by validation, labeled by kind.
	SearchValidationFailed *prometheus.CounterVec

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed by LLM operations, labeled by operation, model, and token type.
	LLMTokensUsed *prometheus.CounterVec

	// ArticlesSummarized counts articles that received a summary.
	ArticlesSummarized prometheus.Counter

	// ArticlesSkipped counts articles dropped from a digest after their summary failed.
	ArticlesSkipped prometheus.Counter

	// PDFPagesConverted counts page images produced by PDF conversion.
	PDFPagesConverted prometheus.Counter

	// PDFConversionsFailed counts PDF conversions that failed.
	PDFConversionsFailed prometheus.Counter

	// ObjectsUploaded counts objects written to storage, labeled by key prefix.
	ObjectsUploaded *prometheus.CounterVec

	// UploadBytes counts bytes written to storage.
	UploadBytes prometheus.Counter

	// EmailsSent counts emails delivered.
	EmailsSent prometheus.Counter

	// EmailsFailed counts email deliveries that failed.
	EmailsFailed prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Activities
		ActivitiesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_started_total",
			Help:      "Total number of activity executions started",
		}, []string{"activity"}),
		ActivitiesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_failed_total",
			Help:      "Total number of activity executions that failed",
		}, []string{"activity", "failure_type"}),
		ActivityDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activity_duration_seconds",
			Help:      "Duration of activity executions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"activity"}),

		// Faults
		FaultsInjected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_injected_total",
			Help:      "Total number of simulated network faults injected",
		}, []string{"stage"}),

		// Browser sessions
		BrowserSessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_sessions_created_total",
			Help:      "Total number of remote browser sessions created",
		}),
		BrowserSessionsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_sessions_released_total",
			Help:      "Total number of remote browser sessions released",
		}),
		BrowserSessionsCleanupFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_sessions_cleanup_failed_total",
			Help:      "Total number of browser session cleanups that failed",
		}),
		ProviderRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of requests to the browser provider API",
		}, []string{"endpoint"}),
		ProviderRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_failed_total",
			Help:      "Total number of failed requests to the browser provider API",
		}, []string{"endpoint", "error_type"}),
		ProviderRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of browser provider API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ProviderRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_rate_limited_total",
			Help:      "Total number of rate-limited responses from the browser provider API",
		}),

		// Search results
		SearchResultsValidated: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_validated",
			Help:      "Number of search results that passed validation per extraction",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
		SearchValidationFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_validation_failed_total",
			Help:      "Total number of extractions rejected by validation",
		}, []string{"kind"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM API requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used in LLM requests",
		}, []string{"operation", "model", "type"}),

		// Digest
		ArticlesSummarized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_summarized_total",
			Help:      "Total number of articles summarized",
		}),
		ArticlesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_skipped_total",
			Help:      "Total number of articles dropped from a digest",
		}),

		// Documents
		PDFPagesConverted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_pages_converted_total",
			Help:      "Total number of PDF pages rasterized to images",
		}),
		PDFConversionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_conversions_failed_total",
			Help:      "Total number of PDF conversions that failed",
		}),

		// Storage
		ObjectsUploaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_uploaded_total",
			Help:      "Total number of objects uploaded to storage",
		}, []string{"prefix"}),
		UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total number of bytes uploaded to storage",
		}),

		// Email
		EmailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of emails sent",
		}),
		EmailsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of emails that failed to send",
		}),
	}
}

// RecordActivityStarted records that an activity execution has started.
func (m *Metrics) RecordActivityStarted(activity string) {
	if m == nil {
		return
	}
	m.ActivitiesStarted.WithLabelValues(activity).Inc()
}

// RecordActivityCompleted records a successful activity execution.
func (m *Metrics) RecordActivityCompleted(activity string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ActivityDuration.WithLabelValues(activity).Observe(durationSeconds)
}

// RecordActivityFailed records a failed activity execution.
func (m *Metrics) RecordActivityFailed(activity, failureType string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ActivitiesFailed.WithLabelValues(activity, failureType).Inc()
	m.ActivityDuration.WithLabelValues(activity).Observe(durationSeconds)
}

// RecordFaultInjected records a simulated network fault.
func (m *Metrics) RecordFaultInjected(stage string) {
	if m == nil {
		return
	}
	m.FaultsInjected.WithLabelValues(stage).Inc()
}

// RecordSessionCreated records a new remote browser session.
func (m *Metrics) RecordSessionCreated() {
	if m == nil {
		return
	}
	m.BrowserSessionsCreated.Inc()
}

// RecordSessionReleased records a released remote browser session.
func (m *Metrics) RecordSessionReleased() {
	if m == nil {
		return
	}
	m.BrowserSessionsReleased.Inc()
}

// RecordSessionCleanupFailed records a cleanup failure that was ignored.
func (m *Metrics) RecordSessionCleanupFailed() {
	if m == nil {
		return
	}
	m.BrowserSessionsCleanupFailed.Inc()
}

// RecordProviderRequest records a request to the browser provider API.
func (m *Metrics) RecordProviderRequest(endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(endpoint).Inc()
	m.ProviderRequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordProviderRequestFailed records a failed request to the browser provider API.
func (m *Metrics) RecordProviderRequestFailed(endpoint, errorType string) {
	if m == nil {
		return
	}
	m.ProviderRequestsFailed.WithLabelValues(endpoint, errorType).Inc()
}

// RecordProviderRateLimited records a rate limit response from the provider.
func (m *Metrics) RecordProviderRateLimited() {
	if m == nil {
		return
	}
	m.ProviderRateLimited.Inc()
}

// RecordSearchResults records the number of results that passed validation.
func (m *Metrics) RecordSearchResults(count int) {
	if m == nil {
		return
	}
	m.SearchResultsValidated.Observe(float64(count))
}

// RecordSearchValidationFailed records an extraction rejected by validation.
func (m *Metrics) RecordSearchValidationFailed(kind string) {
	if m == nil {
		return
	}
	m.SearchValidationFailed.WithLabelValues(kind).Inc()
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(operation, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(operation, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	if m == nil {
		return
	}
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}

// RecordDigestArticles records how many articles made it into a digest and
// how many were dropped.
func (m *Metrics) RecordDigestArticles(summarized, skipped int) {
	if m == nil {
		return
	}
	m.ArticlesSummarized.Add(float64(summarized))
	m.ArticlesSkipped.Add(float64(skipped))
}

// RecordPDFConverted records the page images produced by a conversion.
func (m *Metrics) RecordPDFConverted(pages int) {
	if m == nil {
		return
	}
	m.PDFPagesConverted.Add(float64(pages))
}

// RecordPDFConversionFailed records a failed conversion.
func (m *Metrics) RecordPDFConversionFailed() {
	if m == nil {
		return
	}
	m.PDFConversionsFailed.Inc()
}

// RecordUpload records an object written to storage.
func (m *Metrics) RecordUpload(prefix string, sizeBytes int64) {
	if m == nil {
		return
	}
	m.ObjectsUploaded.WithLabelValues(prefix).Inc()
	m.UploadBytes.Add(float64(sizeBytes))
}

// RecordEmailSent records a delivered email.
func (m *Metrics) RecordEmailSent() {
	if m == nil {
		return
	}
	m.EmailsSent.Inc()
}

// RecordEmailFailed records a failed email delivery.
func (m *Metrics) RecordEmailFailed() {
	if m == nil {
		return
	}
	m.EmailsFailed.Inc()
}
