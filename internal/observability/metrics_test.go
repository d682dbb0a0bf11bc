package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_integrations_new")

	assert.NotNil(t, m.ActivitiesStarted)
	assert.NotNil(t, m.ActivitiesFailed)
	assert.NotNil(t, m.ActivityDuration)
	assert.NotNil(t, m.FaultsInjected)
	assert.NotNil(t, m.BrowserSessionsCreated)
	assert.NotNil(t, m.ProviderRequestsTotal)
	assert.NotNil(t, m.SearchResultsValidated)
	assert.NotNil(t, m.LLMRequestsTotal)
	assert.NotNil(t, m.LLMTokensUsed)
	assert.NotNil(t, m.ObjectsUploaded)
	assert.NotNil(t, m.EmailsSent)
}

func TestRecordActivity(t *testing.T) {
	m := NewMetrics("test_activity")

	m.RecordActivityStarted("ExecuteSearch")
	m.RecordActivityFailed("ExecuteSearch", "NetworkFault", 0.2)
	m.RecordActivityCompleted("ExecuteSearch", 1.5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActivitiesStarted.WithLabelValues("ExecuteSearch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActivitiesFailed.WithLabelValues("ExecuteSearch", "NetworkFault")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ActivityDuration))
}

func TestRecordFaultInjected(t *testing.T) {
	m := NewMetrics("test_fault_injected")

	m.RecordFaultInjected("search execution")
	m.RecordFaultInjected("search execution")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FaultsInjected.WithLabelValues("search execution")))
}

func TestRecordSessionLifecycle(t *testing.T) {
	m := NewMetrics("test_session_lifecycle")

	m.RecordSessionCreated()
	m.RecordSessionReleased()
	m.RecordSessionCleanupFailed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.BrowserSessionsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BrowserSessionsReleased))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BrowserSessionsCleanupFailed))
}

func TestRecordProviderRequest(t *testing.T) {
	m := NewMetrics("test_provider_request")

	m.RecordProviderRequest("sessions", 0.5)
	m.RecordProviderRequestFailed("sessions", "server_error")
	m.RecordProviderRateLimited()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("sessions")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsFailed.WithLabelValues("sessions", "server_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRateLimited))
}

func TestRecordSearchResults(t *testing.T) {
	m := NewMetrics("test_search_results")

	m.RecordSearchResults(3)
	m.RecordSearchValidationFailed("BlockedPage")

	histCount, err := getHistogramSampleCount(m.SearchResultsValidated)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchValidationFailed.WithLabelValues("BlockedPage")))
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics("test_llm_request")

	m.RecordLLMRequest("summarize", "gpt-4o", 2.5, 100, 50)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("summarize", "gpt-4o")))
	assert.Equal(t, float64(100), testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("summarize", "gpt-4o", "input")))
	assert.Equal(t, float64(50), testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("summarize", "gpt-4o", "output")))
}

func TestRecordLLMRequestFailed(t *testing.T) {
	m := NewMetrics("test_llm_request_failed")

	m.RecordLLMRequestFailed("extract_results", "gpt-4o", "rate_limit")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsFailed.WithLabelValues("extract_results", "gpt-4o", "rate_limit")))
}

func TestRecordDigestArticles(t *testing.T) {
	m := NewMetrics("test_digest_articles")

	m.RecordDigestArticles(2, 1)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ArticlesSummarized))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ArticlesSkipped))
}

func TestRecordDocuments(t *testing.T) {
	m := NewMetrics("test_documents")

	m.RecordPDFConverted(4)
	m.RecordPDFConversionFailed()
	m.RecordUpload("pdfs", 2048)
	m.RecordEmailSent()
	m.RecordEmailFailed()

	assert.Equal(t, float64(4), testutil.ToFloat64(m.PDFPagesConverted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PDFConversionsFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ObjectsUploaded.WithLabelValues("pdfs")))
	assert.Equal(t, float64(2048), testutil.ToFloat64(m.UploadBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmailsSent))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmailsFailed))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordActivityStarted("a")
		m.RecordActivityCompleted("a", 1)
		m.RecordActivityFailed("a", "b", 1)
		m.RecordFaultInjected("s")
		m.RecordSessionCreated()
		m.RecordSessionReleased()
		m.RecordSessionCleanupFailed()
		m.RecordProviderRequest("e", 1)
		m.RecordProviderRequestFailed("e", "t")
		m.RecordProviderRateLimited()
		m.RecordSearchResults(1)
		m.RecordSearchValidationFailed("k")
		m.RecordLLMRequest("o", "m", 1, 1, 1)
		m.RecordLLMRequestFailed("o", "m", "t")
		m.RecordDigestArticles(1, 1)
		m.RecordPDFConverted(1)
		m.RecordPDFConversionFailed()
		m.RecordUpload("p", 1)
		m.RecordEmailSent()
		m.RecordEmailFailed()
	})
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
