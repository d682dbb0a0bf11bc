package activities

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/faults"
)

var testHandle = domain.SessionHandle{SessionID: "sess-1", AttemptID: "a1b2c3d4"}

func newBrowserEnv(t *testing.T, sessions *mockSessions, extractor *mockExtractor, f FaultInjector) (*testsuite.TestActivityEnvironment, *BrowserActivities) {
	t.Helper()
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	if f == nil {
		f = stageFaults{}
	}
	acts := NewBrowserActivities(sessions, extractor, f, SearchConfig{SettleDelay: time.Millisecond}, nil)
	env.RegisterActivity(acts)
	return env, acts
}

func requireAppError(t *testing.T, err error, failureType string, nonRetryable bool) {
	t.Helper()
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr), "expected application error, got %v", err)
	assert.Equal(t, failureType, appErr.Type())
	assert.Equal(t, nonRetryable, appErr.NonRetryable())
}

func TestNewBrowserActivities_Defaults(t *testing.T) {
	acts := NewBrowserActivities(nil, nil, stageFaults{}, SearchConfig{}, nil)
	assert.Equal(t, "https://search.brave.com/", acts.cfg.PageURL)
	assert.Equal(t, `input[name="q"]`, acts.cfg.InputSelector)
	assert.Equal(t, 3, acts.cfg.ResultLimit)
}

func TestInitializeBrowser_Success(t *testing.T) {
	page := &fakePage{}
	sessions := &mockSessions{}
	sessions.On("Create", mock.Anything).Return(testHandle, nil)
	sessions.On("Attach", mock.Anything, testHandle).Return(page, nil)

	env, acts := newBrowserEnv(t, sessions, nil, nil)
	result, err := env.ExecuteActivity(acts.InitializeBrowser)
	require.NoError(t, err)

	var handle domain.SessionHandle
	require.NoError(t, result.Get(&handle))
	assert.Equal(t, testHandle, handle)
	assert.Equal(t, 1, page.closed)
	sessions.AssertExpectations(t)
}

func TestInitializeBrowser_ReleasesUnattachableSession(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Create", mock.Anything).Return(testHandle, nil)
	sessions.On("Attach", mock.Anything, testHandle).Return(nil, errors.New("websocket closed"))
	sessions.On("Release", mock.Anything, "sess-1").Return(nil)

	env, acts := newBrowserEnv(t, sessions, nil, nil)
	_, err := env.ExecuteActivity(acts.InitializeBrowser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attach session")
	sessions.AssertExpectations(t)
}

func TestInitializeBrowser_InjectedFault(t *testing.T) {
	sessions := &mockSessions{}
	f := faults.New(1, faults.WithSeed(7))

	env, acts := newBrowserEnv(t, sessions, nil, f)
	_, err := env.ExecuteActivity(acts.InitializeBrowser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network failure during browser initialization")
	requireAppError(t, err, domain.FailureNetworkFault, false)
	sessions.AssertNotCalled(t, "Create", mock.Anything)
}

func TestNavigateToSearchPage(t *testing.T) {
	page := &fakePage{}
	sessions := &mockSessions{}
	sessions.On("Attach", mock.Anything, testHandle).Return(page, nil)

	env, acts := newBrowserEnv(t, sessions, nil, nil)
	_, err := env.ExecuteActivity(acts.NavigateToSearchPage, testHandle)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://search.brave.com/"}, page.visited)
	assert.Equal(t, 1, page.closed)
}

func TestNavigateToSearchPage_EmptyHandle(t *testing.T) {
	env, acts := newBrowserEnv(t, &mockSessions{}, nil, nil)
	_, err := env.ExecuteActivity(acts.NavigateToSearchPage, domain.SessionHandle{})
	require.Error(t, err)
	requireAppError(t, err, domain.FailureInvalidInput, true)
}

func TestExecuteSearch(t *testing.T) {
	page := &fakePage{}
	sessions := &mockSessions{}
	sessions.On("Attach", mock.Anything, testHandle).Return(page, nil)

	env, acts := newBrowserEnv(t, sessions, nil, nil)
	_, err := env.ExecuteActivity(acts.ExecuteSearch, ExecuteSearchInput{Session: testHandle, Query: "  temporal workflows "})
	require.NoError(t, err)
	assert.Equal(t, []string{`input[name="q"]=temporal workflows`}, page.typed)
	assert.Equal(t, time.Millisecond, page.waited)
}

func TestExecuteSearch_EmptyQueryIsNotRetried(t *testing.T) {
	env, acts := newBrowserEnv(t, &mockSessions{}, nil, nil)
	_, err := env.ExecuteActivity(acts.ExecuteSearch, ExecuteSearchInput{Session: testHandle, Query: " "})
	require.Error(t, err)
	requireAppError(t, err, domain.FailureInvalidInput, true)
}

func TestExtractSearchResults_Success(t *testing.T) {
	page := &fakePage{
		url:   "https://search.brave.com/search?q=go",
		texts: map[string]string{"body": "results page"},
	}
	sessions := &mockSessions{}
	sessions.On("Attach", mock.Anything, testHandle).Return(page, nil)
	extractor := &mockExtractor{}
	extractor.On("ExtractSearchResults", mock.Anything, "results page", 3).Return([]map[string]any{
		{"title": "The Go Programming Language", "snippet": "Go is an open source language."},
		{"title": "Go", "snippet": "short"},
	}, nil)

	env, acts := newBrowserEnv(t, sessions, extractor, nil)
	result, err := env.ExecuteActivity(acts.ExtractSearchResults, testHandle)
	require.NoError(t, err)

	var records []domain.SearchResult
	require.NoError(t, result.Get(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "The Go Programming Language", records[0].Title)
	extractor.AssertExpectations(t)
}

func TestExtractSearchResults_CaptchaPage(t *testing.T) {
	for _, u := range []string{
		"https://www.google.com/sorry/index?continue=x",
		"https://search.example.com/CAPTCHA",
	} {
		t.Run(u, func(t *testing.T) {
			page := &fakePage{url: u}
			sessions := &mockSessions{}
			sessions.On("Attach", mock.Anything, testHandle).Return(page, nil)
			extractor := &mockExtractor{}

			env, acts := newBrowserEnv(t, sessions, extractor, nil)
			_, err := env.ExecuteActivity(acts.ExtractSearchResults, testHandle)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "CAPTCHA detected")
			requireAppError(t, err, domain.FailureBlockedPage, false)
			extractor.AssertNotCalled(t, "ExtractSearchResults", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExtractSearchResults_NullRecordsAreBlockedPage(t *testing.T) {
	page := &fakePage{url: "https://search.brave.com/search", texts: map[string]string{"body": "x"}}
	sessions := &mockSessions{}
	sessions.On("Attach", mock.Anything, testHandle).Return(page, nil)
	extractor := &mockExtractor{}
	extractor.On("ExtractSearchResults", mock.Anything, "x", 3).
		Return([]map[string]any{{"title": nil, "snippet": "null"}}, nil)

	env, acts := newBrowserEnv(t, sessions, extractor, nil)
	_, err := env.ExecuteActivity(acts.ExtractSearchResults, testHandle)
	require.Error(t, err)
	requireAppError(t, err, domain.FailureBlockedPage, false)
}

func TestExtractSearchResults_MalformedRecords(t *testing.T) {
	page := &fakePage{url: "https://search.brave.com/search", texts: map[string]string{"body": "x"}}
	sessions := &mockSessions{}
	sessions.On("Attach", mock.Anything, testHandle).Return(page, nil)
	extractor := &mockExtractor{}
	extractor.On("ExtractSearchResults", mock.Anything, "x", 3).
		Return([]map[string]any{{"title": "ab"}}, nil)

	env, acts := newBrowserEnv(t, sessions, extractor, nil)
	_, err := env.ExecuteActivity(acts.ExtractSearchResults, testHandle)
	require.Error(t, err)
	requireAppError(t, err, domain.FailureMalformedData, false)
}

func TestCleanupBrowser_SwallowsErrors(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Release", mock.Anything, "sess-1").Return(errors.New("already gone"))

	env, acts := newBrowserEnv(t, sessions, nil, nil)
	_, err := env.ExecuteActivity(acts.CleanupBrowser, testHandle)
	require.NoError(t, err)
	sessions.AssertExpectations(t)
}

func TestCleanupBrowser_ZeroHandle(t *testing.T) {
	sessions := &mockSessions{}
	env, acts := newBrowserEnv(t, sessions, nil, nil)
	_, err := env.ExecuteActivity(acts.CleanupBrowser, domain.SessionHandle{})
	require.NoError(t, err)
	sessions.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestFormatResults(t *testing.T) {
	env, acts := newBrowserEnv(t, &mockSessions{}, nil, nil)

	result, err := env.ExecuteActivity(acts.FormatResults, []domain.SearchResult{
		{Title: "First result", Snippet: "First snippet text"},
	})
	require.NoError(t, err)
	var out string
	require.NoError(t, result.Get(&out))
	assert.Contains(t, out, "Successfully found 1 search results")

	_, err = env.ExecuteActivity(acts.FormatResults, []domain.SearchResult{})
	require.Error(t, err)
	requireAppError(t, err, domain.FailureEmptyResults, false)
}

func TestIsBlockedURL(t *testing.T) {
	assert.True(t, IsBlockedURL("https://www.google.com/sorry/index"))
	assert.True(t, IsBlockedURL("https://example.com/captcha?x=1"))
	assert.False(t, IsBlockedURL("https://example.com/search?q=sorry"))
}
