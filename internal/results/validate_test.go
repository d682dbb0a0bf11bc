package results

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/integrations-worker/internal/domain"
)

func TestValidate_StrictTier(t *testing.T) {
	records := []map[string]any{
		{"title": "Temporal Documentation", "snippet": "Build invincible applications with durable execution."},
		{"title": "Short", "snippet": "This title is exactly five characters long."},
		{"title": "Go Programming Language", "snippet": "too short"},
		{"title": "Workflow Engines Compared", "snippet": "A survey of orchestration tools in 2024."},
	}

	got, err := Validate(records)
	require.NoError(t, err)

	assert.Equal(t, []domain.SearchResult{
		{Title: "Temporal Documentation", Snippet: "Build invincible applications with durable execution."},
		{Title: "Workflow Engines Compared", Snippet: "A survey of orchestration tools in 2024."},
	}, got)
}

func TestValidate_StrictTierSkipsLenientWhenAnyPass(t *testing.T) {
	records := []map[string]any{
		{"title": "Long enough title", "snippet": "Long enough snippet text."},
		{"title": "Abc", "snippet": "x"},
	}

	got, err := Validate(records)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Long enough title", got[0].Title)
}

func TestValidate_LenientTier(t *testing.T) {
	tests := []struct {
		name     string
		records  []map[string]any
		expected []domain.SearchResult
	}{
		{
			name:     "short snippet accepted",
			records:  []map[string]any{{"title": "Gopher", "snippet": "tiny"}},
			expected: []domain.SearchResult{{Title: "Gopher", Snippet: "tiny"}},
		},
		{
			name:     "short title accepted",
			records:  []map[string]any{{"title": "Go!", "snippet": "the language"}},
			expected: []domain.SearchResult{{Title: "Go!", Snippet: "the language"}},
		},
		{
			name:     "missing snippet falls back to description",
			records:  []map[string]any{{"title": "Gophers", "description": "Burrowing rodents"}},
			expected: []domain.SearchResult{{Title: "Gophers", Snippet: "Burrowing rodents"}},
		},
		{
			name:     "missing snippet and description uses default",
			records:  []map[string]any{{"title": "Gophers"}},
			expected: []domain.SearchResult{{Title: "Gophers", Snippet: DefaultDescription}},
		},
		{
			name: "keeps input order",
			records: []map[string]any{
				{"title": "Second?", "snippet": "b"},
				{"title": "Nope", "snippet": "null"},
				{"title": "Third!", "snippet": "c"},
			},
			expected: []domain.SearchResult{
				{Title: "Second?", Snippet: "b"},
				{Title: "Third!", Snippet: "c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.records)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		records []map[string]any
		kind    error
	}{
		{
			name:    "empty input",
			records: nil,
			kind:    domain.ErrMalformedData,
		},
		{
			name:    "literal null values",
			records: []map[string]any{{"title": "null", "snippet": "null"}},
			kind:    domain.ErrBlockedPage,
		},
		{
			name:    "json null values",
			records: []map[string]any{{"title": nil, "snippet": nil}},
			kind:    domain.ErrBlockedPage,
		},
		{
			name:    "null snippet with usable title",
			records: []map[string]any{{"title": "Real looking title", "snippet": nil}},
			kind:    domain.ErrBlockedPage,
		},
		{
			name:    "titles too short",
			records: []map[string]any{{"title": "ab", "snippet": "a perfectly fine snippet"}},
			kind:    domain.ErrMalformedData,
		},
		{
			name:    "wrong field types",
			records: []map[string]any{{"title": 42, "snippet": []string{"x"}}},
			kind:    domain.ErrMalformedData,
		},
		{
			name:    "no fields",
			records: []map[string]any{{}, {"url": "https://example.com"}},
			kind:    domain.ErrMalformedData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.records)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.kind)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, len(tt.records), verr.Total)
		})
	}
}

func TestValidationError_FailureType(t *testing.T) {
	blocked := &ValidationError{Kind: domain.ErrBlockedPage}
	malformed := &ValidationError{Kind: domain.ErrMalformedData}

	assert.Equal(t, domain.FailureBlockedPage, blocked.FailureType())
	assert.Equal(t, domain.FailureMalformedData, malformed.FailureType())
}

func TestValidate_OnlyQualifyingRecords(t *testing.T) {
	records := []map[string]any{
		{"title": "null", "snippet": "A snippet long enough to pass"},
		{"title": "Valid search title", "snippet": "null"},
		{"title": "Another valid title", "snippet": "With a valid snippet too"},
	}

	got, err := Validate(records)
	require.NoError(t, err)
	require.Len(t, got, 1)
	for _, r := range got {
		assert.NotEqual(t, "null", r.Title)
		assert.NotEqual(t, "null", r.Snippet)
	}
}
