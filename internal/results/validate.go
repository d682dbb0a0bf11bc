// Package results validates and formats search results extracted from a
// rendered search page.
package results

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/helixir/integrations-worker/internal/domain"
)

// Thresholds of the two acceptance tiers. Lengths are counted in runes and a
// record must be strictly longer than the minimum.
const (
	strictMinTitle   = 5
	strictMinSnippet = 10
	lenientMinTitle  = 2

	// nullLiteral is what extraction models emit when a field is unreadable,
	// typically because a challenge page replaced the results.
	nullLiteral = "null"

	// DefaultDescription replaces a missing snippet in the lenient tier.
	DefaultDescription = "Description not available"
)

// ValidationError is returned when no record passes either tier. Kind is
// domain.ErrBlockedPage or domain.ErrMalformedData.
type ValidationError struct {
	Kind    error
	Total   int
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap returns the failure kind for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// FailureType returns the application failure type name for the kind.
func (e *ValidationError) FailureType() string {
	if e.Kind == domain.ErrBlockedPage {
		return domain.FailureBlockedPage
	}
	return domain.FailureMalformedData
}

// Validate filters untyped extraction records into search results.
//
// Records pass the strict tier when title and snippet are present, the title
// is longer than 5 characters, the snippet longer than 10, and neither is the
// literal "null". Only when no record passes the strict tier is the lenient
// tier applied: title longer than 2 characters, neither value a null marker,
// and a missing snippet replaced by the record's description or by
// DefaultDescription. The returned records keep input order.
func Validate(records []map[string]any) ([]domain.SearchResult, error) {
	if len(records) == 0 {
		return nil, &ValidationError{
			Kind:    domain.ErrMalformedData,
			Message: "no search results extracted - page structure may have changed",
		}
	}

	if valid := strictTier(records); len(valid) > 0 {
		return valid, nil
	}
	if valid := lenientTier(records); len(valid) > 0 {
		return valid, nil
	}

	if hasNullMarkers(records) {
		return nil, &ValidationError{
			Kind:    domain.ErrBlockedPage,
			Total:   len(records),
			Message: "extraction returned null values - likely hit a CAPTCHA or blocking page",
		}
	}
	return nil, &ValidationError{
		Kind:    domain.ErrMalformedData,
		Total:   len(records),
		Message: fmt.Sprintf("no valid search results found in %d records - extracted data was malformed", len(records)),
	}
}

func strictTier(records []map[string]any) []domain.SearchResult {
	var out []domain.SearchResult
	for _, r := range records {
		title, ok := stringField(r, "title")
		if !ok || title == nullLiteral || utf8.RuneCountInString(title) <= strictMinTitle {
			continue
		}
		snippet, ok := stringField(r, "snippet")
		if !ok || snippet == nullLiteral || utf8.RuneCountInString(snippet) <= strictMinSnippet {
			continue
		}
		out = append(out, domain.SearchResult{Title: title, Snippet: snippet})
	}
	return out
}

func lenientTier(records []map[string]any) []domain.SearchResult {
	var out []domain.SearchResult
	for _, r := range records {
		title, ok := stringField(r, "title")
		if !ok || title == nullLiteral || utf8.RuneCountInString(title) <= lenientMinTitle {
			continue
		}
		if isNullMarker(r, "snippet") {
			continue
		}
		snippet, ok := stringField(r, "snippet")
		if !ok {
			snippet, ok = stringField(r, "description")
		}
		if !ok || snippet == nullLiteral {
			snippet = DefaultDescription
		}
		out = append(out, domain.SearchResult{Title: title, Snippet: snippet})
	}
	return out
}

// stringField returns the trimmed string value of key. Missing keys, nil,
// non-string values and blank strings report false.
func stringField(r map[string]any, key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// isNullMarker reports whether key is present but explicitly null or the
// literal "null".
func isNullMarker(r map[string]any, key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	if v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && strings.TrimSpace(s) == nullLiteral
}

func hasNullMarkers(records []map[string]any) bool {
	for _, r := range records {
		if isNullMarker(r, "title") || isNullMarker(r, "snippet") {
			return true
		}
	}
	return false
}
