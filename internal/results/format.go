package results

import (
	"fmt"
	"strings"

	"github.com/helixir/integrations-worker/internal/domain"
)

// Format renders results as a numbered plain-text list:
//
//	Successfully found 2 search results:
//
//	1. Title
//	   Snippet
//
//	2. Title
//	   Snippet
//
// Every record appears exactly once, in input order.
func Format(results []domain.SearchResult) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("format search results: %w", domain.ErrEmptyResults)
	}

	items := make([]string, len(results))
	for i, r := range results {
		items[i] = fmt.Sprintf("%d. %s\n   %s\n", i+1, r.Title, r.Snippet)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Successfully found %d search results:\n\n", len(results))
	b.WriteString(strings.Join(items, "\n"))
	return b.String(), nil
}
