package workflows

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/helixir/integrations-worker/internal/domain"
)

// childIDHashLength is the number of hex digits of the link hash used in
// child workflow IDs.
const childIDHashLength = 12

// ChildWorkflowID derives a stable child workflow ID from the parent ID and a
// key such as an article link. Replays and retries of the parent produce the
// same ID, so a child is never started twice for one key within a run.
func ChildWorkflowID(parentID, prefix, key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return parentID + "/" + prefix + "-" + hex.EncodeToString(sum[:])[:childIDHashLength]
}

// UniqueArticles drops articles whose link was already seen, keeping the
// first occurrence and the input order.
func UniqueArticles(articles []domain.Article) []domain.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		key := strings.TrimSpace(a.Link)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
