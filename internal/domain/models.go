// Package domain provides the value types shared by the integrations worker.
package domain

import (
	"strings"
)

// SessionHandle identifies a remote browser session across activity
// invocations. SessionID is assigned by the browser provider; AttemptID is a
// locally generated correlation tag used only for logs. Handles are passed by
// value and are never mutated after creation.
type SessionHandle struct {
	SessionID string `json:"sessionId"`
	AttemptID string `json:"attemptId"`
}

// IsZero reports whether the handle was never populated.
func (h SessionHandle) IsZero() bool {
	return h.SessionID == ""
}

// SearchResult is one validated organic search result.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Article is a headline scraped from a news listing.
type Article struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary,omitempty"`
}

// HasSummary reports whether a non-blank summary is attached.
func (a Article) HasSummary() bool {
	return strings.TrimSpace(a.Summary) != ""
}

// PDFUpload describes a document written to object storage.
type PDFUpload struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
}

// ConversionResult is the outcome of rasterizing a PDF into page images.
type ConversionResult struct {
	DocumentID string   `json:"documentId"`
	ImageCount int      `json:"imageCount"`
	ImageURLs  []string `json:"imageUrls,omitempty"`
}

// Resume is the structured input of the resume PDF task.
type Resume struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Experience string `json:"experience" validate:"max=20000"`
	Education  string `json:"education" validate:"max=20000"`
}
