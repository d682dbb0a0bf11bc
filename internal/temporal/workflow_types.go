package temporal

import (
	"github.com/helixir/integrations-worker/internal/domain"
)

// Registered workflow type names. Workflows are registered under these names
// so the HTTP layer and schedules can start them without importing the
// workflows package.
const (
	SearchWorkflowName           = "SearchWithRetryWorkflow"
	PageTitleWorkflowName        = "PageTitleWorkflow"
	StarCountWorkflowName        = "StarCountWorkflow"
	WebpagePDFWorkflowName       = "WebpagePDFWorkflow"
	ResumePDFWorkflowName        = "ResumePDFWorkflow"
	PDFToImagesWorkflowName      = "PDFToImagesWorkflow"
	HackerNewsDigestWorkflowName = "HackerNewsDigestWorkflow"
	SummarizeArticleWorkflowName = "SummarizeArticleWorkflow"
)

// QueryStage returns the current step of a running search workflow.
const QueryStage = "stage"

// PageRequest targets a single web page. An empty URL uses the task default.
type PageRequest struct {
	URL string `json:"url,omitempty" validate:"omitempty,http_url"`
}

// PageTitleResult is the outcome of PageTitleWorkflow.
type PageTitleResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// StarCountResult is the outcome of StarCountWorkflow.
type StarCountResult struct {
	URL       string `json:"url"`
	StarCount int    `json:"starCount"`
}

// WebpagePDFRequest renders a page to PDF and uploads it under pdfs/<name>.pdf.
type WebpagePDFRequest struct {
	URL  string `json:"url,omitempty" validate:"omitempty,http_url"`
	Name string `json:"name,omitempty" validate:"omitempty,max=200"`
}

// ResumePDFRequest renders either free text or a structured resume and
// uploads it under resumes/<name>.pdf.
type ResumePDFRequest struct {
	Text   string         `json:"text,omitempty" validate:"required_without=Resume,max=50000"`
	Resume *domain.Resume `json:"resume,omitempty" validate:"omitempty"`
	Name   string         `json:"name,omitempty" validate:"omitempty,max=200"`
}

// PDFToImagesRequest rasterizes the PDF at PDFURL.
type PDFToImagesRequest struct {
	PDFURL     string `json:"pdfUrl" validate:"required,http_url"`
	DocumentID string `json:"documentId,omitempty" validate:"omitempty,max=100"`
}

// DigestRequest overrides the configured digest settings. The scheduled run
// passes the zero value.
type DigestRequest struct {
	SourceURL    string   `json:"sourceUrl,omitempty" validate:"omitempty,http_url"`
	ArticleCount int      `json:"articleCount,omitempty" validate:"omitempty,min=1,max=30"`
	To           []string `json:"to,omitempty" validate:"omitempty,dive,email"`
	Subject      string   `json:"subject,omitempty" validate:"omitempty,max=200"`
}

// DigestResult is the outcome of HackerNewsDigestWorkflow.
type DigestResult struct {
	Articles  []domain.Article `json:"articles"`
	Scraped   int              `json:"scraped"`
	MessageID string           `json:"messageId"`
}
