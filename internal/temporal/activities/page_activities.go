package activities

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/integrations-worker/internal/browser"
	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
	"github.com/helixir/integrations-worker/internal/scrape"
	"github.com/helixir/integrations-worker/internal/storage"
	"github.com/helixir/integrations-worker/internal/temporal"
)

// Page task defaults.
const (
	DefaultTitleURL     = "https://google.com"
	DefaultStarCountURL = "https://trigger.dev"
	DefaultPDFPageURL   = "https://google.com"
	StarCountSelector   = ".github-star-count"

	pdfPrefix      = "pdfs"
	pdfContentType = "application/pdf"
	defaultPDFName = "webpage"
)

// Uploader stores rendered documents.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (*domain.PDFUpload, error)
}

var _ Uploader = (*storage.Uploader)(nil)

// PageActivities runs one-shot tasks against a single page. Local tasks
// launch a headless browser; remote tasks use a short-lived hosted session.
type PageActivities struct {
	local    browser.Opener
	remote   browser.Opener
	uploader Uploader
	metrics  *observability.Metrics
}

// NewPageActivities creates a new PageActivities instance.
// The metrics parameter may be nil.
func NewPageActivities(local, remote browser.Opener, uploader Uploader, metrics *observability.Metrics) *PageActivities {
	return &PageActivities{
		local:    local,
		remote:   remote,
		uploader: uploader,
		metrics:  metrics,
	}
}

// LogPageTitle loads the page in a local browser and logs its title.
func (a *PageActivities) LogPageTitle(ctx context.Context, req temporal.PageRequest) (_ *temporal.PageTitleResult, err error) {
	defer track(a.metrics, "LogPageTitle")(&err)

	target := withDefault(req.URL, DefaultTitleURL)
	page, err := a.open(ctx, a.local, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	title, err := page.Title(ctx)
	if err != nil {
		return nil, fmt.Errorf("read title: %w", err)
	}

	activity.GetLogger(ctx).Info("page title", "url", target, "title", title)
	return &temporal.PageTitleResult{URL: target, Title: title}, nil
}

// ScrapeStarCount reads the GitHub star badge of a page in a hosted browser.
func (a *PageActivities) ScrapeStarCount(ctx context.Context, req temporal.PageRequest) (_ *temporal.StarCountResult, err error) {
	defer track(a.metrics, "ScrapeStarCount")(&err)

	target := withDefault(req.URL, DefaultStarCountURL)
	page, err := a.open(ctx, a.remote, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	text, err := page.Text(ctx, StarCountSelector)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", StarCountSelector, err)
	}
	if strings.IndexFunc(text, func(r rune) bool { return r >= '0' && r <= '9' }) < 0 {
		return nil, fmt.Errorf("%w: star count %q has no digits", domain.ErrMalformedData, text)
	}

	count := scrape.ParseCount(text)
	activity.GetLogger(ctx).Info("star count scraped", "url", target, "starCount", count)
	return &temporal.StarCountResult{URL: target, StarCount: count}, nil
}

// RenderWebpagePDF prints a page to PDF and uploads it as pdfs/<name>.pdf.
// The name defaults to the page's host, or "webpage" for URLs without one.
func (a *PageActivities) RenderWebpagePDF(ctx context.Context, req temporal.WebpagePDFRequest) (_ *domain.PDFUpload, err error) {
	defer track(a.metrics, "RenderWebpagePDF")(&err)

	if a.uploader == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", domain.ErrServiceUnavailable)
	}
	target := withDefault(req.URL, DefaultPDFPageURL)
	name := req.Name
	if name == "" {
		u, err := url.Parse(target)
		if err != nil {
			return nil, domain.NewFieldError("url", err.Error())
		}
		name = withDefault(u.Hostname(), defaultPDFName)
	}

	page, err := a.open(ctx, a.local, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	content, err := page.PrintPDF(ctx)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}

	upload, err := a.uploader.Upload(ctx, storage.ObjectKey(pdfPrefix, name, ".pdf"), content, pdfContentType)
	if err != nil {
		return nil, err
	}

	activity.GetLogger(ctx).Info("webpage pdf uploaded", "url", target, "key", upload.Key, "sizeBytes", upload.SizeBytes)
	return upload, nil
}

func (a *PageActivities) open(ctx context.Context, opener browser.Opener, target string) (browser.Page, error) {
	page, err := opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	if err := page.Navigate(ctx, target); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate to %s: %w", target, err)
	}
	return page, nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
