package activities

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/integrations-worker/internal/browser"
	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/mail"
	"github.com/helixir/integrations-worker/internal/observability"
	"github.com/helixir/integrations-worker/internal/scrape"
)

// Summarizer condenses article text.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// DigestConfig configures the Hacker News digest.
type DigestConfig struct {
	// SourceURL is the listing page scraped for stories.
	SourceURL string

	// ArticleCount is how many stories the digest covers.
	ArticleCount int

	// ContentLimit caps the article text sent for summarization.
	ContentLimit int

	// From is the sender address.
	From string

	// To lists the default recipients.
	To []string

	// Subject is the default subject line.
	Subject string
}

// DefaultDigestConfig returns the digest settings used when none are configured.
func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		SourceURL:    scrape.HackerNewsURL,
		ArticleCount: 3,
		ContentLimit: scrape.DefaultContentLimit,
		Subject:      "Your morning HN summary",
	}
}

// DigestActivities scrape, summarize and mail the morning Hacker News digest.
type DigestActivities struct {
	opener     browser.Opener
	summarizer Summarizer
	sender     mail.Sender
	cfg        DigestConfig
	metrics    *observability.Metrics
}

// NewDigestActivities creates a new DigestActivities instance.
// The metrics parameter may be nil.
func NewDigestActivities(opener browser.Opener, summarizer Summarizer, sender mail.Sender, cfg DigestConfig, metrics *observability.Metrics) *DigestActivities {
	def := DefaultDigestConfig()
	if cfg.SourceURL == "" {
		cfg.SourceURL = def.SourceURL
	}
	if cfg.ArticleCount <= 0 {
		cfg.ArticleCount = def.ArticleCount
	}
	if cfg.ContentLimit <= 0 {
		cfg.ContentLimit = def.ContentLimit
	}
	if cfg.Subject == "" {
		cfg.Subject = def.Subject
	}
	return &DigestActivities{
		opener:     opener,
		summarizer: summarizer,
		sender:     sender,
		cfg:        cfg,
		metrics:    metrics,
	}
}

// ScrapeHackerNews returns the top stories of the listing. Empty fields use
// the configured source and count.
func (a *DigestActivities) ScrapeHackerNews(ctx context.Context, sourceURL string, count int) (_ []domain.Article, err error) {
	defer track(a.metrics, "ScrapeHackerNews")(&err)

	if sourceURL == "" {
		sourceURL = a.cfg.SourceURL
	}
	if count <= 0 {
		count = a.cfg.ArticleCount
	}
	base, err := url.Parse(sourceURL)
	if err != nil || base.Host == "" {
		return nil, domain.NewFieldError("sourceUrl", fmt.Sprintf("%q is not an absolute URL", sourceURL))
	}

	html, err := a.pageHTML(ctx, sourceURL, false)
	if err != nil {
		return nil, err
	}

	articles, err := scrape.ParseHackerNews(strings.NewReader(html), base, count)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: no stories found at %s", domain.ErrEmptyResults, sourceURL)
	}

	activity.GetLogger(ctx).Info("stories scraped", "source", sourceURL, "count", len(articles))
	return articles, nil
}

// FetchArticleContent returns the readable text of an article. Scripts,
// stylesheets, images, media and fonts are not loaded.
func (a *DigestActivities) FetchArticleContent(ctx context.Context, input FetchArticleInput) (_ string, err error) {
	defer track(a.metrics, "FetchArticleContent")(&err)

	pageURL, err := url.Parse(input.URL)
	if err != nil || pageURL.Host == "" {
		return "", domain.NewFieldError("url", fmt.Sprintf("%q is not an absolute URL", input.URL))
	}
	limit := input.Limit
	if limit <= 0 {
		limit = a.cfg.ContentLimit
	}

	html, err := a.pageHTML(ctx, input.URL, true)
	if err != nil {
		return "", err
	}

	text := scrape.ArticleText(html, pageURL, limit)
	activity.GetLogger(ctx).Info("article fetched", "url", input.URL, "chars", len(text))
	return text, nil
}

// SummarizeArticle summarizes article text.
func (a *DigestActivities) SummarizeArticle(ctx context.Context, content string) (_ string, err error) {
	defer track(a.metrics, "SummarizeArticle")(&err)

	if strings.TrimSpace(content) == "" {
		return "", domain.NewFieldError("content", "article has no text to summarize")
	}
	return a.summarizer.Summarize(ctx, content)
}

// SendDigestEmail renders the digest and mails it. It returns the provider
// message ID.
func (a *DigestActivities) SendDigestEmail(ctx context.Context, input SendDigestInput) (_ string, err error) {
	defer track(a.metrics, "SendDigestEmail")(&err)

	if len(input.Articles) == 0 {
		return "", fmt.Errorf("%w: digest has no articles", domain.ErrEmptyResults)
	}
	if a.sender == nil {
		return "", fmt.Errorf("%w: mail delivery is not configured", domain.ErrServiceUnavailable)
	}

	body, err := mail.RenderDigest(input.Articles)
	if err != nil {
		return "", err
	}

	msg := mail.Message{
		From:    a.cfg.From,
		To:      a.cfg.To,
		Subject: a.cfg.Subject,
		HTML:    body,
	}
	if len(input.To) > 0 {
		msg.To = input.To
	}
	if input.Subject != "" {
		msg.Subject = input.Subject
	}

	id, err := a.sender.Send(ctx, msg)
	if err != nil {
		return "", err
	}

	activity.GetLogger(ctx).Info("digest sent", "messageID", id, "articles", len(input.Articles), "recipients", len(msg.To))
	return id, nil
}

func (a *DigestActivities) pageHTML(ctx context.Context, target string, blockAssets bool) (string, error) {
	page, err := a.opener.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}
	defer func() { _ = page.Close() }()

	if blockAssets {
		if err := page.BlockResources(ctx, browser.AssetTypes...); err != nil {
			return "", fmt.Errorf("block assets: %w", err)
		}
	}
	if err := page.Navigate(ctx, target); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", target, err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}
