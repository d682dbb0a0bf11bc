package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/integrations-worker/internal/domain"
	itemporal "github.com/helixir/integrations-worker/internal/temporal"
	"github.com/helixir/integrations-worker/internal/temporal/activities"
)

const (
	// scrapeSettleDelay separates scraping the listing from visiting the
	// articles it links to.
	scrapeSettleDelay = 5 * time.Second

	summarizeChildPrefix = "summarize"
)

// HackerNewsDigestWorkflow scrapes the top stories, summarizes each one in a
// child workflow and mails the digest. Children are keyed by article link so
// a retried digest reuses their results. Articles whose child fails are left
// out of the email.
func HackerNewsDigestWorkflow(ctx workflow.Context, req itemporal.DigestRequest) (*itemporal.DigestResult, error) {
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)
	logger.Info("digest started", "workflowID", info.WorkflowExecution.ID)

	var a *activities.DigestActivities

	var scraped []domain.Article
	if err := workflow.ExecuteActivity(taskPolicy.with(ctx), a.ScrapeHackerNews, req.SourceURL, req.ArticleCount).Get(ctx, &scraped); err != nil {
		return nil, fmt.Errorf("scrape hacker news: %w", err)
	}
	articles := UniqueArticles(scraped)
	logger.Info("scraped articles", "count", len(articles))

	if err := workflow.Sleep(ctx, scrapeSettleDelay); err != nil {
		return nil, err
	}

	futures := make([]workflow.ChildWorkflowFuture, len(articles))
	for i, article := range articles {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: ChildWorkflowID(info.WorkflowExecution.ID, summarizeChildPrefix, article.Link),
		})
		futures[i] = workflow.ExecuteChildWorkflow(childCtx, SummarizeArticleWorkflow, article)
	}

	summarized := make([]domain.Article, 0, len(articles))
	for i, f := range futures {
		var out domain.Article
		if err := f.Get(ctx, &out); err != nil {
			logger.Warn("article summary failed", "link", articles[i].Link, "error", err)
			continue
		}
		summarized = append(summarized, out)
	}
	if len(summarized) == 0 {
		return nil, temporal.NewNonRetryableApplicationError("no article could be summarized", domain.FailureEmptyResults, nil)
	}

	var messageID string
	input := activities.SendDigestInput{Articles: summarized, To: req.To, Subject: req.Subject}
	if err := workflow.ExecuteActivity(taskPolicy.with(ctx), a.SendDigestEmail, input).Get(ctx, &messageID); err != nil {
		return nil, fmt.Errorf("send digest email: %w", err)
	}

	logger.Info("digest sent", "articles", len(summarized), "messageID", messageID)
	return &itemporal.DigestResult{
		Articles:  summarized,
		Scraped:   len(articles),
		MessageID: messageID,
	}, nil
}

// SummarizeArticleWorkflow fetches the text of one article and attaches an
// LLM summary to it.
func SummarizeArticleWorkflow(ctx workflow.Context, article domain.Article) (domain.Article, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("summarizing article", "title", article.Title)

	var a *activities.DigestActivities
	actx := summarizePolicy.with(ctx)

	var content string
	if err := workflow.ExecuteActivity(actx, a.FetchArticleContent, activities.FetchArticleInput{URL: article.Link}).Get(ctx, &content); err != nil {
		return article, fmt.Errorf("fetch article content: %w", err)
	}

	var summary string
	if err := workflow.ExecuteActivity(actx, a.SummarizeArticle, content).Get(ctx, &summary); err != nil {
		return article, fmt.Errorf("summarize article: %w", err)
	}

	article.Summary = summary
	return article, nil
}
