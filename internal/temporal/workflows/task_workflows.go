package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/helixir/integrations-worker/internal/domain"
	itemporal "github.com/helixir/integrations-worker/internal/temporal"
	"github.com/helixir/integrations-worker/internal/temporal/activities"
)

// PageTitleWorkflow logs and returns the title of a page.
func PageTitleWorkflow(ctx workflow.Context, req itemporal.PageRequest) (*itemporal.PageTitleResult, error) {
	var a *activities.PageActivities
	var result itemporal.PageTitleResult
	if err := workflow.ExecuteActivity(taskPolicy.with(ctx), a.LogPageTitle, req).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("log page title: %w", err)
	}
	return &result, nil
}

// StarCountWorkflow scrapes the GitHub star count shown on a page through a
// remote browser session.
func StarCountWorkflow(ctx workflow.Context, req itemporal.PageRequest) (*itemporal.StarCountResult, error) {
	var a *activities.PageActivities
	var result itemporal.StarCountResult
	if err := workflow.ExecuteActivity(taskPolicy.with(ctx), a.ScrapeStarCount, req).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("scrape star count: %w", err)
	}
	return &result, nil
}

// WebpagePDFWorkflow prints a page to PDF and uploads it.
func WebpagePDFWorkflow(ctx workflow.Context, req itemporal.WebpagePDFRequest) (*domain.PDFUpload, error) {
	var a *activities.PageActivities
	var upload domain.PDFUpload
	if err := workflow.ExecuteActivity(taskPolicy.with(ctx), a.RenderWebpagePDF, req).Get(ctx, &upload); err != nil {
		return nil, fmt.Errorf("render webpage pdf: %w", err)
	}
	return &upload, nil
}

// ResumePDFWorkflow renders a resume and uploads it.
func ResumePDFWorkflow(ctx workflow.Context, req itemporal.ResumePDFRequest) (*domain.PDFUpload, error) {
	var a *activities.DocumentActivities
	var upload domain.PDFUpload
	if err := workflow.ExecuteActivity(taskPolicy.with(ctx), a.GenerateResumePDF, req).Get(ctx, &upload); err != nil {
		return nil, fmt.Errorf("generate resume pdf: %w", err)
	}
	return &upload, nil
}

// PDFToImagesWorkflow rasterizes a remote PDF.
func PDFToImagesWorkflow(ctx workflow.Context, req itemporal.PDFToImagesRequest) (*domain.ConversionResult, error) {
	var a *activities.DocumentActivities
	var result domain.ConversionResult
	if err := workflow.ExecuteActivity(conversionPolicy.with(ctx), a.ConvertPDFToImages, req).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("convert pdf to images: %w", err)
	}
	workflow.GetLogger(ctx).Info("pdf converted", "documentID", result.DocumentID, "images", result.ImageCount)
	return &result, nil
}
