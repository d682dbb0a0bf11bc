package workflows

import (
	itemporal "github.com/helixir/integrations-worker/internal/temporal"
)

// Registrar registers workflows under explicit names.
type Registrar interface {
	RegisterWorkflow(name string, wf interface{})
}

// All maps every workflow type name to its implementation.
func All() map[string]interface{} {
	return map[string]interface{}{
		itemporal.SearchWorkflowName:           SearchWithRetryWorkflow,
		itemporal.PageTitleWorkflowName:        PageTitleWorkflow,
		itemporal.StarCountWorkflowName:        StarCountWorkflow,
		itemporal.WebpagePDFWorkflowName:       WebpagePDFWorkflow,
		itemporal.ResumePDFWorkflowName:        ResumePDFWorkflow,
		itemporal.PDFToImagesWorkflowName:      PDFToImagesWorkflow,
		itemporal.HackerNewsDigestWorkflowName: HackerNewsDigestWorkflow,
		itemporal.SummarizeArticleWorkflowName: SummarizeArticleWorkflow,
	}
}

// Register registers every workflow with r.
func Register(r Registrar) {
	for name, wf := range All() {
		r.RegisterWorkflow(name, wf)
	}
}
