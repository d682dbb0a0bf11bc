package activities

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
	"github.com/helixir/integrations-worker/internal/pdf"
	"github.com/helixir/integrations-worker/internal/storage"
	"github.com/helixir/integrations-worker/internal/temporal"
)

const (
	resumePrefix      = "resumes"
	imagePrefix       = "images"
	defaultResumeName = "my-resume"
	resumeTitle       = "Resume"
	pngContentType    = "image/png"

	// documentIDLength is the number of SHA-256 hex digits used as a
	// generated document ID.
	documentIDLength = 16
)

// PDFDownloader fetches remote PDFs.
type PDFDownloader interface {
	Download(ctx context.Context, rawURL string) (*pdf.Document, error)
}

// PDFConverter rasterizes PDFs into page images.
type PDFConverter interface {
	Convert(ctx context.Context, content []byte, keepImages bool) (*pdf.Conversion, error)
}

// PDFRenderer renders documents to PDF.
type PDFRenderer interface {
	RenderText(title, text string) ([]byte, error)
	RenderResume(r domain.Resume) ([]byte, error)
}

var (
	_ PDFDownloader = (*pdf.Downloader)(nil)
	_ PDFConverter  = (*pdf.Converter)(nil)
	_ PDFRenderer   = (*pdf.Generator)(nil)
)

// DocumentActivities generates and converts PDF documents.
type DocumentActivities struct {
	renderer   PDFRenderer
	downloader PDFDownloader
	converter  PDFConverter
	uploader   Uploader
	metrics    *observability.Metrics
}

// NewDocumentActivities creates a new DocumentActivities instance. A nil
// uploader disables image uploads; page images are then only counted.
// The metrics parameter may be nil.
func NewDocumentActivities(renderer PDFRenderer, downloader PDFDownloader, converter PDFConverter, uploader Uploader, metrics *observability.Metrics) *DocumentActivities {
	return &DocumentActivities{
		renderer:   renderer,
		downloader: downloader,
		converter:  converter,
		uploader:   uploader,
		metrics:    metrics,
	}
}

// GenerateResumePDF renders a resume and uploads it as resumes/<name>.pdf.
// A structured resume takes precedence over free text.
func (a *DocumentActivities) GenerateResumePDF(ctx context.Context, req temporal.ResumePDFRequest) (_ *domain.PDFUpload, err error) {
	defer track(a.metrics, "GenerateResumePDF")(&err)

	var content []byte
	switch {
	case req.Resume != nil:
		content, err = a.renderer.RenderResume(*req.Resume)
	case strings.TrimSpace(req.Text) != "":
		content, err = a.renderer.RenderText(resumeTitle, req.Text)
	default:
		return nil, domain.NewFieldError("text", "text or resume is required")
	}
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = defaultResumeName
	}
	if a.uploader == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", domain.ErrServiceUnavailable)
	}
	upload, err := a.uploader.Upload(ctx, storage.ObjectKey(resumePrefix, name, ".pdf"), content, pdfContentType)
	if err != nil {
		return nil, err
	}

	activity.GetLogger(ctx).Info("resume uploaded", "key", upload.Key, "sizeBytes", upload.SizeBytes)
	return upload, nil
}

// ConvertPDFToImages downloads a PDF and rasterizes every page. When an
// uploader is configured the pages are stored as images/<documentID>/page-N.png.
// The document ID defaults to a prefix of the content hash, so repeated
// conversions of one file overwrite the same objects.
func (a *DocumentActivities) ConvertPDFToImages(ctx context.Context, req temporal.PDFToImagesRequest) (_ *domain.ConversionResult, err error) {
	defer track(a.metrics, "ConvertPDFToImages")(&err)
	logger := activity.GetLogger(ctx)

	var doc *pdf.Document
	err = withHeartbeat(ctx, "downloading", func() (err error) {
		doc, err = a.downloader.Download(ctx, req.PDFURL)
		return err
	})
	if err != nil {
		if errors.Is(err, pdf.ErrNotPDF) || errors.Is(err, pdf.ErrTooLarge) || errors.Is(err, pdf.ErrPrivateNetwork) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return nil, err
	}

	docID := req.DocumentID
	if docID == "" {
		docID = doc.SHA256[:documentIDLength]
	}

	var conv *pdf.Conversion
	err = withHeartbeat(ctx, "converting", func() (err error) {
		conv, err = a.converter.Convert(ctx, doc.Content, a.uploader != nil)
		return err
	})
	if err != nil {
		a.metrics.RecordPDFConversionFailed()
		return nil, err
	}
	a.metrics.RecordPDFConverted(len(conv.Pages))

	result := &domain.ConversionResult{DocumentID: docID, ImageCount: len(conv.Pages)}
	for i, img := range conv.Images {
		activity.RecordHeartbeat(ctx, i)
		key := path.Join(imagePrefix, docID, conv.Pages[i])
		upload, err := a.uploader.Upload(ctx, key, img, pngContentType)
		if err != nil {
			return nil, err
		}
		result.ImageURLs = append(result.ImageURLs, upload.URL)
	}

	logger.Info("pdf converted", "url", req.PDFURL, "documentID", docID, "pages", result.ImageCount, "sizeBytes", doc.SizeBytes)
	return result, nil
}
