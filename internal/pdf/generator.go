package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/helixir/integrations-worker/internal/domain"
)

// Section is a headed block of body text.
type Section struct {
	Heading string
	Body    string
}

// Generator renders text documents to A4 PDFs.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Render lays out a title followed by sections on A4 pages, wrapping long
// lines and breaking pages as needed.
func (g *Generator) Render(title, subtitle string, sections []Section) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	doc.SetTitle(title, true)
	doc.SetCreator("integrations-worker", true)
	doc.SetCreationDate(g.now())
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 20)
	doc.MultiCell(0, 10, tr(title), "", "L", false)
	if subtitle != "" {
		doc.SetFont("Helvetica", "", 11)
		doc.SetTextColor(90, 90, 90)
		doc.MultiCell(0, 6, tr(subtitle), "", "L", false)
		doc.SetTextColor(0, 0, 0)
	}

	for _, s := range sections {
		body := strings.TrimSpace(s.Body)
		if body == "" {
			continue
		}
		doc.Ln(6)
		if s.Heading != "" {
			doc.SetFont("Helvetica", "B", 14)
			doc.MultiCell(0, 8, tr(s.Heading), "B", "L", false)
			doc.Ln(2)
		}
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 5.5, tr(body), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderResume renders a resume with experience and education sections.
func (g *Generator) RenderResume(r domain.Resume) ([]byte, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, domain.NewFieldError("name", "must not be empty")
	}
	return g.Render(r.Name, r.Email, []Section{
		{Heading: "Experience", Body: r.Experience},
		{Heading: "Education", Body: r.Education},
	})
}

// RenderText renders free text under a title.
func (g *Generator) RenderText(title, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewFieldError("text", "must not be empty")
	}
	return g.Render(title, "", []Section{{Body: text}})
}
