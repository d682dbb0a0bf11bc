// Package mail renders and delivers the Hacker News digest email.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/helixir/integrations-worker/internal/domain"
)

// DigestHeading is the headline of the digest email.
const DigestHeading = "Your Morning HN Summary"

// NoSummary is shown for articles whose summary is missing.
const NoSummary = "No summary available"

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Heading}}</title></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
<div>
<h1>{{.Heading}}</h1>
{{- range .Articles}}
<div style="margin-bottom: 20px;">
<h3><a href="{{.Link}}">{{.Title}}</a></h3>
<p>{{.Summary}}</p>
</div>
{{- end}}
</div>
</body>
</html>
`))

var summaryPolicy = bluemonday.UGCPolicy()

type digestArticle struct {
	Title   string
	Link    string
	Summary template.HTML
}

// RenderDigest renders articles as an HTML email body. Summaries come from an
// LLM and are sanitized before being embedded; titles and links are escaped
// by the template.
func RenderDigest(articles []domain.Article) (string, error) {
	view := struct {
		Heading  string
		Articles []digestArticle
	}{Heading: DigestHeading}

	for _, a := range articles {
		summary := NoSummary
		if a.HasSummary() {
			summary = a.Summary
		}
		view.Articles = append(view.Articles, digestArticle{
			Title: a.Title,
			Link:  a.Link,
			Summary: template.HTML(strings.TrimSpace(summaryPolicy.Sanitize(summary))),
		})
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}
