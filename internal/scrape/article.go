package scrape

import (
	"html"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultContentLimit is the number of characters of article text kept for
// summarization.
const DefaultContentLimit = 1500

// minReadableText is the shortest readability result accepted before falling
// back to the article or body element.
const minReadableText = 200

var strictPolicy = bluemonday.StrictPolicy()

// ArticleText returns the main text of an HTML page, sanitized, with runs of
// whitespace collapsed and truncated to limit characters. It prefers the
// readability extraction, then the first <article> element, then <body>.
func ArticleText(html string, pageURL *url.URL, limit int) string {
	if limit <= 0 {
		limit = DefaultContentLimit
	}

	text := readableText(html, pageURL)
	if utf8.RuneCountInString(text) < minReadableText {
		if fallback := elementText(html); fallback != "" {
			text = fallback
		}
	}
	return Truncate(text, limit)
}

func readableText(html string, pageURL *url.URL) string {
	if pageURL == nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return ""
	}
	return Clean(article.TextContent)
}

func elementText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, template").Remove()

	sel := doc.Find("article").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	return Clean(sel.Text())
}

// Clean strips any markup left in text and collapses whitespace. The result
// is plain text: the entities the sanitizer emits are decoded again.
func Clean(text string) string {
	return collapseSpace(html.UnescapeString(strictPolicy.Sanitize(text)))
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
