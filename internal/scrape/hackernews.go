// Package scrape extracts structured data from rendered HTML.
package scrape

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/helixir/integrations-worker/internal/domain"
)

// HackerNewsURL is the front page listing.
const HackerNewsURL = "https://news.ycombinator.com/news"

// ParseHackerNews returns the first limit stories of a Hacker News listing.
// Relative links such as "item?id=1" (Ask HN posts) are resolved against
// base. Rows without a title link are skipped.
func ParseHackerNews(r io.Reader, base *url.URL, limit int) ([]domain.Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var articles []domain.Article
	doc.Find(".athing").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(articles) >= limit {
			return false
		}
		anchor := row.Find(".titleline > a").First()
		href, ok := anchor.Attr("href")
		title := strings.TrimSpace(anchor.Text())
		if !ok || title == "" {
			return true
		}
		link, err := resolve(base, href)
		if err != nil {
			return true
		}
		articles = append(articles, domain.Article{Title: title, Link: link})
		return true
	})
	return articles, nil
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if base == nil || ref.IsAbs() {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
