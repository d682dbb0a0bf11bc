package scrape

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestArticleText_PrefersArticleContent(t *testing.T) {
	paragraph := strings.Repeat("Go makes concurrent programs simple to write and reason about. ", 20)
	html := `<html><head><title>Post</title><script>var x = 1;</script></head><body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article><h1>Post</h1><p>` + paragraph + `</p><p>` + paragraph + `</p></article>
<footer>Copyright</footer></body></html>`

	pageURL, _ := url.Parse("https://example.com/post")
	text := ArticleText(html, pageURL, 0)

	assert.Equal(t, DefaultContentLimit, utf8.RuneCountInString(text))
	assert.Contains(t, text, "Go makes concurrent programs")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "<p>")
	assert.NotContains(t, text, "  ")
}

func TestArticleText_FallsBackToBody(t *testing.T) {
	html := `<html><body><div>Short   page
	with text</div><script>alert(1)</script></body></html>`

	text := ArticleText(html, nil, 1500)
	assert.Equal(t, "Short page with text", text)
}

func TestArticleText_Truncates(t *testing.T) {
	html := `<html><body><p>` + strings.Repeat("é", 50) + `</p></body></html>`
	text := ArticleText(html, nil, 10)
	assert.Equal(t, strings.Repeat("é", 10), text)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "bold and text", Clean("  <b>bold</b>\n\tand   text "))
	assert.Empty(t, Clean(" \n "))
	assert.Equal(t, `It's "AT&T" vs Verizon`, Clean(`It's "AT&T" vs <b>Verizon</b>`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "a", Truncate("a bc", 2))
	assert.Equal(t, "aaaaaaaa'", Truncate(Clean("aaaaaaaa'"), 10))
}

func TestArticleText_KeepsPunctuation(t *testing.T) {
	html := `<html><body><p>Tom &amp; Jerry's "big" day</p></body></html>`
	assert.Equal(t, `Tom & Jerry's "big" day`, ArticleText(html, nil, 100))
}
