package scrape

import (
	"strconv"
	"strings"
)

// ParseCount keeps only the ASCII digits of text, so "12,345" and
// "12 345 stars" both yield 12345. Text without digits, or too large for an
// int, yields 0.
func ParseCount(text string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
