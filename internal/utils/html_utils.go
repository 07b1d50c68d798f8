package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Excerpt returns the visible text of an HTML fragment, collapsed to single
// spaces and cut to at most max runes.
func Excerpt(htmlStr string, max int) string {
	if htmlStr == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	runes := []rune(text)
	if max > 0 && len(runes) > max {
		return strings.TrimSpace(string(runes[:max])) + "…"
	}
	return text
}
