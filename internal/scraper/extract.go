// Package scraper holds the best-effort HTML helpers used by the pipeline:
// tag stripping and image discovery for feed summaries, and full-article
// extraction from publisher pages.
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls plain text and images out of feed-embedded HTML. It never
// fails: malformed markup yields whatever text could be recovered.
type Extractor interface {
	StripTags(html string) string
	FirstImage(html string) string
}

// HTMLExtractor is the goquery backed Extractor.
type HTMLExtractor struct{}

func NewExtractor() HTMLExtractor { return HTMLExtractor{} }

func (HTMLExtractor) StripTags(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return collapseSpaces(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseSpaces(html)
	}
	doc.Find("script, style").Remove()
	return collapseSpaces(doc.Text())
}

func (HTMLExtractor) FirstImage(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var src string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("src"); ok && isHTTPURL(v) {
			src = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return src
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
