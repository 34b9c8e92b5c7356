package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// ArticleFetcher downloads publisher pages and extracts the article body.
type ArticleFetcher struct {
	client    *http.Client
	userAgent string
}

func NewArticleFetcher(client *http.Client, userAgent string) *ArticleFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &ArticleFetcher{client: client, userAgent: userAgent}
}

// ExtractFullArticle gets the full text of the article at url. The caller
// bounds it with ctx.
func (f *ArticleFetcher) ExtractFullArticle(ctx context.Context, url string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := cleanContent(extractParagraphs(doc, selectorsFor(url), minParagraphsFor(url)))
	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: content,
		URL:     url,
	}, nil
}

var sourceSelectors = map[string][]string{
	"aljazeera": {".wysiwyg p", ".article-p-wrapper p", "article p"},
	"bbc":       {"[data-component='text-block'] p", "main [dir] p", "article p"},
	"alarabiya": {".article-body p", "#body-text p", "article p"},
	"reuters":   {"[data-testid^='paragraph']", ".article-body__content p", "article p"},
	"nytimes":   {"section[name='articleBody'] p", "article p"},
	"theguardian": {
		"#maincontent p",
		".article-body-commercial-selector p",
		"article p",
	},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".article-body p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

func selectorsFor(url string) []string {
	for host, sel := range sourceSelectors {
		if strings.Contains(url, host) {
			return append(sel, genericSelectors...)
		}
	}
	return genericSelectors
}

func minParagraphsFor(url string) int {
	for host := range sourceSelectors {
		if strings.Contains(url, host) {
			return 1
		}
	}
	// If we find 3 paragraphs, it's enough
	return 3
}

func extractParagraphs(doc *goquery.Document, selectors []string, enough int) string {
	var paragraphs []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len([]rune(text)) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= enough {
			break
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", ".article-title", ".headline", "title"} {
		if title := strings.TrimSpace(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	return ""
}

var junkIndicators = []string{
	"cookie", "newsletter", "subscribe", "sign up", "advertisement",
	"اشترك", "النشرة البريدية", "إعلان", "تابعونا",
}

// cleanContent drops boilerplate lines, dedupes repeated paragraphs and caps
// the body at whole paragraphs.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	seen := make(map[string]bool)
	var kept []string
	for _, p := range strings.Split(content, "\n\n") {
		p = collapseSpaces(p)
		if len([]rune(p)) < 30 || seen[p] || isJunk(p) {
			continue
		}
		seen[p] = true
		kept = append(kept, p)
	}

	var out []string
	total := 0
	for _, p := range kept {
		n := len([]rune(p))
		if total+n > maxContentRunes && len(out) > 0 {
			break
		}
		out = append(out, p)
		total += n + 2
	}
	return strings.Join(out, "\n\n")
}

const maxContentRunes = 4000

func isJunk(p string) bool {
	lower := strings.ToLower(p)
	if len([]rune(lower)) > 200 {
		return false
	}
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
