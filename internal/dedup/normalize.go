package dedup

import (
	"strings"
	"unicode"

	"github.com/suhufapp/suhuf/internal/news"
)

// NormalizeTitle lowercases, drops punctuation and Arabic diacritics, and
// collapses whitespace, so trivially re-punctuated headlines compare equal.
func NormalizeTitle(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.Is(unicode.Mn, r), r == 'ـ': // harakat, tatweel
			continue
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b = append(b, r)
		default:
			b = append(b, ' ')
		}
	}
	return strings.Join(strings.Fields(string(b)), " ")
}

// UniqueByURL keeps the first candidate for each canonical URL, preserving
// order, and reports how many later duplicates were dropped.
func UniqueByURL(candidates []news.Candidate) ([]news.Candidate, int) {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]news.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out, len(candidates) - len(out)
}
