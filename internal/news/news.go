// Package news holds the article shapes that flow through the ingestion pipeline.
package news

import (
	"strings"
	"time"
	"unicode"
)

const (
	LangArabic  = "ar"
	LangEnglish = "en"

	// CategoryAll selects every category of a language.
	CategoryAll = "all"
)

// ValidLanguage reports whether lang is one of the supported output languages.
func ValidLanguage(lang string) bool {
	return lang == LangArabic || lang == LangEnglish
}

// NormalizeCategory lowercases the category and maps empty to "all".
func NormalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return CategoryAll
	}
	return category
}

// Candidate is an article extracted from a feed that has not been verified
// unique or persisted yet.
type Candidate struct {
	Title       string
	Summary     string
	URL         string // canonical URL, the dedup key
	ImageURL    string
	PublishedAt time.Time
	SourceName  string
	Category    string
	Language    string
}

// Article is a persisted row of the shared article store.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"source_url"`
	ImageURL    string    `json:"image_url"`
	PublishedAt time.Time `json:"published_at"`
	SourceName  string    `json:"source_name"`
	Category    string    `json:"category"`
	Language    string    `json:"language"`
	Author      string    `json:"author"`
	Virality    *string   `json:"virality_description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Outcome is the structured result of one ingestion run.
type Outcome struct {
	Language         string    `json:"language"`
	Category         string    `json:"category"`
	TotalCandidates  int       `json:"total"`
	InsertedCount    int       `json:"inserted"`
	InsertedArticles []Article `json:"articles"`
}

// LooksArabic reports whether most letters of s are Arabic script.
func LooksArabic(s string) bool {
	arabic, letters := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	return letters > 0 && arabic*2 > letters
}

// DetectLanguage guesses ar or en from the script of s.
func DetectLanguage(s string) string {
	if LooksArabic(s) {
		return LangArabic
	}
	return LangEnglish
}
