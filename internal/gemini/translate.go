package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/suhufapp/suhuf/internal/news"
)

const maxTranslateChars = 6000

var languageNames = map[string]string{
	news.LangArabic:  "Modern Standard Arabic",
	news.LangEnglish: "English",
}

// Translate renders text in the target language.
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	name, ok := languageNames[target]
	if !ok {
		return "", fmt.Errorf("unsupported target language %q", target)
	}

	prompt := fmt.Sprintf(`Translate the following news text into %s.
Keep names of people, brands and organisations. Do not add commentary, quotes or labels. Reply with the translation only.

%s`, name, truncate(text))

	out, err := c.generate(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty translation")
	}
	if (target == news.LangArabic) != news.LooksArabic(out) {
		return "", fmt.Errorf("translation is not in %s", name)
	}
	return out, nil
}

func (c *Client) Name() string { return "gemini" }

// truncate caps a prompt body on a rune boundary, preferring a sentence end.
func truncate(content string) string {
	content = strings.Join(strings.Fields(strings.ReplaceAll(content, "\r", "")), " ")
	if utf8.RuneCountInString(content) <= maxTranslateChars {
		return content
	}
	trimmed := string([]rune(content)[:maxTranslateChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}
