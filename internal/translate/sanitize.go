package translate

import (
	"regexp"
	"strings"
)

var (
	// (Note: ...) or [Note: ...] anywhere in the text
	inlineNote = regexp.MustCompile(`(?i)[\(\[]\s*(note|disclaimer|ملاحظة)\s*:[^\)\]]*[\)\]]`)
	// a whole line that is a disclaimer
	noteLine = regexp.MustCompile(`(?im)^\s*(note|disclaimer|ملاحظة)\s*:.*$`)
	// leading "Translation:" or "الترجمة:" labels
	labelPrefix = regexp.MustCompile(`(?i)^\s*(translation|translated text|الترجمة)\s*:\s*`)
)

// SanitizeAIText strips the disclaimers and labels that LLM translators like
// to add around the actual translation.
func SanitizeAIText(s string) string {
	s = inlineNote.ReplaceAllString(s, " ")
	s = noteLine.ReplaceAllString(s, "")
	s = labelPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Trim(strings.TrimSpace(s), `"«»`)
	return strings.Join(strings.Fields(s), " ")
}
