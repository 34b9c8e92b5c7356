package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/suhufapp/suhuf/internal/soft"
)

// ClassifyDuplicate asks whether title reports the same event as any title
// in window. It never returns an error; failures come back as a soft result.
func (c *Client) ClassifyDuplicate(ctx context.Context, title string, window []string) soft.Result[bool] {
	if len(window) == 0 {
		return soft.Ok(false)
	}
	text, err := c.generate(ctx, duplicatePrompt(title, window), true)
	if err != nil {
		return soft.Fail[bool](fmt.Errorf("classify duplicate: %w", err))
	}
	return soft.From(parseDuplicateResponse(text, len(window)))
}

func duplicatePrompt(title string, window []string) string {
	var b strings.Builder
	b.WriteString(`You deduplicate a news feed. Decide whether the NEW headline reports substantially the same news event as any RECENT headline.
Headlines may be in Arabic or English. Same topic is not enough; it must be the same event.

RECENT:
`)
	for i, t := range window {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	fmt.Fprintf(&b, "\nNEW: %s\n\n", title)
	b.WriteString(`Answer with JSON only: {"duplicate": true|false, "index": <number of the matching RECENT headline, or 0>}`)
	return b.String()
}

type duplicateAnswer struct {
	Duplicate bool `json:"duplicate"`
	Index     int  `json:"index"`
}

func parseDuplicateResponse(text string, windowLen int) (bool, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var ans duplicateAnswer
	if err := json.Unmarshal([]byte(text), &ans); err != nil {
		return false, fmt.Errorf("could not parse Gemini response %q: %w", text, err)
	}
	if ans.Duplicate && (ans.Index < 1 || ans.Index > windowLen) {
		// a match that points nowhere is not trusted
		return false, fmt.Errorf("duplicate index %d out of range 1..%d", ans.Index, windowLen)
	}
	return ans.Duplicate, nil
}
