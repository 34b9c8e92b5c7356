package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/retry"
)

const telegramAPI = "https://api.telegram.org"

// TelegramPublisher posts each new article to a channel as a photo with a
// caption.
type TelegramPublisher struct {
	client  *http.Client
	token   string
	chatID  string
	baseURL string
	retry   retry.RetryConfig
}

func NewTelegramPublisher(client *http.Client, token, chatID string) *TelegramPublisher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TelegramPublisher{
		client:  client,
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		retry:   retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
}

func (t *TelegramPublisher) Name() string { return "telegram" }

func (t *TelegramPublisher) Publish(ctx context.Context, a news.Article) error {
	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"photo":      a.ImageURL,
		"caption":    FormatCaption(a),
		"parse_mode": "HTML",
	}
	return retry.WithRetry(ctx, t.retry, func(ctx context.Context) error {
		return t.send(ctx, "sendPhoto", payload)
	})
}

func (t *TelegramPublisher) send(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	default:
		return retry.Permanent(fmt.Errorf("telegram API error: status %d", resp.StatusCode))
	}
}

// FormatCaption renders a short HTML caption; Telegram caps captions at
// 1024 characters.
func FormatCaption(a news.Article) string {
	summary := []rune(a.Summary)
	if len(summary) > 600 {
		summary = append(summary[:600], '…')
	}
	caption := fmt.Sprintf("<b>%s</b>\n\n%s\n\n<a href=\"%s\">%s</a>",
		html.EscapeString(a.Title),
		html.EscapeString(string(summary)),
		html.EscapeString(a.URL),
		html.EscapeString(a.SourceName),
	)
	if r := []rune(caption); len(r) > 1024 {
		// keep the link: drop the summary instead of cutting markup
		caption = fmt.Sprintf("<b>%s</b>\n\n<a href=\"%s\">%s</a>",
			html.EscapeString(a.Title), html.EscapeString(a.URL), html.EscapeString(a.SourceName))
	}
	return caption
}
