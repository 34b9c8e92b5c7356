package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/ratelimit"
)

// OpenAI translates through a chat completion.
type OpenAI struct {
	client  *openai.Client
	model   string
	limiter *ratelimit.AIRateLimiter
}

func NewOpenAI(client *openai.Client, model string, limiter *ratelimit.AIRateLimiter) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: client, model: model, limiter: limiter}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Translate(ctx context.Context, text, target string) (string, error) {
	lang := "English"
	if target == news.LangArabic {
		lang = "Modern Standard Arabic"
	}
	if err := o.limiter.Acquire(ctx, ratelimit.OpenAI); err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Translate the following news text to %s.
Keep the meaning, tone and journalistic style of the original.
Translate only the text itself, without additional comments.

Text to translate:
%s`, lang, text)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxCompletionTokens: 2000,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
