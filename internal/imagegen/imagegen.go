// Package imagegen synthesizes cover images for articles that arrive without
// one.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/suhufapp/suhuf/internal/ratelimit"
)

// Generator renders a PNG from a headline.
type Generator struct {
	client  *openai.Client
	model   string
	limiter *ratelimit.AIRateLimiter
}

func New(client *openai.Client, model string, limiter *ratelimit.AIRateLimiter) *Generator {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &Generator{client: client, model: model, limiter: limiter}
}

// Generate returns the raw image bytes for title.
func (g *Generator) Generate(ctx context.Context, title string) ([]byte, error) {
	if err := g.limiter.Acquire(ctx, ratelimit.OpenAIImg); err != nil {
		return nil, err
	}

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         Prompt(title),
		Model:          g.model,
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("no image in response")
	}

	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Prompt builds an editorial illustration prompt. Text in images renders
// badly, so the prompt forbids it.
func Prompt(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	return fmt.Sprintf("Editorial news photograph illustrating the headline: %q. Realistic, neutral, no text, no logos, no watermarks.", title)
}
