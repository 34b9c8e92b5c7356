// Package gemini wraps Google's Gemini models for the two text tasks of the
// pipeline: near-duplicate headline classification and fallback translation.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/suhufapp/suhuf/internal/ratelimit"
)

type Client struct {
	client  *genai.Client
	model   string
	limiter *ratelimit.AIRateLimiter
}

func NewClient(ctx context.Context, apiKey, model string, limiter *ratelimit.AIRateLimiter) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Client{client: client, model: model, limiter: limiter}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// generate runs one prompt and returns the concatenated text parts.
func (c *Client) generate(ctx context.Context, prompt string, jsonOut bool) (string, error) {
	if err := c.limiter.Acquire(ctx, ratelimit.Gemini); err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0)
	if jsonOut {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return b.String(), nil
}
