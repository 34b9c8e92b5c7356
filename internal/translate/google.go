package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	googleV2URL     = "https://translation.googleapis.com/language/translate/v2"
	googlePublicURL = "https://translate.googleapis.com/translate_a/single"
)

// Google uses the Cloud Translation v2 API when an API key is set and the
// public gtx endpoint otherwise.
type Google struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewGoogle(client *http.Client, apiKey string) *Google {
	if client == nil {
		client = http.DefaultClient
	}
	base := googlePublicURL
	if apiKey != "" {
		base = googleV2URL
	}
	return &Google{client: client, apiKey: apiKey, baseURL: base}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Translate(ctx context.Context, text, target string) (string, error) {
	if g.apiKey != "" {
		return g.translateV2(ctx, text, target)
	}
	return g.translatePublic(ctx, text, target)
}

func (g *Google) translatePublic(ctx context.Context, text, target string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	body, err := g.do(req)
	if err != nil {
		return "", err
	}
	return parseGoogleTranslateResponse(body)
}

type v2Request struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type v2Response struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (g *Google) translateV2(ctx context.Context, text, target string) (string, error) {
	payload, err := json.Marshal(v2Request{Q: []string{text}, Target: target, Format: "text"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"?key="+url.QueryEscape(g.apiKey), strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := g.do(req)
	if err != nil {
		return "", err
	}
	var resp v2Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if len(resp.Data.Translations) == 0 {
		return "", errors.New("empty response from Google Translate")
	}
	return resp.Data.Translations[0].TranslatedText, nil
}

func (g *Google) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google Translate API returned status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	return body, nil
}

// parseGoogleTranslateResponse reads the gtx array-of-arrays format.
func parseGoogleTranslateResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response from Google Translate")
	}

	translations, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, translation := range translations {
		if parts, ok := translation.([]interface{}); ok && len(parts) > 0 {
			if s, ok := parts[0].(string); ok {
				result.WriteString(s)
			}
		}
	}
	return result.String(), nil
}
