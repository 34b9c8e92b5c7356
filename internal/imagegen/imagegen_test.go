package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL + "/v1"
	return New(openai.NewClientWithConfig(cfg), "", nil)
}

func TestGenerateDecodesImage(t *testing.T) {
	png := []byte("\x89PNG fake")
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.ResponseFormat != openai.CreateImageResponseFormatB64JSON || req.N != 1 {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(req.Prompt, "Earthquake hits region X") {
			t.Errorf("prompt = %q", req.Prompt)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	})

	got, err := g.Generate(context.Background(), "Earthquake hits region X")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(got) != string(png) {
		t.Fatalf("image = %q", got)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created":1,"data":[]}`))
	})
	if _, err := g.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestGenerateAPIError(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota","type":"insufficient_quota"}}`))
	})
	if _, err := g.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 429")
	}
}
