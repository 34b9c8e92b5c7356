package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripTags(t *testing.T) {
	ex := NewExtractor()
	tests := []struct {
		in, want string
	}{
		{"plain   text\n here", "plain text here"},
		{"<p>Hello <b>world</b></p><script>x()</script>", "Hello world"},
		{"زلزال &amp; <i>تسونامي</i>", "زلزال & تسونامي"},
		{"<p>unclosed <b>tag", "unclosed tag"},
	}
	for _, tt := range tests {
		if got := ex.StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstImage(t *testing.T) {
	ex := NewExtractor()
	html := `<p>x</p><img src="data:image/png;base64,AA"><img src=" https://cdn.test/a.jpg "><img src="https://cdn.test/b.jpg">`
	if got := ex.FirstImage(html); got != "https://cdn.test/a.jpg" {
		t.Fatalf("FirstImage = %q", got)
	}
	if got := ex.FirstImage("<p>no images</p>"); got != "" {
		t.Fatalf("FirstImage without img = %q", got)
	}
}

func TestExtractFullArticle(t *testing.T) {
	para := strings.Repeat("The quake damaged several buildings downtown. ", 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`<html><head><title>T</title></head><body><h1>Quake</h1><article>
			<p>` + para + `</p><p>Subscribe to our newsletter for more updates today.</p>
			<p>` + para + `</p><p>Rescue teams arrived within hours of the first tremor in the area.</p>
		</article></body></html>`))
	}))
	defer srv.Close()

	f := NewArticleFetcher(srv.Client(), "test-agent")
	got, err := f.ExtractFullArticle(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ExtractFullArticle: %v", err)
	}
	if got.Title != "Quake" {
		t.Errorf("Title = %q", got.Title)
	}
	if strings.Contains(got.Content, "newsletter") {
		t.Error("junk paragraph was kept")
	}
	if strings.Count(got.Content, "several buildings") != 3 {
		t.Errorf("duplicate paragraph should be collapsed, got %q", got.Content)
	}
	if !strings.Contains(got.Content, "Rescue teams") {
		t.Errorf("missing paragraph in %q", got.Content)
	}
}

func TestExtractFullArticleHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewArticleFetcher(srv.Client(), "").ExtractFullArticle(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 403")
	}
}
