package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/scraper"
	"github.com/suhufapp/suhuf/internal/soft"
)

const placeholder = "https://images.test/placeholder.jpg"

type dictTranslator map[string]string

func (d dictTranslator) Translate(_ context.Context, text, _ string) soft.Result[string] {
	if v, ok := d[text]; ok {
		return soft.Ok(v)
	}
	return soft.Fail[string](errors.New("no translation"))
}

type fakeImages struct {
	err    error
	active int32
	peak   int32
	delay  time.Duration
}

func (f *fakeImages) Generate(ctx context.Context, title string) ([]byte, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + title), nil
}

type fakeUploader struct {
	err  error
	keys []string
	mu   sync.Mutex
}

func (f *fakeUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn.test/" + key, nil
}

type fakeFullText struct {
	content string
	err     error
}

func (f fakeFullText) ExtractFullArticle(_ context.Context, url string) (*scraper.ArticleContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.ArticleContent{URL: url, Content: f.content}, nil
}

func candidate() news.Candidate {
	return news.Candidate{
		Title:    "Earthquake hits region X",
		Summary:  "A strong quake.",
		URL:      "https://a.test/u1",
		Language: "en",
		Category: "world",
	}
}

func opts() Options {
	return Options{PlaceholderImageURL: placeholder, Concurrency: 1}
}

func TestPassthroughUsesPlaceholder(t *testing.T) {
	m := metrics.New()
	e := New(nil, nil, nil, nil, opts(), logger.Discard(), m)

	res := e.Enrich(context.Background(), candidate(), "en")
	if res.Candidate.ImageURL != placeholder {
		t.Fatalf("ImageURL = %q, want placeholder", res.Candidate.ImageURL)
	}
	if res.Content != "A strong quake." || res.Translated || res.ImageGenerated {
		t.Fatalf("passthrough changed the candidate: %+v", res)
	}
	if m.Get(metrics.PlaceholderImage) != 1 {
		t.Error("placeholder not counted")
	}
}

func TestExistingImageKept(t *testing.T) {
	images := &fakeImages{}
	e := New(nil, images, &fakeUploader{}, nil, opts(), logger.Discard(), nil)

	c := candidate()
	c.ImageURL = "https://img.test/feed.jpg"
	res := e.Enrich(context.Background(), c, "en")
	if res.Candidate.ImageURL != "https://img.test/feed.jpg" || res.ImageGenerated {
		t.Fatalf("result = %+v", res)
	}
	if images.peak != 0 {
		t.Fatal("generator should not run when the feed had an image")
	}
}

func TestImageSynthesisAndUpload(t *testing.T) {
	up := &fakeUploader{}
	e := New(nil, &fakeImages{}, up, nil, opts(), logger.Discard(), metrics.New())

	res := e.Enrich(context.Background(), candidate(), "en")
	if !res.ImageGenerated || !strings.HasPrefix(res.Candidate.ImageURL, "https://cdn.test/covers/") {
		t.Fatalf("result = %+v", res)
	}
	if len(up.keys) != 1 || !strings.HasSuffix(up.keys[0], ".png") {
		t.Fatalf("keys = %v", up.keys)
	}
}

func TestImageFailuresFallBackToPlaceholder(t *testing.T) {
	tests := []struct {
		name   string
		images *fakeImages
		up     *fakeUploader
	}{
		{"generation fails", &fakeImages{err: errors.New("quota")}, &fakeUploader{}},
		{"upload fails", &fakeImages{}, &fakeUploader{err: errors.New("403")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(nil, tt.images, tt.up, nil, opts(), logger.Discard(), nil)
			res := e.Enrich(context.Background(), candidate(), "en")
			if res.Candidate.ImageURL != placeholder || res.ImageGenerated {
				t.Fatalf("result = %+v", res)
			}
		})
	}
}

func TestImageTimeoutFallsBack(t *testing.T) {
	o := opts()
	o.ImageTimeout = 20 * time.Millisecond
	slow := &slowImages{}
	e := New(nil, slow, &fakeUploader{}, nil, o, logger.Discard(), nil)

	started := time.Now()
	res := e.Enrich(context.Background(), candidate(), "en")
	if res.Candidate.ImageURL != placeholder {
		t.Fatalf("ImageURL = %q", res.Candidate.ImageURL)
	}
	if time.Since(started) > time.Second {
		t.Fatal("image timeout not enforced")
	}
}

type slowImages struct{}

func (slowImages) Generate(ctx context.Context, _ string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTranslation(t *testing.T) {
	tr := dictTranslator{
		"Earthquake hits region X": "زلزال يضرب المنطقة X",
		"A strong quake.":          "زلزال قوي.",
	}
	e := New(tr, nil, nil, nil, opts(), logger.Discard(), nil)

	res := e.Enrich(context.Background(), candidate(), "ar")
	if !res.Translated || res.Candidate.Language != "ar" {
		t.Fatalf("result = %+v", res)
	}
	if res.Candidate.Title != "زلزال يضرب المنطقة X" || res.Content != "زلزال قوي." {
		t.Fatalf("translated text = %q / %q", res.Candidate.Title, res.Content)
	}
}

func TestPartialTranslationKeepsSource(t *testing.T) {
	tr := dictTranslator{"Earthquake hits region X": "زلزال يضرب المنطقة X"}
	e := New(tr, nil, nil, nil, opts(), logger.Discard(), nil)

	res := e.Enrich(context.Background(), candidate(), "ar")
	if res.Translated || res.Candidate.Title != "Earthquake hits region X" || res.Candidate.Language != "en" {
		t.Fatalf("summary failure must keep source text and language: %+v", res)
	}
}

func TestSameLanguageSkipsTranslation(t *testing.T) {
	e := New(dictTranslator{}, nil, nil, nil, opts(), logger.Discard(), nil)
	res := e.Enrich(context.Background(), candidate(), "en")
	if res.Translated {
		t.Fatal("no translation needed for same language")
	}
}

func TestFullText(t *testing.T) {
	body := strings.Repeat("Full article paragraph. ", 10)
	e := New(nil, nil, nil, fakeFullText{content: body}, opts(), logger.Discard(), nil)
	if res := e.Enrich(context.Background(), candidate(), "en"); res.Content != body {
		t.Fatalf("Content = %q", res.Content)
	}

	e = New(nil, nil, nil, fakeFullText{err: errors.New("403")}, opts(), logger.Discard(), nil)
	if res := e.Enrich(context.Background(), candidate(), "en"); res.Content != "A strong quake." {
		t.Fatalf("failed extraction should keep summary, got %q", res.Content)
	}
}

func TestConcurrencyBound(t *testing.T) {
	images := &fakeImages{delay: 20 * time.Millisecond}
	o := opts()
	o.Concurrency = 2
	e := New(nil, images, &fakeUploader{}, nil, o, logger.Discard(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Enrich(context.Background(), candidate(), "en")
		}()
	}
	wg.Wait()

	if peak := atomic.LoadInt32(&images.peak); peak > 2 {
		t.Fatalf("peak concurrent generations = %d, want <= 2", peak)
	}
}

func TestCancelledContextStillGetsPlaceholder(t *testing.T) {
	e := New(nil, &fakeImages{}, &fakeUploader{}, nil, opts(), logger.Discard(), nil)
	e.sem.Acquire(context.Background(), 1) // hold the only slot
	defer e.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Enrich(ctx, candidate(), "en")
	if res.Candidate.ImageURL != placeholder {
		t.Fatalf("ImageURL = %q", res.Candidate.ImageURL)
	}
}
