// Package enrich applies the optional, independently failable augmentation
// steps to a candidate before it is stored: translation, full-text
// extraction and cover image synthesis.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/suhufapp/suhuf/internal/cache"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/objectstore"
	"github.com/suhufapp/suhuf/internal/scraper"
	"github.com/suhufapp/suhuf/internal/soft"
)

type Translator interface {
	Translate(ctx context.Context, text, target string) soft.Result[string]
}

type ImageGenerator interface {
	Generate(ctx context.Context, title string) ([]byte, error)
}

type FullTextExtractor interface {
	ExtractFullArticle(ctx context.Context, url string) (*scraper.ArticleContent, error)
}

type Options struct {
	PlaceholderImageURL string
	ImageTimeout        time.Duration
	UploadTimeout       time.Duration
	FullTextTimeout     time.Duration
	Concurrency         int // in-flight enrichments across all runs, 1..2
}

// Enricher is shared by every run so the concurrency bound is global. Any
// nil collaborator switches its step off.
type Enricher struct {
	translator Translator
	images     ImageGenerator
	uploader   objectstore.Uploader
	fullText   FullTextExtractor
	opts       Options
	sem        *semaphore.Weighted
	log        *slog.Logger
	metrics    *metrics.Metrics
}

func New(translator Translator, images ImageGenerator, uploader objectstore.Uploader, fullText FullTextExtractor, opts Options, log *slog.Logger, m *metrics.Metrics) *Enricher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > 2 {
		opts.Concurrency = 2
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 60 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 30 * time.Second
	}
	if opts.FullTextTimeout <= 0 {
		opts.FullTextTimeout = 15 * time.Second
	}
	return &Enricher{
		translator: translator,
		images:     images,
		uploader:   uploader,
		fullText:   fullText,
		opts:       opts,
		sem:        semaphore.NewWeighted(int64(opts.Concurrency)),
		log:        logger.Component(log, "enrich"),
		metrics:    m,
	}
}

// Result is a candidate ready to persist.
type Result struct {
	Candidate      news.Candidate
	Content        string
	Translated     bool
	ImageGenerated bool
}

// Enrich never fails. target is the language the article should be stored
// in; an empty target skips translation.
func (e *Enricher) Enrich(ctx context.Context, c news.Candidate, target string) Result {
	res := Result{Candidate: c, Content: c.Summary}

	if e.needsExternalCalls(c, target) {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.finishImage(&res)
			return res
		}
		defer e.sem.Release(1)
	}

	if target != "" && c.Language != target && e.translator != nil {
		e.translate(ctx, &res, target)
	}
	if e.fullText != nil && !res.Translated {
		e.extractFullText(ctx, &res)
	}
	if res.Candidate.ImageURL == "" && e.images != nil && e.uploader != nil {
		e.synthesizeImage(ctx, &res)
	}
	e.finishImage(&res)
	return res
}

func (e *Enricher) needsExternalCalls(c news.Candidate, target string) bool {
	return (target != "" && c.Language != target && e.translator != nil) ||
		e.fullText != nil ||
		(c.ImageURL == "" && e.images != nil && e.uploader != nil)
}

// translate replaces title and summary only when both succeed, so an
// article is never stored half in one language.
func (e *Enricher) translate(ctx context.Context, res *Result, target string) {
	title := e.translator.Translate(ctx, res.Candidate.Title, target)
	if !title.OK || title.Value == "" {
		e.log.Warn("title translation degraded, keeping source text", "url", res.Candidate.URL, "reason", title.Reason)
		return
	}
	summary := soft.Ok("")
	if res.Candidate.Summary != "" {
		summary = e.translator.Translate(ctx, res.Candidate.Summary, target)
		if !summary.OK {
			e.log.Warn("summary translation degraded, keeping source text", "url", res.Candidate.URL, "reason", summary.Reason)
			return
		}
	}

	res.Candidate.Title = title.Value
	res.Candidate.Summary = summary.Value
	res.Candidate.Language = target
	res.Content = summary.Value
	res.Translated = true
}

func (e *Enricher) extractFullText(ctx context.Context, res *Result) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.FullTextTimeout)
	defer cancel()

	article, err := e.fullText.ExtractFullArticle(ctx, res.Candidate.URL)
	if err != nil {
		e.log.Debug("full text unavailable, using summary", "url", res.Candidate.URL, "err", err)
		return
	}
	if len([]rune(article.Content)) > len([]rune(res.Content)) {
		res.Content = article.Content
	}
}

func (e *Enricher) synthesizeImage(ctx context.Context, res *Result) {
	genCtx, cancel := context.WithTimeout(ctx, e.opts.ImageTimeout)
	img, err := e.images.Generate(genCtx, res.Candidate.Title)
	cancel()
	if err != nil {
		e.log.Warn("image synthesis failed, using placeholder", "url", res.Candidate.URL, "err", err)
		return
	}

	upCtx, cancel := context.WithTimeout(ctx, e.opts.UploadTimeout)
	defer cancel()
	key := "covers/" + cache.GenerateKey(res.Candidate.URL)[:32] + ".png"
	url, err := e.uploader.Upload(upCtx, key, img, "image/png")
	if err != nil {
		e.log.Warn("image upload failed, using placeholder", "url", res.Candidate.URL, "err", err)
		return
	}

	res.Candidate.ImageURL = url
	res.ImageGenerated = true
	e.metrics.Inc(metrics.ImageGenerated)
}

func (e *Enricher) finishImage(res *Result) {
	if res.Candidate.ImageURL == "" {
		res.Candidate.ImageURL = e.opts.PlaceholderImageURL
		e.metrics.Inc(metrics.PlaceholderImage)
	}
}
