// Package ingest runs ingestion: resolve feeds, fetch them concurrently,
// deduplicate, enrich and persist the genuinely new articles.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/suhufapp/suhuf/internal/dedup"
	"github.com/suhufapp/suhuf/internal/enrich"
	"github.com/suhufapp/suhuf/internal/feeds"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
)

// Request selects what to ingest. With Translate set, feeds of both
// languages are read and foreign candidates are translated into Language.
type Request struct {
	Language  string `json:"language" form:"language"`
	Category  string `json:"category" form:"category"`
	Translate bool   `json:"translate" form:"translate"`
}

func (r Request) Validate() error {
	if !news.ValidLanguage(r.Language) {
		return fmt.Errorf("%w: language must be 'ar' or 'en', got %q", ErrInvalidRequest, r.Language)
	}
	return nil
}

type FeedSource interface {
	ListFeeds(language, category string) []feeds.Descriptor
	ListAllLanguages(language, category string) []feeds.Descriptor
}

type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, feed feeds.Descriptor) []news.Candidate
}

// Store is what a run needs from the article store.
type Store interface {
	Ping(ctx context.Context) error
	RecentTitles(ctx context.Context, language, category string, limit int) ([]string, error)
}

type Options struct {
	FetchConcurrency int
	WindowSize       int
	TranslateEnabled bool
	PingTimeout      time.Duration
}

type Orchestrator struct {
	feeds    FeedSource
	fetcher  CandidateFetcher
	dedup    *dedup.Deduplicator
	enricher *enrich.Enricher
	writer   *Writer
	store    Store
	opts     Options
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func NewOrchestrator(
	feedSource FeedSource,
	fetcher CandidateFetcher,
	deduplicator *dedup.Deduplicator,
	enricher *enrich.Enricher,
	writer *Writer,
	store Store,
	opts Options,
	log *slog.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 8
	}
	if opts.FetchConcurrency > 16 {
		opts.FetchConcurrency = 16
	}
	if opts.WindowSize < 1 {
		opts.WindowSize = 50
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}
	return &Orchestrator{
		feeds:    feedSource,
		fetcher:  fetcher,
		dedup:    deduplicator,
		enricher: enricher,
		writer:   writer,
		store:    store,
		opts:     opts,
		log:      logger.Component(log, "ingest"),
		metrics:  m,
	}
}

// Ingest runs one ingestion. Only an unreachable store or a cancelled ctx
// fail the run; every per-feed and per-candidate problem degrades softly.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (news.Outcome, error) {
	if err := req.Validate(); err != nil {
		return news.Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return news.Outcome{}, err
	}
	req.Category = news.NormalizeCategory(req.Category)
	started := time.Now()
	log := o.log.With("language", req.Language, "category", req.Category)

	if err := o.ping(ctx); err != nil {
		o.metrics.SetError(err.Error())
		log.Error("store unreachable, aborting run", "err", err)
		return news.Outcome{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	descriptors := o.resolveFeeds(req)
	candidates, err := o.fetchAll(ctx, descriptors)
	if err != nil {
		return news.Outcome{}, err
	}

	outcome := news.Outcome{
		Language:         req.Language,
		Category:         req.Category,
		TotalCandidates:  len(candidates),
		InsertedArticles: []news.Article{},
	}
	o.metrics.Add(metrics.CandidateSeen, int64(len(candidates)))

	unique, dropped := dedup.UniqueByURL(candidates)
	o.metrics.Add(metrics.BatchDuplicate, int64(dropped))

	window := o.seedWindow(ctx, req, log)

	target := ""
	if req.Translate && o.opts.TranslateEnabled {
		target = req.Language
	}

	for i, c := range unique {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled, discarding remaining candidates", "remaining", len(unique)-i)
			return news.Outcome{}, err
		}

		if v := o.dedup.Check(ctx, c, window); v != dedup.Unique {
			log.Debug("candidate skipped", "url", c.URL, "verdict", v.String())
			continue
		}

		enriched := o.enricher.Enrich(ctx, c, target)

		article, err := o.writer.InsertIfNew(ctx, enriched)
		if err != nil || article == nil {
			continue
		}

		window.Prepend(article.Title)
		if article.Title != c.Title {
			window.Prepend(c.Title)
		}
		outcome.InsertedArticles = append(outcome.InsertedArticles, *article)
		outcome.InsertedCount++
	}

	o.metrics.RecordRunDuration(time.Since(started))
	o.metrics.SetLastRun()
	log.Info("ingestion finished",
		"feeds", len(descriptors),
		"total", outcome.TotalCandidates,
		"batch_duplicates", dropped,
		"inserted", outcome.InsertedCount,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return outcome, nil
}

func (o *Orchestrator) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.PingTimeout)
	defer cancel()
	return o.store.Ping(ctx)
}

func (o *Orchestrator) resolveFeeds(req Request) []feeds.Descriptor {
	if req.Translate && o.opts.TranslateEnabled {
		return o.feeds.ListAllLanguages(req.Language, req.Category)
	}
	return o.feeds.ListFeeds(req.Language, req.Category)
}

// fetchAll fetches every feed with bounded concurrency and concatenates the
// results in registry order, so "first occurrence" is deterministic.
func (o *Orchestrator) fetchAll(ctx context.Context, descriptors []feeds.Descriptor) ([]news.Candidate, error) {
	perFeed := make([][]news.Candidate, len(descriptors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.FetchConcurrency)
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			perFeed[i] = o.fetcher.FetchCandidates(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}

	var all []news.Candidate
	for _, cs := range perFeed {
		all = append(all, cs...)
	}
	return all, nil
}

// seedWindow loads recent titles for the scope. Failure leaves the window
// empty: the semantic check is advisory.
func (o *Orchestrator) seedWindow(ctx context.Context, req Request, log *slog.Logger) *dedup.TitleWindow {
	window := dedup.NewTitleWindow(o.opts.WindowSize)
	if !o.dedup.SemanticEnabled() {
		return window
	}
	titles, err := o.store.RecentTitles(ctx, req.Language, req.Category, o.opts.WindowSize)
	if err != nil {
		log.Warn("could not seed title window", "err", err)
		return window
	}
	window.Seed(titles)
	return window
}
