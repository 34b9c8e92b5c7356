// Package rss downloads feed documents and turns their items into candidates.
package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/suhufapp/suhuf/internal/feeds"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/scraper"
)

// DefaultMaxBytes bounds one feed document.
const DefaultMaxBytes = 5 << 20

type Options struct {
	UserAgent string
	Timeout   time.Duration // per feed, covers connect, headers and body
	ItemCap   int
	MaxBytes  int64
}

// Fetcher is safe for concurrent use. A gofeed.Parser is not, so each fetch
// builds its own.
type Fetcher struct {
	client    *http.Client
	extractor scraper.Extractor
	opts      Options
	log       *slog.Logger
	metrics   *metrics.Metrics
}

func NewFetcher(client *http.Client, extractor scraper.Extractor, opts Options, log *slog.Logger, m *metrics.Metrics) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if extractor == nil {
		extractor = scraper.NewExtractor()
	}
	if opts.ItemCap < 1 {
		opts.ItemCap = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:    client,
		extractor: extractor,
		opts:      opts,
		log:       logger.Component(log, "rss"),
		metrics:   m,
	}
}

// FetchCandidates never fails: any error is logged and yields no candidates,
// so one bad feed cannot abort the batch.
func (f *Fetcher) FetchCandidates(ctx context.Context, feed feeds.Descriptor) []news.Candidate {
	started := time.Now()
	out, err := f.fetch(ctx, feed)
	if err != nil {
		f.metrics.Inc(metrics.FeedFailed)
		f.log.Warn("feed skipped", "feed", feed.Name, "url", feed.URL, "err", err, "elapsed", time.Since(started))
		return nil
	}
	f.metrics.Inc(metrics.FeedFetched)
	f.log.Debug("feed loaded", "feed", feed.Name, "candidates", len(out), "elapsed", time.Since(started))
	return out
}

func (f *Fetcher) fetch(ctx context.Context, feed feeds.Descriptor) ([]news.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", f.opts.MaxBytes)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	now := time.Now().UTC()
	var out []news.Candidate
	for _, item := range parsed.Items {
		if len(out) >= f.opts.ItemCap {
			break
		}
		if c, ok := f.toCandidate(item, feed, now); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *Fetcher) toCandidate(item *gofeed.Item, feed feeds.Descriptor, now time.Time) (news.Candidate, bool) {
	if item == nil {
		return news.Candidate{}, false
	}
	title := f.extractor.StripTags(item.Title)
	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}
	if title == "" || link == "" {
		return news.Candidate{}, false
	}

	// content:encoded wins when it carries more than the description.
	body := item.Description
	if len(item.Content) > len(body) {
		body = item.Content
	}

	return news.Candidate{
		Title:       title,
		Summary:     f.extractor.StripTags(body),
		URL:         link,
		ImageURL:    f.imageOf(item, body),
		PublishedAt: publishedAt(item, now),
		SourceName:  feed.Name,
		Category:    feed.Category,
		Language:    feed.Language,
	}, true
}

func (f *Fetcher) imageOf(item *gofeed.Item, body string) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
			// media:group wraps media:content in some feeds
			for _, group := range media["group"] {
				for _, ext := range group.Children[key] {
					if u := ext.Attrs["url"]; u != "" {
						return u
					}
				}
			}
		}
	}
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	if img := f.extractor.FirstImage(body); img != "" {
		return img
	}
	return f.extractor.FirstImage(item.Description)
}

func publishedAt(item *gofeed.Item, now time.Time) time.Time {
	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		return item.UpdatedParsed.UTC()
	}
	return now
}
