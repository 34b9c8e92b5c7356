package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/suhufapp/suhuf/internal/enrich"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/storage"
)

type ArticleInserter interface {
	Insert(ctx context.Context, a news.Article) error
}

// Notifier receives every article right after it is stored.
type Notifier interface {
	Notify(a news.Article)
}

// Writer is the only component that creates stored articles.
type Writer struct {
	store    ArticleInserter
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func NewWriter(store ArticleInserter, notifier Notifier, log *slog.Logger, m *metrics.Metrics) *Writer {
	return &Writer{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      logger.Component(log, "writer"),
		metrics:  m,
	}
}

// InsertIfNew stores the enriched candidate. It returns (nil, nil) when the
// URL is already stored, which includes losing a race to a concurrent run.
func (w *Writer) InsertIfNew(ctx context.Context, r enrich.Result) (*news.Article, error) {
	c := r.Candidate
	a := news.Article{
		ID:          uuid.NewString(),
		Title:       c.Title,
		Summary:     c.Summary,
		Content:     r.Content,
		URL:         c.URL,
		ImageURL:    c.ImageURL,
		PublishedAt: c.PublishedAt.UTC().Truncate(time.Microsecond),
		SourceName:  c.SourceName,
		Category:    c.Category,
		Language:    c.Language,
		Author:      c.SourceName,
		CreatedAt:   w.now().UTC().Truncate(time.Microsecond),
	}

	err := w.store.Insert(ctx, a)
	if errors.Is(err, storage.ErrDuplicate) {
		w.metrics.Inc(metrics.StoredDuplicate)
		w.log.Debug("already stored, skipping", "url", a.URL)
		return nil, nil
	}
	if err != nil {
		w.metrics.Inc(metrics.InsertFailure)
		w.log.Error("insert failed, dropping candidate", "url", a.URL, "err", err)
		return nil, err
	}

	w.metrics.Inc(metrics.ArticleInserted)
	if w.notifier != nil {
		w.notifier.Notify(a)
	}
	return &a, nil
}
