// Package dedup decides whether a fetched candidate is new: exact URL checks
// within a batch and against the store, then a best-effort semantic check
// against recent headlines of the same scope.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/soft"
)

// URLIndex is the persisted-URL lookup, normally the article store.
type URLIndex interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
}

// Classifier decides whether title reports the same event as any of window.
type Classifier interface {
	ClassifyDuplicate(ctx context.Context, title string, window []string) soft.Result[bool]
}

type Verdict int

const (
	Unique Verdict = iota
	StoredDuplicate
	NearDuplicate
)

func (v Verdict) String() string {
	switch v {
	case StoredDuplicate:
		return "stored_duplicate"
	case NearDuplicate:
		return "near_duplicate"
	default:
		return "unique"
	}
}

type Deduplicator struct {
	index      URLIndex
	classifier Classifier // nil disables the semantic check
	timeout    time.Duration
	log        *slog.Logger
	metrics    *metrics.Metrics
}

func New(index URLIndex, classifier Classifier, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Deduplicator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Deduplicator{
		index:      index,
		classifier: classifier,
		timeout:    timeout,
		log:        logger.Component(log, "dedup"),
		metrics:    m,
	}
}

// SemanticEnabled reports whether near-duplicate detection runs at all.
func (d *Deduplicator) SemanticEnabled() bool { return d.classifier != nil }

// Check runs the cross-run URL check then the semantic check. A failed
// store lookup lets the candidate through: the insert's unique constraint
// still guards the store.
func (d *Deduplicator) Check(ctx context.Context, c news.Candidate, window *TitleWindow) Verdict {
	exists, err := d.index.ExistsByURL(ctx, c.URL)
	if err != nil {
		d.log.Warn("url lookup failed, relying on insert constraint", "url", c.URL, "err", err)
	} else if exists {
		d.metrics.Inc(metrics.StoredDuplicate)
		return StoredDuplicate
	}

	if d.IsNearDuplicate(ctx, c.Title, window) {
		d.metrics.Inc(metrics.SemanticDuplicate)
		return NearDuplicate
	}
	return Unique
}

// IsNearDuplicate asks the classifier about title against the window. Any
// classifier failure counts as "not a duplicate".
func (d *Deduplicator) IsNearDuplicate(ctx context.Context, title string, window *TitleWindow) bool {
	if d.classifier == nil || window == nil || window.Len() == 0 {
		return false
	}
	if window.ContainsNormalized(title) {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res := d.classifier.ClassifyDuplicate(ctx, title, window.Titles())
	if !res.OK {
		if !res.Disabled() {
			d.metrics.Inc(metrics.ClassifierFailure)
			d.log.Warn("semantic check degraded", "title", title, "reason", res.Reason)
		}
		return false
	}
	return res.Value
}
