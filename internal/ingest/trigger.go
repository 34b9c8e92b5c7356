package ingest

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/news"
)

// Runner coalesces identical concurrent requests into one run and starts
// background runs that outlive the HTTP request that asked for them.
type Runner struct {
	orchestrator *Orchestrator
	group        singleflight.Group
	base         context.Context
	timeout      time.Duration
	log          *slog.Logger

	mu      sync.Mutex
	flights map[string]*flight
	gen     uint64
}

// flight is one shared run. It is cancelled once every caller has left.
type flight struct {
	key     string // singleflight key, unique per flight
	ctx     context.Context
	cancel  context.CancelFunc
	callers int
}

// NewRunner binds runs to base, normally the process lifetime.
func NewRunner(base context.Context, o *Orchestrator, timeout time.Duration, log *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{
		orchestrator: o,
		base:         base,
		timeout:      timeout,
		log:          logger.Component(log, "runner"),
		flights:      make(map[string]*flight),
	}
}

func key(req Request) string {
	t := "0"
	if req.Translate {
		t = "1"
	}
	return req.Language + "|" + news.NormalizeCategory(req.Category) + "|" + t
}

// Run executes req, sharing the result with identical requests already in
// flight. The shared run does not depend on any single caller: a caller
// whose ctx ends gets ctx.Err() and the run goes on for the others.
func (r *Runner) Run(ctx context.Context, req Request) (news.Outcome, error) {
	if err := req.Validate(); err != nil {
		return news.Outcome{}, err
	}
	topic := key(req)

	r.mu.Lock()
	f := r.flights[topic]
	if f == nil {
		r.gen++
		runCtx, cancel := context.WithTimeout(r.base, r.timeout)
		f = &flight{key: topic + "#" + strconv.FormatUint(r.gen, 10), ctx: runCtx, cancel: cancel}
		r.flights[topic] = f
	}
	f.callers++
	// DoChan does not block; the flight's cleanup waits for mu, so a caller
	// that found f always joins f's call.
	ch := r.group.DoChan(f.key, func() (interface{}, error) {
		defer r.finish(topic, f)
		return r.orchestrator.Ingest(f.ctx, req)
	})
	r.mu.Unlock()

	select {
	case res := <-ch:
		r.leave(topic, f)
		if res.Shared {
			r.log.Debug("joined in-flight run", "key", topic)
		}
		outcome, _ := res.Val.(news.Outcome)
		return outcome, res.Err
	case <-ctx.Done():
		r.leave(topic, f)
		return news.Outcome{}, ctx.Err()
	}
}

// finish retires f so later callers start a fresh run.
func (r *Runner) finish(topic string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flights[topic] == f {
		delete(r.flights, topic)
	}
}

// leave drops one caller. The last caller to leave cancels the run, which
// abandons in-flight fetches when nobody is waiting any more.
func (r *Runner) leave(topic string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.callers--
	if f.callers > 0 {
		return
	}
	f.cancel()
	if r.flights[topic] == f {
		delete(r.flights, topic)
	}
}

// Trigger starts req in the background unless an identical run is active.
func (r *Runner) Trigger(req Request) {
	if err := req.Validate(); err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(r.base, r.timeout)
		defer cancel()
		if _, err := r.Run(ctx, req); err != nil {
			r.log.Warn("background ingestion failed", "language", req.Language, "category", req.Category, "err", err)
		}
	}()
}
