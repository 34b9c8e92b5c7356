// Package notify fans newly stored articles out to realtime subscribers.
// Delivery is best-effort and never slows down ingestion.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
)

// Publisher delivers one article to one channel.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, a news.Article) error
}

// Dispatcher queues articles and hands them to every publisher from a
// single background goroutine.
type Dispatcher struct {
	publishers []Publisher
	queue      chan news.Article
	timeout    time.Duration
	log        *slog.Logger
	metrics    *metrics.Metrics

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

func NewDispatcher(publishers []Publisher, buffer int, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if buffer < 1 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d := &Dispatcher{
		publishers: publishers,
		queue:      make(chan news.Article, buffer),
		timeout:    timeout,
		log:        logger.Component(log, "notify"),
		metrics:    m,
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

// Notify enqueues a without blocking. A full queue drops the notification.
func (d *Dispatcher) Notify(a news.Article) {
	if d == nil || len(d.publishers) == 0 {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- a:
	default:
		d.log.Warn("notification queue full, dropping", "id", a.ID)
	}
}

// Close stops accepting articles and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for a := range d.queue {
		for _, p := range d.publishers {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			err := p.Publish(ctx, a)
			cancel()
			if err != nil {
				d.log.Warn("notification failed", "publisher", p.Name(), "id", a.ID, "err", err)
				continue
			}
			d.metrics.Inc(metrics.NotificationSent)
		}
	}
}
