package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/suhufapp/suhuf/internal/config"
	"github.com/suhufapp/suhuf/internal/ingest"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/news"
)

type countingRunner struct {
	mu     sync.Mutex
	reqs   []ingest.Request
	active int
	max    int
}

func (c *countingRunner) Run(_ context.Context, req ingest.Request) (news.Outcome, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.active++
	if c.active > c.max {
		c.max = c.active
	}
	c.mu.Unlock()

	time.Sleep(time.Millisecond)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	if req.Language == "ar" {
		return news.Outcome{}, errors.New("store down")
	}
	return news.Outcome{}, nil
}

func (c *countingRunner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

func TestSchedulerRunsTopicsSequentially(t *testing.T) {
	runner := &countingRunner{}
	topics := []config.Topic{{Language: "en", Category: "all"}, {Language: "ar", Category: "sports"}}
	s := NewScheduler(runner, topics, 20*time.Millisecond, true, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for runner.count() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d runs after 2s", runner.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.max != 1 {
		t.Errorf("max concurrent runs = %d, want 1", runner.max)
	}
	if runner.reqs[0] != (ingest.Request{Language: "en", Category: "all", Translate: true}) {
		t.Errorf("first request = %+v", runner.reqs[0])
	}
	if runner.reqs[1].Language != "ar" || runner.reqs[1].Category != "sports" {
		t.Errorf("second request = %+v", runner.reqs[1])
	}
}

func TestSchedulerDisabled(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, []config.Topic{{Language: "en", Category: "all"}}, 0, false, logger.Discard())

	s.Start(context.Background()) // returns immediately
	if runner.count() != 0 {
		t.Fatalf("runs = %d, want 0", runner.count())
	}
}
