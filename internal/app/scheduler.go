package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/suhufapp/suhuf/internal/config"
	"github.com/suhufapp/suhuf/internal/ingest"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/news"
)

// TopicRunner runs one ingestion. *ingest.Runner satisfies it.
type TopicRunner interface {
	Run(ctx context.Context, req ingest.Request) (news.Outcome, error)
}

// Scheduler ingests every topic on a fixed interval, one topic at a time.
type Scheduler struct {
	runner    TopicRunner
	topics    []config.Topic
	interval  time.Duration
	translate bool
	log       *slog.Logger
}

func NewScheduler(runner TopicRunner, topics []config.Topic, interval time.Duration, translate bool, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:    runner,
		topics:    topics,
		interval:  interval,
		translate: translate,
		log:       logger.Component(log, "scheduler"),
	}
}

// Start runs all topics immediately, then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 || len(s.topics) == 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runAll(ctx)
	for {
		select {
		case <-ticker.C:
			s.runAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	for _, t := range s.topics {
		if ctx.Err() != nil {
			return
		}
		req := ingest.Request{Language: t.Language, Category: t.Category, Translate: s.translate}
		outcome, err := s.runner.Run(ctx, req)
		if err != nil {
			s.log.Error("scheduled run failed", "language", t.Language, "category", t.Category, "err", err)
			continue
		}
		s.log.Info("scheduled run done",
			"language", t.Language, "category", t.Category,
			"inserted", outcome.InsertedCount, "total", outcome.TotalCandidates)
	}
}
