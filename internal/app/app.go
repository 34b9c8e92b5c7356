// Package app wires configuration into a running ingestion service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/suhufapp/suhuf/internal/config"
	"github.com/suhufapp/suhuf/internal/dedup"
	"github.com/suhufapp/suhuf/internal/enrich"
	"github.com/suhufapp/suhuf/internal/feeds"
	"github.com/suhufapp/suhuf/internal/gemini"
	"github.com/suhufapp/suhuf/internal/httpapi"
	"github.com/suhufapp/suhuf/internal/imagegen"
	"github.com/suhufapp/suhuf/internal/ingest"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/notify"
	"github.com/suhufapp/suhuf/internal/objectstore"
	"github.com/suhufapp/suhuf/internal/ratelimit"
	"github.com/suhufapp/suhuf/internal/retry"
	"github.com/suhufapp/suhuf/internal/rss"
	"github.com/suhufapp/suhuf/internal/scraper"
	"github.com/suhufapp/suhuf/internal/storage"
	"github.com/suhufapp/suhuf/internal/translate"
)

type App struct {
	cfg        *config.Config
	log        *slog.Logger
	store      *storage.Store
	dispatcher *notify.Dispatcher
	runner     *ingest.Runner
	scheduler  *Scheduler
	server     *http.Server
	closers    []func()
}

// New builds every component. ctx bounds background runs started later.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger.Component(log, "app")}
	m := metrics.New()
	httpClient := &http.Client{}

	store, err := openStore(ctx, cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.store = store

	registry, err := loadRegistry(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.log.Info("feed registry loaded", "feeds", registry.Len())

	limiter := ratelimit.NewAIRateLimiter(cfg.MaxAIRequests, 0, cfg.AIRequestsPerMinute, log)

	var gem *gemini.Client
	if cfg.GeminiAPIKey != "" && (cfg.SemanticDedup || cfg.TranslateEnabled) {
		gem, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, limiter)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, gem.Close)
	}

	var oa *openai.Client
	if cfg.OpenAIAPIKey != "" {
		oa = openai.NewClient(cfg.OpenAIAPIKey)
	}

	// Interface fields stay untyped nil when a step is off.
	var classifier dedup.Classifier
	if cfg.SemanticDedup && gem != nil {
		classifier = gem
	}

	var translator enrich.Translator
	if cfg.TranslateEnabled {
		providers := []translate.Provider{translate.NewGoogle(httpClient, cfg.GoogleTranslateAPIKey)}
		if gem != nil {
			providers = append(providers, gem)
		}
		if oa != nil {
			providers = append(providers, translate.NewOpenAI(oa, "", limiter))
		}
		t := translate.New(providers, store, limiter, translate.Options{
			Timeout:  cfg.TranslateTimeout,
			CacheTTL: cfg.TranslationCacheTTL,
		}, log, m)
		a.closers = append(a.closers, t.Close)
		translator = t
	}

	var (
		images   enrich.ImageGenerator
		uploader objectstore.Uploader
		mediaDir string
	)
	if cfg.ImageSynthesis && oa != nil {
		images = imagegen.New(oa, cfg.OpenAIImageModel, limiter)
		if cfg.GCSBucket != "" {
			gcs, err := objectstore.NewGCS(ctx, cfg.GCSBucket, "news")
			if err != nil {
				a.Close()
				return nil, err
			}
			a.closers = append(a.closers, func() { gcs.Close() })
			uploader = gcs
		} else {
			disk, err := objectstore.NewDisk(cfg.MediaDir, cfg.MediaBaseURL)
			if err != nil {
				a.Close()
				return nil, err
			}
			uploader = disk
			mediaDir = disk.Dir()
		}
	}

	var fullText enrich.FullTextExtractor
	if cfg.FullText {
		fullText = scraper.NewArticleFetcher(httpClient, cfg.UserAgent)
	}

	hub := notify.NewHub()
	publishers := []notify.Publisher{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kp := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, func() { kp.Close() })
		publishers = append(publishers, kp)
	}
	if cfg.TelegramToken != "" {
		publishers = append(publishers, notify.NewTelegramPublisher(httpClient, cfg.TelegramToken, cfg.TelegramChatID))
	}
	a.dispatcher = notify.NewDispatcher(publishers, 0, 0, log, m)

	fetcher := rss.NewFetcher(httpClient, scraper.NewExtractor(), rss.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FeedTimeout,
		ItemCap:   cfg.FeedItemCap,
	}, log, m)
	deduplicator := dedup.New(store, classifier, cfg.ClassifyTimeout, log, m)
	enricher := enrich.New(translator, images, uploader, fullText, enrich.Options{
		PlaceholderImageURL: cfg.PlaceholderImageURL,
		ImageTimeout:        cfg.ImageTimeout,
		UploadTimeout:       cfg.UploadTimeout,
		FullTextTimeout:     cfg.FullTextTimeout,
		Concurrency:         cfg.EnrichConcurrency,
	}, log, m)
	writer := ingest.NewWriter(store, a.dispatcher, log, m)
	orchestrator := ingest.NewOrchestrator(registry, fetcher, deduplicator, enricher, writer, store, ingest.Options{
		FetchConcurrency: cfg.FetchConcurrency,
		WindowSize:       cfg.SemanticWindow,
		TranslateEnabled: cfg.TranslateEnabled,
	}, log, m)

	a.runner = ingest.NewRunner(ctx, orchestrator, 0, log)
	a.scheduler = NewScheduler(a.runner, cfg.ScheduleTopics, cfg.ScheduleInterval, cfg.TranslateEnabled, log)

	api := httpapi.New(a.runner, store, registry, hub, m, limiter, httpapi.Options{
		JWTSecret: cfg.IngestJWTSecret,
		MediaDir:  mediaDir,
	}, log)
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info("pipeline configured",
		"semantic_dedup", classifier != nil,
		"translate", translator != nil,
		"image_synthesis", images != nil,
		"full_text", fullText != nil,
		"publishers", len(publishers),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage.Store, error) {
	var store *storage.Store
	err := retry.WithRetry(ctx, retry.RetryConfig{MaxAttempts: 5, Delay: 2 * time.Second, Backoff: true}, func(ctx context.Context) error {
		s, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			log.Warn("store not ready", "driver", cfg.DatabaseDriver, "err", err)
			return err
		}
		store = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

func loadRegistry(cfg *config.Config) (*feeds.Registry, error) {
	if cfg.FeedsConfigPath != "" {
		return feeds.LoadFile(cfg.FeedsConfigPath)
	}
	return feeds.Default()
}

// Run serves HTTP and runs the scheduler until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.scheduler.Start(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-errCh:
		a.log.Error("HTTP server failed", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("HTTP shutdown", "err", err)
	}
	if runErr == nil {
		<-schedDone
	}
	return runErr
}

// Close drains pending notifications and releases every client.
func (a *App) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close store", "err", err)
		}
	}
}
