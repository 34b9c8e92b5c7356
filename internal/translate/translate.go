// Package translate renders article text in the other supported language
// through a chain of providers, with caching in memory and in the store.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/suhufapp/suhuf/internal/cache"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/ratelimit"
	"github.com/suhufapp/suhuf/internal/soft"
)

const maxInputChars = 4000

// Provider is one translation backend.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, target string) (string, error)
}

// Store persists translations across restarts. *storage.Store satisfies it.
type Store interface {
	GetTranslation(ctx context.Context, contentHash string) (string, bool, error)
	SetTranslation(ctx context.Context, contentHash, targetLanguage, translation, provider string) error
}

type Options struct {
	Timeout  time.Duration // per provider attempt
	CacheTTL time.Duration
}

// Translator tries providers in order and returns the first usable result.
type Translator struct {
	providers []Provider
	memory    *cache.Cache[string]
	store     Store
	limiter   *ratelimit.AIRateLimiter
	opts      Options
	log       *slog.Logger
	metrics   *metrics.Metrics
}

func New(providers []Provider, store Store, limiter *ratelimit.AIRateLimiter, opts Options, log *slog.Logger, m *metrics.Metrics) *Translator {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 48 * time.Hour
	}
	return &Translator{
		providers: providers,
		memory:    cache.New[string](time.Hour),
		store:     store,
		limiter:   limiter,
		opts:      opts,
		log:       logger.Component(log, "translate"),
		metrics:   m,
	}
}

func (t *Translator) Close() { t.memory.Stop() }

// Translate never fails the caller: a degraded result carries the reason and
// the caller keeps the source text.
func (t *Translator) Translate(ctx context.Context, text, target string) soft.Result[string] {
	text = cleanTextForTranslation(text)
	if text == "" {
		return soft.Ok("")
	}
	if len(t.providers) == 0 {
		return soft.Fail[string](fmt.Errorf("translate: %w", soft.ErrDisabled))
	}
	if len([]rune(text)) > maxInputChars {
		text = string([]rune(text)[:maxInputChars])
	}

	key := cache.GenerateKey(target, text)
	if v, ok := t.memory.Get(key); ok {
		t.limiter.RecordCacheHit()
		return soft.Ok(v)
	}
	if t.store != nil {
		if v, ok, err := t.store.GetTranslation(ctx, key); err == nil && ok {
			t.limiter.RecordCacheHit()
			t.memory.Set(key, v, t.opts.CacheTTL)
			return soft.Ok(v)
		}
	}
	t.limiter.RecordCacheMiss()

	var errs []error
	for _, p := range t.providers {
		out, err := t.try(ctx, p, text, target)
		if err != nil {
			t.log.Warn("translation provider failed", "provider", p.Name(), "target", target, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		t.metrics.Inc(metrics.TranslationOK)
		t.memory.Set(key, out, t.opts.CacheTTL)
		if t.store != nil {
			if err := t.store.SetTranslation(ctx, key, target, out, p.Name()); err != nil {
				t.log.Debug("translation not persisted", "err", err)
			}
		}
		return soft.Ok(out)
	}

	t.metrics.Inc(metrics.TranslationFailed)
	return soft.Fail[string](errors.Join(errs...))
}

func (t *Translator) try(ctx context.Context, p Provider, text, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	out, err := p.Translate(ctx, text, target)
	if err != nil {
		return "", err
	}
	out = SanitizeAIText(out)
	if out == "" {
		return "", errors.New("empty translation")
	}
	if out == text {
		return "", errors.New("translation equals source text")
	}
	return out, nil
}

// cleanTextForTranslation joins non-trivial lines into one paragraph.
func cleanTextForTranslation(text string) string {
	var cleanLines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	return strings.Join(strings.Fields(strings.Join(cleanLines, " ")), " ")
}
