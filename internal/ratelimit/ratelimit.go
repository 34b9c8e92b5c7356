// Package ratelimit paces calls to paid AI providers and enforces a daily
// request budget per provider.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/suhufapp/suhuf/internal/logger"
)

// Provider names used as budget keys.
const (
	Gemini    = "gemini"
	OpenAI    = "openai"
	OpenAIImg = "openai_image"
	Google    = "google_translate"
)

// ErrBudgetExhausted is returned once a provider used up its daily budget.
var ErrBudgetExhausted = errors.New("daily AI request budget exhausted")

// AIRateLimiter tracks usage of every AI service.
type AIRateLimiter struct {
	mu             sync.Mutex
	counts         map[string]int
	totalCount     int
	maxPerProvider int
	maxTotal       int
	resetTime      time.Time
	cacheHits      int
	cacheMisses    int

	pace *rate.Limiter
	now  func() time.Time
	log  *slog.Logger
}

// NewAIRateLimiter builds a limiter. maxPerProvider and maxTotal of 0 mean
// unlimited; perMinute of 0 disables pacing.
func NewAIRateLimiter(maxPerProvider, maxTotal, perMinute int, log *slog.Logger) *AIRateLimiter {
	pace := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		pace = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	rl := &AIRateLimiter{
		counts:         make(map[string]int),
		maxPerProvider: maxPerProvider,
		maxTotal:       maxTotal,
		pace:           pace,
		now:            time.Now,
		log:            logger.Component(log, "ratelimit"),
	}
	rl.resetTime = rl.now().Add(24 * time.Hour)
	return rl
}

// Acquire reserves one request for provider, waiting for the pacing slot.
// It fails fast once the budget is spent and honours ctx while waiting.
func (rl *AIRateLimiter) Acquire(ctx context.Context, provider string) error {
	if rl == nil {
		return nil
	}
	if err := rl.reserve(provider); err != nil {
		return err
	}
	if err := rl.pace.Wait(ctx); err != nil {
		rl.release(provider)
		return fmt.Errorf("%s: wait for rate limit: %w", provider, err)
	}
	return nil
}

func (rl *AIRateLimiter) reserve(provider string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()

	if rl.maxPerProvider > 0 && rl.counts[provider] >= rl.maxPerProvider {
		rl.log.Warn("provider rate limit reached", "provider", provider, "used", rl.counts[provider], "max", rl.maxPerProvider)
		return fmt.Errorf("%s: %w", provider, ErrBudgetExhausted)
	}
	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		rl.log.Warn("total AI rate limit reached", "used", rl.totalCount, "max", rl.maxTotal)
		return fmt.Errorf("%s: %w", provider, ErrBudgetExhausted)
	}

	rl.counts[provider]++
	rl.totalCount++
	return nil
}

func (rl *AIRateLimiter) release(provider string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.counts[provider] > 0 {
		rl.counts[provider]--
		rl.totalCount--
	}
}

// checkReset must be called with mu held.
func (rl *AIRateLimiter) checkReset() {
	if rl.now().After(rl.resetTime) {
		rl.log.Info("resetting daily AI usage", "total", rl.totalCount)
		rl.counts = make(map[string]int)
		rl.totalCount = 0
		rl.resetTime = rl.now().Add(24 * time.Hour)
	}
}

func (rl *AIRateLimiter) RecordCacheHit() {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cacheHits++
}

func (rl *AIRateLimiter) RecordCacheMiss() {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cacheMisses++
}

// Used returns how many requests provider made in the current day.
func (rl *AIRateLimiter) Used(provider string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.counts[provider]
}

func (rl *AIRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"total_requests": rl.totalCount,
		"max_total":      rl.maxTotal,
		"max_provider":   rl.maxPerProvider,
		"cache_hits":     rl.cacheHits,
		"cache_misses":   rl.cacheMisses,
		"reset_in":       time.Until(rl.resetTime).Round(time.Minute).String(),
	}
	if total := rl.cacheHits + rl.cacheMisses; total > 0 {
		stats["cache_hit_rate"] = float64(rl.cacheHits) / float64(total)
	}
	for p, n := range rl.counts {
		stats[p+"_requests"] = n
	}
	return stats
}
