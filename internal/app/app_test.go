package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/suhufapp/suhuf/internal/config"
	"github.com/suhufapp/suhuf/internal/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabaseDriver:      "sqlite",
		DatabaseURL:         ":memory:",
		PlaceholderImageURL: "https://images.test/placeholder.jpg",
		HTTPPort:            0,
	}
}

func TestNewAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, testConfig(), logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewRejectsMissingFeedsFile(t *testing.T) {
	cfg := testConfig()
	cfg.FeedsConfigPath = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := New(context.Background(), cfg, logger.Discard()); err == nil {
		t.Fatal("expected error for missing feeds file")
	}
}
