package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("DATABASE_DRIVER", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FeedItemCap != 10 {
		t.Errorf("FeedItemCap = %d, want 10", cfg.FeedItemCap)
	}
	if cfg.FeedTimeout != 10*time.Second {
		t.Errorf("FeedTimeout = %v, want 10s", cfg.FeedTimeout)
	}
	if cfg.PlaceholderImageURL == "" {
		t.Error("placeholder image must never be empty")
	}
	if len(cfg.ScheduleTopics) != 2 {
		t.Errorf("ScheduleTopics = %v, want en:all and ar:all", cfg.ScheduleTopics)
	}
}

func TestLoadClampsConcurrency(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/news")
	t.Setenv("FETCH_CONCURRENCY", "64")
	t.Setenv("ENRICH_CONCURRENCY", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FetchConcurrency != 16 {
		t.Errorf("FetchConcurrency = %d, want 16", cfg.FetchConcurrency)
	}
	if cfg.EnrichConcurrency != 2 {
		t.Errorf("EnrichConcurrency = %d, want 2", cfg.EnrichConcurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing database", Config{DatabaseDriver: "postgres"}, true},
		{"bad driver", Config{DatabaseURL: "x", DatabaseDriver: "mysql"}, true},
		{"semantic without key", Config{DatabaseURL: "x", DatabaseDriver: "postgres", SemanticDedup: true}, true},
		{"image without storage", Config{DatabaseURL: "x", DatabaseDriver: "postgres", ImageSynthesis: true, OpenAIAPIKey: "k"}, true},
		{"telegram half set", Config{DatabaseURL: "x", DatabaseDriver: "postgres", TelegramToken: "t"}, true},
		{"passthrough", Config{DatabaseURL: "x", DatabaseDriver: "postgres"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTopics(t *testing.T) {
	topics, err := ParseTopics("en:technology, ar")
	if err != nil {
		t.Fatalf("ParseTopics: %v", err)
	}
	want := []Topic{{"en", "technology"}, {"ar", "all"}}
	if len(topics) != len(want) {
		t.Fatalf("got %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topic %d = %v, want %v", i, topics[i], want[i])
		}
	}

	if _, err := ParseTopics("fr:world"); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}
