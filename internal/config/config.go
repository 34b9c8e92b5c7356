package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultPlaceholderImage = "https://images.pexels.com/photos/518543/pexels-photo-518543.jpeg"

// Topic is one (language, category) pair used by scheduled runs.
type Topic struct {
	Language string
	Category string
}

type Config struct {
	// Store settings
	DatabaseURL    string
	DatabaseDriver string // "postgres" or "sqlite"

	// Feed settings
	FeedsConfigPath  string // empty = embedded registry
	FeedItemCap      int
	FetchConcurrency int
	FeedTimeout      time.Duration
	UserAgent        string

	// Semantic dedup (Gemini)
	SemanticDedup   bool
	SemanticWindow  int
	GeminiAPIKey    string
	GeminiModel     string
	ClassifyTimeout time.Duration

	// Translation
	TranslateEnabled      bool
	GoogleTranslateAPIKey string
	OpenAIAPIKey          string
	TranslateTimeout      time.Duration
	TranslationCacheTTL   time.Duration

	// Image synthesis and object storage
	ImageSynthesis      bool
	OpenAIImageModel    string
	ImageTimeout        time.Duration
	GCSBucket           string
	MediaDir            string
	MediaBaseURL        string
	UploadTimeout       time.Duration
	PlaceholderImageURL string

	// Full-text extraction
	FullText        bool
	FullTextTimeout time.Duration

	// Provider pacing
	EnrichConcurrency   int
	AIRequestsPerMinute int
	MaxAIRequests       int // daily budget per provider (0 = unlimited)

	// HTTP / scheduling
	HTTPPort         int
	IngestJWTSecret  string
	ScheduleInterval time.Duration
	ScheduleTopics   []Topic

	// Notifications
	KafkaBrokers   []string
	KafkaTopic     string
	TelegramToken  string
	TelegramChatID string

	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseDriver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),

		FeedsConfigPath:  os.Getenv("FEEDS_CONFIG_PATH"),
		FeedItemCap:      getEnvIntOrDefault("FEED_ITEM_CAP", 10),
		FetchConcurrency: getEnvIntOrDefault("FETCH_CONCURRENCY", 8),
		FeedTimeout:      getEnvDurationOrDefault("FEED_TIMEOUT", 10*time.Second),
		UserAgent:        getEnvOrDefault("USER_AGENT", "Mozilla/5.0 (compatible; SuhufBot/1.0)"),

		SemanticDedup:   getEnvBoolOrDefault("SEMANTIC_DEDUP", false),
		SemanticWindow:  getEnvIntOrDefault("SEMANTIC_WINDOW", 50),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		ClassifyTimeout: getEnvDurationOrDefault("CLASSIFY_TIMEOUT", 15*time.Second),

		TranslateEnabled:      getEnvBoolOrDefault("TRANSLATE_ENABLED", false),
		GoogleTranslateAPIKey: os.Getenv("GOOGLE_TRANSLATE_API_KEY"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		TranslateTimeout:      getEnvDurationOrDefault("TRANSLATE_TIMEOUT", 15*time.Second),
		TranslationCacheTTL:   getEnvDurationOrDefault("TRANSLATION_CACHE_TTL", 48*time.Hour),

		ImageSynthesis:      getEnvBoolOrDefault("IMAGE_SYNTHESIS", false),
		OpenAIImageModel:    getEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),
		ImageTimeout:        getEnvDurationOrDefault("IMAGE_TIMEOUT", 60*time.Second),
		GCSBucket:           os.Getenv("GCS_BUCKET"),
		MediaDir:            getEnvOrDefault("MEDIA_DIR", "media"),
		MediaBaseURL:        os.Getenv("MEDIA_BASE_URL"),
		UploadTimeout:       getEnvDurationOrDefault("UPLOAD_TIMEOUT", 30*time.Second),
		PlaceholderImageURL: getEnvOrDefault("PLACEHOLDER_IMAGE_URL", defaultPlaceholderImage),

		FullText:        getEnvBoolOrDefault("FULL_TEXT", false),
		FullTextTimeout: getEnvDurationOrDefault("FULL_TEXT_TIMEOUT", 15*time.Second),

		EnrichConcurrency:   getEnvIntOrDefault("ENRICH_CONCURRENCY", 1),
		AIRequestsPerMinute: getEnvIntOrDefault("AI_REQUESTS_PER_MINUTE", 30),
		MaxAIRequests:       getEnvIntOrDefault("MAX_AI_REQUESTS", 0),

		HTTPPort:         getEnvIntOrDefault("HTTP_PORT", 8080),
		IngestJWTSecret:  os.Getenv("INGEST_JWT_SECRET"),
		ScheduleInterval: getEnvDurationOrDefault("SCHEDULE_INTERVAL", 0),

		KafkaTopic:     getEnvOrDefault("KAFKA_TOPIC", "news-articles"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}

	topics, err := ParseTopics(getEnvOrDefault("SCHEDULE_TOPICS", "en:all,ar:all"))
	if err != nil {
		return nil, err
	}
	cfg.ScheduleTopics = topics

	cfg.clamp()
	return cfg, cfg.Validate()
}

// clamp keeps concurrency knobs inside the bounds the pipeline is designed for.
func (c *Config) clamp() {
	if c.FetchConcurrency < 1 {
		c.FetchConcurrency = 1
	}
	if c.FetchConcurrency > 16 {
		c.FetchConcurrency = 16
	}
	if c.EnrichConcurrency < 1 {
		c.EnrichConcurrency = 1
	}
	if c.EnrichConcurrency > 2 {
		c.EnrichConcurrency = 2
	}
	if c.FeedItemCap < 1 {
		c.FeedItemCap = 10
	}
	if c.SemanticWindow < 1 {
		c.SemanticWindow = 50
	}
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("DATABASE_DRIVER must be 'postgres' or 'sqlite'")
	}
	if c.SemanticDedup && c.GeminiAPIKey == "" {
		return fmt.Errorf("SEMANTIC_DEDUP requires GEMINI_API_KEY")
	}
	if c.ImageSynthesis && c.OpenAIAPIKey == "" {
		return fmt.Errorf("IMAGE_SYNTHESIS requires OPENAI_API_KEY")
	}
	if c.ImageSynthesis && c.GCSBucket == "" && c.MediaBaseURL == "" {
		return fmt.Errorf("IMAGE_SYNTHESIS requires GCS_BUCKET or MEDIA_BASE_URL")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// ParseTopics reads "lang:category" pairs separated by commas.
func ParseTopics(raw string) ([]Topic, error) {
	var topics []Topic
	for _, part := range splitList(raw) {
		lang, category, found := strings.Cut(part, ":")
		if !found {
			category = "all"
		}
		lang = strings.TrimSpace(lang)
		if lang != "ar" && lang != "en" {
			return nil, fmt.Errorf("SCHEDULE_TOPICS: unsupported language %q", lang)
		}
		category = strings.TrimSpace(category)
		if category == "" {
			category = "all"
		}
		topics = append(topics, Topic{Language: lang, Category: category})
	}
	return topics, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
