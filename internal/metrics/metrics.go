package metrics

import (
	"sync"
	"time"
)

// Metrics are process-wide ingestion counters, exposed on /metrics.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedsFetched          int64
	FeedsFailed           int64
	CandidatesSeen        int64
	BatchDuplicates       int64
	StoredDuplicates      int64
	SemanticDuplicates    int64
	ClassifierFailures    int64
	ArticlesInserted      int64
	InsertFailures        int64
	TranslationsOK        int64
	TranslationsFailed    int64
	ImagesGenerated       int64
	PlaceholderImagesUsed int64
	NotificationsSent     int64

	// Timings
	LastRunDuration    time.Duration
	AverageRunDuration time.Duration
	TotalRunDuration   time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

// Counter names accepted by Inc.
const (
	FeedFetched       = "feeds_fetched"
	FeedFailed        = "feeds_failed"
	CandidateSeen     = "candidates_seen"
	BatchDuplicate    = "batch_duplicates"
	StoredDuplicate   = "stored_duplicates"
	SemanticDuplicate = "semantic_duplicates"
	ClassifierFailure = "classifier_failures"
	ArticleInserted   = "articles_inserted"
	InsertFailure     = "insert_failures"
	TranslationOK     = "translations_ok"
	TranslationFailed = "translations_failed"
	ImageGenerated    = "images_generated"
	PlaceholderImage  = "placeholder_images_used"
	NotificationSent  = "notifications_sent"
)

func (m *Metrics) counter(name string) *int64 {
	switch name {
	case FeedFetched:
		return &m.FeedsFetched
	case FeedFailed:
		return &m.FeedsFailed
	case CandidateSeen:
		return &m.CandidatesSeen
	case BatchDuplicate:
		return &m.BatchDuplicates
	case StoredDuplicate:
		return &m.StoredDuplicates
	case SemanticDuplicate:
		return &m.SemanticDuplicates
	case ClassifierFailure:
		return &m.ClassifierFailures
	case ArticleInserted:
		return &m.ArticlesInserted
	case InsertFailure:
		return &m.InsertFailures
	case TranslationOK:
		return &m.TranslationsOK
	case TranslationFailed:
		return &m.TranslationsFailed
	case ImageGenerated:
		return &m.ImagesGenerated
	case PlaceholderImage:
		return &m.PlaceholderImagesUsed
	case NotificationSent:
		return &m.NotificationsSent
	}
	return nil
}

// Add increments a named counter by n. Unknown names are ignored. A nil
// *Metrics is valid and records nothing.
func (m *Metrics) Add(name string, n int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.counter(name); c != nil {
		*c += n
	}
}

func (m *Metrics) Inc(name string) { m.Add(name, 1) }

// Get reads a named counter.
func (m *Metrics) Get(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.counter(name); c != nil {
		return *c
	}
	return 0
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++
	m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
}

func (m *Metrics) SetLastRun() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		FeedFetched:       m.FeedsFetched,
		FeedFailed:        m.FeedsFailed,
		CandidateSeen:     m.CandidatesSeen,
		BatchDuplicate:    m.BatchDuplicates,
		StoredDuplicate:   m.StoredDuplicates,
		SemanticDuplicate: m.SemanticDuplicates,
		ClassifierFailure: m.ClassifierFailures,
		ArticleInserted:   m.ArticlesInserted,
		InsertFailure:     m.InsertFailures,
		TranslationOK:     m.TranslationsOK,
		TranslationFailed: m.TranslationsFailed,
		ImageGenerated:    m.ImagesGenerated,
		PlaceholderImage:  m.PlaceholderImagesUsed,
		NotificationSent:  m.NotificationsSent,
		"runs":            m.RunCount,
		"last_run_ms":     m.LastRunDuration.Milliseconds(),
		"average_run_ms":  m.AverageRunDuration.Milliseconds(),
		"last_run_time":   m.LastRunTime.Format(time.RFC3339),
		"last_error_time": m.LastErrorTime.Format(time.RFC3339),
		"last_error":      m.LastError,
		"is_healthy":      m.IsHealthy,
	}
}
