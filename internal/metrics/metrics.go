package metrics

import (
	"sync"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters, cumulative across runs of this process
	Runs                int64
	ItemsCollected      int64
	URLDuplicates       int64
	FetchErrors         int64
	ItemsExcluded       int64
	DuplicatesFiltered  int64
	ArticlesTransformed int64
	TransformFailures   int64
	TransformCalls      int64
	ArticlesPublished   int64
	MessagesSent        int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Transform budget of the last run, per provider
	LastQuota map[string]interface{}

	// Status
	LastRunID     string
	LastStage     news.Stage
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

// RecordRun folds a finished run report into the counters.
func (m *Metrics) RecordRun(r news.RunReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Runs++
	m.ItemsCollected += int64(r.Collected)
	m.URLDuplicates += int64(r.URLDuplicates)
	m.TransformCalls += int64(r.TransformCalls)
	m.FetchErrors += int64(r.FetchErrors)
	m.ItemsExcluded += int64(r.Excluded)
	m.DuplicatesFiltered += int64(r.Duplicates)
	m.ArticlesTransformed += int64(r.Transformed)
	m.TransformFailures += int64(r.TransformErrors)
	m.ArticlesPublished += int64(r.Published)
	m.LastRunID = r.RunID
	m.LastStage = r.Stage

	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		m.recordProcessingTime(r.FinishedAt.Sub(r.StartedAt))
	}
}

func (m *Metrics) IncrementMessagesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent++
}

// SetQuota keeps the transform budget snapshot of the last run.
func (m *Metrics) SetQuota(stats map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastQuota = stats
}

func (m *Metrics) recordProcessingTime(duration time.Duration) {
	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs":                       m.Runs,
		"items_collected":            m.ItemsCollected,
		"url_duplicates":             m.URLDuplicates,
		"fetch_errors":               m.FetchErrors,
		"items_excluded":             m.ItemsExcluded,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"articles_transformed":       m.ArticlesTransformed,
		"transform_failures":         m.TransformFailures,
		"transform_calls":            m.TransformCalls,
		"transform_quota":            m.LastQuota,
		"articles_published":         m.ArticlesPublished,
		"messages_sent":              m.MessagesSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_id":                m.LastRunID,
		"last_stage":                 string(m.LastStage),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
