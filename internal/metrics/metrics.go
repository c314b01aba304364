// Package metrics keeps in-process pipeline counters, served on /metrics.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedsFetched       int64
	FeedsFailed        int64
	StoriesParsed      int64
	DuplicatesFiltered int64
	ClustersBuilt      int64
	CacheHits          int64
	CacheMisses        int64
	EnrichmentsOK      int64
	EnrichmentsFailed  int64

	// Timings
	LastPipelineTime    time.Duration
	TotalPipelineTime   time.Duration
	AveragePipelineTime time.Duration
	PipelineRuns        int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddFeedsFetched(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedsFetched += n
}

func (m *Metrics) IncrementFeedsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedsFailed++
}

func (m *Metrics) AddStoriesParsed(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoriesParsed += n
}

func (m *Metrics) AddDuplicatesFiltered(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += n
}

func (m *Metrics) AddClustersBuilt(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClustersBuilt += n
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *Metrics) IncrementEnrichmentsOK() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsOK++
}

func (m *Metrics) IncrementEnrichmentsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsFailed++
}

func (m *Metrics) RecordPipelineTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastPipelineTime = duration
	m.TotalPipelineTime += duration
	m.PipelineRuns++
	m.AveragePipelineTime = m.TotalPipelineTime / time.Duration(m.PipelineRuns)
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
		"feeds_fetched":            m.FeedsFetched,
		"feeds_failed":             m.FeedsFailed,
		"stories_parsed":           m.StoriesParsed,
		"duplicates_filtered":      m.DuplicatesFiltered,
		"clusters_built":           m.ClustersBuilt,
		"cache_hits":               m.CacheHits,
		"cache_misses":             m.CacheMisses,
		"enrichments_ok":           m.EnrichmentsOK,
		"enrichments_failed":       m.EnrichmentsFailed,
		"last_pipeline_time_ms":    m.LastPipelineTime.Milliseconds(),
		"average_pipeline_time_ms": m.AveragePipelineTime.Milliseconds(),
		"last_run_time":            m.LastRunTime.Format(time.RFC3339),
		"last_error_time":          m.LastErrorTime.Format(time.RFC3339),
		"last_error":               m.LastError,
		"is_healthy":               m.IsHealthy,
	}
}
