package checkin

import (
	"sync"
	"time"
)

// IngestMetrics tracks check-in ingestion performance
type IngestMetrics struct {
	MessagesReceived      int64
	MessagesProcessed     int64
	MessagesFailed        int64
	MessagesDropped       int64
	CommandsPublished     int64
	LastProcessedAt       time.Time
	AverageProcessingTime time.Duration
	BufferSize            int
}

// MetricsTracker provides a goroutine-safe wrapper around IngestMetrics.
type MetricsTracker struct {
	mu      sync.RWMutex
	metrics IngestMetrics
}

func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Update applies a mutation in a thread-safe way.
func (t *MetricsTracker) Update(fn func(*IngestMetrics)) {
	if fn == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.metrics)
}

// Snapshot returns a copy of the current metrics.
func (t *MetricsTracker) Snapshot() IngestMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}

// observe folds one processing duration into the running average.
func (m *IngestMetrics) observe(d time.Duration, at time.Time) {
	m.MessagesProcessed++
	m.LastProcessedAt = at
	if m.AverageProcessingTime == 0 {
		m.AverageProcessingTime = d
		return
	}
	m.AverageProcessingTime = (m.AverageProcessingTime + d) / 2
}
