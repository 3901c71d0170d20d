package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	signalsAccepted atomic.Uint64
	signalsRejected atomic.Uint64
	fanoutWrites    atomic.Uint64
	cacheHits       atomic.Uint64
	cacheWaits      atomic.Uint64
	authFailures    atomic.Uint64
	feedbackAppends atomic.Uint64
	errorsTotal     atomic.Uint64

	// Gauges
	wsClients atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordAccepted records an accepted broadcast and the number of cache slots
// it fanned out to.
func (m *Metrics) RecordAccepted(subscribers int) {
	m.signalsAccepted.Add(1)
	m.fanoutWrites.Add(uint64(subscribers))
}

// RecordRejected records an admission-filter rejection.
func (m *Metrics) RecordRejected() {
	m.signalsRejected.Add(1)
}

// RecordCacheHit records a pull that returned a fresh signal.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheWait records a pull answered with the neutral WAIT payload.
func (m *Metrics) RecordCacheWait() {
	m.cacheWaits.Add(1)
}

// RecordAuthFailure records a rejected API key.
func (m *Metrics) RecordAuthFailure() {
	m.authFailures.Add(1)
}

// RecordFeedback records one appended feedback record.
func (m *Metrics) RecordFeedback() {
	m.feedbackAppends.Add(1)
}

// RecordError records an infrastructure error.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementWSClients increments the connected websocket client count.
func (m *Metrics) IncrementWSClients() {
	m.wsClients.Add(1)
}

// DecrementWSClients decrements the connected websocket client count.
func (m *Metrics) DecrementWSClients() {
	m.wsClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	SignalsAccepted uint64    `json:"signals_accepted"`
	SignalsRejected uint64    `json:"signals_rejected"`
	FanoutWrites    uint64    `json:"fanout_writes"`
	CacheHits       uint64    `json:"cache_hits"`
	CacheWaits      uint64    `json:"cache_waits"`
	AuthFailures    uint64    `json:"auth_failures"`
	FeedbackAppends uint64    `json:"feedback_appends"`
	ErrorsTotal     uint64    `json:"errors_total"`
	WSClients       int32     `json:"ws_clients"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		SignalsAccepted: m.signalsAccepted.Load(),
		SignalsRejected: m.signalsRejected.Load(),
		FanoutWrites:    m.fanoutWrites.Load(),
		CacheHits:       m.cacheHits.Load(),
		CacheWaits:      m.cacheWaits.Load(),
		AuthFailures:    m.authFailures.Load(),
		FeedbackAppends: m.feedbackAppends.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		WSClients:       m.wsClients.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.signalsAccepted.Store(0)
	m.signalsRejected.Store(0)
	m.fanoutWrites.Store(0)
	m.cacheHits.Store(0)
	m.cacheWaits.Store(0)
	m.authFailures.Store(0)
	m.feedbackAppends.Store(0)
	m.errorsTotal.Store(0)
	m.wsClients.Store(0)
}
