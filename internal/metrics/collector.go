// Package metrics provides in-memory runtime statistics collection, mirrored
// into a Prometheus registry for scraping.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dreamer"

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token metrics (only for LLM operations)
	TotalInputTokens  int64
	TotalOutputTokens int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	Errors      int64   `json:"errors"`
	TotalTimeMs int64   `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	MinTimeMs   int64   `json:"minTimeMs"`
	MaxTimeMs   int64   `json:"maxTimeMs"`

	// Token stats (nil if not applicable)
	TotalInputTokens  *int64   `json:"totalInputTokens,omitempty"`
	TotalOutputTokens *int64   `json:"totalOutputTokens,omitempty"`
	AvgInputTokens    *float64 `json:"avgInputTokens,omitempty"`
	AvgOutputTokens   *float64 `json:"avgOutputTokens,omitempty"`
}

// Snapshot represents the full runtime statistics at a point in time.
type Snapshot struct {
	UptimeSeconds   float64            `json:"uptimeSeconds"`
	ActiveSessions  int64              `json:"activeSessions"`
	EntriesRecorded int64              `json:"entriesRecorded"`
	Interpret       *OperationSnapshot `json:"interpret,omitempty"`
	Parse           *OperationSnapshot `json:"parse,omitempty"`
}

// Operation names for the collector.
const (
	OpInterpret = "llm_interpret"
	OpParse     = "parse"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe. A nil *Collector discards everything.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	sessions  int64
	entries   int64

	registry   *prometheus.Registry
	duration   *prometheus.HistogramVec
	failures   *prometheus.CounterVec
	tokens     *prometheus.CounterVec
	sessionsG  prometheus.Gauge
	entriesCtr prometheus.Counter
}

// NewCollector creates a new metrics collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		registry:  prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of dreamer operations in seconds",
				Buckets:   []float64{.005, .05, .25, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_errors_total",
				Help:      "Total number of failed operations",
			},
			[]string{"operation"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Total number of LLM tokens by direction",
			},
			[]string{"operation", "direction"},
		),
		sessionsG: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open journal sessions",
		}),
		entriesCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_entries_total",
			Help:      "Total number of journal entries recorded",
		}),
	}

	c.registry.MustRegister(c.duration, c.failures, c.tokens, c.sessionsG, c.entriesCtr)
	return c
}

// Registry returns the Prometheus registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

func (m *OperationMetrics) observe(duration time.Duration) {
	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.getOrCreate(op).observe(duration)
	c.mu.Unlock()

	c.duration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordError records a failed operation. Failures are not part of timings.
func (c *Collector) RecordError(op string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.getOrCreate(op).Errors++
	c.mu.Unlock()

	c.failures.WithLabelValues(op).Inc()
}

// RecordLLMUsage records timing and token usage for an LLM operation.
func (c *Collector) RecordLLMUsage(op string, duration time.Duration, inputTokens, outputTokens int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	m := c.getOrCreate(op)
	m.observe(duration)
	m.TotalInputTokens += inputTokens
	m.TotalOutputTokens += outputTokens
	c.mu.Unlock()

	c.duration.WithLabelValues(op).Observe(duration.Seconds())
	c.tokens.WithLabelValues(op, "input").Add(float64(inputTokens))
	c.tokens.WithLabelValues(op, "output").Add(float64(outputTokens))
}

// SessionOpened increments the active session count.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessions++
	c.mu.Unlock()
	c.sessionsG.Inc()
}

// SessionClosed decrements the active session count.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessions--
	c.mu.Unlock()
	c.sessionsG.Dec()
}

// EntryRecorded counts a journal entry.
func (c *Collector) EntryRecorded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries++
	c.mu.Unlock()
	c.entriesCtr.Inc()
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeTokens bool) *OperationSnapshot {
	if m == nil || (m.Count == 0 && m.Errors == 0) {
		return nil
	}

	snap := &OperationSnapshot{
		Count:  m.Count,
		Errors: m.Errors,
	}
	if m.Count == 0 {
		return snap
	}

	snap.TotalTimeMs = m.TotalTime.Milliseconds()
	snap.AvgTimeMs = float64(m.TotalTime.Milliseconds()) / float64(m.Count)
	snap.MinTimeMs = m.MinTime.Milliseconds()
	snap.MaxTimeMs = m.MaxTime.Milliseconds()

	if includeTokens && (m.TotalInputTokens > 0 || m.TotalOutputTokens > 0) {
		totalIn := m.TotalInputTokens
		totalOut := m.TotalOutputTokens
		avgIn := float64(m.TotalInputTokens) / float64(m.Count)
		avgOut := float64(m.TotalOutputTokens) / float64(m.Count)

		snap.TotalInputTokens = &totalIn
		snap.TotalOutputTokens = &totalOut
		snap.AvgInputTokens = &avgIn
		snap.AvgOutputTokens = &avgOut
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:   time.Since(c.startTime).Seconds(),
		ActiveSessions:  c.sessions,
		EntriesRecorded: c.entries,
		Interpret:       snapshotOp(c.ops[OpInterpret], true),
		Parse:           snapshotOp(c.ops[OpParse], false),
	}
}
