package observability

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects request counters and latencies per route.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	routes map[string]*RouteMetrics

	// Ring of recent latencies for percentile estimates.
	durations    []time.Duration
	maxDurations int
}

// RouteMetrics holds the counters of a single route.
type RouteMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		routes:       make(map[string]*RouteMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// Record records one finished request. Responses with status >= 500 count
// as failures.
func (m *Metrics) Record(route string, status int, duration time.Duration) {
	m.requestTotal.Add(1)
	rm := m.route(route)
	rm.requestCount.Add(1)
	rm.totalDuration.Add(duration.Milliseconds())
	if status >= 500 {
		m.requestFailed.Add(1)
		rm.errorCount.Add(1)
	}

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

func (m *Metrics) route(route string) *RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routes[route]
	if !ok {
		rm = &RouteMetrics{}
		m.routes[route] = rm
	}
	return rm
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.routes = make(map[string]*RouteMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := make(map[string]*RouteSnapshot, len(m.routes))
	for name, rm := range m.routes {
		count := rm.requestCount.Load()
		snap := &RouteSnapshot{
			RequestCount: count,
			ErrorCount:   rm.errorCount.Load(),
		}
		if count > 0 {
			snap.AvgLatencyMs = rm.totalDuration.Load() / count
		}
		routes[name] = snap
	}

	sorted := slices.Clone(m.durations)
	slices.Sort(sorted)
	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Routes:        routes,
		P50LatencyMs:  percentile(sorted, 50).Milliseconds(),
		P95LatencyMs:  percentile(sorted, 95).Milliseconds(),
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                     `json:"request_total"`
	RequestFailed int64                     `json:"request_failed"`
	P50LatencyMs  int64                     `json:"p50_latency_ms"`
	P95LatencyMs  int64                     `json:"p95_latency_ms"`
	Routes        map[string]*RouteSnapshot `json:"routes"`
}

// RouteSnapshot represents metrics for a single route.
type RouteSnapshot struct {
	RequestCount int64 `json:"request_count"`
	ErrorCount   int64 `json:"error_count"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
