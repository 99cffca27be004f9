package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the sync engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	writeDuration    *prometheus.HistogramVec
	writesScheduled  prometheus.Counter
	writesSkipped    prometheus.Counter
	suppressedEchoes prometheus.Counter
	snapshotsIgnored prometheus.Counter
	syncErrors       *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		writeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgetsync_remote_write_duration_seconds",
				Help:    "Duration of remote document writes by outcome.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		writesScheduled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budgetsync_writes_scheduled_total",
				Help: "Total debounced write schedules (armed or re-armed).",
			},
		),
		writesSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budgetsync_writes_skipped_total",
				Help: "Total schedules skipped because the document was unchanged.",
			},
		),
		suppressedEchoes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budgetsync_suppressed_echoes_total",
				Help: "Total store changes suppressed as remote-origin echoes.",
			},
		),
		snapshotsIgnored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budgetsync_remote_snapshots_ignored_total",
				Help: "Total remote snapshots after the first, ignored per session.",
			},
		),
		syncErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetsync_sync_errors_total",
				Help: "Total recoverable sync errors by kind.",
			},
			[]string{"kind"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "budgetsync_active_sessions",
				Help: "Number of live user sessions.",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetsync_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetsync_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// ObserveRemoteWrite records the duration and outcome of a remote write.
func (m *Metrics) ObserveRemoteWrite(d time.Duration, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.writeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncrWriteScheduled increments the debounce-arm counter.
func (m *Metrics) IncrWriteScheduled() {
	m.writesScheduled.Inc()
}

// IncrWriteSkipped increments the unchanged-document skip counter.
func (m *Metrics) IncrWriteSkipped() {
	m.writesSkipped.Inc()
}

// IncrSuppressedEcho increments the echo-suppression counter.
func (m *Metrics) IncrSuppressedEcho() {
	m.suppressedEchoes.Inc()
}

// IncrSnapshotIgnored increments the late-remote-snapshot counter.
func (m *Metrics) IncrSnapshotIgnored() {
	m.snapshotsIgnored.Inc()
}

// IncrSyncError increments the sync error counter for a taxonomy kind
// (initialization, write, subscription).
func (m *Metrics) IncrSyncError(kind string) {
	m.syncErrors.WithLabelValues(kind).Inc()
}

// IncrCacheHit increments the hit counter for the named cache.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the miss counter for the named cache.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// SessionStarted increments the live session gauge.
func (m *Metrics) SessionStarted() { m.activeSessions.Inc() }

// SessionEnded decrements the live session gauge.
func (m *Metrics) SessionEnded() { m.activeSessions.Dec() }

// SuppressedEchoes reads back the suppressed-echo count. Suppression is
// otherwise invisible from the outside (the write simply never happens),
// so this is how tests observe it.
func (m *Metrics) SuppressedEchoes() float64 {
	return counterValue(m.suppressedEchoes)
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
