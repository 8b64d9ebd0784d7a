// Package metrics provides Prometheus metrics for the cohort matching engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Run outcomes
	runsTotal       *prometheus.CounterVec
	runsSkipped     prometheus.Counter
	runDuration     prometheus.Histogram
	runsRecorded    prometheus.Gauge
	groupsFormed    prometheus.Counter
	rolloverMembers prometheus.Gauge

	// Pool health
	poolSize        prometheus.Gauge
	eligibleMembers prometheus.Gauge
	historySize     prometheus.Gauge

	// Bucket processing
	bucketsProcessed *prometheus.CounterVec
	bucketLatency    prometheus.Histogram
	pairsScored      prometheus.Counter
	pairsBlocked     prometheus.Counter

	// Worker/queue health
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cohort",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Matching runs by terminal status",
	}, []string{"status"})

	m.runsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_skipped_total",
		Help:      "Triggers rejected because another run was active",
	})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_milliseconds",
		Help:      "Wall-clock duration of matching runs in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.runsRecorded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_recorded",
		Help:      "Number of run records retained",
	})

	m.groupsFormed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "groups_formed_total",
		Help:      "Groups formed across all runs",
	})

	m.rolloverMembers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rollover_members",
		Help:      "Members rolled over by the most recent run",
	})

	m.poolSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_size",
		Help:      "Size of the raw profile pool at the last snapshot",
	})

	m.eligibleMembers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eligible_members",
		Help:      "Eligible members at the last snapshot",
	})

	m.historySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_entries",
		Help:      "Match history entries currently retained",
	})

	m.bucketsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "buckets_processed_total",
		Help:      "Locality buckets processed by terminal state",
	}, []string{"state"})

	m.bucketLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bucket_latency_milliseconds",
		Help:      "Per-bucket formation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.pairsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pairs_scored_total",
		Help:      "Pairwise compatibility scores computed",
	})

	m.pairsBlocked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pairs_blocked_total",
		Help:      "Pairs excluded by the history guard",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bucket_queue_size",
		Help:      "Bucket jobs waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bucket_queue_capacity",
		Help:      "Configured bucket queue capacity",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Formation workers in the pool",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Package-level helpers backed by the global manager.

// RecordRun counts a finished run by terminal status and observes its
// duration.
func RecordRun(status string, durationMs float64) {
	globalManager.runsTotal.WithLabelValues(status).Inc()
	globalManager.runDuration.Observe(durationMs)
}

// RecordSkippedTrigger counts a trigger rejected by the single-run rule.
func RecordSkippedTrigger() {
	globalManager.runsSkipped.Inc()
}

// UpdateRunsRecorded sets the retained-run gauge.
func UpdateRunsRecorded(count int) {
	globalManager.runsRecorded.Set(float64(count))
}

// RecordGroupsFormed counts newly formed groups.
func RecordGroupsFormed(count int) {
	globalManager.groupsFormed.Add(float64(count))
}

// UpdateRolloverMembers sets the most recent run's rollover gauge.
func UpdateRolloverMembers(count int) {
	globalManager.rolloverMembers.Set(float64(count))
}

// UpdatePoolSize sets the raw-pool gauge.
func UpdatePoolSize(count int) {
	globalManager.poolSize.Set(float64(count))
}

// UpdateEligibleMembers sets the eligible-pool gauge.
func UpdateEligibleMembers(count int) {
	globalManager.eligibleMembers.Set(float64(count))
}

// UpdateHistorySize sets the retained-history gauge.
func UpdateHistorySize(count int) {
	globalManager.historySize.Set(float64(count))
}

// RecordBucketProcessed counts a bucket reaching a terminal state and
// observes its formation latency.
func RecordBucketProcessed(state string, latencyMs float64) {
	globalManager.bucketsProcessed.WithLabelValues(state).Inc()
	globalManager.bucketLatency.Observe(latencyMs)
}

// RecordPairsScored counts computed pair scores.
func RecordPairsScored(count int) {
	globalManager.pairsScored.Add(float64(count))
}

// RecordPairsBlocked counts history-guard exclusions.
func RecordPairsBlocked(count int) {
	globalManager.pairsBlocked.Add(float64(count))
}

// UpdateQueueSize sets the bucket queue backlog gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the bucket queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the worker pool gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry exposes the custom registry for the /healthz handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
