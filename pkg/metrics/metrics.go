// Package metrics provides Prometheus metrics for the hatchd service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric exposed by hatchd.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Hatch outcomes.
	hatchesTotal    prometheus.Counter
	hatchDuplicates prometheus.Counter
	hatchErrors     prometheus.Counter
	categoryDrawn   *prometheus.CounterVec
	rarityDrawn     *prometheus.CounterVec
	resolveLatency  prometheus.Histogram

	// Effect aggregation.
	modifiersApplied prometheus.Counter
	modifiersRemoved prometheus.Counter
	modifiersPurged  prometheus.Counter
	trackedSubjects  prometheus.Gauge

	// Outcome queue and recording workers.
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueDropped  prometheus.Counter
	workerActive  prometheus.Gauge
	workerErrors  prometheus.Counter
	recordLatency prometheus.Histogram

	// Catalog.
	catalogReloads prometheus.Counter
	catalogEggs    prometheus.Gauge

	// HTTP surface.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health.
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
}

// Global manager registered on a custom registry so the default Go
// collector noise stays out of /healthz.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hatchd",
		subsystem:        "hatchery",
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

	m.hatchesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hatches_total",
		Help:      "Total number of successfully resolved hatches",
	})

	m.hatchDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hatch_duplicates_total",
		Help:      "Total number of hatch requests rejected as duplicates",
	})

	m.hatchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hatch_errors_total",
		Help:      "Total number of hatch requests that failed validation or resolution",
	})

	m.categoryDrawn = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "category_drawn_total",
			Help:      "Resolved reward counts by category",
		},
		[]string{"category"},
	)

	m.rarityDrawn = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rarity_drawn_total",
			Help:      "Resolved reward counts by rarity tier",
		},
		[]string{"rarity"},
	)

	m.resolveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolve_latency_milliseconds",
		Help:      "Histogram of reward resolution latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.modifiersApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "modifiers_applied_total",
		Help:      "Total number of modifiers applied",
	})

	m.modifiersRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "modifiers_removed_total",
		Help:      "Total number of modifiers removed explicitly",
	})

	m.modifiersPurged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "modifiers_purged_total",
		Help:      "Total number of expired modifiers removed by purge sweeps",
	})

	m.trackedSubjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_subjects",
		Help:      "Number of subjects with at least one active modifier",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outcome_queue_size",
		Help:      "Current size of the hatch outcome queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outcome_queue_capacity",
		Help:      "Maximum capacity of the hatch outcome queue",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outcome_queue_enqueued_total",
		Help:      "Total number of hatch outcomes enqueued for recording",
	})

	m.queueDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outcome_queue_dropped_total",
		Help:      "Total number of hatch outcomes dropped due to backpressure",
	})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "record_workers_active",
		Help:      "Number of active outcome-recording workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "record_worker_errors_total",
		Help:      "Total number of errors while recording hatch outcomes",
	})

	m.recordLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "record_latency_milliseconds",
		Help:      "Histogram of outcome recording latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.catalogReloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_reloads_total",
		Help:      "Total number of catalog reloads (startup load included)",
	})

	m.catalogEggs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_eggs",
		Help:      "Number of eggs defined in the active catalog",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Process heap allocation in bytes",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordHatch increments the hatch counter and the per-category and
// per-rarity outcome counters.
func RecordHatch(category, rarity string) {
	globalManager.hatchesTotal.Inc()
	globalManager.categoryDrawn.WithLabelValues(category).Inc()
	globalManager.rarityDrawn.WithLabelValues(rarity).Inc()
}

// RecordHatchDuplicate increments the duplicate hatch counter.
func RecordHatchDuplicate() {
	globalManager.hatchDuplicates.Inc()
}

// RecordHatchError increments the hatch error counter.
func RecordHatchError() {
	globalManager.hatchErrors.Inc()
}

// RecordResolveLatency records reward resolution latency in milliseconds.
func RecordResolveLatency(latencyMs float64) {
	globalManager.resolveLatency.Observe(latencyMs)
}

// RecordModifierApplied increments the applied modifier counter.
func RecordModifierApplied() {
	globalManager.modifiersApplied.Inc()
}

// RecordModifierRemoved increments the removed modifier counter.
func RecordModifierRemoved() {
	globalManager.modifiersRemoved.Inc()
}

// RecordModifiersPurged adds the number of modifiers removed by a purge sweep.
func RecordModifiersPurged(count int) {
	globalManager.modifiersPurged.Add(float64(count))
}

// UpdateTrackedSubjects sets the number of subjects with active modifiers.
func UpdateTrackedSubjects(count int) {
	globalManager.trackedSubjects.Set(float64(count))
}

// UpdateQueueSize sets the current outcome queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the outcome queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueued increments the enqueued outcome counter.
func RecordQueueEnqueued() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDropped increments the dropped outcome counter.
func RecordQueueDropped() {
	globalManager.queueDropped.Inc()
}

// UpdateWorkerActive sets the number of active recording workers.
func UpdateWorkerActive(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerError increments the recording worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordRecordLatency records outcome recording latency in milliseconds.
func RecordRecordLatency(latencyMs float64) {
	globalManager.recordLatency.Observe(latencyMs)
}

// RecordCatalogReload increments the catalog reload counter.
func RecordCatalogReload() {
	globalManager.catalogReloads.Inc()
}

// UpdateCatalogEggs sets the number of eggs in the active catalog.
func UpdateCatalogEggs(count int) {
	globalManager.catalogEggs.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the process heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryBytes.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutines.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by hatchd metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
