// Package metrics provides Prometheus metrics for the duofeed service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Feed engine
	feedEvaluations       prometheus.Counter
	feedEvaluationLatency prometheus.Histogram
	feedPostsIn           prometheus.Counter
	feedPostsOut          prometheus.Counter
	feedStageRejections   *prometheus.CounterVec

	// Sessions and pagination
	cursorResets     prometheus.Counter
	pageLoads        prometheus.Counter
	sessionsActive   prometheus.Gauge
	sessionEvictions prometheus.Counter

	// Ads
	adSlotsFilled prometheus.Counter
	adSlotsEmpty  prometheus.Counter

	// Sources
	sourceQueryLatency *prometheus.HistogramVec
	sourceQueryErrors  *prometheus.CounterVec
	storePostsTotal    prometheus.Gauge

	// Ingest queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	ingestDuplicates   prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessed         prometheus.Counter
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "duofeed",
		subsystem:        "feed",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.feedEvaluations = m.counter("evaluations_total", "Total number of filter pipeline runs")
	m.feedEvaluationLatency = m.histogram("evaluation_latency_milliseconds", "Filter pipeline latency in milliseconds")
	m.feedPostsIn = m.counter("posts_in_total", "Posts entering the filter pipeline")
	m.feedPostsOut = m.counter("posts_out_total", "Posts surviving the filter pipeline")
	m.feedStageRejections = m.counterVec("stage_rejections_total", "Posts rejected per filter stage", "stage")

	m.cursorResets = m.counter("cursor_resets_total", "Pagination cursor resets caused by filter or source changes")
	m.pageLoads = m.counter("page_loads_total", "Load-more requests that advanced a cursor")
	m.sessionsActive = m.gauge("sessions_active", "Viewer sessions currently held in memory")
	m.sessionEvictions = m.counter("session_evictions_total", "Sessions evicted for idleness or capacity")

	m.adSlotsFilled = m.counter("ad_slots_filled_total", "Ad slots that received an ad")
	m.adSlotsEmpty = m.counter("ad_slots_empty_total", "Ad slots left empty because no ad was eligible")

	m.sourceQueryLatency = m.histogramVec("source_query_latency_milliseconds", "Prefilter source query latency", "source")
	m.sourceQueryErrors = m.counterVec("source_query_errors_total", "Prefilter source query failures", "source")
	m.storePostsTotal = m.gauge("store_posts", "Listings held by the local store")

	m.queueSize = m.gauge("ingest_queue_size", "Current ingest queue backlog")
	m.queueCapacity = m.gauge("ingest_queue_capacity", "Ingest queue capacity")
	m.queueUtilization = m.gauge("ingest_queue_utilization", "Ingest queue utilization ratio (0-1)")
	m.queueEnqueued = m.counter("ingest_enqueued_total", "Listing events accepted into the ingest queue")
	m.queueDequeued = m.counter("ingest_dequeued_total", "Listing events handed to workers")
	m.queueEnqueueErrors = m.counter("ingest_enqueue_errors_total", "Listing events rejected by the ingest queue")
	m.ingestDuplicates = m.counter("ingest_duplicates_total", "Listing events dropped as duplicates")

	m.workerCount = m.gauge("worker_count", "Ingest workers running")
	m.workerProcessed = m.counter("worker_processed_total", "Listing events applied to the store")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-event worker latency")
	m.workerErrors = m.counter("worker_errors_total", "Listing events that failed to apply")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Feed engine

func RecordEvaluation(latencyMs float64, in, out int) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedEvaluations.Inc()
	globalManager.feedEvaluationLatency.Observe(latencyMs)
	globalManager.feedPostsIn.Add(float64(in))
	globalManager.feedPostsOut.Add(float64(out))
}

func RecordStageRejections(stage string, count int) {
	if count <= 0 {
		return
	}
	globalManager.feedStageRejections.WithLabelValues(stage).Add(float64(count))
}

// Sessions and pagination

func RecordCursorReset() { globalManager.cursorResets.Inc() }

func RecordPageLoad() { globalManager.pageLoads.Inc() }

func UpdateSessionsActive(count int) { globalManager.sessionsActive.Set(float64(count)) }

func RecordSessionEviction() { globalManager.sessionEvictions.Inc() }

// Ads

func RecordAdSlot(filled bool) {
	if filled {
		globalManager.adSlotsFilled.Inc()
		return
	}
	globalManager.adSlotsEmpty.Inc()
}

// Sources

func RecordSourceQuery(source string, latencyMs float64, err error) {
	globalManager.sourceQueryLatency.WithLabelValues(source).Observe(latencyMs)
	if err != nil {
		globalManager.sourceQueryErrors.WithLabelValues(source).Inc()
	}
}

func UpdateStorePosts(count int) { globalManager.storePostsTotal.Set(float64(count)) }

// Ingest queue

func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

func RecordIngestDuplicate() { globalManager.ingestDuplicates.Inc() }

// Workers

func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

func RecordWorkerProcessed(latencyMs float64) {
	globalManager.workerProcessed.Inc()
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP and errors

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// RefreshInterval is the polling period for gauge updaters.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
