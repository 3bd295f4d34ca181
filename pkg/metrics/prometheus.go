// Package metrics provides Prometheus metrics for the wildlife data
// collection backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Submission pipeline
	submissionsCreated   prometheus.Counter
	submissionsDuplicate prometheus.Counter
	validationFailures   prometheus.Counter
	totalSubmissions     prometheus.Gauge

	// Schema normalization
	schemaNormalizations prometheus.Counter
	schemaCacheHits      prometheus.Counter

	// Provider sync
	syncSuccess    prometheus.Counter
	syncFailure    prometheus.Counter
	syncQueueSize  prometheus.Gauge
	syncWorkers    prometheus.Gauge
	syncLatency    prometheus.Histogram
	providerCalls  *prometheus.CounterVec
	providerErrors *prometheus.CounterVec

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wildlife",
		subsystem:        "backend",
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

	m.submissionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_created_total",
		Help:      "Total number of submissions persisted locally",
	})

	m.submissionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_duplicate_total",
		Help:      "Total number of duplicate submissions short-circuited",
	})

	m.validationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_validation_failures_total",
		Help:      "Total number of submissions rejected by schema validation",
	})

	m.totalSubmissions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_stored",
		Help:      "Current number of submissions in local storage",
	})

	m.schemaNormalizations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "schema_normalizations_total",
		Help:      "Total number of raw form definitions normalized",
	})

	m.schemaCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "schema_cache_hits_total",
		Help:      "Total number of schema lookups served from cache",
	})

	m.syncSuccess = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_success_total",
		Help:      "Total number of submissions successfully pushed to the provider",
	})

	m.syncFailure = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_failure_total",
		Help:      "Total number of failed provider pushes",
	})

	m.syncQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_queue_size",
		Help:      "Current size of the provider sync queue",
	})

	m.syncWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_worker_count",
		Help:      "Number of running sync workers",
	})

	m.syncLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_latency_milliseconds",
		Help:      "Histogram of provider push latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.providerCalls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "provider_requests_total",
			Help:      "Total number of Kobo API requests by operation",
		},
		[]string{"operation"},
	)

	m.providerErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "provider_errors_total",
			Help:      "Total number of Kobo API errors by operation",
		},
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
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
}

// RecordSubmissionCreated increments the created-submissions counter.
func RecordSubmissionCreated() {
	globalManager.submissionsCreated.Inc()
}

// RecordSubmissionDuplicate increments the duplicate-submissions counter.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordValidationFailure increments the validation-failures counter.
func RecordValidationFailure() {
	globalManager.validationFailures.Inc()
}

// UpdateTotalSubmissions sets the stored-submissions gauge.
func UpdateTotalSubmissions(count int) {
	globalManager.totalSubmissions.Set(float64(count))
}

// RecordSchemaNormalization increments the normalization counter.
func RecordSchemaNormalization() {
	globalManager.schemaNormalizations.Inc()
}

// RecordSchemaCacheHit increments the schema cache-hit counter.
func RecordSchemaCacheHit() {
	globalManager.schemaCacheHits.Inc()
}

// RecordSyncSuccess increments the sync success counter.
func RecordSyncSuccess() {
	globalManager.syncSuccess.Inc()
}

// RecordSyncFailure increments the sync failure counter.
func RecordSyncFailure() {
	globalManager.syncFailure.Inc()
}

// UpdateSyncQueueSize sets the current sync queue size.
func UpdateSyncQueueSize(size int) {
	globalManager.syncQueueSize.Set(float64(size))
}

// UpdateSyncWorkerCount sets the running sync worker count.
func UpdateSyncWorkerCount(count int) {
	globalManager.syncWorkers.Set(float64(count))
}

// RecordSyncLatency records one provider push latency in milliseconds.
func RecordSyncLatency(latencyMs float64) {
	globalManager.syncLatency.Observe(latencyMs)
}

// RecordProviderCall counts one Kobo API request.
func RecordProviderCall(operation string) {
	globalManager.providerCalls.WithLabelValues(operation).Inc()
}

// RecordProviderError counts one failed Kobo API request.
func RecordProviderError(operation string) {
	globalManager.providerErrors.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
