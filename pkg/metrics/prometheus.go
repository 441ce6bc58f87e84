// Package metrics provides Prometheus metrics for the bodytrack recording service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the bodytrack service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Capture metrics
	framesCaptured  prometheus.Counter
	framesDropped   *prometheus.CounterVec
	framesDuplicate prometheus.Counter
	jointsCaptured  prometheus.Counter
	bufferFrames    prometheus.Gauge
	sessionState    prometheus.Gauge
	transitions     *prometheus.CounterVec

	// Export metrics
	exportsTotal   prometheus.Counter
	exportErrors   *prometheus.CounterVec
	exportLatency  prometheus.Histogram
	exportRows     prometheus.Counter
	exportBytes    prometheus.Counter
	recordingsSeen prometheus.Gauge

	// Archive pipeline metrics
	archiveJobs     *prometheus.CounterVec
	archiveLatency  prometheus.Histogram
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejections *prometheus.CounterVec
	workerCount     prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	streamConnections   prometheus.Gauge

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bodytrack",
		subsystem:        "recorder",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.framesCaptured = m.counter("frames_captured_total", "Total number of pose frames appended to the recording buffer")
	m.framesDropped = m.counterVec("frames_dropped_total", "Pose frames discarded, by reason", "reason")
	m.framesDuplicate = m.counter("frames_duplicate_total", "Pose updates ignored because their frame id was already seen")
	m.jointsCaptured = m.counter("joints_captured_total", "Total number of joint samples captured")
	m.bufferFrames = m.gauge("buffer_frames", "Frames currently held by the recording buffer")
	m.sessionState = m.gauge("session_state", "Recording controller state (0 idle, 1 recording, 2 awaiting save)")
	m.transitions = m.counterVec("state_transitions_total", "Controller transitions by target state", "state")

	m.exportsTotal = m.counter("exports_total", "Recordings successfully exported to CSV")
	m.exportErrors = m.counterVec("export_errors_total", "Export failures by error kind", "kind")
	m.exportLatency = m.histogram("export_latency_milliseconds", "Time spent writing a recording to storage", m.histogramBuckets)
	m.exportRows = m.counter("export_rows_total", "CSV data rows written")
	m.exportBytes = m.counter("export_bytes_total", "CSV bytes written")
	m.recordingsSeen = m.gauge("recordings_stored", "Recordings present in the export folder")

	m.archiveJobs = m.counterVec("archive_jobs_total", "Archive jobs by outcome", "status")
	m.archiveLatency = m.histogram("archive_latency_milliseconds", "Time spent uploading a recording to the archive sink", m.histogramBuckets)
	m.queueSize = m.gauge("archive_queue_size", "Current size of the archive queue")
	m.queueCapacity = m.gauge("archive_queue_capacity", "Capacity of the archive queue")
	m.queueRejections = m.counterVec("archive_queue_rejections_total", "Archive jobs rejected by the queue, by reason", "reason")
	m.workerCount = m.gauge("archive_worker_count", "Archive workers running")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("http_errors_total", "HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")
	m.streamConnections = m.gauge("stream_connections", "Open pose stream websocket connections")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", m.histogramBuckets)
}

// RefreshInterval reports how often process gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval reports the global manager's sampling interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Global accessors. Each is a no-op when the manager is disabled.

func RecordFrameCaptured(joints int) {
	if m := globalManager; m.enabled {
		m.framesCaptured.Inc()
		m.jointsCaptured.Add(float64(joints))
	}
}

func RecordFrameDropped(reason string) {
	if m := globalManager; m.enabled {
		m.framesDropped.WithLabelValues(reason).Inc()
	}
}

func RecordFrameDuplicate() {
	if m := globalManager; m.enabled {
		m.framesDuplicate.Inc()
	}
}

func UpdateBufferFrames(n int) {
	if m := globalManager; m.enabled {
		m.bufferFrames.Set(float64(n))
	}
}

// UpdateSessionState records the numeric state and counts the transition.
func UpdateSessionState(state int, name string) {
	if m := globalManager; m.enabled {
		m.sessionState.Set(float64(state))
		m.transitions.WithLabelValues(name).Inc()
	}
}

func RecordExport(latencyMs float64, rows int, bytes int64) {
	if m := globalManager; m.enabled {
		m.exportsTotal.Inc()
		m.exportLatency.Observe(latencyMs)
		m.exportRows.Add(float64(rows))
		m.exportBytes.Add(float64(bytes))
	}
}

func RecordExportError(kind string) {
	if m := globalManager; m.enabled {
		m.exportErrors.WithLabelValues(kind).Inc()
	}
}

func UpdateRecordingsStored(n int) {
	if m := globalManager; m.enabled {
		m.recordingsSeen.Set(float64(n))
	}
}

func RecordArchiveJob(status string, latencyMs float64) {
	if m := globalManager; m.enabled {
		m.archiveJobs.WithLabelValues(status).Inc()
		m.archiveLatency.Observe(latencyMs)
	}
}

func UpdateQueueSize(n int) {
	if m := globalManager; m.enabled {
		m.queueSize.Set(float64(n))
	}
}

func UpdateQueueCapacity(n int) {
	if m := globalManager; m.enabled {
		m.queueCapacity.Set(float64(n))
	}
}

func RecordQueueRejection(reason string) {
	if m := globalManager; m.enabled {
		m.queueRejections.WithLabelValues(reason).Inc()
	}
}

func UpdateWorkerCount(n int) {
	if m := globalManager; m.enabled {
		m.workerCount.Set(float64(n))
	}
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := globalManager; m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if m := globalManager; m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := globalManager; m.enabled {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

func UpdateStreamConnections(delta int) {
	if m := globalManager; m.enabled {
		m.streamConnections.Add(float64(delta))
	}
}

func UpdateSystemMemoryUsage(bytes uint64) {
	if m := globalManager; m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

func UpdateSystemGoroutineCount(n int) {
	if m := globalManager; m.enabled {
		m.systemGoroutineCount.Set(float64(n))
	}
}

func RecordSystemGCPauseTime(ms float64) {
	if m := globalManager; m.enabled {
		m.systemGCPauseTime.Observe(ms)
	}
}
