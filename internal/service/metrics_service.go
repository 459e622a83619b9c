package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Selection results recorded by the template registry.
const (
	SelectionAccepted = "accepted"
	SelectionRejected = "rejected"
)

// Export results recorded by the export pipeline.
const (
	ExportResultSuccess = "success"
	ExportResultFailure = "failure"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	submissions       prometheus.Counter
	templateSelection *prometheus.CounterVec
	exports           *prometheus.CounterVec
	exportDuration    prometheus.Histogram
	readErrors        *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idcard_submissions_total",
		Help: "Total student records submitted",
	})

	templateSelection := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idcard_template_selections_total",
		Help: "Template selections by result",
	}, []string{"result"})

	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idcard_exports_total",
		Help: "Card exports by format and result",
	}, []string{"format", "result"})

	exportDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "idcard_export_duration_seconds",
		Help:    "Time spent capturing and encoding a card",
		Buckets: prometheus.DefBuckets,
	})

	readErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idcard_persistence_read_errors_total",
		Help: "Unreadable persisted values recovered as empty",
	}, []string{"key"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, templateSelection, exports, exportDuration, readErrors, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		submissions:       submissions,
		templateSelection: templateSelection,
		exports:           exports,
		exportDuration:    exportDuration,
		readErrors:        readErrors,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSubmission counts a stored student record.
func (m *MetricsService) RecordSubmission() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordTemplateSelection counts a selection attempt.
func (m *MetricsService) RecordTemplateSelection(result string) {
	if m == nil {
		return
	}
	m.templateSelection.WithLabelValues(result).Inc()
}

// ObserveExport records an export outcome and its duration.
func (m *MetricsService) ObserveExport(format, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, result).Inc()
	m.exportDuration.Observe(duration.Seconds())
}

// RecordPersistenceReadError counts a persisted value that could not be read.
func (m *MetricsService) RecordPersistenceReadError(key string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(key).Inc()
}
