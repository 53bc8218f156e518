// Package metrics provides Prometheus metrics for ingestion, allocation runs and the HTTP API.
//
// A Manager owns its own registry so several managers (one per test, say) never collide.
// All recording methods are safe to call on a nil *Manager, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the allocator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Ingestion
	rowsIngested     *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	uploadsRejected  *prometheus.CounterVec

	// Allocation
	allocationRuns     *prometheus.CounterVec
	assignments        prometheus.Counter
	unmatchedClients   prometheus.Counter
	allocationDuration prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a new metrics manager on a private registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "allocator",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rows_ingested_total",
		Help:      "Total number of entity rows accepted and stored",
	}, []string{"entity"})

	m.validationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_errors_total",
		Help:      "Total number of row validation errors reported",
	}, []string{"entity"})

	m.uploadsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "uploads_rejected_total",
		Help:      "Total number of uploads rejected because of validation errors",
	}, []string{"entity"})

	m.allocationRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "allocation_runs_total",
		Help:      "Total number of allocation runs by result",
	}, []string{"result"})

	m.assignments = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignments_total",
		Help:      "Total number of assignments produced",
	})

	m.unmatchedClients = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unmatched_clients_total",
		Help:      "Total number of clients left without an assignment",
	})

	m.allocationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "allocation_duration_seconds",
		Help:      "Allocation engine duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method", "status_code"})
}

// RecordRowsIngested adds stored rows for an entity kind.
func (m *Manager) RecordRowsIngested(entity string, count int) {
	if m == nil {
		return
	}
	m.rowsIngested.WithLabelValues(entity).Add(float64(count))
}

// RecordValidationFailure records a rejected upload and its error count.
func (m *Manager) RecordValidationFailure(entity string, errorCount int) {
	if m == nil {
		return
	}
	m.uploadsRejected.WithLabelValues(entity).Inc()
	m.validationErrors.WithLabelValues(entity).Add(float64(errorCount))
}

// RecordAllocation records a completed allocation run.
func (m *Manager) RecordAllocation(assignments, unmatched int, duration time.Duration) {
	if m == nil {
		return
	}
	m.allocationRuns.WithLabelValues("ok").Inc()
	m.assignments.Add(float64(assignments))
	m.unmatchedClients.Add(float64(unmatched))
	m.allocationDuration.Observe(duration.Seconds())
}

// RecordAllocationError records an allocation run rejected for its configuration.
func (m *Manager) RecordAllocationError() {
	if m == nil {
		return
	}
	m.allocationRuns.WithLabelValues("error").Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Manager) RecordHTTPRequest(route, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(statusCode)
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, code).Observe(duration.Seconds())
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the manager's registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
