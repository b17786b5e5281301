package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Database Metrics
	dbQueryErrorsTotal *prometheus.CounterVec

	// Call Metrics
	callsStartedTotal *prometheus.CounterVec
	callsActive       prometheus.Gauge
	callsDuration     prometheus.Histogram
	callsFailedTotal  *prometheus.CounterVec

	// Auth Metrics
	authAttemptsTotal *prometheus.CounterVec
	authFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	m := &Metrics{
		// HTTP Request Metrics
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: prometheus.Labels{"service": serviceName},
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),

		// Database Metrics
		dbQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "db_query_errors_total",
				Help:        "Total number of database query errors",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"operation", "table"},
		),

		// Call Metrics
		callsStartedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_started_total",
				Help:        "Total number of calls created",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"signaling"}, // ok, degraded
		),
		callsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of calls currently not ended",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		callsDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "calls_duration_seconds",
				Help:        "Duration of ended calls in seconds",
				ConstLabels: prometheus.Labels{"service": serviceName},
				Buckets:     []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
			},
		),
		callsFailedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_failed_total",
				Help:        "Total number of failed call operations",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"operation"},
		),

		// Auth Metrics
		authAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_attempts_total",
				Help:        "Total number of authentication attempts",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"operation"}, // register, login
		),
		authFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_failures_total",
				Help:        "Total number of failed authentication attempts",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"operation", "reason"},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request with its outcome
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordDBQueryError records a failed database query. Nil-safe like the
// domain recorders so repositories can run without a registry in tests.
func (m *Metrics) RecordDBQueryError(operation, table string) {
	if m == nil {
		return
	}
	m.dbQueryErrorsTotal.WithLabelValues(operation, table).Inc()
}
