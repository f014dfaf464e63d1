package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ssargent/flightlog/pkg/ulog"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestsInFlight *prometheus.GaugeVec
	httpRequestDuration  *prometheus.HistogramVec

	// Parse metrics
	parsesTotal    *prometheus.CounterVec
	parseDuration  prometheus.Histogram
	parseBytes     prometheus.Counter
	parseRecords   prometheus.Counter
	parseWarnings  *prometheus.CounterVec
	logsLoaded     prometheus.Gauge
	queriesTotal   *prometheus.CounterVec
	queryRowsTotal prometheus.Counter

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightlog_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flightlog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flightlog_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		parsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightlog_parses_total",
				Help: "Total number of log files parsed",
			},
			[]string{"status"},
		),

		parseDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flightlog_parse_duration_seconds",
				Help:    "Log parse duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),

		parseBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flightlog_parse_bytes_total",
				Help: "Total number of log bytes consumed by the parser",
			},
		),

		parseRecords: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flightlog_parse_records_total",
				Help: "Total number of data records decoded",
			},
		),

		parseWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightlog_parse_warnings_total",
				Help: "Total number of decoding warnings by kind",
			},
			[]string{"kind"},
		),

		logsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "flightlog_logs_loaded",
				Help: "Number of parsed logs held in memory",
			},
		),

		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightlog_queries_total",
				Help: "Total number of topic queries",
			},
			[]string{"status"},
		),

		queryRowsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flightlog_query_rows_total",
				Help: "Total number of rows returned by topic queries",
			},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightlog_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightlog_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

func statusLabel(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordParse records one parse. log may be nil when the parse failed.
func (m *Metrics) RecordParse(log *ulog.Log, err error, duration time.Duration) {
	m.parsesTotal.WithLabelValues(statusLabel(err == nil)).Inc()
	m.parseDuration.Observe(duration.Seconds())
	if log == nil {
		return
	}

	stats := log.Stats()
	m.parseBytes.Add(float64(stats.Bytes))
	m.parseRecords.Add(float64(stats.DataRecords))
	for _, w := range log.Warnings() {
		m.parseWarnings.WithLabelValues(warningKind(w)).Inc()
	}
}

// SetLoadedLogs records the number of logs held in memory.
func (m *Metrics) SetLoadedLogs(n int) {
	m.logsLoaded.Set(float64(n))
}

// RecordQuery records a topic query and the rows it returned.
func (m *Metrics) RecordQuery(success bool, rows int) {
	m.queriesTotal.WithLabelValues(statusLabel(success)).Inc()
	m.queryRowsTotal.Add(float64(rows))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(statusLabel(success)).Inc()
}

func warningKind(w ulog.Warning) string {
	switch w.(type) {
	case *ulog.CompatibilityWarning:
		return "compatibility"
	case *ulog.MissingSubscriptionWarning:
		return "missing_subscription"
	case *ulog.UnknownFormatWarning:
		return "unknown_format"
	case *ulog.MalformedMessageWarning:
		return "malformed_message"
	}
	return "other"
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
