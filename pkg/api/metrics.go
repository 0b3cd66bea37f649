package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Codec operation metrics
	codecOperationsTotal   *prometheus.CounterVec
	codecOperationDuration *prometheus.HistogramVec

	// Stored record metrics
	storedActiveIndex  prometheus.Gauge
	storedBankState    *prometheus.GaugeVec
	storedRecordValid  *prometheus.GaugeVec
	storedRevisionsSet prometheus.Gauge

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates the API metrics and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwumeta_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fwumeta_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fwumeta_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		codecOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwumeta_codec_operations_total",
				Help: "Total number of metadata encode, decode and validate operations",
			},
			[]string{"operation", "status", "kind"},
		),

		codecOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fwumeta_codec_operation_duration_seconds",
				Help:    "Metadata codec operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"operation"},
		),

		storedActiveIndex: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fwumeta_stored_active_index",
				Help: "Active bank index of the stored primary record",
			},
		),

		storedBankState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fwumeta_stored_bank_state",
				Help: "Bank state byte of the stored primary record",
			},
			[]string{"bank"},
		),

		storedRecordValid: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fwumeta_stored_record_valid",
				Help: "1 when the stored copy passes validation, 0 otherwise",
			},
			[]string{"slot"},
		),

		storedRevisionsSet: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fwumeta_stored_revisions",
				Help: "Number of revisions seen by the last refresh",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwumeta_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwumeta_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCodecOperation records an encode, decode or validate call. Failures
// are labelled with their error kind.
func (m *Metrics) RecordCodecOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status, kind := statusSuccess, ""
	if err != nil {
		status = statusError
		kind = string(codec.KindOf(err))
	}

	m.codecOperationsTotal.WithLabelValues(operation, status, kind).Inc()
	m.codecOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateStoredRecord publishes the state of the stored primary record.
func (m *Metrics) UpdateStoredRecord(r *fwu.Record) {
	if m == nil || r == nil {
		return
	}
	m.storedActiveIndex.Set(float64(r.ActiveIndex))
	for i, s := range r.BankState {
		m.storedBankState.WithLabelValues(strconv.Itoa(i)).Set(float64(s))
	}
}

// SetStoredValid records whether a stored slot passed validation.
func (m *Metrics) SetStoredValid(slot string, valid bool) {
	if m == nil {
		return
	}
	v := 0.0
	if valid {
		v = 1
	}
	m.storedRecordValid.WithLabelValues(slot).Set(v)
}

// SetRevisionCount records the number of stored revisions.
func (m *Metrics) SetRevisionCount(n int) {
	if m == nil {
		return
	}
	m.storedRevisionsSet.Set(float64(n))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if m == nil {
		return next
	}
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
