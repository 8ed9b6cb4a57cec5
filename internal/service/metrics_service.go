package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	inscriptionsCreated prometheus.Counter
	studentsEnrolled    prometheus.Counter
	paymentsVerified    prometheus.Counter
	exportsRequested    *prometheus.CounterVec
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

	inscriptionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inscriptions_created_total",
		Help: "Total inscriptions created",
	})

	studentsEnrolled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "students_enrolled_total",
		Help: "Total inscriptions moved to enrolled",
	})

	paymentsVerified := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total invoice payments verified",
	})

	exportsRequested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_exports_requested_total",
		Help: "Total report exports requested by format",
	}, []string{"format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, inscriptionsCreated, studentsEnrolled, paymentsVerified, exportsRequested, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		inscriptionsCreated: inscriptionsCreated,
		studentsEnrolled:    studentsEnrolled,
		paymentsVerified:    paymentsVerified,
		exportsRequested:    exportsRequested,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one request's duration and count.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncInscriptionsCreated counts a created inscription.
func (s *MetricsService) IncInscriptionsCreated() {
	s.inscriptionsCreated.Inc()
}

// IncStudentsEnrolled counts a pending-to-enrolled transition.
func (s *MetricsService) IncStudentsEnrolled() {
	s.studentsEnrolled.Inc()
}

// IncPaymentsVerified counts a verified payment.
func (s *MetricsService) IncPaymentsVerified() {
	s.paymentsVerified.Inc()
}

// IncExportRequested counts a requested report export.
func (s *MetricsService) IncExportRequested(format string) {
	s.exportsRequested.WithLabelValues(format).Inc()
}
