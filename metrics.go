package ofetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request pipeline:
// call volume and latency, in-flight gauge, interceptor rejections by stage,
// timeouts and errors by type. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	interceptorRejections *prometheus.CounterVec
	timeoutsTotal         *prometheus.CounterVec
	errorsTotal           *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ofetch_requests_total",
				Help: "Total number of HTTP requests settled",
			},
			[]string{"method", "endpoint", "outcome"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ofetch_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds, interceptors included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ofetch_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		interceptorRejections: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ofetch_interceptor_rejections_total",
				Help: "Total number of interceptor rejections by pipeline stage",
			},
			[]string{"stage"},
		),
		timeoutsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ofetch_timeouts_total",
				Help: "Total number of requests aborted by the per-request timeout",
			},
			[]string{"endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ofetch_errors_total",
				Help: "Total number of failed requests by error type",
			},
			[]string{"type", "method", "endpoint"},
		),
	}
}

// RecordRequestStart marks a request as in flight.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd marks a request as no longer in flight.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a settled request with its outcome and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	mc.requestsTotal.WithLabelValues(method, endpoint, outcome).Inc()
	mc.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordInterceptorRejection counts a rejection raised in the given stage.
func (mc *MetricsCollector) RecordInterceptorRejection(stage string) {
	mc.interceptorRejections.WithLabelValues(stage).Inc()
}

// RecordTimeout counts a timeout-aborted dispatch.
func (mc *MetricsCollector) RecordTimeout(endpoint string) {
	mc.timeoutsTotal.WithLabelValues(endpoint).Inc()
}

// RecordError counts a failed request by error type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}
