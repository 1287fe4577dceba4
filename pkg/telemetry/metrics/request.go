package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks inbound request handling.
//
// Metrics:
//   - <ns>_requests_total: requests by route, method and terminal state
//   - <ns>_request_duration_seconds: handling time by route and method
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(namespace string, buckets []float64, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of inbound requests by terminal pipeline state",
			},
			[]string{"route", "method", "state"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of inbound request handling in seconds",
				Buckets:   buckets,
			},
			[]string{"route", "method"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration)
	return rm
}

// RecordRequest records one request.
func (rm *RequestMetrics) RecordRequest(route, method, state string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(route, method, state).Inc()
	rm.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
