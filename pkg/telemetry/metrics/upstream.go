package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks calls to the upstream ingestion service.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	retries  prometheus.Counter
	up       prometheus.Gauge
}

// NewUpstreamMetrics creates and registers upstream metrics.
func NewUpstreamMetrics(namespace string, buckets []float64, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Duration of upstream attempts in seconds",
				Buckets:   buckets,
			},
			[]string{"method", "status_class"},
		),

		retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_retries_total",
				Help:      "Total number of empty-read retries",
			},
		),

		up: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "upstream_up",
				Help:      "Whether the last upstream probe succeeded (1) or failed (0)",
			},
		),
	}

	registry.MustRegister(um.duration, um.retries, um.up)
	return um
}

// ObserveAttempt records one attempt.
func (um *UpstreamMetrics) ObserveAttempt(method string, statusCode int, duration time.Duration) {
	um.duration.WithLabelValues(method, StatusClass(statusCode)).Observe(duration.Seconds())
}

// StatusClass buckets a status code as "2xx".."5xx", or "error" when no
// response was received.
func StatusClass(statusCode int) string {
	switch {
	case statusCode >= 100 && statusCode < 200:
		return "1xx"
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	default:
		return "error"
	}
}
