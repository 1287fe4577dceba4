package metrics

import (
	"time"

	"glucobridge/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every glucobridge metric. It satisfies the forward.Observer
// interface so the upstream client can report to it directly.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	enabled  bool

	requestMetrics  *RequestMetrics
	upstreamMetrics *UpstreamMetrics
	entryMetrics    *EntryMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh private one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{}
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		enabled:         config.Enabled(cfg.Enabled, config.DefaultMetricsEnabled),
		requestMetrics:  NewRequestMetrics(namespace, buckets, registry),
		upstreamMetrics: NewUpstreamMetrics(namespace, buckets, registry),
		entryMetrics:    NewEntryMetrics(namespace, registry),
	}
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records one handled inbound request.
func (c *Collector) RecordRequest(route, method, state string, duration time.Duration) {
	if !c.enabled {
		return
	}
	c.requestMetrics.RecordRequest(route, method, state, duration)
}

// RecordAuthFailure records a rejected inbound credential.
func (c *Collector) RecordAuthFailure() {
	if !c.enabled {
		return
	}
	c.entryMetrics.authFailures.Inc()
}

// RecordEntries adds n entries that ended with result.
func (c *Collector) RecordEntries(result string, n int) {
	if !c.enabled || n <= 0 {
		return
	}
	c.entryMetrics.RecordEntries(result, n)
}

// ObserveUpstream records one upstream attempt. A status of 0 means the
// attempt failed at the transport level.
func (c *Collector) ObserveUpstream(method string, statusCode int, duration time.Duration) {
	if !c.enabled {
		return
	}
	c.upstreamMetrics.ObserveAttempt(method, statusCode, duration)
}

// ObserveRetry records an empty-read retry.
func (c *Collector) ObserveRetry() {
	if !c.enabled {
		return
	}
	c.upstreamMetrics.retries.Inc()
}

// SetUpstreamUp records the readiness probe result.
func (c *Collector) SetUpstreamUp(up bool) {
	if !c.enabled {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	c.upstreamMetrics.up.Set(v)
}
