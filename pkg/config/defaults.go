package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress   = "0.0.0.0:3000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 2 << 20 // 2MB
	DefaultDebugEndpoints  = true

	// Upstream defaults
	DefaultUpstreamTimeout         = 30 * time.Second
	DefaultUpstreamMaxIdleConns    = 32
	DefaultUpstreamIdleConnTimeout = 90 * time.Second
	DefaultPageSizeMin             = 1
	DefaultPageSizeMax             = 1000
	DefaultPageSize                = 50
	DefaultRelaxedPageSize         = 1000
	DefaultRetryEmptyReads         = true
	DefaultProbePath               = "/api/v1/status.json"
	DefaultProbeSchedule           = "@every 30s"

	// Normalize defaults
	DefaultFutureTolerance  = 2 * time.Hour
	DefaultDoubledThreshold = int64(3_000_000_000_000)

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "glucobridge"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "glucobridge"

	// Security defaults
	DefaultTLSMinVersion = "1.2"
)

// DefaultDurationBuckets covers a local write (a few ms) up to a slow
// upstream (the default upstream timeout).
var DefaultDurationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// ApplyDefaults fills zero-valued fields with their defaults. Fields that
// were explicitly set are left alone. Optional booleans stay nil and are
// resolved with Enabled at the point of use.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.WriteTimeout == 0 {
		cfg.Proxy.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Proxy.MaxBodyBytes == 0 {
		cfg.Proxy.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Upstream defaults
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultUpstreamMaxIdleConns
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = DefaultUpstreamIdleConnTimeout
	}
	applyPageSizeDefaults(&cfg.Upstream.PageSize)
	if cfg.Upstream.ProbePath == "" {
		cfg.Upstream.ProbePath = DefaultProbePath
	}
	// An explicit "off" disables the probe.
	switch cfg.Upstream.ProbeSchedule {
	case "":
		cfg.Upstream.ProbeSchedule = DefaultProbeSchedule
	case "off", "disabled":
		cfg.Upstream.ProbeSchedule = ""
	}

	// Normalize defaults
	if cfg.Normalize.FutureTolerance == 0 {
		cfg.Normalize.FutureTolerance = DefaultFutureTolerance
	}
	if cfg.Normalize.DoubledThreshold == 0 {
		cfg.Normalize.DoubledThreshold = DefaultDoubledThreshold
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}

	// Security defaults
	if cfg.Security.TLS.MinVersion == "" {
		cfg.Security.TLS.MinVersion = DefaultTLSMinVersion
	}
}

func applyPageSizeDefaults(ps *PageSizeConfig) {
	if ps.Min == 0 {
		ps.Min = DefaultPageSizeMin
	}
	if ps.Max == 0 {
		ps.Max = DefaultPageSizeMax
	}
	if ps.Default == 0 {
		ps.Default = DefaultPageSize
	}
	if ps.Relaxed == 0 {
		ps.Relaxed = DefaultRelaxedPageSize
	}
}
