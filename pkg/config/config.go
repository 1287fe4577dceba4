package config

import "time"

// Config is the root configuration structure for glucobridge.
// It is loaded once at startup and passed by pointer to the components that
// need it; nothing reads it ad hoc mid-request and nothing mutates it after
// validation.
type Config struct {
	// Proxy contains HTTP listener configuration including listen address,
	// timeouts, and body limits.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream describes the Nightscout-compatible ingestion service that
	// entries are forwarded to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Auth contains the inbound and outbound shared secrets and the
	// outbound credential channels.
	Auth AuthConfig `yaml:"auth"`

	// Normalize contains the entry repair thresholds.
	Normalize NormalizeConfig `yaml:"normalize"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS settings for the listener.
	Security SecurityConfig `yaml:"security"`
}

// ProxyConfig contains configuration for the HTTP listener.
type ProxyConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:3000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It also bounds the per-request handler timeout.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of an inbound write payload.
	// Default: 2097152 (2MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// DebugEndpoints enables /debug/secret.
	// Default: true
	DebugEndpoints *bool `yaml:"debug_endpoints"`
}

// UpstreamConfig describes the upstream ingestion service.
type UpstreamConfig struct {
	// BaseURL is the upstream base address. Required.
	// Example: "https://my-nightscout.example.com"
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single upstream call. A timeout is reported as a
	// transport failure.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the size of the upstream connection pool.
	// Default: 32
	MaxIdleConns int `yaml:"max_idle_conns"`

	// IdleConnTimeout is how long idle upstream connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// PageSize contains the bounds used to sanitize the count parameter.
	PageSize PageSizeConfig `yaml:"page_size"`

	// RetryEmptyReads enables the single retry of a read that returned an
	// empty JSON array.
	// Default: true
	RetryEmptyReads *bool `yaml:"retry_empty_reads"`

	// ProjectFields, when non-empty, reduces JSON objects in upstream
	// responses to the listed fields.
	ProjectFields []string `yaml:"project_fields"`

	// ProbePath is requested by the background readiness probe.
	// Default: "/api/v1/status.json"
	ProbePath string `yaml:"probe_path"`

	// ProbeSchedule is a cron spec for the readiness probe. Empty disables it.
	// Default: "@every 30s"
	ProbeSchedule string `yaml:"probe_schedule"`
}

// PageSizeConfig bounds the count query parameter.
type PageSizeConfig struct {
	// Min is the smallest accepted count.
	// Default: 1
	Min int `yaml:"min"`

	// Max is the largest accepted count.
	// Default: 1000
	Max int `yaml:"max"`

	// Default replaces out-of-range or malformed values.
	// Default: 50
	Default int `yaml:"default"`

	// Relaxed is the count used when retrying an empty read.
	// Default: 1000
	Relaxed int `yaml:"relaxed"`
}

// AuthConfig contains shared secrets. Both secrets are optional: an empty
// inbound secret disables inbound authentication and an empty outbound
// secret disables outbound credential emission.
type AuthConfig struct {
	// InboundSecret is what the producer must present.
	InboundSecret string `yaml:"inbound_secret"`

	// OutboundSecret is what glucobridge presents to the upstream.
	OutboundSecret string `yaml:"outbound_secret"`

	// Channels selects the outbound credential encodings.
	Channels ChannelsConfig `yaml:"channels"`

	// SecretsDir holds one file per secret, as mounted by Docker or
	// Kubernetes. Either secret may then be written as "${secret:name}".
	SecretsDir string `yaml:"secrets_dir"`
}

// ChannelsConfig toggles each outbound credential channel. Nil means enabled.
type ChannelsConfig struct {
	// PlainHeader sends "api-secret: <secret>".
	PlainHeader *bool `yaml:"plain_header"`

	// BearerHeader sends "Authorization: Bearer <sha1>".
	BearerHeader *bool `yaml:"bearer_header"`

	// HashedQuery sends "?secret=<sha1>".
	HashedQuery *bool `yaml:"hashed_query"`
}

// NormalizeConfig contains entry repair thresholds.
type NormalizeConfig struct {
	// FutureTolerance is how far ahead of now a timestamp may be.
	// Default: 2h
	FutureTolerance time.Duration `yaml:"future_tolerance"`

	// DoubledThreshold is the epoch-millisecond value above which a
	// timestamp is treated as doubled and halved.
	// Default: 3000000000000
	DoubledThreshold int64 `yaml:"doubled_threshold"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded and exposed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the scrape path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "glucobridge"
	Namespace string `yaml:"namespace"`

	// DurationBuckets are the histogram buckets in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled turns on span export.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled, 0.0-1.0.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as service.name.
	// Default: "glucobridge"
	ServiceName string `yaml:"service_name"`
}

// SecurityConfig contains listener TLS configuration.
type SecurityConfig struct {
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS settings.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM paths.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// Reload watches the certificate files and reloads them on change.
	Reload bool `yaml:"reload"`
}

// Enabled reports whether an optional boolean is set, treating nil as def.
func Enabled(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Bool returns a pointer to b, for building configs in code.
func Bool(b bool) *bool {
	return &b
}
