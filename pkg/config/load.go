package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "GLUCOBRIDGE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. An empty path skips the file and builds the
// configuration from defaults and the environment alone, which is how the
// service is usually deployed on a PaaS.
//
// The loading sequence is:
// 1. Load YAML from file (if any)
// 2. Apply environment variable overrides
// 3. Apply default values
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds configuration from defaults and environment variables.
func LoadFromEnv() (*Config, error) {
	return LoadConfigWithEnvOverrides("")
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// lookupFunc matches os.LookupEnv so tests can supply a fixed environment.
type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format GLUCOBRIDGE_SECTION_FIELD; the bare
// names used by earlier deployments (TARGET_BASE, INBOUND_SECRET,
// OUTBOUND_SECRET, NIGHTSCOUT_API_SECRET, PORT) are honoured first so that
// the prefixed names win when both are set.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	env := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	var errs []FieldError
	duration := func(key string, dst *time.Duration) {
		if val, ok := env(key); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: key, Message: fmt.Sprintf("invalid duration %q", val)})
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := env(key); ok {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: key, Message: fmt.Sprintf("invalid integer %q", val)})
				return
			}
			*dst = i
		}
	}
	boolean := func(key string, dst **bool) {
		if val, ok := env(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: key, Message: fmt.Sprintf("invalid boolean %q", val)})
				return
			}
			*dst = &b
		}
	}

	// Legacy names
	if val, ok := env("TARGET_BASE"); ok {
		cfg.Upstream.BaseURL = val
	}
	if val, ok := env("INBOUND_SECRET"); ok {
		cfg.Auth.InboundSecret = val
	}
	if val, ok := env("NIGHTSCOUT_API_SECRET"); ok {
		cfg.Auth.OutboundSecret = val
	}
	if val, ok := env("OUTBOUND_SECRET"); ok {
		cfg.Auth.OutboundSecret = val
	}
	if val, ok := env("PORT"); ok {
		host := "0.0.0.0"
		if cfg.Proxy.ListenAddress != "" {
			if h, _, err := net.SplitHostPort(cfg.Proxy.ListenAddress); err == nil {
				host = h
			}
		}
		cfg.Proxy.ListenAddress = net.JoinHostPort(host, val)
	}

	// Proxy overrides
	if val, ok := env(EnvPrefix + "PROXY_LISTEN_ADDRESS"); ok {
		cfg.Proxy.ListenAddress = val
	}
	duration(EnvPrefix+"PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	duration(EnvPrefix+"PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	duration(EnvPrefix+"PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	duration(EnvPrefix+"PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	integer(EnvPrefix+"PROXY_MAX_HEADER_BYTES", &cfg.Proxy.MaxHeaderBytes)
	if val, ok := env(EnvPrefix + "PROXY_MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + "PROXY_MAX_BODY_BYTES", Message: fmt.Sprintf("invalid integer %q", val)})
		} else {
			cfg.Proxy.MaxBodyBytes = n
		}
	}
	boolean(EnvPrefix+"PROXY_DEBUG_ENDPOINTS", &cfg.Proxy.DebugEndpoints)

	// Upstream overrides
	if val, ok := env(EnvPrefix + "UPSTREAM_BASE_URL"); ok {
		cfg.Upstream.BaseURL = val
	}
	duration(EnvPrefix+"UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout)
	integer(EnvPrefix+"UPSTREAM_PAGE_SIZE_MIN", &cfg.Upstream.PageSize.Min)
	integer(EnvPrefix+"UPSTREAM_PAGE_SIZE_MAX", &cfg.Upstream.PageSize.Max)
	integer(EnvPrefix+"UPSTREAM_PAGE_SIZE_DEFAULT", &cfg.Upstream.PageSize.Default)
	integer(EnvPrefix+"UPSTREAM_PAGE_SIZE_RELAXED", &cfg.Upstream.PageSize.Relaxed)
	boolean(EnvPrefix+"UPSTREAM_RETRY_EMPTY_READS", &cfg.Upstream.RetryEmptyReads)
	if val, ok := env(EnvPrefix + "UPSTREAM_PROJECT_FIELDS"); ok {
		cfg.Upstream.ProjectFields = splitList(val)
	}
	if val, ok := env(EnvPrefix + "UPSTREAM_PROBE_SCHEDULE"); ok {
		cfg.Upstream.ProbeSchedule = val
	}

	// Auth overrides
	if val, ok := env(EnvPrefix + "AUTH_INBOUND_SECRET"); ok {
		cfg.Auth.InboundSecret = val
	}
	if val, ok := env(EnvPrefix + "AUTH_OUTBOUND_SECRET"); ok {
		cfg.Auth.OutboundSecret = val
	}
	boolean(EnvPrefix+"AUTH_CHANNELS_PLAIN_HEADER", &cfg.Auth.Channels.PlainHeader)
	boolean(EnvPrefix+"AUTH_CHANNELS_BEARER_HEADER", &cfg.Auth.Channels.BearerHeader)
	boolean(EnvPrefix+"AUTH_CHANNELS_HASHED_QUERY", &cfg.Auth.Channels.HashedQuery)
	if val, ok := env(EnvPrefix + "AUTH_SECRETS_DIR"); ok {
		cfg.Auth.SecretsDir = val
	}

	// Normalize overrides
	duration(EnvPrefix+"NORMALIZE_FUTURE_TOLERANCE", &cfg.Normalize.FutureTolerance)

	// Telemetry overrides
	if val, ok := env(EnvPrefix + "TELEMETRY_LOGGING_LEVEL"); ok {
		cfg.Telemetry.Logging.Level = val
	}
	if val, ok := env(EnvPrefix + "TELEMETRY_LOGGING_FORMAT"); ok {
		cfg.Telemetry.Logging.Format = val
	}
	boolean(EnvPrefix+"TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	if val, ok := env(EnvPrefix + "TELEMETRY_METRICS_PATH"); ok {
		cfg.Telemetry.Metrics.Path = val
	}
	if val, ok := env(EnvPrefix + "TELEMETRY_TRACING_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val, ok := env(EnvPrefix + "TELEMETRY_TRACING_ENDPOINT"); ok {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val, ok := env(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Security overrides
	if val, ok := env(EnvPrefix + "SECURITY_TLS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Security.TLS.Enabled = b
		}
	}
	if val, ok := env(EnvPrefix + "SECURITY_TLS_CERT_FILE"); ok {
		cfg.Security.TLS.CertFile = val
	}
	if val, ok := env(EnvPrefix + "SECURITY_TLS_KEY_FILE"); ok {
		cfg.Security.TLS.KeyFile = val
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
