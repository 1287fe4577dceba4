package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "upstream.base_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateNormalize(&cfg.Normalize)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateTimeouts(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "proxy.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "proxy.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	return errs
}

// validateTimeouts checks that a request's upstream attempts fit inside the
// handler deadline, so an upstream timeout surfaces as proxy_failed rather
// than the middleware's gateway timeout. A read may take two attempts.
func validateTimeouts(cfg *Config) []FieldError {
	write, upstream := cfg.Proxy.WriteTimeout, cfg.Upstream.Timeout
	if write <= 0 || upstream <= 0 {
		return nil
	}
	attempts := time.Duration(1)
	if Enabled(cfg.Upstream.RetryEmptyReads, DefaultRetryEmptyReads) {
		attempts = 2
	}
	if write < attempts*upstream {
		return []FieldError{{
			Field: "proxy.write_timeout",
			Message: fmt.Sprintf("write timeout %s must be at least %d x upstream.timeout (%s)",
				write, attempts, attempts*upstream),
		}}
	}
	return nil
}

// validateUpstream enforces the one required setting: without an upstream
// base address there is nowhere to forward to, and the process must not
// start.
func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "upstream base URL is required (set TARGET_BASE or GLUCOBRIDGE_UPSTREAM_BASE_URL)",
		})
	} else if u, err := url.Parse(cfg.BaseURL); err != nil {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "URL must use http or https scheme",
		})
	} else if u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "URL must include a host",
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.timeout", Message: "timeout must be positive"})
	}

	ps := cfg.PageSize
	if ps.Min < 1 {
		errs = append(errs, FieldError{Field: "upstream.page_size.min", Message: "must be at least 1"})
	}
	if ps.Max < ps.Min {
		errs = append(errs, FieldError{Field: "upstream.page_size.max", Message: "must be greater than or equal to min"})
	}
	if ps.Default < ps.Min || ps.Default > ps.Max {
		errs = append(errs, FieldError{Field: "upstream.page_size.default", Message: fmt.Sprintf("must be between %d and %d", ps.Min, ps.Max)})
	}
	if ps.Relaxed < ps.Min || ps.Relaxed > ps.Max {
		errs = append(errs, FieldError{Field: "upstream.page_size.relaxed", Message: fmt.Sprintf("must be between %d and %d", ps.Min, ps.Max)})
	}

	if cfg.ProbePath != "" && !strings.HasPrefix(cfg.ProbePath, "/") {
		errs = append(errs, FieldError{Field: "upstream.probe_path", Message: "must start with /"})
	}
	if cfg.ProbeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ProbeSchedule); err != nil {
			errs = append(errs, FieldError{Field: "upstream.probe_schedule", Message: fmt.Sprintf("invalid schedule: %v", err)})
		}
	}

	return errs
}

func validateNormalize(cfg *NormalizeConfig) []FieldError {
	var errs []FieldError
	if cfg.FutureTolerance < 0 {
		errs = append(errs, FieldError{Field: "normalize.future_tolerance", Message: "must be non-negative"})
	}
	if cfg.DoubledThreshold <= 0 {
		errs = append(errs, FieldError{Field: "normalize.doubled_threshold", Message: "must be positive"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.cert_file", Message: "certificate file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
	}
	switch cfg.TLS.MinVersion {
	case "1.2", "1.3":
	default:
		errs = append(errs, FieldError{Field: "security.tls.min_version", Message: fmt.Sprintf("unsupported TLS version %q (must be 1.2 or 1.3)", cfg.TLS.MinVersion)})
	}

	return errs
}
