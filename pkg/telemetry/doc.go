// Package telemetry groups the relay's observability.
//
//   - logging: slog construction, secret redaction and request-scoped attributes
//   - metrics: Prometheus collectors on a private registry
//   - tracing: OpenTelemetry spans and W3C propagation
//   - health: liveness, readiness and the scheduled upstream probe
package telemetry
