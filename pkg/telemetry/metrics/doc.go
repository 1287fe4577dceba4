// Package metrics exposes glucobridge's Prometheus metrics.
//
// # Metrics
//
//	glucobridge_requests_total{route,method,state}        inbound requests by terminal pipeline state
//	glucobridge_request_duration_seconds{route,method}    end-to-end handling time
//	glucobridge_upstream_duration_seconds{method,status_class}
//	glucobridge_upstream_retries_total                    empty-read retries
//	glucobridge_upstream_up                               last readiness probe result (1 or 0)
//	glucobridge_entries_total{result}                     normalization outcomes per entry
//	glucobridge_auth_failures_total                       rejected inbound credentials
//
// The namespace is configurable. All metrics live in a private registry so
// tests can create as many collectors as they like.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A disabled collector accepts every call and records nothing.
package metrics
