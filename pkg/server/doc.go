// Package server assembles the relay and manages its lifecycle.
//
// New wires the credential translator, entry normalizer, forwarding client
// and request pipeline from a validated configuration, together with the
// metrics collector, readiness checker and upstream probe. Start binds the
// listener, optionally with TLS, and serves until the context is cancelled
// or SIGINT/SIGTERM arrives, then drains in-flight requests within
// proxy.shutdown_timeout.
//
// # Routes
//
//   - GET|POST|PUT /api/v1/entries, /api/v1/entries.json, /api/v1/entries/sgv.json
//   - GET /api/v1/entries/{spec}
//   - GET /health, /ready, /version
//   - GET /debug/secret (proxy.debug_endpoints)
//   - GET /metrics (telemetry.metrics.path)
//
// # Middleware Chain
//
// Outermost first: recovery, logging, request ID, timeout.
package server
