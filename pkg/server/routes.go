package server

import (
	"encoding/json"
	"net/http"

	"glucobridge/relay/pkg/config"
	"glucobridge/relay/pkg/credentials"
	"glucobridge/relay/pkg/proxy/middleware"
	"glucobridge/relay/pkg/telemetry/health"
	"glucobridge/relay/pkg/telemetry/tracing"
)

// EntriesPaths are the collection paths served for reads and writes.
var EntriesPaths = []string{
	"/api/v1/entries",
	"/api/v1/entries.json",
	"/api/v1/entries/sgv.json",
}

// setupRoutes builds the mux and wraps it in the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	relay := tracing.HTTPMiddleware(s.pipeline)
	for _, path := range EntriesPaths {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
			mux.Handle(method+" "+path, relay)
		}
	}
	// Single-entry and filtered reads, e.g. /api/v1/entries/current.json.
	mux.Handle("GET /api/v1/entries/{spec}", relay)

	mux.HandleFunc("GET /health", s.checker.LivenessHandler())
	mux.HandleFunc("GET /ready", s.checker.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(s.opts.Version, s.opts.Commit, s.opts.BuildTime))

	if config.Enabled(s.cfg.Proxy.DebugEndpoints, config.DefaultDebugEndpoints) {
		mux.HandleFunc("GET /debug/secret", handleDebugSecret)
	}
	if s.collector.Enabled() {
		mux.Handle("GET "+s.cfg.Telemetry.Metrics.Path, s.collector.Handler())
	}

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware,
		middleware.LoggingMiddleware,
		middleware.RequestIDMiddleware,
		middleware.TimeoutMiddleware(s.cfg.Proxy.WriteTimeout),
	)
}

// handleDebugSecret reports whether the caller presented a credential and
// its length. The value itself is never echoed.
func handleDebugSecret(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(credentials.Describe(r.Header))
}
