// Package middleware provides the HTTP middleware wrapped around every relay
// route.
//
// # Middleware Chain
//
//	handler = Chain(mux, RecoveryMiddleware, LoggingMiddleware, RequestIDMiddleware, TimeoutMiddleware(d))
//
// Order (outermost first):
//  1. Recovery: recover from panics, return a 500 JSON error
//  2. Logging: one structured line per request
//  3. RequestID: assign or keep X-Request-ID
//  4. Timeout: bound how long the client waits
//
// # Request ID
//
// RequestIDMiddleware generates a UUID v4 when the client did not send a
// usable X-Request-ID:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is stored in the context (see logging.WithRequestID), echoed in the
// response and carried to the upstream.
//
// # Logging
//
//	{
//	  "time": "2024-01-01T00:00:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/api/v1/entries",
//	  "status": 200,
//	  "latency_ms": 84,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// # Timeout
//
// The timeout applies to the client's wait only. The handler's context is
// cancelled, but upstream calls already issued by the forwarding client run
// to their own deadline.
package middleware
