package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header names set on responses so a producer can quote a trace in a bug
// report.
const (
	HeaderTraceID = "X-Trace-ID"
)

// Propagator returns the global text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns ctx carrying the trace context found in headers. If there
// is none, ctx is returned unchanged.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context from ctx into headers (traceparent,
// tracestate, baggage).
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// HTTPMiddleware extracts the inbound trace context, opens a server span for
// the request and echoes the trace ID in the response headers.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		ctx, span := Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		if id := TraceID(ctx); id != "" {
			w.Header().Set(HeaderTraceID, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
