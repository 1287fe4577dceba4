package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Standard HTTP keys follow the OpenTelemetry semantic
// conventions; everything relay-specific lives under "glucobridge.".
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrServerAddress  = "server.address"
	AttrURLPath        = "url.path"

	AttrRequestID       = "glucobridge.request_id"
	AttrRoute           = "glucobridge.route"
	AttrState           = "glucobridge.state"
	AttrAttempt         = "glucobridge.upstream.attempt"
	AttrRetried         = "glucobridge.upstream.retried"
	AttrEntriesReceived = "glucobridge.entries.received"
	AttrEntriesKept     = "glucobridge.entries.kept"
	AttrErrorType       = "glucobridge.error.type"
)

// SetRequestAttributes sets the inbound request attributes on a span.
func SetRequestAttributes(span trace.Span, requestID, route, method string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRoute, route),
		attribute.String(AttrHTTPMethod, method),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetUpstreamAttributes describes one upstream attempt. The query string is
// never recorded: it may carry the hashed secret.
func SetUpstreamAttributes(span trace.Span, method, host, path string, attempt int) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrServerAddress, host),
		attribute.String(AttrURLPath, path),
		attribute.Int(AttrAttempt, attempt),
	)
}

// SetStatusCode records the response status on a span.
func SetStatusCode(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
}

// SetEntryCounts records how many entries arrived and how many survived
// normalization.
func SetEntryCounts(span trace.Span, received, kept int) {
	span.SetAttributes(
		attribute.Int(AttrEntriesReceived, received),
		attribute.Int(AttrEntriesKept, kept),
	)
}

// SetState records the terminal pipeline state.
func SetState(span trace.Span, state string) {
	span.SetAttributes(attribute.String(AttrState, state))
}

// SetErrorAttributes records err with a coarse type and marks the span
// failed.
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorType, errorType))
	SetError(span, err)
}
