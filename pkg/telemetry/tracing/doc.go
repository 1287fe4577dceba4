// Package tracing wires OpenTelemetry into glucobridge.
//
// New installs the W3C Trace Context and Baggage propagators and, when
// tracing is enabled, an OTLP/gRPC exporter with a parent-based ratio
// sampler. Components start spans with the package-level Start so they need
// no tracer handed to them; when tracing is disabled those spans are noops.
//
// Span names:
//
//	pipeline.handle     one inbound request
//	entries.normalize   payload repair
//	forward.upstream    one upstream attempt (the empty-read retry is a second span)
//
// Trace context is injected into every upstream request, so a Nightscout
// instance behind an instrumented ingress joins the producer's trace.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
