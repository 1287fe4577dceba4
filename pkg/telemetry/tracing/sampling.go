package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createSampler returns a parent-based sampler for ratio. A ratio of 1 samples
// every trace and 0 samples none; anything in between samples by trace ID so
// every hop of a trace makes the same decision.
//
// Wrapping in ParentBased means an upstream caller that already decided
// (traceparent with the sampled flag) is honored.
func createSampler(ratio float64) (sdktrace.Sampler, error) {
	if ratio < 0.0 || ratio > 1.0 {
		return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
	}

	var base sdktrace.Sampler
	switch {
	case ratio >= 1.0:
		base = sdktrace.AlwaysSample()
	case ratio <= 0.0:
		base = sdktrace.NeverSample()
	default:
		base = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(base), nil
}
