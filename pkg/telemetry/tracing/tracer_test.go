package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"glucobridge/relay/pkg/config"
)

const (
	testTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	testTraceID     = "4bf92f3577b34da6a3ce929d0e0e4736"
)

func TestNew(t *testing.T) {
	if _, err := New(nil, "test"); err == nil {
		t.Error("expected error for nil config")
	}

	tracer, err := New(&config.TracingConfig{Enabled: false, ServiceName: "test"}, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected disabled tracer")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled tracer failed: %v", err)
	}
}

func TestNew_InvalidRatio(t *testing.T) {
	_, err := New(&config.TracingConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		SampleRatio: 2,
		ServiceName: "test",
	}, "test")
	if err == nil {
		t.Fatal("expected error for out of range sample ratio")
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		ratio   float64
		wantErr bool
	}{
		{0, false},
		{0.25, false},
		{1, false},
		{-0.1, true},
		{1.1, true},
	}
	for _, tt := range tests {
		s, err := createSampler(tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%v) error = %v, wantErr %v", tt.ratio, err, tt.wantErr)
		}
		if err == nil && s == nil {
			t.Errorf("createSampler(%v) returned nil sampler", tt.ratio)
		}
	}
}

func TestInjectExtract(t *testing.T) {
	if _, err := New(&config.TracingConfig{}, "test"); err != nil {
		t.Fatalf("New: %v", err)
	}

	in := http.Header{}
	in.Set("traceparent", testTraceParent)
	ctx := Extract(context.Background(), in)

	if got := TraceID(ctx); got != testTraceID {
		t.Fatalf("TraceID() = %q, want %q", got, testTraceID)
	}

	out := http.Header{}
	Inject(ctx, out)
	if out.Get("traceparent") == "" {
		t.Error("expected traceparent to be injected")
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("expected empty trace id, got %q", got)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	if _, err := New(&config.TracingConfig{}, "test"); err != nil {
		t.Fatalf("New: %v", err)
	}

	var seen string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", nil)
	req.Header.Set("traceparent", testTraceParent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != testTraceID {
		t.Errorf("handler saw trace %q, want %q", seen, testTraceID)
	}
	if got := rec.Header().Get(HeaderTraceID); got != testTraceID {
		t.Errorf("%s = %q, want %q", HeaderTraceID, got, testTraceID)
	}
}

func TestSetErrorAttributes_NilError(t *testing.T) {
	_, span := Start(context.Background(), "test")
	defer span.End()

	// Must not panic on a noop span or a nil error.
	SetErrorAttributes(span, nil, "none")
	SetErrorAttributes(span, errors.New("boom"), "transport")
	SetEntryCounts(span, 3, 2)
	SetUpstreamAttributes(span, http.MethodGet, "ns.example.com", "/api/v1/entries.json", 1)
}
