package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"glucobridge/relay/pkg/credentials"
	"glucobridge/relay/pkg/entries"
	"glucobridge/relay/pkg/forward"
	"glucobridge/relay/pkg/telemetry/tracing"
)

// DefaultMaxBodyBytes limits write payloads to 2 MiB.
const DefaultMaxBodyBytes int64 = 2 << 20

const contentTypeJSON = "application/json; charset=utf-8"

var (
	// ErrUnauthorized is the cause of a 401 outcome.
	ErrUnauthorized = errors.New("inbound credentials rejected")

	// ErrNoUpstream is reported when the pipeline was built without a base URL.
	ErrNoUpstream = errors.New("upstream base URL not configured")
)

// Forwarder issues upstream calls. *forward.Client satisfies it.
type Forwarder interface {
	Forward(ctx context.Context, req forward.Request) (*forward.Response, error)
}

// Recorder receives per-request measurements. The metrics collector
// satisfies it.
type Recorder interface {
	RecordRequest(route, method, state string, duration time.Duration)
	RecordAuthFailure()
	RecordEntries(result string, n int)
}

// Config is captured once by New and never changes afterwards.
type Config struct {
	// BaseURL is the upstream base address. Required.
	BaseURL *url.URL

	// PageSize bounds the count parameter. Zero uses the forward defaults.
	PageSize forward.PageSize

	// MaxBodyBytes limits write payloads. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Deps are the collaborators a pipeline composes.
type Deps struct {
	// Translator defaults to open mode without outbound credentials.
	Translator *credentials.Translator

	// Normalizer defaults to the standard thresholds and the wall clock.
	Normalizer *entries.Normalizer

	// Forwarder is required.
	Forwarder Forwarder

	Recorder Recorder
	Logger   *slog.Logger
}

// Outcome is the result of one invocation. State is always terminal.
type Outcome struct {
	State       State
	Transitions []State

	StatusCode  int
	ContentType string
	Body        []byte

	// Stats is set for writes that reached normalization.
	Stats entries.Stats

	// Retried is set when the relayed body came from the empty-read retry.
	Retried bool

	// Err is the cause of a Failed outcome.
	Err error
}

// Pipeline authenticates, normalizes, forwards and relays one request.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	base       *url.URL
	pageSize   forward.PageSize
	maxBody    int64
	translator *credentials.Translator
	normalizer *entries.Normalizer
	forwarder  Forwarder
	recorder   Recorder
	logger     *slog.Logger
}

// New creates a pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.PageSize == (forward.PageSize{}) {
		cfg.PageSize = forward.DefaultPageSizeBounds
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Translator == nil {
		deps.Translator = credentials.NewTranslator("", "", credentials.AllChannels)
	}
	if deps.Normalizer == nil {
		deps.Normalizer = entries.NewNormalizer(entries.Options{})
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	var base *url.URL
	if cfg.BaseURL != nil {
		cp := *cfg.BaseURL
		base = &cp
	}

	return &Pipeline{
		base:       base,
		pageSize:   cfg.PageSize,
		maxBody:    cfg.MaxBodyBytes,
		translator: deps.Translator,
		normalizer: deps.Normalizer,
		forwarder:  deps.Forwarder,
		recorder:   deps.Recorder,
		logger:     deps.Logger.With("component", "pipeline"),
	}
}

// invocation tracks the state machine of a single request.
type invocation struct {
	out Outcome
}

func (inv *invocation) to(s State) {
	if !inv.out.State.next(s) {
		panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", inv.out.State, s))
	}
	inv.out.State = s
	inv.out.Transitions = append(inv.out.Transitions, s)
}

func (inv *invocation) fail(status int, body []byte, err error) Outcome {
	inv.to(Failed)
	inv.out.StatusCode = status
	inv.out.ContentType = contentTypeJSON
	inv.out.Body = body
	inv.out.Err = err
	return inv.out
}

// Handle runs r through the pipeline. Upstream status codes are never
// interpreted; transport failures become a synthetic 500.
func (p *Pipeline) Handle(ctx context.Context, r *http.Request) Outcome {
	ctx, span := tracing.Start(ctx, "pipeline.handle")
	defer span.End()

	out := p.handle(ctx, r)

	tracing.SetState(span, out.State.String())
	tracing.SetStatusCode(span, out.StatusCode)
	if out.Err != nil {
		tracing.SetErrorAttributes(span, out.Err, out.State.String())
	}
	return out
}

func (p *Pipeline) handle(ctx context.Context, r *http.Request) Outcome {
	inv := &invocation{out: Outcome{State: Received, Transitions: []State{Received}}}

	if !p.translator.Authenticate(r.Header) {
		if p.recorder != nil {
			p.recorder.RecordAuthFailure()
		}
		p.logger.WarnContext(ctx, "inbound authentication failed",
			"method", r.Method,
			"path", r.URL.Path,
			"has_secret", credentials.Describe(r.Header).HasSecret,
		)
		return inv.fail(http.StatusUnauthorized, []byte(`{"error":"unauthorized"}`), ErrUnauthorized)
	}
	inv.to(Authenticated)

	if p.base == nil || p.forwarder == nil {
		return inv.fail(forward.FailureStatus, forward.FailureResponse(ErrNoUpstream).Body, ErrNoUpstream)
	}

	req := forward.Request{
		Method: r.Method,
		Target: p.pageSize.BuildTarget(p.base, r.URL.Path, r.URL.Query()),
		Header: forward.OutboundHeader(r.Header),
	}
	query := req.Target.Query()
	p.translator.Outbound().Apply(req.Header, query)
	req.Target.RawQuery = query.Encode()

	if isWrite(r.Method) {
		body, err := p.readBody(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return inv.fail(http.StatusRequestEntityTooLarge, []byte(`{"error":"payload_too_large"}`), err)
			}
			return inv.fail(http.StatusBadRequest, []byte(`{"error":"invalid_payload"}`), err)
		}

		batch, stats, err := p.normalize(ctx, body)
		inv.out.Stats = stats
		if err != nil {
			p.logger.InfoContext(ctx, "rejected malformed payload", "error", err)
			return inv.fail(http.StatusBadRequest, []byte(`{"error":"invalid_payload"}`), err)
		}
		p.recordEntries(stats)

		if batch.Empty() {
			inv.to(RejectedEmpty)
			inv.out.StatusCode = http.StatusNoContent
			p.logger.InfoContext(ctx, "no entries left after normalization", "entries", stats)
			return inv.out
		}
		inv.to(Normalized)

		req.Body, err = json.Marshal(batch)
		if err != nil {
			return inv.fail(forward.FailureStatus, forward.FailureResponse(err).Body, err)
		}
		p.logger.DebugContext(ctx, "normalized payload", "entries", stats)
	}

	inv.to(Forwarded)
	resp, err := p.forwarder.Forward(ctx, req)
	if err != nil {
		p.logger.ErrorContext(ctx, "upstream request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		failure := forward.FailureResponse(err)
		return inv.fail(failure.StatusCode, failure.Body, err)
	}

	inv.to(Relayed)
	inv.out.StatusCode = resp.StatusCode
	inv.out.ContentType = resp.ContentType
	inv.out.Body = resp.Body
	inv.out.Retried = resp.Retried
	return inv.out
}

func (p *Pipeline) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(nil, r.Body, p.maxBody))
}

func (p *Pipeline) normalize(ctx context.Context, body []byte) (entries.Batch, entries.Stats, error) {
	_, span := tracing.Start(ctx, "entries.normalize")
	defer span.End()

	batch, stats, err := p.normalizer.NormalizeBatch(body)
	if err != nil {
		tracing.SetErrorAttributes(span, err, "malformed_payload")
		return batch, stats, err
	}
	tracing.SetEntryCounts(span, stats.Total(), stats.Kept())
	return batch, stats, nil
}

func (p *Pipeline) recordEntries(stats entries.Stats) {
	if p.recorder == nil {
		return
	}
	for _, r := range entries.Results {
		if n := stats.Count(r); n > 0 {
			p.recorder.RecordEntries(r.String(), n)
		}
	}
}

func isWrite(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}
