package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"glucobridge/relay/pkg/forward"
)

// Forwarder issues an upstream call. *forward.Client satisfies it.
type Forwarder interface {
	Forward(ctx context.Context, req forward.Request) (*forward.Response, error)
}

// UpGauge records the probe outcome. The metrics collector satisfies it.
type UpGauge interface {
	SetUpstreamUp(up bool)
}

// ProbeResult is the outcome of one upstream probe.
type ProbeResult struct {
	Up         bool
	StatusCode int
	Err        error
	Checked    time.Time
}

// ProbeOptions configures an UpstreamProbe.
type ProbeOptions struct {
	// Schedule is a cron spec. Empty disables scheduling; RunOnce still works.
	Schedule string

	// Request is issued on every run. It carries the outbound credentials.
	Request forward.Request

	Forwarder Forwarder
	Gauge     UpGauge
	Logger    *slog.Logger
}

// UpstreamProbe periodically checks that the upstream answers with a 2xx
// and keeps the last result for the readiness endpoint.
type UpstreamProbe struct {
	opts    ProbeOptions
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool

	resultMu sync.RWMutex
	last     *ProbeResult
}

// NewUpstreamProbe creates a probe. It does not run until Start or RunOnce.
func NewUpstreamProbe(opts ProbeOptions) *UpstreamProbe {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UpstreamProbe{
		opts:   opts,
		cron:   cron.New(),
		logger: logger.With("component", "health.probe"),
	}
}

// Start runs the probe once and then on the configured schedule until ctx
// is done or Stop is called.
func (p *UpstreamProbe) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.opts.Schedule == "" {
		p.logger.Info("upstream probe schedule not configured, skipping")
		return nil
	}
	if _, err := p.cron.AddFunc(p.opts.Schedule, func() {
		p.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.opts.Schedule, err)
	}

	go p.RunOnce(ctx)
	p.cron.Start()
	p.running = true
	p.logger.Info("upstream probe started", "schedule", p.opts.Schedule)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop stops the schedule and waits for a running probe to finish.
func (p *UpstreamProbe) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("upstream probe stopped")
	}
}

// Running reports whether the schedule is active.
func (p *UpstreamProbe) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RunOnce probes the upstream and records the result.
func (p *UpstreamProbe) RunOnce(ctx context.Context) ProbeResult {
	result := ProbeResult{Checked: time.Now()}

	resp, err := p.opts.Forwarder.Forward(ctx, p.opts.Request)
	switch {
	case err != nil:
		result.Err = err
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		result.StatusCode = resp.StatusCode
		result.Err = fmt.Errorf("upstream returned %d", resp.StatusCode)
	default:
		result.StatusCode = resp.StatusCode
		result.Up = true
	}

	if result.Up {
		p.logger.Debug("upstream probe succeeded", "status", result.StatusCode)
	} else {
		p.logger.Warn("upstream probe failed", "error", result.Err)
	}
	if p.opts.Gauge != nil {
		p.opts.Gauge.SetUpstreamUp(result.Up)
	}

	p.resultMu.Lock()
	p.last = &result
	p.resultMu.Unlock()
	return result
}

// Last returns the most recent result, or false if the probe has not run.
func (p *UpstreamProbe) Last() (ProbeResult, bool) {
	p.resultMu.RLock()
	defer p.resultMu.RUnlock()
	if p.last == nil {
		return ProbeResult{}, false
	}
	return *p.last, true
}

// Check is a CheckFunc reporting the last probe result. A probe that has not
// completed yet counts as healthy.
func (p *UpstreamProbe) Check(ctx context.Context) error {
	last, ok := p.Last()
	if !ok || last.Up {
		return nil
	}
	return last.Err
}
