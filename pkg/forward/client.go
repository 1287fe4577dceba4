package forward

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"glucobridge/relay/pkg/telemetry/tracing"
)

// DefaultContentType is relayed when the upstream omits Content-Type.
const DefaultContentType = "text/plain"

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultRelaxedPageSize = MaxPageSize
	DefaultMaxIdleConns    = 32
	DefaultIdleConnTimeout = 90 * time.Second
)

// PassThroughHeaders are the only inbound headers carried to the upstream.
// Credentials are never among them: the upstream receives the translated
// outbound credentials instead.
var PassThroughHeaders = []string{"Accept", "User-Agent", "X-Request-ID"}

// Request is one upstream call.
type Request struct {
	Method string
	Target *url.URL
	Header http.Header
	Body   []byte
}

// Response is the relayed upstream reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte

	// Retried is set when the reply comes from the empty-read retry.
	Retried bool
}

// Observer receives upstream call measurements. It is satisfied by the
// metrics collector.
type Observer interface {
	ObserveUpstream(method string, statusCode int, duration time.Duration)
	ObserveRetry()
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each upstream attempt.
	Timeout time.Duration

	// MaxIdleConns and IdleConnTimeout size the connection pool.
	MaxIdleConns    int
	IdleConnTimeout time.Duration

	// RetryEmptyReads enables the single retry of an empty-array read.
	RetryEmptyReads bool

	// RelaxedPageSize is the count used by the retry.
	RelaxedPageSize int

	// Projection, if set, is applied to every relayed body.
	Projection *Projection

	// Observer, if set, receives per-attempt measurements.
	Observer Observer

	// Transport overrides the pooled transport. Used by tests.
	Transport http.RoundTripper

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client issues upstream calls. It is safe for concurrent use.
type Client struct {
	client     *http.Client
	timeout    time.Duration
	retryEmpty bool
	relaxed    int
	projection *Projection
	observer   Observer
	logger     *slog.Logger
}

// NewClient creates a Client with a pooled transport.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RelaxedPageSize <= 0 {
		opts.RelaxedPageSize = DefaultRelaxedPageSize
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = DefaultMaxIdleConns
	}
	if opts.IdleConnTimeout <= 0 {
		opts.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        opts.MaxIdleConns,
			MaxIdleConnsPerHost: opts.MaxIdleConns,
			IdleConnTimeout:     opts.IdleConnTimeout,
			ForceAttemptHTTP2:   true,
		}
	}

	return &Client{
		// Deadlines come from the per-attempt context, not Client.Timeout.
		client:     &http.Client{Transport: transport},
		timeout:    opts.Timeout,
		retryEmpty: opts.RetryEmptyReads,
		relaxed:    opts.RelaxedPageSize,
		projection: opts.Projection,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
}

// Forward issues req and relays the reply. A 2xx read whose body is an empty
// JSON array is retried once with count relaxed; the retry's reply is
// returned whatever it contains. Upstream status codes are never interpreted.
//
// Cancellation of ctx does not abort an attempt that has been issued: each
// attempt runs to completion or to its own timeout.
//
// The only error returned is *TransportError.
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.attempt(ctx, req, 1)
	if err != nil {
		return nil, err
	}

	if !c.retryEmpty || !isRead(req.Method) || !is2xx(resp.StatusCode) || !isEmptyArray(resp.Body) {
		return c.finish(resp), nil
	}

	retry := req
	retry.Target = withPageSize(req.Target, c.relaxed)
	if c.observer != nil {
		c.observer.ObserveRetry()
	}
	c.logger.Debug("retrying empty read",
		"path", req.Target.Path,
		"count", c.relaxed,
	)

	second, err := c.attempt(ctx, retry, 2)
	if err != nil {
		// The first reply was a valid answer; keep it rather than fail.
		c.logger.Warn("empty read retry failed",
			"path", req.Target.Path,
			"error", err,
		)
		return c.finish(resp), nil
	}
	second.Retried = true
	return c.finish(second), nil
}

func (c *Client) finish(resp *Response) *Response {
	if c.projection != nil {
		resp.Body = c.projection.Apply(resp.Body)
	}
	return resp
}

// attempt performs one upstream call.
func (c *Client) attempt(parent context.Context, req Request, n int) (*Response, error) {
	ctx, span := tracing.Start(parent, "forward.upstream")
	defer span.End()
	tracing.SetUpstreamAttributes(span, req.Method, req.Target.Host, req.Target.Path, n)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.Target.String(), body)
	if err != nil {
		terr := c.transportError(req, fmt.Errorf("failed to create request: %w", withoutURL(err)))
		tracing.SetErrorAttributes(span, terr, "request")
		return nil, terr
	}
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	tracing.Inject(ctx, httpReq.Header)

	c.logger.Debug("sending request upstream",
		"method", req.Method,
		"host", req.Target.Host,
		"path", req.Target.Path,
		"attempt", n,
	)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.observe(req.Method, 0, time.Since(start))
		terr := c.transportError(req, withoutURL(err))
		tracing.SetErrorAttributes(span, terr, "transport")
		return nil, terr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.observe(req.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		terr := c.transportError(req, fmt.Errorf("failed to read response body: %w", err))
		tracing.SetErrorAttributes(span, terr, "transport")
		return nil, terr
	}
	tracing.SetStatusCode(span, resp.StatusCode)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        data,
	}, nil
}

func (c *Client) observe(method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, status, d)
	}
}

func (c *Client) transportError(req Request, err error) *TransportError {
	target := *req.Target
	target.RawQuery = ""
	return &TransportError{
		Method:  req.Method,
		Target:  target.String(),
		Timeout: isTimeout(err),
		Cause:   err,
	}
}

// OutboundHeader copies the pass-through headers from inbound.
func OutboundHeader(inbound http.Header) http.Header {
	out := make(http.Header, len(PassThroughHeaders)+2)
	for _, name := range PassThroughHeaders {
		if v := inbound.Values(name); len(v) > 0 {
			out[http.CanonicalHeaderKey(name)] = append([]string(nil), v...)
		}
	}
	return out
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// isEmptyArray reports whether body is "[]" ignoring whitespace.
func isEmptyArray(body []byte) bool {
	t := bytes.TrimSpace(body)
	if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
		return false
	}
	return len(bytes.TrimSpace(t[1:len(t)-1])) == 0
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
