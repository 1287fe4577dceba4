package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var timeoutBody = []byte(`{"error":"timeout","message":"the request took too long to complete"}`)

// timeoutWriter serializes writes between the handler goroutine and the
// timeout path. After a timeout every handler write is discarded.
type timeoutWriter struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	header   http.Header
	code     int
	wrote    bool
	timedOut bool
	buf      []byte
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wrote {
		return
	}
	tw.code = code
	tw.wrote = true
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wrote {
		tw.code = http.StatusOK
		tw.wrote = true
	}
	tw.buf = append(tw.buf, b...)
	return len(b), nil
}

// flush copies the buffered response to the real writer.
func (tw *timeoutWriter) flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	dst := tw.w.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
	if !tw.wrote {
		tw.code = http.StatusOK
	}
	tw.w.WriteHeader(tw.code)
	_, _ = tw.w.Write(tw.buf)
}

func (tw *timeoutWriter) timeout() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut = true
	tw.w.Header().Set("Content-Type", "application/json")
	tw.w.WriteHeader(http.StatusGatewayTimeout)
	_, _ = tw.w.Write(timeoutBody)
}

// TimeoutMiddleware bounds how long a client waits for a response. When the
// timeout elapses a 504 JSON error is written and whatever the handler writes
// afterwards is dropped. The handler keeps running until it returns; an
// upstream call already issued is allowed to finish.
//
// A non-positive timeout disables the middleware.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{w: w, header: make(http.Header)}
			done := make(chan struct{})
			panicChan := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicChan:
				// Re-raise on the serving goroutine so RecoveryMiddleware sees it.
				panic(p)
			case <-done:
				tw.flush()
			case <-ctx.Done():
				slog.WarnContext(r.Context(), "request timeout",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", timeout.String(),
				)
				tw.timeout()
			}
		})
	}
}

// Chain applies middleware so that the first one listed is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
