// Package nightscouttest provides a mock Nightscout upstream for tests.
package nightscouttest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockServer is a mock upstream that records every request it receives and
// answers with a per-path canned response.
type MockServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	routes   map[string]MockResponse
	fallback MockResponse
	requests []Request
}

// MockResponse defines a canned reply.
type MockResponse struct {
	StatusCode int
	// Body is written as-is when it is a string or []byte and JSON-encoded
	// otherwise.
	Body    any
	Delay   time.Duration
	Headers map[string]string
}

// Request is one recorded request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// DefaultResponse answers paths without a configured response.
var DefaultResponse = MockResponse{
	StatusCode: http.StatusOK,
	Body:       `[]`,
	Headers:    map[string]string{"Content-Type": "application/json"},
}

// NewMockServer starts a mock upstream. It is closed by t's cleanup when a
// cleanup registrar is passed, otherwise by Close.
func NewMockServer(cleanup interface{ Cleanup(func()) }) *MockServer {
	ms := &MockServer{
		routes:   make(map[string]MockResponse),
		fallback: DefaultResponse,
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	if cleanup != nil {
		cleanup.Cleanup(ms.Close)
	}
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets the reply for path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.routes[path] = response
}

// SetDefault sets the reply for unconfigured paths.
func (ms *MockServer) SetDefault(response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.fallback = response
}

// Requests returns a copy of the recorded requests in arrival order.
func (ms *MockServer) Requests() []Request {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]Request(nil), ms.requests...)
}

// RequestCount returns the number of requests received.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Reset forgets recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = nil
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	response, ok := ms.routes[r.URL.Path]
	if !ok {
		response = ms.fallback
	}
	ms.mu.Unlock()

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}
	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, v)
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Entry builds an upstream-shaped entry for canned replies.
func Entry(ms int64, sgv int) map[string]any {
	return map[string]any{
		"date":       ms,
		"mills":      ms,
		"dateString": time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z"),
		"sgv":        sgv,
		"type":       "sgv",
	}
}
