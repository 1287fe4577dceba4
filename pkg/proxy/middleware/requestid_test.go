package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seenCtx, seenHeader string
	wrapped := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtx = GetRequestID(r.Context())
		seenHeader = r.Header.Get(RequestIDHeader)
	}))

	t.Run("generates a uuid when not provided", func(t *testing.T) {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))

		requestID := w.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			t.Errorf("generated ID %q is not a UUID: %v", requestID, err)
		}
		if seenCtx != requestID || seenHeader != requestID {
			t.Errorf("context %q / inbound header %q, want %q", seenCtx, seenHeader, requestID)
		}
	})

	t.Run("keeps a provided request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
		req.Header.Set(RequestIDHeader, "custom-request-id-12345")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "custom-request-id-12345" {
			t.Errorf("Request ID = %q", got)
		}
	})

	t.Run("replaces unusable IDs", func(t *testing.T) {
		for _, bad := range []string{"has space", strings.Repeat("x", 200), "tab\there"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
			req.Header.Set(RequestIDHeader, bad)
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			if got := w.Header().Get(RequestIDHeader); got == bad {
				t.Errorf("unusable ID %q was kept", bad)
			}
		}
	})

	t.Run("unique IDs", func(t *testing.T) {
		w1 := httptest.NewRecorder()
		wrapped.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/", nil))
		w2 := httptest.NewRecorder()
		wrapped.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))

		if w1.Header().Get(RequestIDHeader) == w2.Header().Get(RequestIDHeader) {
			t.Error("request IDs should differ")
		}
	})
}
