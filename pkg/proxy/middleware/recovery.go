package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

var internalErrorBody = []byte(`{"error":"internal_error","message":"An internal error occurred."}`)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// JSON error. The panic and stack are logged; neither reaches the client.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(internalErrorBody)
		}()

		next.ServeHTTP(w, r)
	})
}
