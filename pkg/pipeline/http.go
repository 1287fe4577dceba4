package pipeline

import (
	"net/http"
	"time"
)

// ServeHTTP runs the pipeline for r and writes the outcome.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	out := p.Handle(r.Context(), r)
	WriteOutcome(w, r, out)

	if p.recorder != nil {
		p.recorder.RecordRequest(routeLabel(r), r.Method, out.State.String(), time.Since(start))
	}
	p.logger.DebugContext(r.Context(), "request handled",
		"state", out.State.String(),
		"status", out.StatusCode,
		"retried", out.Retried,
	)
}

// WriteOutcome writes status, content type and body. Bodies are omitted for
// 204 and HEAD.
func WriteOutcome(w http.ResponseWriter, r *http.Request, out Outcome) {
	if out.ContentType != "" && out.StatusCode != http.StatusNoContent {
		w.Header().Set("Content-Type", out.ContentType)
	}
	w.WriteHeader(out.StatusCode)
	if out.StatusCode == http.StatusNoContent || r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(out.Body)
}

// routeLabel keeps metric cardinality bounded by using the mux pattern.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}
