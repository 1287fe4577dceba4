package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// Redactor masks credentials in log attributes.
type Redactor struct {
	sensitiveKeys []string
	patterns      []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor for the credential names glucobridge
// handles.
func NewRedactor() *Redactor {
	return &Redactor{
		sensitiveKeys: []string{
			"api-secret", "api_secret", "apisecret",
			"authorization", "secret", "token", "password",
		},
		patterns: []redactPattern{
			{
				regex:       regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`),
				replacement: "Bearer " + Redacted,
			},
			{
				// secret=... and token=... in URLs and query strings
				regex:       regexp.MustCompile(`(?i)\b(secret|token)=[^&\s"]+`),
				replacement: "$1=" + Redacted,
			},
			{
				regex:       regexp.MustCompile(`(?i)\b(api-secret)\s*[:=]\s*[^\s,"]+`),
				replacement: "$1: " + Redacted,
			},
		},
	}
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr function.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if r.isSensitiveKey(a.Key) {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, Redacted)
	}
	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); s != "" {
			if red := r.RedactString(s); red != s {
				return slog.String(a.Key, red)
			}
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			s := err.Error()
			if red := r.RedactString(s); red != s {
				return slog.String(a.Key, red)
			}
		}
	}
	return a
}

// RedactString masks credential patterns inside s.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// isSensitiveKey reports whether key names a credential. "has_secret" style
// diagnostic keys are not sensitive.
func (r *Redactor) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "has_") || strings.HasSuffix(lower, "_length") {
		return false
	}
	for _, s := range r.sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
