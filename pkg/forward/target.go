package forward

import (
	"net/url"
	"strconv"
	"strings"
)

// PageSizeParam is the query parameter that carries the upstream page size.
const PageSizeParam = "count"

// Page-size bounds used when none are configured.
const (
	DefaultPageSize = 50
	MinPageSize     = 1
	MaxPageSize     = 1000
)

// PageSize bounds the count query parameter.
type PageSize struct {
	Min     int
	Max     int
	Default int
}

// DefaultPageSizeBounds accepts 1..1000 and falls back to 50.
var DefaultPageSizeBounds = PageSize{Min: MinPageSize, Max: MaxPageSize, Default: DefaultPageSize}

// Sanitize returns raw when it is an integer within bounds, otherwise the
// default.
func (p PageSize) Sanitize(raw string) string {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < p.Min || n > p.Max {
		return strconv.Itoa(p.Default)
	}
	return strconv.Itoa(n)
}

// SanitizeQuery returns a copy of values with every count value sanitized
// against the default bounds.
func SanitizeQuery(values url.Values) url.Values {
	return DefaultPageSizeBounds.SanitizeQuery(values)
}

// SanitizeQuery returns a copy of values with every count value sanitized.
// Other parameters are copied unchanged.
func (p PageSize) SanitizeQuery(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, vs := range values {
		cp := append([]string(nil), vs...)
		if k == PageSizeParam {
			for i, v := range cp {
				cp[i] = p.Sanitize(v)
			}
		}
		out[k] = cp
	}
	return out
}

// BuildTarget joins base with the inbound path and sanitized query using the
// default page-size bounds.
func BuildTarget(base *url.URL, path string, query url.Values) *url.URL {
	return DefaultPageSizeBounds.BuildTarget(base, path, query)
}

// BuildTarget joins base with the inbound path and sanitized query. A path
// prefix on base is preserved; the inbound path is appended verbatim.
func (p PageSize) BuildTarget(base *url.URL, path string, query url.Values) *url.URL {
	target := *base
	target.User = nil
	target.Fragment = ""
	target.RawFragment = ""
	target.RawPath = ""

	prefix := strings.TrimSuffix(base.Path, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target.Path = prefix + path
	if target.Path == "" {
		target.Path = "/"
	}
	target.RawQuery = p.SanitizeQuery(query).Encode()
	return &target
}

// withPageSize returns a copy of target with count set to n.
func withPageSize(target *url.URL, n int) *url.URL {
	cp := *target
	q := cp.Query()
	q.Set(PageSizeParam, strconv.Itoa(n))
	cp.RawQuery = q.Encode()
	return &cp
}
