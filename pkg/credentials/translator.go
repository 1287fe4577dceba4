package credentials

import (
	"crypto/sha1" // #nosec G505 - SHA-1 is the upstream's api-secret convention, not a security boundary here
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
)

// Header and query names used on the wire.
const (
	HeaderAPISecret     = "api-secret"
	HeaderAltAPISecret  = "x-api-secret"
	HeaderAuthorization = "Authorization"
	QuerySecret         = "secret"

	bearerScheme = "Bearer"
)

// Source defines where an inbound candidate secret is read from.
type Source struct {
	// Header is the header name.
	Header string

	// Scheme is an optional auth scheme ("Bearer") stripped from the value.
	// Matching is case-insensitive and the prefix is optional: a value
	// without the scheme is used as-is.
	Scheme string
}

// DefaultSources lists the inbound credential locations in priority order.
var DefaultSources = []Source{
	{Header: HeaderAPISecret},
	{Header: HeaderAltAPISecret},
	{Header: HeaderAuthorization, Scheme: bearerScheme},
}

// Channels selects which outbound encodings are emitted.
type Channels struct {
	// PlainHeader emits "api-secret: <secret>".
	PlainHeader bool

	// BearerHeader emits "Authorization: Bearer <sha1(secret)>".
	BearerHeader bool

	// HashedQuery emits "secret=<sha1(secret)>" as a query parameter.
	HashedQuery bool
}

// AllChannels enables every outbound encoding.
var AllChannels = Channels{PlainHeader: true, BearerHeader: true, HashedQuery: true}

// Outbound holds the credential materials to attach to an upstream request.
type Outbound struct {
	Header http.Header
	Query  url.Values
}

// Empty reports whether there is nothing to attach.
func (o Outbound) Empty() bool {
	return len(o.Header) == 0 && len(o.Query) == 0
}

// Apply sets the materials on an outgoing request header and query. Existing
// values under the same names are replaced.
func (o Outbound) Apply(h http.Header, q url.Values) {
	for k, v := range o.Header {
		h[k] = append([]string(nil), v...)
	}
	for k, v := range o.Query {
		q[k] = append([]string(nil), v...)
	}
}

// Translator authenticates inbound requests against one shared secret and
// produces outbound materials for another. It holds no mutable state and is
// safe for concurrent use.
type Translator struct {
	inbound  string
	outbound string
	channels Channels
	sources  []Source
}

// NewTranslator creates a Translator. Either secret may be empty: an empty
// inbound secret puts the translator in open mode, an empty outbound secret
// disables outbound credentials.
func NewTranslator(inboundSecret, outboundSecret string, channels Channels) *Translator {
	return &Translator{
		inbound:  inboundSecret,
		outbound: outboundSecret,
		channels: channels,
		sources:  DefaultSources,
	}
}

// OpenMode reports whether inbound authentication is disabled.
func (t *Translator) OpenMode() bool {
	return t.inbound == ""
}

// Authenticate checks the inbound request headers against the configured
// inbound secret.
func (t *Translator) Authenticate(h http.Header) bool {
	return AuthenticateInbound(h, t.inbound, t.sources...)
}

// Outbound returns the materials for the configured outbound secret.
func (t *Translator) Outbound() Outbound {
	return BuildOutboundCredentials(t.outbound, t.channels)
}

// AuthenticateInbound extracts a candidate from h (using DefaultSources when
// none are given) and compares it with secret. An empty secret always
// succeeds. Otherwise the candidate must equal the secret or its SHA-1 hex
// digest; an empty candidate never matches.
func AuthenticateInbound(h http.Header, secret string, sources ...Source) bool {
	if secret == "" {
		return true
	}
	if len(sources) == 0 {
		sources = DefaultSources
	}

	candidate := Extract(h, sources...)
	if candidate == "" {
		return false
	}

	if constantTimeEqual(candidate, secret) {
		return true
	}
	// Hex digests may arrive upper-cased from some clients.
	return constantTimeEqual(strings.ToLower(candidate), HashSecret(secret))
}

// Extract returns the first non-empty candidate found in sources, trimmed of
// surrounding whitespace, or "" if none.
func Extract(h http.Header, sources ...Source) string {
	for _, source := range sources {
		value := strings.TrimSpace(h.Get(source.Header))
		if value == "" {
			continue
		}
		if source.Scheme != "" {
			value = stripScheme(value, source.Scheme)
		}
		if value != "" {
			return value
		}
	}
	return ""
}

// BuildOutboundCredentials emits secret in every enabled channel. An empty
// secret yields empty materials.
//
// Sending the same secret three ways is a compatibility shim for upstream
// versions that disagree on the expected encoding (plaintext, SHA-1, or
// bearer-wrapped). It is not a security measure; deployments that target a
// single known upstream should enable only the channel it reads.
func BuildOutboundCredentials(secret string, channels Channels) Outbound {
	out := Outbound{Header: http.Header{}, Query: url.Values{}}
	if secret == "" {
		return out
	}

	hashed := HashSecret(secret)
	if channels.PlainHeader {
		out.Header.Set(HeaderAPISecret, secret)
	}
	if channels.BearerHeader {
		out.Header.Set(HeaderAuthorization, bearerScheme+" "+hashed)
	}
	if channels.HashedQuery {
		out.Query.Set(QuerySecret, hashed)
	}
	return out
}

// HashSecret returns the lowercase hex SHA-1 digest of secret.
func HashSecret(secret string) string {
	sum := sha1.Sum([]byte(secret)) // #nosec G401
	return hex.EncodeToString(sum[:])
}

// Presence describes an inbound candidate without revealing it.
type Presence struct {
	HasSecret bool `json:"hasSecret"`
	Length    int  `json:"length"`
}

// Describe reports whether an inbound candidate is present and its length.
func Describe(h http.Header) Presence {
	s := Extract(h, DefaultSources...)
	return Presence{HasSecret: s != "", Length: len(s)}
}

func stripScheme(value, scheme string) string {
	prefix := scheme + " "
	if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}
	return value
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
