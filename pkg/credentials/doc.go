// Package credentials reconciles the authentication schemes on the two sides
// of the bridge.
//
// Inbound, a producer may present the shared secret in an api-secret header,
// an x-api-secret header, or an Authorization header with an optional
// "Bearer " prefix, and may send it either verbatim or already SHA-1 hashed.
// AuthenticateInbound accepts any of these.
//
// Outbound, the upstream's expected encoding is not knowable in advance, so
// BuildOutboundCredentials can emit the secret in up to three channels at
// once:
//
//	api-secret: <secret>
//	Authorization: Bearer <sha1(secret)>
//	?secret=<sha1(secret)>
//
// Each channel can be switched off individually. Derived forms are computed
// per call and never stored.
package credentials
