// Package forward relays requests to the upstream ingestion service.
//
// BuildTarget maps an inbound path and query onto the upstream base URL and
// repairs the page-size parameter ("count") that some producers send as a
// negative or oversized number. Client.Forward issues the call with a fixed
// per-call timeout and relays status, content type and body unchanged.
//
// A read that comes back as an empty JSON array is retried exactly once with a
// relaxed page size, to paper over the upstream's eventual consistency.
//
// Transport failures never escape as faults: Forward returns a
// *TransportError, and FailureResponse turns it into the synthetic
// 500 {"error":"proxy_failed"} reply.
package forward
