// Package entries repairs glucose entries before they are forwarded upstream.
//
// Producers occasionally emit timestamps at twice their real epoch-millisecond
// value, omit the record type, or leave the redundant date fields out of sync.
// The Normalizer fixes what it can and drops what it cannot:
//
//   - the timestamp is read from "date", falling back to "mills"; a record
//     with neither as a JSON number is dropped
//   - a timestamp above the doubled threshold is halved
//   - a timestamp too far in the future is dropped
//   - date, mills, dateString and sysTime are rewritten from the timestamp
//   - an absent or empty type becomes "sgv"
//
// Fields the Normalizer does not know about are passed through unchanged.
//
// # Usage
//
//	n := entries.NewNormalizer(entries.Options{})
//	batch, stats, err := n.NormalizeBatch(body)
//	if errors.Is(err, entries.ErrMalformedPayload) {
//		// 400
//	}
//	if batch.Empty() {
//		// nothing to forward
//	}
package entries
