// Package pipeline composes credential translation, entry normalization and
// upstream forwarding into the per-request contract of the relay.
//
// Every request runs through a small state machine:
//
//	Received -> Authenticated -> (Normalized | RejectedEmpty) -> Forwarded -> Relayed
//
// Failed is reachable from any non-terminal state. The Outcome returned by
// Handle always carries exactly one terminal state and the status, content
// type and body to write back:
//
//   - rejected inbound credentials end in Failed with 401
//   - a write whose entries are all dropped ends in RejectedEmpty with 204 and
//     no upstream call
//   - any upstream reply, success or error, is relayed verbatim
//   - a transport failure ends in Failed with a synthetic 500
//
// Reads skip normalization and go straight from Authenticated to Forwarded.
package pipeline
