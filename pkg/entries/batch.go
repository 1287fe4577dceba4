package entries

import (
	"encoding/json"
	"log/slog"
)

// Batch is a normalized payload ready to be forwarded.
type Batch struct {
	// Entries are the kept entries in input order.
	Entries []Entry

	// Single is set when the payload was a lone object rather than an array.
	Single bool
}

// Empty reports whether there is nothing to forward.
func (b Batch) Empty() bool {
	return len(b.Entries) == 0
}

// Len returns the number of kept entries.
func (b Batch) Len() int {
	return len(b.Entries)
}

// MarshalJSON preserves the input shape: an object for a single-object
// payload, an array otherwise.
func (b Batch) MarshalJSON() ([]byte, error) {
	if b.Single && len(b.Entries) == 1 {
		return json.Marshal(b.Entries[0])
	}
	if b.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.Entries)
}

// Stats counts normalization results for one batch.
type Stats struct {
	counts [len(resultNames)]int
}

// Add records one result.
func (s *Stats) Add(r Result) {
	if r >= 0 && int(r) < len(s.counts) {
		s.counts[r]++
	}
}

// Count returns how many entries ended with r.
func (s Stats) Count(r Result) int {
	if r < 0 || int(r) >= len(s.counts) {
		return 0
	}
	return s.counts[r]
}

// Kept returns the number of entries that will be forwarded.
func (s Stats) Kept() int {
	return s.counts[Accepted] + s.counts[Repaired]
}

// Total returns the number of entries seen.
func (s Stats) Total() int {
	total := 0
	for _, c := range s.counts {
		total += c
	}
	return total
}

// Dropped returns the number of entries that were discarded.
func (s Stats) Dropped() int {
	return s.Total() - s.Kept()
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(Results))
	for _, r := range Results {
		if c := s.counts[r]; c > 0 {
			attrs = append(attrs, slog.Int(r.String(), c))
		}
	}
	return slog.GroupValue(attrs...)
}
