package entries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Default repair thresholds.
const (
	// DoubledThreshold is the epoch-millisecond value (roughly year 2065)
	// above which a timestamp is assumed to have been doubled by the producer.
	DoubledThreshold int64 = 3_000_000_000_000

	// FutureTolerance is how far ahead of now an entry may be dated.
	FutureTolerance = 2 * time.Hour
)

// ErrMalformedPayload is returned when a payload is not valid JSON or its
// top level is neither an object nor an array.
var ErrMalformedPayload = errors.New("malformed entries payload")

// Result is the per-entry normalization outcome.
type Result int

const (
	// Accepted means the entry is forwarded with its own timestamp.
	Accepted Result = iota
	// Repaired means the entry is forwarded after halving its timestamp.
	Repaired
	// DroppedMissing means neither date nor mills held a number.
	DroppedMissing
	// DroppedFuture means the timestamp was beyond the future tolerance.
	DroppedFuture
	// DroppedInvalid means the element was not a JSON object.
	DroppedInvalid
)

var resultNames = [...]string{
	Accepted:       "accepted",
	Repaired:       "repaired",
	DroppedMissing: "dropped_missing",
	DroppedFuture:  "dropped_future",
	DroppedInvalid: "dropped_invalid",
}

// Results lists every Result in declaration order.
var Results = []Result{Accepted, Repaired, DroppedMissing, DroppedFuture, DroppedInvalid}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return "unknown"
	}
	return resultNames[r]
}

// Kept reports whether an entry with this result is forwarded.
func (r Result) Kept() bool {
	return r == Accepted || r == Repaired
}

// Options configures a Normalizer. Zero values select the package defaults.
type Options struct {
	// FutureTolerance bounds how far ahead of now an entry may be dated.
	FutureTolerance time.Duration

	// DoubledThreshold is the value above which timestamps are halved.
	DoubledThreshold int64

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Normalizer repairs entries. It holds no mutable state and is safe for
// concurrent use.
type Normalizer struct {
	tolerance time.Duration
	threshold int64
	now       func() time.Time
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts Options) *Normalizer {
	n := &Normalizer{
		tolerance: opts.FutureTolerance,
		threshold: opts.DoubledThreshold,
		now:       opts.Now,
	}
	if n.tolerance <= 0 {
		n.tolerance = FutureTolerance
	}
	if n.threshold <= 0 {
		n.threshold = DoubledThreshold
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// Normalize repairs a single raw entry. The returned Entry is only meaningful
// when the Result is kept.
func (n *Normalizer) Normalize(raw json.RawMessage) (Entry, Result) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Entry{}, DroppedInvalid
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Entry{}, DroppedInvalid
	}
	return n.normalizeFields(fields)
}

func (n *Normalizer) normalizeFields(fields map[string]json.RawMessage) (Entry, Result) {
	ts, ok := readTimestamp(fields, fieldDate)
	if !ok {
		ts, ok = readTimestamp(fields, fieldMills)
	}
	if !ok {
		return Entry{}, DroppedMissing
	}

	ms, result := n.repair(ts)
	if result == DroppedFuture {
		return Entry{}, DroppedFuture
	}

	e := entryFromFields(fields)
	delete(e.Extra, fieldDate)
	delete(e.Extra, fieldMills)
	if e.Type == "" {
		if raw, ok := e.Extra[fieldType]; !ok || isFalsy(raw) {
			delete(e.Extra, fieldType)
			e.Type = DefaultType
		}
	}
	e.setTimestamp(ms)
	return e, result
}

// NormalizeBatch repairs a request payload. An array is normalized element by
// element keeping order; an object yields a single-entry batch or an empty
// one. An empty body or JSON null yields an empty batch.
func (n *Normalizer) NormalizeBatch(payload []byte) (Batch, Stats, error) {
	var stats Stats
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return Batch{}, stats, nil
	}

	switch payload[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(payload, &elems); err != nil {
			return Batch{}, stats, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		batch := Batch{Entries: make([]Entry, 0, len(elems))}
		for _, elem := range elems {
			e, result := n.Normalize(elem)
			stats.Add(result)
			if result.Kept() {
				batch.Entries = append(batch.Entries, e)
			}
		}
		return batch, stats, nil

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			return Batch{}, stats, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		batch := Batch{Single: true}
		e, result := n.normalizeFields(fields)
		stats.Add(result)
		if result.Kept() {
			batch.Entries = []Entry{e}
		}
		return batch, stats, nil

	default:
		return Batch{}, stats, fmt.Errorf("%w: top-level value must be an object or array", ErrMalformedPayload)
	}
}

// twoTo63 is the first float64 outside the int64 range.
var twoTo63 = math.Ldexp(1, 63)

// timestamp is a numeric date or mills value. Integers that fit in an int64
// are kept exact; anything else is carried as a float.
type timestamp struct {
	ms    int64
	f     float64
	exact bool
}

// repair halves a doubled timestamp and applies the future tolerance.
// Non-integer values are compared and halved before flooring, so the whole
// milliseconds returned are always within the int64 range.
func (n *Normalizer) repair(ts timestamp) (int64, Result) {
	limit := n.now().Add(n.tolerance).UnixMilli()

	if ts.exact {
		ms, result := ts.ms, Accepted
		if ms > n.threshold {
			ms /= 2
			result = Repaired
		}
		if ms > limit {
			return 0, DroppedFuture
		}
		return ms, result
	}

	f, result := ts.f, Accepted
	if f > float64(n.threshold) {
		f /= 2
		result = Repaired
	}
	if f >= twoTo63 || f > float64(limit) {
		return 0, DroppedFuture
	}
	return int64(math.Floor(f)), result
}

// readTimestamp returns the named field if it is a JSON number. Values below
// the int64 range are not timestamps.
func readTimestamp(fields map[string]json.RawMessage, name string) (timestamp, bool) {
	raw, ok := fields[name]
	if !ok {
		return timestamp{}, false
	}
	raw = bytes.TrimSpace(raw)
	if !isNumberLiteral(raw) {
		return timestamp{}, false
	}
	if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return timestamp{ms: ms, exact: true}, true
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f < -twoTo63 {
		return timestamp{}, false
	}
	return timestamp{f: f}, true
}
