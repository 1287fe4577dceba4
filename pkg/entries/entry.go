package entries

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// ISOLayout renders timestamps the way the upstream stores dateString and
// sysTime: UTC with millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// DefaultType is assigned to entries that arrive without a type.
const DefaultType = "sgv"

// Entry is one glucose measurement.
//
// Known fields are decoded into typed members when they have the expected JSON
// type. Any other field, and any known field carrying an unexpected type, is
// kept verbatim in Extra and written back unchanged.
type Entry struct {
	ID         string
	Date       int64
	Mills      int64
	SGV        json.Number
	Direction  string
	Type       string
	Device     string
	Delta      json.Number
	UTCOffset  json.Number
	DateString string
	SysTime    string

	// Extra holds fields not represented above.
	Extra map[string]json.RawMessage

	// timed is set once Date and Mills hold a real timestamp.
	timed bool
}

// Field names on the wire.
const (
	fieldID         = "_id"
	fieldDate       = "date"
	fieldMills      = "mills"
	fieldSGV        = "sgv"
	fieldDirection  = "direction"
	fieldType       = "type"
	fieldDevice     = "device"
	fieldDelta      = "delta"
	fieldUTCOffset  = "utcOffset"
	fieldDateString = "dateString"
	fieldSysTime    = "sysTime"
)

// Timestamp returns the entry time, or the zero time if the entry has none.
func (e Entry) Timestamp() time.Time {
	if !e.timed {
		return time.Time{}
	}
	return time.UnixMilli(e.Date).UTC()
}

// setTimestamp makes every time field agree with ms.
func (e *Entry) setTimestamp(ms int64) {
	iso := FormatISO(ms)
	e.Date = ms
	e.Mills = ms
	e.DateString = iso
	e.SysTime = iso
	e.timed = true
}

// FormatISO renders epoch milliseconds as an ISO-8601 UTC string.
func FormatISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(ISOLayout)
}

// UnmarshalJSON decodes an entry object, keeping unknown fields.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*e = entryFromFields(fields)
	if ms, ok := readTimestamp(fields, fieldDate); ok {
		e.Date = ms
		e.timed = true
		delete(e.Extra, fieldDate)
	}
	if ms, ok := readTimestamp(fields, fieldMills); ok {
		e.Mills = ms
		e.timed = true
		delete(e.Extra, fieldMills)
	}
	return nil
}

// entryFromFields moves every known field with the expected type out of
// fields into an Entry. date and mills are left in Extra; callers decide how
// to treat them.
func entryFromFields(fields map[string]json.RawMessage) Entry {
	e := Entry{Extra: make(map[string]json.RawMessage, len(fields))}
	for k, v := range fields {
		e.Extra[k] = v
	}

	takeString := func(name string, dst *string) {
		if raw, ok := e.Extra[name]; ok && decodeString(raw, dst) {
			delete(e.Extra, name)
		}
	}
	takeNumber := func(name string, dst *json.Number) {
		if raw, ok := e.Extra[name]; ok && decodeNumber(raw, dst) {
			delete(e.Extra, name)
		}
	}

	takeString(fieldID, &e.ID)
	takeNumber(fieldSGV, &e.SGV)
	takeString(fieldDirection, &e.Direction)
	takeString(fieldType, &e.Type)
	takeString(fieldDevice, &e.Device)
	takeNumber(fieldDelta, &e.Delta)
	takeNumber(fieldUTCOffset, &e.UTCOffset)
	takeString(fieldDateString, &e.DateString)
	takeString(fieldSysTime, &e.SysTime)
	return e
}

// MarshalJSON writes known fields in a fixed order followed by the extra
// fields sorted by name.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true

	write := func(name string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		writeField(&buf, &first, name, raw)
		return nil
	}

	if e.ID != "" {
		if err := write(fieldID, e.ID); err != nil {
			return nil, err
		}
	}
	if e.SGV != "" {
		writeField(&buf, &first, fieldSGV, []byte(e.SGV))
	}
	if e.timed {
		if err := write(fieldDate, e.Date); err != nil {
			return nil, err
		}
		if err := write(fieldMills, e.Mills); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{fieldDateString, e.DateString},
		{fieldSysTime, e.SysTime},
		{fieldDirection, e.Direction},
		{fieldType, e.Type},
		{fieldDevice, e.Device},
	} {
		if f.value == "" {
			continue
		}
		if err := write(f.name, f.value); err != nil {
			return nil, err
		}
	}
	if e.Delta != "" {
		writeField(&buf, &first, fieldDelta, []byte(e.Delta))
	}
	if e.UTCOffset != "" {
		writeField(&buf, &first, fieldUTCOffset, []byte(e.UTCOffset))
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if e.timed && (k == fieldDate || k == fieldMills) {
			continue
		}
		writeField(&buf, &first, k, e.Extra[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, first *bool, name string, raw []byte) {
	if !*first {
		buf.WriteByte(',')
	}
	*first = false
	key, _ := json.Marshal(name) // strings always marshal
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(raw)
}

// decodeString reports whether raw is a JSON string and stores it in dst.
func decodeString(raw json.RawMessage, dst *string) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// decodeNumber reports whether raw is a JSON number and stores it in dst.
// Quoted numbers are not accepted.
func decodeNumber(raw json.RawMessage, dst *json.Number) bool {
	raw = bytes.TrimSpace(raw)
	if !isNumberLiteral(raw) {
		return false
	}
	*dst = json.Number(raw)
	return true
}

// isFalsy reports whether raw is null, false, zero or the empty string.
func isFalsy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "null", "false", `""`:
		return true
	}
	if isNumberLiteral(raw) {
		f, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && f == 0
	}
	return false
}

func isNumberLiteral(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	if c != '-' && (c < '0' || c > '9') {
		return false
	}
	var n json.Number
	return json.Unmarshal(raw, &n) == nil
}
