package forward

import (
	"bytes"
	"encoding/json"
)

// Projection reduces JSON objects in upstream responses to a fixed set of
// fields. A nil *Projection leaves bodies untouched.
type Projection struct {
	fields []string
}

// NewProjection returns a Projection for fields, or nil when fields is empty.
func NewProjection(fields []string) *Projection {
	kept := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return nil
	}
	return &Projection{fields: kept}
}

// Fields returns the projected field names in output order.
func (p *Projection) Fields() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.fields...)
}

// Apply projects body when it is a JSON object or an array. Array elements
// that are not objects are kept as they are. Any other body, including
// invalid JSON, is returned unchanged.
func (p *Projection) Apply(body []byte) []byte {
	if p == nil {
		return body
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return body
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return body
		}
		return p.object(obj)

	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return body
		}
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			var obj map[string]json.RawMessage
			if t := bytes.TrimSpace(elem); len(t) > 0 && t[0] == '{' && json.Unmarshal(t, &obj) == nil {
				buf.Write(p.object(obj))
				continue
			}
			buf.Write(elem)
		}
		buf.WriteByte(']')
		return buf.Bytes()
	}
	return body
}

func (p *Projection) object(obj map[string]json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, f := range p.fields {
		v, ok := obj[f]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(f)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}
