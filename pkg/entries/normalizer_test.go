package entries

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// 2024-01-01T00:00:00Z
var fixedNow = time.UnixMilli(1_704_067_200_000).UTC()

func newTestNormalizer() *Normalizer {
	return NewNormalizer(Options{Now: func() time.Time { return fixedNow }})
}

func decodeObject(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("output is not a JSON object: %v: %s", err, data)
	}
	return m
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name       string
		input      string
		wantResult Result
		wantMs     int64
	}{
		{"date only", `{"date":1704060000000,"sgv":120}`, Accepted, 1704060000000},
		{"mills only", `{"mills":1704060000000,"sgv":120}`, Accepted, 1704060000000},
		{"date wins over mills", `{"date":1704060000000,"mills":1700000000000}`, Accepted, 1704060000000},
		{"non-numeric date falls through", `{"date":"yesterday","mills":1704060000000}`, Accepted, 1704060000000},
		{"quoted number is not a number", `{"date":"1704060000000"}`, DroppedMissing, 0},
		{"null date falls through", `{"date":null,"mills":1704060000000}`, Accepted, 1704060000000},
		{"fraction is floored", `{"date":1704060000000.9}`, Accepted, 1704060000000},
		{"exponent notation", `{"date":1.70406e12}`, Accepted, 1704060000000},
		{"doubled timestamp is halved", `{"date":3408120000000}`, Repaired, 1704060000000},
		{"odd doubled timestamp is floored", `{"date":3408120000001}`, Repaired, 1704060000000},
		{"threshold itself is not halved", `{"date":3000000000000}`, DroppedFuture, 0},
		{"within tolerance", `{"date":1704074400000}`, Accepted, 1704074400000},
		{"beyond tolerance", `{"date":1704074400001}`, DroppedFuture, 0},
		{"halved still in future", `{"date":3500000000000}`, DroppedFuture, 0},
		{"fraction halved before flooring", `{"date":3408120000000.5}`, Repaired, 1704060000000},
		{"fraction above threshold is halved", `{"date":3000000000000.5}`, Repaired, 1500000000000},
		{"fraction beyond tolerance", `{"date":1704074400000.5}`, DroppedFuture, 0},
		{"largest int64", `{"date":9223372036854775807}`, DroppedFuture, 0},
		{"just past int64", `{"date":9223372036854775808}`, DroppedFuture, 0},
		{"fraction past int64", `{"date":9223372036854775807.5}`, DroppedFuture, 0},
		{"huge exponent", `{"date":1e30}`, DroppedFuture, 0},
		{"below int64", `{"date":-1e19}`, DroppedMissing, 0},
		{"no timestamp", `{"sgv":120}`, DroppedMissing, 0},
		{"zero timestamp", `{"date":0}`, Accepted, 0},
		{"not an object", `120`, DroppedInvalid, 0},
		{"array element", `[1]`, DroppedInvalid, 0},
		{"empty", ``, DroppedInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, result := n.Normalize(json.RawMessage(tt.input))
			if result != tt.wantResult {
				t.Fatalf("result = %v, want %v", result, tt.wantResult)
			}
			if !result.Kept() {
				return
			}
			if e.Date != tt.wantMs || e.Mills != tt.wantMs {
				t.Errorf("date/mills = %d/%d, want %d", e.Date, e.Mills, tt.wantMs)
			}
			iso := FormatISO(tt.wantMs)
			if e.DateString != iso || e.SysTime != iso {
				t.Errorf("dateString/sysTime = %q/%q, want %q", e.DateString, e.SysTime, iso)
			}
		})
	}
}

func TestNormalize_ExampleFromProducer(t *testing.T) {
	n := newTestNormalizer()

	e, result := n.Normalize(json.RawMessage(`{"date":3408120000000,"sgv":120}`))
	if result != Repaired {
		t.Fatalf("expected Repaired, got %v", result)
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := decodeObject(t, out)

	want := map[string]any{
		"date":       float64(1704060000000),
		"mills":      float64(1704060000000),
		"dateString": "2023-12-31T22:00:00.000Z",
		"sysTime":    "2023-12-31T22:00:00.000Z",
		"type":       "sgv",
		"sgv":        float64(120),
	}
	if len(got) != len(want) {
		t.Errorf("got fields %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestNormalize_Type(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"absent", `{"date":1704060000000}`, "sgv"},
		{"empty", `{"date":1704060000000,"type":""}`, "sgv"},
		{"null", `{"date":1704060000000,"type":null}`, "sgv"},
		{"kept", `{"date":1704060000000,"type":"mbg"}`, "mbg"},
		{"non-string kept", `{"date":1704060000000,"type":7}`, float64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, result := n.Normalize(json.RawMessage(tt.input))
			if !result.Kept() {
				t.Fatalf("unexpected result %v", result)
			}
			out, err := json.Marshal(e)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if got := decodeObject(t, out)["type"]; got != tt.want {
				t.Errorf("type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_PassesThroughUnknownFields(t *testing.T) {
	n := newTestNormalizer()
	input := `{"date":1704060000000,"sgv":"high","noise":1,"nested":{"a":[1,2]},"direction":"Flat","_id":"abc","dateString":"stale"}`

	e, result := n.Normalize(json.RawMessage(input))
	if result != Accepted {
		t.Fatalf("unexpected result %v", result)
	}
	if e.ID != "abc" || e.Direction != "Flat" {
		t.Errorf("known fields not decoded: %+v", e)
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)
	for _, frag := range []string{`"sgv":"high"`, `"noise":1`, `"nested":{"a":[1,2]}`, `"dateString":"2023-12-31T22:00:00.000Z"`} {
		if !strings.Contains(s, frag) {
			t.Errorf("output %s missing %s", s, frag)
		}
	}
	if strings.Contains(s, "stale") {
		t.Errorf("dateString was not rewritten: %s", s)
	}
}

func TestNormalize_CustomThresholds(t *testing.T) {
	n := NewNormalizer(Options{
		FutureTolerance:  time.Minute,
		DoubledThreshold: 2_000_000_000_000,
		Now:              func() time.Time { return fixedNow },
	})

	if _, result := n.Normalize(json.RawMessage(`{"date":1704067260001}`)); result != DroppedFuture {
		t.Errorf("expected DroppedFuture with a one minute tolerance, got %v", result)
	}
	e, result := n.Normalize(json.RawMessage(`{"date":2100000000000}`))
	if result != Repaired || e.Date != 1050000000000 {
		t.Errorf("expected halving above custom threshold, got %v %d", result, e.Date)
	}
}

func TestNormalizeBatch(t *testing.T) {
	n := newTestNormalizer()

	payload := `[
		{"date":1704060000000,"sgv":100},
		{"date":99999999999999,"sgv":101},
		{"sgv":102},
		"garbage",
		{"mills":3408120000000,"sgv":103},
		{"date":1704063600000,"sgv":104}
	]`

	batch, stats, err := n.NormalizeBatch([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if batch.Len() != 3 {
		t.Fatalf("expected 3 kept entries, got %d", batch.Len())
	}
	wantSGV := []string{"100", "103", "104"}
	for i, e := range batch.Entries {
		if string(e.SGV) != wantSGV[i] {
			t.Errorf("entry %d sgv = %s, want %s (order not preserved)", i, e.SGV, wantSGV[i])
		}
	}

	if stats.Count(Accepted) != 2 || stats.Count(Repaired) != 1 {
		t.Errorf("kept counts = %d accepted, %d repaired", stats.Count(Accepted), stats.Count(Repaired))
	}
	if stats.Count(DroppedFuture) != 1 || stats.Count(DroppedMissing) != 1 || stats.Count(DroppedInvalid) != 1 {
		t.Errorf("unexpected drop counts: %+v", stats)
	}
	if stats.Total() != 6 || stats.Kept() != 3 || stats.Dropped() != 3 {
		t.Errorf("totals = %d/%d/%d", stats.Total(), stats.Kept(), stats.Dropped())
	}

	out, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if out[0] != '[' {
		t.Errorf("array payload should marshal as array: %s", out)
	}
}

func TestNormalizeBatch_Shapes(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name      string
		payload   string
		wantEmpty bool
		wantShape byte
		wantErr   bool
	}{
		{name: "single object", payload: `{"date":1704060000000}`, wantShape: '{'},
		{name: "single dropped object", payload: `{"sgv":5}`, wantEmpty: true},
		{name: "empty array", payload: `[]`, wantEmpty: true},
		{name: "all dropped", payload: `[{"sgv":1},{"date":"x"}]`, wantEmpty: true},
		{name: "empty body", payload: ``, wantEmpty: true},
		{name: "whitespace body", payload: " \n\t", wantEmpty: true},
		{name: "null", payload: `null`, wantEmpty: true},
		{name: "one element array", payload: `[{"date":1704060000000}]`, wantShape: '['},
		{name: "malformed", payload: `[{"date":`, wantErr: true},
		{name: "malformed object", payload: `{"date"}`, wantErr: true},
		{name: "scalar", payload: `42`, wantErr: true},
		{name: "string", payload: `"hello"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, _, err := n.NormalizeBatch([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Fatalf("expected ErrMalformedPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if batch.Empty() != tt.wantEmpty {
				t.Fatalf("Empty() = %v, want %v", batch.Empty(), tt.wantEmpty)
			}
			if tt.wantEmpty {
				return
			}
			out, err := json.Marshal(batch)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if out[0] != tt.wantShape {
				t.Errorf("shape = %c, want %c: %s", out[0], tt.wantShape, out)
			}
		})
	}
}

func TestResultString(t *testing.T) {
	for _, r := range Results {
		if r.String() == "unknown" {
			t.Errorf("result %d has no name", r)
		}
	}
	if Result(99).String() != "unknown" {
		t.Error("out of range result should be unknown")
	}
}

func BenchmarkNormalizeBatch(b *testing.B) {
	n := newTestNormalizer()
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < 288; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(`{"date":3408120000000,"sgv":120,"direction":"Flat","device":"gm"}`)
	}
	sb.WriteByte(']')
	payload := []byte(sb.String())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := n.NormalizeBatch(payload); err != nil {
			b.Fatal(err)
		}
	}
}
