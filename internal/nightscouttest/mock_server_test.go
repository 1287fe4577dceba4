package nightscouttest

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestMockServer(t *testing.T) {
	ms := NewMockServer(t)
	ms.SetResponse("/api/v1/status.json", MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       map[string]string{"status": "down"},
	})

	resp, err := http.Post(ms.URL()+"/api/v1/entries?count=5", "application/json", strings.NewReader(`[{"sgv":1}]`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "[]" {
		t.Errorf("default reply = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ms.URL() + "/api/v1/status.json")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("configured reply = %d", resp.StatusCode)
	}

	reqs := ms.Requests()
	if len(reqs) != 2 || ms.RequestCount() != 2 {
		t.Fatalf("recorded %d requests", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Query.Get("count") != "5" || string(reqs[0].Body) != `[{"sgv":1}]` {
		t.Errorf("first request = %+v", reqs[0])
	}

	ms.Reset()
	if ms.RequestCount() != 0 {
		t.Error("Reset did not clear requests")
	}
}

func TestEntry(t *testing.T) {
	e := Entry(1_700_000_000_000, 120)
	if e["dateString"] != "2023-11-14T22:13:20.000Z" {
		t.Errorf("dateString = %v", e["dateString"])
	}
}
