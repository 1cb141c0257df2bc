package ai

import (
	"context"
	"testing"

	"github.com/monoledger/monoledger/analytics"
)

func TestParseReport_DirectJSON(t *testing.T) {
	raw := `{"summary":"ok","changes":["a","b"],"recs":["r1","r2","r3"],"next_step":"do x"}`
	rep, err := parseReport(raw)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary != "ok" || rep.NextStep != "do x" {
		t.Errorf("unexpected report: %+v", rep)
	}
	if len(rep.Recs) != 3 {
		t.Errorf("recs = %v, want 3 entries", rep.Recs)
	}
}

func TestParseReport_ExtractsEmbeddedJSON(t *testing.T) {
	raw := "Ось результат:\n```json\n{\"summary\":\"s\",\"changes\":[],\"recs\":[\"r\"],\"next_step\":\"n\"}\n```"
	rep, err := parseReport(raw)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary != "s" {
		t.Errorf("summary = %q, want s", rep.Summary)
	}
}

func TestParseReport_InvalidReturnsError(t *testing.T) {
	if _, err := parseReport("not json at all"); err == nil {
		t.Fatal("expected an error for unparsable output")
	}
}

func TestEnrich_NilClientDegradesGracefully(t *testing.T) {
	rep, ok := Enrich(context.Background(), nil, "week", analytics.Facts{}, nil)
	if ok || rep != nil {
		t.Errorf("expected ok=false, rep=nil for a nil client, got ok=%v rep=%+v", ok, rep)
	}
}

func TestEnrich_UnreachableClientDegradesGracefully(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "test-key", "gpt-4o-mini")
	rep, ok := Enrich(context.Background(), c, "week", analytics.Facts{}, nil)
	if ok || rep != nil {
		t.Errorf("expected ok=false, rep=nil for an unreachable endpoint, got ok=%v rep=%+v", ok, rep)
	}
}
