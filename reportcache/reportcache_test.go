package reportcache

import (
	"encoding/json"
	"testing"
)

type sampleFacts struct {
	TransactionsCount int     `json:"transactions_count"`
	RealSpendUAH      float64 `json:"real_spend_uah"`
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := sampleFacts{TransactionsCount: 5, RealSpendUAH: 123.45}
	if err := s.Save(1, PeriodWeek, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	env, err := s.Load(1, PeriodWeek)
	if err != nil || env == nil {
		t.Fatalf("Load = (%v, %v)", env, err)
	}
	if env.Period != PeriodWeek {
		t.Errorf("Period = %q, want %q", env.Period, PeriodWeek)
	}

	var got sampleFacts
	if err := json.Unmarshal(env.Facts, &got); err != nil {
		t.Fatalf("unmarshal facts: %v", err)
	}
	if got != want {
		t.Errorf("facts round-trip = %+v, want %+v", got, want)
	}
}

func TestLoad_Absent(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env, err := s.Load(1, PeriodToday)
	if err != nil || env != nil {
		t.Errorf("Load(absent) = (%v, %v), want (nil, nil)", env, err)
	}
}

func TestSave_OverwritesInPlace(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Save(1, PeriodToday, sampleFacts{TransactionsCount: 1})
	s.Save(1, PeriodToday, sampleFacts{TransactionsCount: 2})

	env, _ := s.Load(1, PeriodToday)
	var got sampleFacts
	json.Unmarshal(env.Facts, &got)
	if got.TransactionsCount != 2 {
		t.Errorf("TransactionsCount = %d, want 2 after overwrite", got.TransactionsCount)
	}
}

