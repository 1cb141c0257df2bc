package profile

import (
	"testing"

	"github.com/monoledger/monoledger/ledger"
)

func mcc(v int) *int { return &v }

func TestBuild_EmptyRecords(t *testing.T) {
	p := Build(nil)
	if p.RealSpendTxCount != 0 || p.TotalRealSpendUAH != 0 {
		t.Errorf("expected zero profile, got %+v", p)
	}
}

func TestBuild_ComputesAverageCheck(t *testing.T) {
	records := []ledger.Record{
		{ID: "1", Time: 1, AccountID: "a", Amount: -10000, Description: "Silpo", MCC: mcc(5411)},
		{ID: "2", Time: 2, AccountID: "a", Amount: -20000, Description: "Silpo", MCC: mcc(5411)},
		{ID: "3", Time: 3, AccountID: "a", Amount: 500000, Description: "Salary"},
	}
	p := Build(records)

	if p.RealSpendTxCount != 2 {
		t.Errorf("real_spend_tx_count = %d, want 2", p.RealSpendTxCount)
	}
	if p.TotalRealSpendUAH != 300.0 {
		t.Errorf("total_real_spend_uah = %.2f, want 300.00", p.TotalRealSpendUAH)
	}
	if p.AvgCheckUAH != 150.0 {
		t.Errorf("avg_check_uah = %.2f, want 150.00", p.AvgCheckUAH)
	}
	if len(p.TopMerchantsLongTerm) != 1 || p.TopMerchantsLongTerm[0].Name != "Silpo" {
		t.Errorf("top merchants = %+v", p.TopMerchantsLongTerm)
	}
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := Profile{AvgCheckUAH: 42.5, TotalRealSpendUAH: 1000, RealSpendTxCount: 10}
	if err := store.Save(7, p); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(7)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.AvgCheckUAH != 42.5 {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestStore_LoadMissingReturnsNil(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p, err := store.Load(999)
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("expected nil for missing profile, got %+v", p)
	}
}
