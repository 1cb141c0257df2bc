package analytics

import (
	"testing"

	"github.com/monoledger/monoledger/calendar"
	"github.com/monoledger/monoledger/ledger"
)

func TestBuildPeriodReport_ComputesCompareBlock(t *testing.T) {
	now := int64(100 * 86400)
	window := calendar.LastNDays(now, 7)
	prev := calendar.Previous(window)

	records := []ledger.Record{
		{ID: "1", Time: window.Start + 100, AccountID: "a", Amount: -1000, Description: "atb"},
		{ID: "2", Time: prev.Start + 100, AccountID: "a", Amount: -500, Description: "atb"},
	}

	got := BuildPeriodReport(records, window, now)
	if got.Current.TransactionsCount != 1 {
		t.Errorf("current transactions = %d, want 1", got.Current.TransactionsCount)
	}
	if got.Previous.TransactionsCount != 1 {
		t.Errorf("previous transactions = %d, want 1", got.Previous.TransactionsCount)
	}
	if got.Compare.Totals.PctSpend == nil {
		t.Errorf("expected a non-nil pct_change for spend totals")
	}
}
