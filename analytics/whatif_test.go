package analytics

import "testing"

func TestBuildWhatIf_Taxi(t *testing.T) {
	var rows []ClassifiedRow
	rows = append(rows, row(1000, -20000, nil, "Uber trip"))
	rows = append(rows, row(2000, -30000, nil, "Bolt ride"))
	// Enough non-taxi spend that the taxi bucket stays under the
	// concentrated-share branch and emits the 10%/20% pair.
	rows = append(rows, row(3000, -200000, nil, "Grocery"))

	realSpendTotalUAH := minorToMajor(20000 + 30000 + 200000)
	got := BuildWhatIf(rows, 7, realSpendTotalUAH)

	var taxi *WhatIfSuggestion
	for i := range got {
		if got[i].Key == "taxi" {
			taxi = &got[i]
		}
	}
	if taxi == nil {
		t.Fatalf("expected a taxi suggestion, got %+v", got)
	}
	if taxi.MonthlySpendUAH <= 0 {
		t.Errorf("monthly_spend_uah = %v, want > 0", taxi.MonthlySpendUAH)
	}
	var has20 bool
	for _, sc := range taxi.Scenarios {
		if sc.ReductionPct == 20 {
			has20 = true
			if sc.MonthlySavings <= 0 {
				t.Errorf("20%% savings = %v, want > 0", sc.MonthlySavings)
			}
		}
	}
	if !has20 {
		t.Errorf("expected a 20%% reduction scenario, got %+v", taxi.Scenarios)
	}
}

func TestBuildWhatIf_CapsAtThree(t *testing.T) {
	var rows []ClassifiedRow
	rows = append(rows, row(1000, -100000, nil, "uber"))
	rows = append(rows, row(2000, -100000, nil, "glovo"))
	mcc := 5811
	rows = append(rows, row(3000, -100000, &mcc, "cafe one"))
	got := BuildWhatIf(rows, 7, minorToMajor(300000))
	if len(got) > 3 {
		t.Errorf("len(got) = %d, want <= 3", len(got))
	}
}
