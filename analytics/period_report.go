package analytics

import (
	"github.com/monoledger/monoledger/calendar"
	"github.com/monoledger/monoledger/ledger"
)

// PeriodReport assembles current/previous facts, their comparison, and the
// trend/anomaly blocks attached to current facts — the object that is
// ultimately cached by reportcache.
type PeriodReport struct {
	Current  Facts        `json:"current"`
	Previous Facts        `json:"previous"`
	Compare  CompareBlock `json:"compare"`
}

// BuildPeriodReport classifies a records slice spanning at least two
// periods of window into current/previous facts, computes the comparison
// block, and attaches trends/anomalies/whatif to the current facts.
// records must already be loaded across Previous(window).Start..window.End.
func BuildPeriodReport(records []ledger.Record, window calendar.Range, nowTS int64) PeriodReport {
	prevWindow := calendar.Previous(window)

	var currentRecords, prevRecords []ledger.Record
	for _, r := range records {
		switch {
		case r.Time >= window.Start && r.Time < window.End:
			currentRecords = append(currentRecords, r)
		case r.Time >= prevWindow.Start && r.Time < prevWindow.End:
			prevRecords = append(prevRecords, r)
		}
	}

	currentRows := ClassifyRows(currentRecords)
	prevRows := ClassifyRows(prevRecords)

	currentFacts := ComputeFacts(currentRows)
	prevFacts := ComputeFacts(prevRows)

	periodDays := int(window.Days())
	if periodDays <= 0 {
		periodDays = 1
	}
	currentFacts.WhatIf = BuildWhatIf(currentRows, periodDays, currentFacts.Totals.RealSpendTotalUAH)
	trends := ComputeTrends(currentRows, nowTS, 7)
	currentFacts.Trends = &trends
	currentFacts.Anomalies = DetectAnomalies(currentRows, nowTS, 28)

	compare := CompareBlock{
		Totals:     compareTotals(currentFacts.Totals, prevFacts.Totals),
		Categories: compareCategories(currentFacts.CategoriesRealSpendUAH, prevFacts.CategoriesRealSpendUAH),
	}
	currentFacts.Compare = &compare

	return PeriodReport{Current: currentFacts, Previous: prevFacts, Compare: compare}
}
