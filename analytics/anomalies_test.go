package analytics

import (
	"strings"
	"testing"

	"github.com/monoledger/monoledger/ledger"
)

func mcc5814() *int {
	v := 5814
	return &v
}

func row(ts, amount int64, mcc *int, desc string) ClassifiedRow {
	r := ledger.Record{Time: ts, Amount: amount, MCC: mcc, Description: desc, AccountID: "a"}
	return ClassifiedRow{Record: r, Kind: Classify(amount, mcc, desc)}
}

func TestDetectAnomalies_SpikeAndFirstTimeLarge(t *testing.T) {
	now := int64(100 * 86400)
	var rows []ClassifiedRow
	for i := int64(1); i <= 10; i++ {
		rows = append(rows, row(now-i*86400, -10000, mcc5814(), "mcd"))
	}
	rows = append(rows, row(now-3600, -30000, mcc5814(), "mcd"))
	rows = append(rows, row(now-1800, -50000, nil, "new_merchant"))

	got := DetectAnomalies(rows, now, 28)

	var foundSpike, foundNew bool
	for _, a := range got {
		if strings.HasPrefix(a.Label, "mcd") && a.Reason == ReasonSpikeVsMedian {
			foundSpike = true
		}
		if strings.HasPrefix(a.Label, "new_merchant") && a.Reason == ReasonFirstTimeLarge {
			foundNew = true
		}
	}
	if !foundSpike {
		t.Errorf("expected a spike_vs_median anomaly for mcd, got %+v", got)
	}
	if !foundNew {
		t.Errorf("expected a first_time_large anomaly for new_merchant, got %+v", got)
	}
}

// A stable baseline with one big last-day outlier must trip
// spike_vs_median; a near-baseline last day must not. The baseline here sits
// above min_threshold, so the deciding term is spike_mult*median (50000),
// which exceeds both min_threshold and the dynamic floor (40000).
func TestDetectAnomalies_SpikeThreshold(t *testing.T) {
	now := int64(200 * 86400)
	var rows []ClassifiedRow
	for i := int64(4); i <= 13; i++ {
		rows = append(rows, row(now-i*86400, -25000, mcc5814(), "cafe"))
	}
	spikeRows := append(append([]ClassifiedRow(nil), rows...), row(now-3600, -150000, mcc5814(), "cafe"))
	got := DetectAnomalies(spikeRows, now, 28)
	var found bool
	for _, a := range got {
		if strings.HasPrefix(a.Label, "cafe") && a.Reason == ReasonSpikeVsMedian {
			found = true
		}
	}
	if !found {
		t.Errorf("expected spike_vs_median for cafe, got %+v", got)
	}

	calmRows := append(append([]ClassifiedRow(nil), rows...), row(now-3600, -26000, mcc5814(), "cafe"))
	got2 := DetectAnomalies(calmRows, now, 28)
	for _, a := range got2 {
		if strings.HasPrefix(a.Label, "cafe") {
			t.Errorf("did not expect an anomaly for a near-baseline last day, got %+v", a)
		}
	}
}
