package analytics

import (
	"strings"
	"testing"
)

func TestComputeTrends_GrowingAndDeclining(t *testing.T) {
	now := int64(100 * 86400)
	windowStart := now - 7*86400
	prevStart := windowStart - 7*86400

	var rows []ClassifiedRow
	rows = append(rows, row(prevStart+100, -1000, nil, "atb"))
	rows = append(rows, row(prevStart+200, -500, nil, "atb"))
	rows = append(rows, row(prevStart+300, -2000, nil, "mcd"))
	rows = append(rows, row(windowStart+100, -6000, nil, "mcd"))
	rows = append(rows, row(windowStart+200, -300, nil, "atb"))

	got := ComputeTrends(rows, now, 7)

	var growingHasMcd, decliningHasAtb bool
	for _, it := range got.TopGrowing {
		if strings.HasPrefix(it.Label, "mcd") {
			growingHasMcd = true
		}
	}
	for _, it := range got.TopDeclining {
		if strings.HasPrefix(it.Label, "atb") {
			decliningHasAtb = true
		}
	}
	if !growingHasMcd {
		t.Errorf("expected top_growing to include mcd, got %+v", got.TopGrowing)
	}
	if !decliningHasAtb {
		t.Errorf("expected top_declining to include atb, got %+v", got.TopDeclining)
	}
}

func TestComputeTrends_WindowClamp(t *testing.T) {
	got := ComputeTrends(nil, 1000, 1)
	if got.WindowDays != 3 {
		t.Errorf("window_days = %d, want clamped to 3", got.WindowDays)
	}
	got2 := ComputeTrends(nil, 1000, 90)
	if got2.WindowDays != 31 {
		t.Errorf("window_days = %d, want clamped to 31", got2.WindowDays)
	}
}
