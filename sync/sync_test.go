package sync

import "testing"

func TestIterStatementWindows_BoundedSteps(t *testing.T) {
	start := int64(0)
	end := int64(100 * 86400)
	got := iterStatementWindows(start, end)
	if len(got) == 0 {
		t.Fatal("expected at least one window")
	}
	if got[0].from != start {
		t.Errorf("first window from = %d, want %d", got[0].from, start)
	}
	if got[len(got)-1].to != end {
		t.Errorf("last window to = %d, want %d", got[len(got)-1].to, end)
	}
	for _, w := range got {
		if w.to-w.from > maxRangeSeconds {
			t.Errorf("window span %d exceeds max %d", w.to-w.from, maxRangeSeconds)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].from != got[i-1].to {
			t.Errorf("windows not contiguous at %d: prev.to=%d cur.from=%d", i, got[i-1].to, got[i].from)
		}
	}
}

func TestIterStatementWindows_EmptyRange(t *testing.T) {
	if got := iterStatementWindows(100, 100); got != nil {
		t.Errorf("expected nil for empty range, got %v", got)
	}
	if got := iterStatementWindows(100, 50); got != nil {
		t.Errorf("expected nil for inverted range, got %v", got)
	}
}
