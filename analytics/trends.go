package analytics

import (
	"sort"
	"strings"
)

// TrendItem is one merchant's two-window spend delta.
type TrendItem struct {
	Label      string  `json:"label"`
	PrevCents  int64   `json:"prev_cents"`
	LastCents  int64   `json:"last_cents"`
	DeltaCents int64   `json:"delta_cents"`
	DeltaPct   float64 `json:"delta_pct"`
}

// TrendsResult is a two-window per-label delta ranking.
type TrendsResult struct {
	WindowDays   int         `json:"window_days"`
	LastStartTS  int64       `json:"last_start_ts"`
	PrevStartTS  int64       `json:"prev_start_ts"`
	TopGrowing   []TrendItem `json:"top_growing"`
	TopDeclining []TrendItem `json:"top_declining"`
}

// normalizeMerchantLabel lowercases, trims, and bounds a description to 48
// chars, matching trends.py's _bucket_merchant.
func normalizeMerchantLabel(description string) string {
	s := strings.ToLower(strings.TrimSpace(description))
	if s == "" {
		return "unknown"
	}
	if len(s) > 48 {
		s = s[:48]
	}
	return s
}

// ComputeTrends partitions spend rows by normalized merchant label into a
// "last" window [now-W, now) and a "previous" window [now-2W, now-W), and
// returns the top 3 growing and top 3 declining merchants by cents delta.
// windowDays is clamped to [3, 31], grounded in analytics/trends.py.
func ComputeTrends(records []ClassifiedRow, nowTS int64, windowDays int) TrendsResult {
	if windowDays < 3 {
		windowDays = 3
	}
	if windowDays > 31 {
		windowDays = 31
	}

	lastStart := nowTS - int64(windowDays)*86400
	prevStart := lastStart - int64(windowDays)*86400
	prevEnd := lastStart

	lastBy := map[string]int64{}
	prevBy := map[string]int64{}

	for _, r := range records {
		if r.Kind != KindSpend {
			continue
		}
		label := normalizeMerchantLabel(r.Description)
		cents := abs64(r.Amount)
		switch {
		case r.Time >= prevStart && r.Time < prevEnd:
			prevBy[label] += cents
		case r.Time >= lastStart && r.Time < nowTS:
			lastBy[label] += cents
		}
	}

	labels := map[string]bool{}
	for l := range prevBy {
		labels[l] = true
	}
	for l := range lastBy {
		labels[l] = true
	}

	items := make([]TrendItem, 0, len(labels))
	for label := range labels {
		p := prevBy[label]
		last := lastBy[label]
		delta := last - p
		var pct float64
		if p > 0 {
			pct = float64(delta) / float64(p)
		} else if last > 0 {
			pct = 1.0
		}
		items = append(items, TrendItem{
			Label:      label,
			PrevCents:  p,
			LastCents:  last,
			DeltaCents: delta,
			DeltaPct:   pct,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].DeltaCents != items[j].DeltaCents {
			return items[i].DeltaCents > items[j].DeltaCents
		}
		return items[i].Label < items[j].Label
	})

	var growing, declining []TrendItem
	for _, it := range items {
		if it.DeltaCents > 0 && len(growing) < 3 {
			growing = append(growing, it)
		}
	}
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].DeltaCents < 0 && len(declining) < 3 {
			declining = append(declining, items[i])
		}
	}

	return TrendsResult{
		WindowDays:   windowDays,
		LastStartTS:  lastStart,
		PrevStartTS:  prevStart,
		TopGrowing:   growing,
		TopDeclining: declining,
	}
}
