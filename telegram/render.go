package telegram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/monoledger/monoledger/analytics"
	"github.com/monoledger/monoledger/reportcache"
)

var periodTitles = map[reportcache.Period]string{
	reportcache.PeriodToday: "Сьогодні",
	reportcache.PeriodWeek:  "Останні 7 днів",
	reportcache.PeriodMonth: "Останні 30 днів",
}

func fmtMoney(v float64) string {
	return fmt.Sprintf("%.2f грн", v)
}

func fmtSignedPct(p *float64) string {
	if p == nil {
		return "—"
	}
	if *p >= 0 {
		return fmt.Sprintf("+%.1f%%", *p)
	}
	return fmt.Sprintf("%.1f%%", *p)
}

// Render turns one period's facts into the plain-text report message, with
// an optional AI narrative section prepended. Grounded in
// bot/templates.py's render_report.
func Render(period reportcache.Period, facts analytics.Facts, ai *aiSection) string {
	title := periodTitles[period]
	if title == "" {
		title = string(period)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)

	if ai != nil {
		b.WriteString(ai.Summary)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Реальні витрати (без переказів): %s\n", fmtMoney(facts.Totals.RealSpendTotalUAH))
	fmt.Fprintf(&b, "Всі списання: %s\n", fmtMoney(facts.Totals.SpendTotalUAH))
	fmt.Fprintf(&b, "Надходження: %s\n", fmtMoney(facts.Totals.IncomeTotalUAH))
	fmt.Fprintf(&b, "Перекази: +%s / -%s\n", fmtMoney(facts.Totals.TransferInTotalUAH), fmtMoney(facts.Totals.TransferOutTotalUAH))
	fmt.Fprintf(&b, "Транзакцій: %d\n", facts.TransactionsCount)

	if facts.Compare != nil {
		b.WriteString("\nЗміна проти попереднього періоду:\n")
		fmt.Fprintf(&b, "  Реальні витрати: %s\n", fmtSignedPct(facts.Compare.Totals.PctRealSpend))
	}

	if len(facts.TopCategoriesNamedRealSpend) > 0 {
		b.WriteString("\nТоп категорій:\n")
		for i, e := range top(facts.TopCategoriesNamedRealSpend, 5) {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, e.Label, fmtMoney(e.AmountUAH))
		}
	}

	if len(facts.TopMerchantsRealSpend) > 0 {
		b.WriteString("\nТоп мерчантів:\n")
		for i, e := range top(facts.TopMerchantsRealSpend, 5) {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, e.Label, fmtMoney(e.AmountUAH))
		}
	}

	if facts.Trends != nil && (len(facts.Trends.TopGrowing) > 0 || len(facts.Trends.TopDeclining) > 0) {
		b.WriteString("\nТренди:\n")
		for _, t := range facts.Trends.TopGrowing {
			fmt.Fprintf(&b, "  ▲ %s: %+.1f%%\n", t.Label, t.DeltaPct*100)
		}
		for _, t := range facts.Trends.TopDeclining {
			fmt.Fprintf(&b, "  ▼ %s: %.1f%%\n", t.Label, t.DeltaPct*100)
		}
	}

	if len(facts.Anomalies) > 0 {
		b.WriteString("\nПомічено незвичне:\n")
		for _, a := range facts.Anomalies {
			fmt.Fprintf(&b, "  • %s: %s (%s)\n", a.Label, fmtMoney(analytics.MinorToMajor(a.LastDayCents)), a.Reason)
		}
	}

	if len(facts.WhatIf) > 0 {
		b.WriteString("\nЯкщо скоротити:\n")
		for _, w := range facts.WhatIf {
			if len(w.Scenarios) == 0 {
				continue
			}
			best := w.Scenarios[len(w.Scenarios)-1]
			fmt.Fprintf(&b, "  • %s: -%d%% ≈ заощадите %s/міс\n", w.Title, best.ReductionPct, fmtMoney(best.MonthlySavings))
		}
	}

	if ai != nil && len(ai.NextStep) > 0 {
		fmt.Fprintf(&b, "\nНаступний крок: %s\n", ai.NextStep)
	}

	return b.String()
}

func top(entries []analytics.AmountEntry, n int) []analytics.AmountEntry {
	out := append([]analytics.AmountEntry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].AmountUAH > out[j].AmountUAH })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// aiSection is the optional narrative block layered on top of the plain
// facts report.
type aiSection struct {
	Summary  string
	NextStep string
}
