package analytics

// PctChange returns (current-prev)/prev*100 rounded to 2 decimals, or nil
// (the absent sentinel) when prev is zero. Grounded in analytics/compare.py.
func PctChange(current, prev float64) *float64 {
	if prev == 0 {
		return nil
	}
	v := roundHalfEven(((current-prev)/prev)*100.0, 2)
	return &v
}

// TotalsComparison is the delta + pct-change block over the five headline
// totals.
type TotalsComparison struct {
	DeltaIncomeUAH        float64  `json:"delta_income_total_uah"`
	PctIncome             *float64 `json:"pct_change_income_total,omitempty"`
	DeltaSpendUAH         float64  `json:"delta_spend_total_uah"`
	PctSpend              *float64 `json:"pct_change_spend_total,omitempty"`
	DeltaTransferInUAH    float64  `json:"delta_transfer_in_total_uah"`
	PctTransferIn         *float64 `json:"pct_change_transfer_in_total,omitempty"`
	DeltaTransferOutUAH   float64  `json:"delta_transfer_out_total_uah"`
	PctTransferOut        *float64 `json:"pct_change_transfer_out_total,omitempty"`
	DeltaRealSpendUAH     float64  `json:"delta_real_spend_total_uah"`
	PctRealSpend          *float64 `json:"pct_change_real_spend_total,omitempty"`
}

func compareTotals(current, prev Totals) TotalsComparison {
	return TotalsComparison{
		DeltaIncomeUAH:      roundHalfEven(current.IncomeTotalUAH-prev.IncomeTotalUAH, 2),
		PctIncome:           PctChange(current.IncomeTotalUAH, prev.IncomeTotalUAH),
		DeltaSpendUAH:       roundHalfEven(current.SpendTotalUAH-prev.SpendTotalUAH, 2),
		PctSpend:            PctChange(current.SpendTotalUAH, prev.SpendTotalUAH),
		DeltaTransferInUAH:  roundHalfEven(current.TransferInTotalUAH-prev.TransferInTotalUAH, 2),
		PctTransferIn:       PctChange(current.TransferInTotalUAH, prev.TransferInTotalUAH),
		DeltaTransferOutUAH: roundHalfEven(current.TransferOutTotalUAH-prev.TransferOutTotalUAH, 2),
		PctTransferOut:      PctChange(current.TransferOutTotalUAH, prev.TransferOutTotalUAH),
		DeltaRealSpendUAH:   roundHalfEven(current.RealSpendTotalUAH-prev.RealSpendTotalUAH, 2),
		PctRealSpend:        PctChange(current.RealSpendTotalUAH, prev.RealSpendTotalUAH),
	}
}

// CategoryComparison is one category's current/previous/delta/pct entry.
type CategoryComparison struct {
	CurrentUAH float64  `json:"current_uah"`
	PrevUAH    float64  `json:"prev_uah"`
	DeltaUAH   float64  `json:"delta_uah"`
	PctChange  *float64 `json:"pct_change,omitempty"`
}

func compareCategories(current, prev map[string]float64) map[string]CategoryComparison {
	out := map[string]CategoryComparison{}
	for k := range current {
		out[k] = CategoryComparison{}
	}
	for k := range prev {
		out[k] = CategoryComparison{}
	}
	for k := range out {
		c := current[k]
		p := prev[k]
		out[k] = CategoryComparison{
			CurrentUAH: roundHalfEven(c, 2),
			PrevUAH:    roundHalfEven(p, 2),
			DeltaUAH:   roundHalfEven(c-p, 2),
			PctChange:  PctChange(c, p),
		}
	}
	return out
}

// CompareBlock is the current-vs-previous comparison embedded in a period
// report.
type CompareBlock struct {
	Totals     TotalsComparison               `json:"totals"`
	Categories map[string]CategoryComparison  `json:"categories_real_spend"`
}

// BaselineComparison is the compare_to_baseline NLQ intent's result:
// yesterday's total against the lookback-window daily median for the same
// filter. Grounded in analytics/compare.py's compare_yesterday_to_baseline.
type BaselineComparison struct {
	YesterdayCents        int64 `json:"yesterday_cents"`
	BaselineMedianCents   int64 `json:"baseline_median_cents"`
	DeltaCents            int64 `json:"delta_cents"`
}

// CompareYesterdayToBaseline sums real-spend cents in [today0-86400, today0)
// matching filter, and compares it against the median of per-day spend
// sums over [today0-lookbackDays*86400, today0-86400), the same filter.
func CompareYesterdayToBaseline(records []ClassifiedRow, nowTS int64, lookbackDays int, filter func(ClassifiedRow) bool) BaselineComparison {
	if lookbackDays <= 0 {
		lookbackDays = 28
	}
	today0 := (nowTS / 86400) * 86400
	yesterdayStart := today0 - 86400
	histStart := today0 - int64(lookbackDays)*86400

	var yesterdayCents int64
	dailyTotals := map[int64]int64{}

	for _, r := range records {
		if r.Kind != KindSpend || !filter(r) {
			continue
		}
		cents := abs64(r.Amount)
		if r.Time >= yesterdayStart && r.Time < today0 {
			yesterdayCents += cents
		}
		if r.Time >= histStart && r.Time < yesterdayStart {
			day := r.Time / 86400
			dailyTotals[day] += cents
		}
	}

	vals := make([]int64, 0, len(dailyTotals))
	for _, v := range dailyTotals {
		vals = append(vals, v)
	}
	baseMed := median(vals)

	return BaselineComparison{
		YesterdayCents:      yesterdayCents,
		BaselineMedianCents: baseMed,
		DeltaCents:          yesterdayCents - baseMed,
	}
}
