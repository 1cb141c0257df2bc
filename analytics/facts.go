// Package analytics computes facts, category rollups, period comparisons,
// trend vectors, anomaly detection and what-if savings over classified
// ledger rows.
package analytics

import (
	"sort"

	"github.com/monoledger/monoledger/ledger"
)

// ClassifiedRow pairs a ledger record with its derived kind.
type ClassifiedRow struct {
	ledger.Record
	Kind Kind
}

// ClassifyRows derives the Kind of every row; never persisted.
func ClassifyRows(records []ledger.Record) []ClassifiedRow {
	out := make([]ClassifiedRow, len(records))
	for i, r := range records {
		out[i] = ClassifiedRow{Record: r, Kind: Classify(r.Amount, r.MCC, r.Description)}
	}
	return out
}

// AmountEntry is a (label, amount) pair used in ordered top-N lists.
type AmountEntry struct {
	Label     string  `json:"label"`
	AmountUAH float64 `json:"amount_uah"`
}

// AccountTotals is one account's count and per-direction totals.
type AccountTotals struct {
	Count             int     `json:"count"`
	IncomeUAH         float64 `json:"income_uah"`
	SpendUAH          float64 `json:"spend_uah"`
	TransferInUAH     float64 `json:"transfer_in_uah"`
	TransferOutUAH    float64 `json:"transfer_out_uah"`
}

// Totals are the period's headline sums, all in major units.
type Totals struct {
	IncomeTotalUAH       float64 `json:"income_total_uah"`
	SpendTotalUAH        float64 `json:"spend_total_uah"` // cash-out: spend + transfer_out
	TransferInTotalUAH   float64 `json:"transfer_in_total_uah"`
	TransferOutTotalUAH  float64 `json:"transfer_out_total_uah"`
	RealSpendTotalUAH    float64 `json:"real_spend_total_uah"`
}

// Facts is the serialized analytics object cached per (user, period). Key
// names are part of the on-disk and AI-prompt contract; do not rename.
type Facts struct {
	TransactionsCount               int                      `json:"transactions_count"`
	Totals                          Totals                   `json:"totals"`
	CategoryMethod                  string                   `json:"category_method"`
	CategoriesRealSpendUAH          map[string]float64       `json:"categories_real_spend"`
	CategorySharesRealSpend         map[string]float64       `json:"category_shares_real_spend"`
	TopMerchantsSharesRealSpend     map[string]float64       `json:"top_merchants_shares_real_spend"`
	TopCategoriesNamedRealSpend     []AmountEntry            `json:"top_categories_named_real_spend"`
	UncategorizedRealSpendTotalUAH  float64                  `json:"uncategorized_real_spend_total_uah"`
	TopMerchantsRealSpend           []AmountEntry            `json:"top_merchants_real_spend"`
	TopCategoriesRealSpend          []AmountEntry            `json:"top_categories_real_spend"`
	ByAccount                       map[string]AccountTotals `json:"by_account"`
	Trends                          *TrendsResult            `json:"trends,omitempty"`
	Anomalies                       []AnomalyItem            `json:"anomalies,omitempty"`
	Compare                         *CompareBlock            `json:"compare,omitempty"`
	WhatIf                          []WhatIfSuggestion       `json:"whatif_suggestions,omitempty"`
}

func shares(amountsUAH map[string]float64, totalUAH float64) map[string]float64 {
	out := make(map[string]float64, len(amountsUAH))
	for k, v := range amountsUAH {
		if totalUAH <= 0 {
			out[k] = 0
			continue
		}
		out[k] = roundHalfEven((v/totalUAH)*100.0, 1)
	}
	return out
}

// topNEntries returns the top-n (label, minor-amount) pairs, strictly
// descending by amount, ties broken by label ascending.
func topNEntries(amountsMinor map[string]int64, n int) []AmountEntry {
	type kv struct {
		label string
		minor int64
	}
	entries := make([]kv, 0, len(amountsMinor))
	for k, v := range amountsMinor {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].minor != entries[j].minor {
			return entries[i].minor > entries[j].minor
		}
		return entries[i].label < entries[j].label
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]AmountEntry, len(entries))
	for i, e := range entries {
		out[i] = AmountEntry{Label: e.label, AmountUAH: minorToMajor(e.minor)}
	}
	return out
}

// ComputeFacts is a pure function of classified rows: same input, same
// output. Mirrors compute.py field-for-field.
func ComputeFacts(rows []ClassifiedRow) Facts {
	var spendTotal, incomeTotal, transferOutTotal, transferInTotal int64

	byAccount := map[string]*struct {
		count                                int
		spend, income, transferOut, transferIn int64
	}{}

	merchantSpend := map[string]int64{}
	mccSpend := map[string]int64{}
	categoryRealSpend := map[string]int64{}
	var uncategorizedRealSpend int64

	for _, r := range rows {
		acc := byAccount[r.AccountID]
		if acc == nil {
			acc = &struct {
				count                                int
				spend, income, transferOut, transferIn int64
			}{}
			byAccount[r.AccountID] = acc
		}
		acc.count++

		switch r.Kind {
		case KindSpend:
			amt := abs64(r.Amount)
			spendTotal += amt
			acc.spend += amt
			merchantSpend[r.Description] += amt
			if r.MCC != nil {
				mccSpend[itoa(*r.MCC)] += amt
			}
			cat := CategoryFromMCC(r.MCC)
			if cat == "" {
				uncategorizedRealSpend += amt
			} else {
				categoryRealSpend[cat] += amt
			}
		case KindIncome:
			incomeTotal += r.Amount
			acc.income += r.Amount
		case KindTransferOut:
			amt := abs64(r.Amount)
			transferOutTotal += amt
			acc.transferOut += amt
		case KindTransferIn:
			transferInTotal += r.Amount
			acc.transferIn += r.Amount
		}
	}

	cashOutTotal := spendTotal + transferOutTotal
	realSpendTotal := spendTotal
	realSpendTotalUAH := minorToMajor(realSpendTotal)

	categoriesUAH := map[string]float64{}
	for k, v := range categoryRealSpend {
		categoriesUAH[k] = minorToMajor(v)
	}

	byAccountOut := map[string]AccountTotals{}
	for accID, v := range byAccount {
		byAccountOut[accID] = AccountTotals{
			Count:          v.count,
			IncomeUAH:      minorToMajor(v.income),
			SpendUAH:       minorToMajor(v.spend),
			TransferInUAH:  minorToMajor(v.transferIn),
			TransferOutUAH: minorToMajor(v.transferOut),
		}
	}

	topMerchants := topNEntries(merchantSpend, 10)
	topMCC := topNEntries(mccSpend, 10)
	topNamedCategories := topNEntries(categoryRealSpend, 10)

	topMerchantsUAH := map[string]float64{}
	for _, e := range topMerchants {
		topMerchantsUAH[e.Label] = e.AmountUAH
	}

	return Facts{
		TransactionsCount: len(rows),
		Totals: Totals{
			IncomeTotalUAH:      minorToMajor(incomeTotal),
			SpendTotalUAH:       minorToMajor(cashOutTotal),
			TransferInTotalUAH:  minorToMajor(transferInTotal),
			TransferOutTotalUAH: minorToMajor(transferOutTotal),
			RealSpendTotalUAH:   realSpendTotalUAH,
		},
		CategoryMethod:                 "mcc",
		CategoriesRealSpendUAH:         categoriesUAH,
		CategorySharesRealSpend:        shares(categoriesUAH, realSpendTotalUAH),
		TopMerchantsSharesRealSpend:    shares(topMerchantsUAH, realSpendTotalUAH),
		TopCategoriesNamedRealSpend:    topNamedCategories,
		UncategorizedRealSpendTotalUAH: minorToMajor(uncategorizedRealSpend),
		TopMerchantsRealSpend:          topMerchants,
		TopCategoriesRealSpend:         topMCC,
		ByAccount:                      byAccountOut,
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
