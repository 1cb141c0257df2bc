package analytics

import (
	"regexp"
	"sort"
	"strings"
)

// WhatIfScenario is one reduction percentage applied to a bucket.
type WhatIfScenario struct {
	ReductionPct   int     `json:"reduction_pct"`
	MonthlySavings float64 `json:"monthly_savings_uah"`
}

// WhatIfSuggestion is one savings-projection bucket.
type WhatIfSuggestion struct {
	Key              string           `json:"key"`
	Title            string           `json:"title"`
	PeriodSpendUAH   float64          `json:"period_spend_uah"`
	MonthlySpendUAH  float64          `json:"monthly_spend_uah"`
	SharePct         float64          `json:"share_pct"`
	Scenarios        []WhatIfScenario `json:"scenarios"`
}

var whatifStripRe = regexp.MustCompile(`[^\w\s'&+\-.]`)

func normWhatif(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whatifStripRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func sumSpendUAH(rows []ClassifiedRow, pred func(ClassifiedRow) bool) int64 {
	var total int64
	for _, r := range rows {
		if r.Kind != KindSpend || !pred(r) {
			continue
		}
		total += abs64(r.Amount)
	}
	return total
}

func projectMonthlyUAH(periodSpendMinor int64, periodDays int) float64 {
	if periodDays <= 0 {
		return 0
	}
	return roundHalfEven(minorToMajor(periodSpendMinor)*(30.0/float64(periodDays)), 2)
}

var taxiKeywords = []string{"uber", "bolt", "uklon", "taxi", "такси", "таксі"}
var deliveryKeywords = []string{"glovo", "wolt", "raketa", "bolt food", "uber eats", "ubereats", "delivery"}

type keywordBucket struct {
	key         string
	title       string
	keywords    []string
	monthlyFloorLow float64
}

var keywordBuckets = []keywordBucket{
	{key: "taxi", title: "Таксі", keywords: taxiKeywords, monthlyFloorLow: 400.0},
	{key: "delivery", title: "Доставка", keywords: deliveryKeywords, monthlyFloorLow: 350.0},
}

// buildScenarios emits the 10%/20% (or 15%/25% if concentrated) pair,
// discarding scenarios whose monthly savings fall under minSavings.
func buildScenarios(monthlySpend float64, sharePct, concentratedSharePct, minSavings float64) []WhatIfScenario {
	pctLow, pctHigh := 10, 20
	if sharePct >= concentratedSharePct {
		pctLow, pctHigh = 15, 25
	}
	var out []WhatIfScenario
	for _, pct := range []int{pctLow, pctHigh} {
		savings := roundHalfEven(monthlySpend*(float64(pct)/100.0), 2)
		if savings >= minSavings {
			out = append(out, WhatIfScenario{ReductionPct: pct, MonthlySavings: savings})
		}
	}
	return out
}

// BuildWhatIf generates keyword-bucket and named-category-bucket savings
// suggestions over period-window spend rows, merges and caps at 3, and
// sorts by each bucket's best-scenario savings descending.
func BuildWhatIf(rows []ClassifiedRow, periodDays int, realSpendTotalUAH float64) []WhatIfSuggestion {
	if periodDays <= 0 {
		return nil
	}

	var candidates []WhatIfSuggestion

	for _, b := range keywordBuckets {
		spendMinor := sumSpendUAH(rows, func(r ClassifiedRow) bool {
			return containsAny(normWhatif(r.Description), b.keywords)
		})
		periodUAH := minorToMajor(spendMinor)
		monthly := projectMonthlyUAH(spendMinor, periodDays)
		if monthly < b.monthlyFloorLow {
			continue
		}
		var sharePct float64
		if realSpendTotalUAH > 0 {
			sharePct = roundHalfEven((periodUAH/realSpendTotalUAH)*100.0, 1)
		}
		scenarios := buildScenarios(monthly, sharePct, 30.0, 100.0)
		if len(scenarios) == 0 {
			continue
		}
		candidates = append(candidates, WhatIfSuggestion{
			Key: b.key, Title: b.title, PeriodSpendUAH: periodUAH,
			MonthlySpendUAH: monthly, SharePct: sharePct, Scenarios: scenarios,
		})
	}

	cafesSpendMinor := sumSpendUAH(rows, func(r ClassifiedRow) bool {
		return CategoryFromMCC(r.MCC) == "Кафе/Ресторани"
	})
	cafesPeriodUAH := minorToMajor(cafesSpendMinor)
	cafesMonthly := projectMonthlyUAH(cafesSpendMinor, periodDays)
	if cafesMonthly >= 600.0 {
		var sharePct float64
		if realSpendTotalUAH > 0 {
			sharePct = roundHalfEven((cafesPeriodUAH/realSpendTotalUAH)*100.0, 1)
		}
		if scenarios := buildScenarios(cafesMonthly, sharePct, 30.0, 100.0); len(scenarios) > 0 {
			candidates = append(candidates, WhatIfSuggestion{
				Key: "cafes", Title: "Кафе/Ресторани", PeriodSpendUAH: cafesPeriodUAH,
				MonthlySpendUAH: cafesMonthly, SharePct: sharePct, Scenarios: scenarios,
			})
		}
	}

	// Category buckets: any named category whose real-spend share >= 15%,
	// active on >=4 distinct days, and projected monthly >= 800 UAH.
	categorySpendMinor := map[string]int64{}
	categoryDays := map[string]map[int64]bool{}
	for _, r := range rows {
		if r.Kind != KindSpend {
			continue
		}
		cat := CategoryFromMCC(r.MCC)
		if cat == "" || cat == "Інше" {
			continue
		}
		categorySpendMinor[cat] += abs64(r.Amount)
		days := categoryDays[cat]
		if days == nil {
			days = map[int64]bool{}
			categoryDays[cat] = days
		}
		days[r.Time/86400] = true
	}
	for cat, spendMinor := range categorySpendMinor {
		periodUAH := minorToMajor(spendMinor)
		var sharePct float64
		if realSpendTotalUAH > 0 {
			sharePct = roundHalfEven((periodUAH/realSpendTotalUAH)*100.0, 1)
		}
		activeDays := len(categoryDays[cat])
		monthly := projectMonthlyUAH(spendMinor, periodDays)
		if sharePct < 15.0 || activeDays < 4 || monthly < 800.0 {
			continue
		}
		scenarios := buildScenarios(monthly, sharePct, 25.0, 150.0)
		if len(scenarios) == 0 {
			continue
		}
		candidates = append(candidates, WhatIfSuggestion{
			Key: "category:" + cat, Title: cat, PeriodSpendUAH: periodUAH,
			MonthlySpendUAH: monthly, SharePct: sharePct, Scenarios: scenarios,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		bi, bj := bestSavings(candidates[i]), bestSavings(candidates[j])
		if bi != bj {
			return bi > bj
		}
		return candidates[i].Key < candidates[j].Key
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	return candidates
}

func bestSavings(s WhatIfSuggestion) float64 {
	var best float64
	for _, sc := range s.Scenarios {
		if sc.MonthlySavings > best {
			best = sc.MonthlySavings
		}
	}
	return best
}
