package nlq

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/monoledger/monoledger/analytics"
	"github.com/monoledger/monoledger/ledger"
)

// Deps bundles one user's dependencies for routing and executing a query.
type Deps struct {
	Ledger     *ledger.Store
	Memory     *Store
	UserID     int64
	AccountIDs []string
}

// Handle resumes a pending clarification if one exists for the user, else
// routes text to a fresh intent, and executes it. Covers all eight query
// intents (four sum/count pairs across spend, income, and transfers) plus
// compare-to-baseline.
func Handle(ctx context.Context, deps Deps, text string, nowTS int64) (Response, error) {
	pending, kind, options, err := deps.Memory.PopPending(deps.UserID)
	if err != nil {
		return Response{}, err
	}
	if pending != nil {
		answer := strings.TrimSpace(text)
		if isCancelWord(answer) {
			return Response{Text: "Гаразд, скасовано."}, nil
		}

		// A numeric answer picks one of the offered options; anything else
		// is taken as a literal canonical substring.
		canonical := clarificationAnswer(options, answer)
		if canonical == "" {
			if err := deps.Memory.SetPending(deps.UserID, *pending, kind, options); err != nil {
				return Response{}, err
			}
			return Response{Clarification: &Clarification{
				Kind:    kind,
				Prompt:  clarificationPrompt(kind),
				Options: options,
			}}, nil
		}

		switch kind {
		case ClarificationRecipient:
			if err := deps.Memory.SaveRecipientAlias(deps.UserID, pending.Slots.RecipientAlias, canonical); err != nil {
				return Response{}, err
			}
		case ClarificationMerchant:
			pending.Slots.MerchantContains = canonical
		}
		return Execute(ctx, deps, *pending, nowTS)
	}

	return Execute(ctx, deps, Route(text, nowTS), nowTS)
}

// Execute runs a routed intent to completion: resolves the time window
// (an explicit [start_ts, end_ts] always wins over a day count), loads and
// classifies the matching ledger rows, applies merchant/recipient/category
// filters — asking a clarifying question when a recipient alias cannot be
// resolved — and produces a textual answer.
func Execute(ctx context.Context, deps Deps, intent Intent, nowTS int64) (Response, error) {
	if intent.Name == IntentUnsupported {
		return Response{Text: "Не зрозумів запит. Спробуйте, наприклад: «скільки я витратив за останні 7 днів».", Intent: IntentUnsupported}, nil
	}

	start, end := resolveWindow(intent.Slots, nowTS)
	if intent.Name == IntentCompareToBaseline {
		start, end = nowTS-29*86400, nowTS
	}

	records, err := deps.Ledger.LoadRange(deps.UserID, deps.AccountIDs, start, end)
	if err != nil {
		return Response{}, err
	}
	rows := analytics.ClassifyRows(records)

	if intent.Slots.MerchantContains != "" {
		canon, err := deps.Memory.ResolveMerchant(deps.UserID, intent.Slots.MerchantContains)
		if err != nil {
			return Response{}, err
		}
		rows = filterByMerchant(rows, canon)
	}

	if intent.Slots.RecipientAlias != "" {
		canon, ok, err := deps.Memory.ResolveRecipient(deps.UserID, intent.Slots.RecipientAlias)
		if err != nil {
			return Response{}, err
		}
		if !ok {
			options := recipientOptions(rows)
			if err := deps.Memory.SetPending(deps.UserID, intent, ClarificationRecipient, options); err != nil {
				return Response{}, err
			}
			return Response{Clarification: &Clarification{
				Kind:    ClarificationRecipient,
				Prompt:  clarificationPrompt(ClarificationRecipient),
				Options: options,
			}}, nil
		}
		rows = filterByRecipient(rows, canon)
	}

	if intent.Slots.Category != "" {
		rows = filterByCategory(rows, intent.Slots.Category)
	}

	var resp Response
	switch intent.Name {
	case IntentSpendSum:
		resp = sumResponse(rows, analytics.KindSpend, "витрачено", intent.Slots)
	case IntentSpendCount:
		resp = countResponse(rows, analytics.KindSpend, "витрат", intent.Slots)
	case IntentIncomeSum:
		resp = sumResponse(rows, analytics.KindIncome, "отримано доходу", intent.Slots)
	case IntentIncomeCount:
		resp = countResponse(rows, analytics.KindIncome, "надходжень доходу", intent.Slots)
	case IntentTransferOutSum:
		resp = sumResponse(rows, analytics.KindTransferOut, "переказано", intent.Slots)
	case IntentTransferOutCount:
		resp = countResponse(rows, analytics.KindTransferOut, "вихідних переказів", intent.Slots)
	case IntentTransferInSum:
		resp = sumResponse(rows, analytics.KindTransferIn, "отримано переказами", intent.Slots)
	case IntentTransferInCount:
		resp = countResponse(rows, analytics.KindTransferIn, "вхідних переказів", intent.Slots)
	case IntentCompareToBaseline:
		resp = compareResponse(rows, nowTS, intent.Slots)
	default:
		resp = Response{Text: "Не зрозумів запит."}
	}
	resp.Intent = intent.Name
	return resp, nil
}

func resolveWindow(slots Slots, nowTS int64) (int64, int64) {
	if slots.StartTS != nil && slots.EndTS != nil {
		return *slots.StartTS, *slots.EndTS
	}
	days := slots.Days
	if days <= 0 {
		days = 7
	}
	return nowTS - int64(days)*86400, nowTS
}

func periodPhrase(slots Slots) string {
	if slots.PeriodLabel != "" {
		return slots.PeriodLabel
	}
	if slots.Days > 0 {
		return fmt.Sprintf("останні %d днів", slots.Days)
	}
	return "останні 7 днів"
}

func sumResponse(rows []analytics.ClassifiedRow, kind analytics.Kind, verb string, slots Slots) Response {
	var totalMinor int64
	for _, r := range rows {
		if r.Kind != kind {
			continue
		}
		totalMinor += abs64(r.Amount)
	}
	total := analytics.MinorToMajor(totalMinor)
	return Response{Text: fmt.Sprintf("За %s %s: %.2f грн.", periodPhrase(slots), verb, total)}
}

func countResponse(rows []analytics.ClassifiedRow, kind analytics.Kind, label string, slots Slots) Response {
	count := 0
	for _, r := range rows {
		if r.Kind == kind {
			count++
		}
	}
	return Response{Text: fmt.Sprintf("За %s: %d %s.", periodPhrase(slots), count, label)}
}

func compareResponse(rows []analytics.ClassifiedRow, nowTS int64, slots Slots) Response {
	filter := func(r analytics.ClassifiedRow) bool {
		if r.Kind != analytics.KindSpend {
			return false
		}
		if slots.Category != "" {
			return analytics.CategoryFromMCC(r.MCC) == slots.Category
		}
		return true
	}
	cmp := analytics.CompareYesterdayToBaseline(rows, nowTS, 28, filter)
	yesterday := analytics.MinorToMajor(cmp.YesterdayCents)
	baseline := analytics.MinorToMajor(cmp.BaselineMedianCents)
	delta := analytics.MinorToMajor(cmp.DeltaCents)

	var verdict string
	switch {
	case cmp.DeltaCents > 0:
		verdict = fmt.Sprintf("це на %.2f грн більше за звичайне", delta)
	case cmp.DeltaCents < 0:
		verdict = fmt.Sprintf("це на %.2f грн менше за звичайне", -delta)
	default:
		verdict = "це звичайний рівень"
	}
	return Response{Text: fmt.Sprintf(
		"Вчора: %.2f грн, звичайно (медіана за 28 днів): %.2f грн — %s.",
		yesterday, baseline, verdict)}
}

func filterByMerchant(rows []analytics.ClassifiedRow, canon string) []analytics.ClassifiedRow {
	if canon == "" {
		return rows
	}
	var out []analytics.ClassifiedRow
	for _, r := range rows {
		if strings.Contains(Norm(r.Description), canon) {
			out = append(out, r)
		}
	}
	return out
}

func filterByRecipient(rows []analytics.ClassifiedRow, canon string) []analytics.ClassifiedRow {
	if canon == "" {
		return rows
	}
	var out []analytics.ClassifiedRow
	for _, r := range rows {
		if strings.Contains(Norm(r.Description), canon) {
			out = append(out, r)
		}
	}
	return out
}

func filterByCategory(rows []analytics.ClassifiedRow, cat string) []analytics.ClassifiedRow {
	var out []analytics.ClassifiedRow
	for _, r := range rows {
		if analytics.CategoryFromMCC(r.MCC) == cat {
			out = append(out, r)
		}
	}
	return out
}

const maxRecipientOptions = 7

// recipientOptions builds clarification candidates from the current
// window's top outgoing-transfer descriptions, by total amount.
func recipientOptions(rows []analytics.ClassifiedRow) []string {
	totals := map[string]int64{}
	for _, r := range rows {
		if r.Kind != analytics.KindTransferOut {
			continue
		}
		d := Norm(r.Description)
		if d == "" {
			continue
		}
		totals[d] += abs64(r.Amount)
	}

	opts := make([]string, 0, len(totals))
	for d := range totals {
		opts = append(opts, d)
	}
	sort.Slice(opts, func(i, j int) bool {
		if totals[opts[i]] != totals[opts[j]] {
			return totals[opts[i]] > totals[opts[j]]
		}
		return opts[i] < opts[j]
	})
	if len(opts) > maxRecipientOptions {
		opts = opts[:maxRecipientOptions]
	}
	return opts
}

// clarificationAnswer maps a follow-up reply onto a canonical substring:
// a number in range selects an option, any other non-empty text is the
// substring itself.
func clarificationAnswer(options []string, answer string) string {
	a := strings.ToLower(strings.TrimSpace(answer))
	if a == "" {
		return ""
	}
	if n, err := strconv.Atoi(a); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1]
		}
		return ""
	}
	return a
}

func isCancelWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "скасувати", "скасуй", "cancel", "відміна", "отмена", "стоп":
		return true
	}
	return false
}

func clarificationPrompt(kind ClarificationKind) string {
	switch kind {
	case ClarificationRecipient:
		return "Кому саме? Вкажіть ім'я одержувача."
	case ClarificationMerchant:
		return "Який саме магазин чи сервіс ви маєте на увазі?"
	default:
		return "Уточніть, будь ласка."
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
