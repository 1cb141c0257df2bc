package nlq

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/monoledger/monoledger/calendar"
)

var monthNames = map[string]time.Month{
	"січень": time.January, "сiчень": time.January, "январь": time.January, "january": time.January,
	"лютий": time.February, "февраль": time.February, "february": time.February,
	"березень": time.March, "март": time.March, "march": time.March,
	"квітень": time.April, "апрель": time.April, "april": time.April,
	"травень": time.May, "май": time.May, "may": time.May,
	"червень": time.June, "июнь": time.June, "june": time.June,
	"липень": time.July, "июль": time.July, "july": time.July,
	"серпень": time.August, "август": time.August, "august": time.August,
	"вересень": time.September, "сентябрь": time.September, "september": time.September,
	"жовтень": time.October, "октябрь": time.October, "october": time.October,
	"листопад": time.November, "ноябрь": time.November, "november": time.November,
	"грудень": time.December, "декабрь": time.December, "december": time.December,
}

// See router.go's boundStart/boundEnd comment: RE2's \b and \w are
// ASCII-only, so Cyrillic phrases need an explicit non-letter/non-digit
// boundary instead.
var (
	todayRe     = regexp.MustCompile(`(?i)` + boundStart + `(сьогодні|сегодня|today)` + boundEnd)
	yesterdayRe = regexp.MustCompile(`(?i)` + boundStart + `(вчора|вчера|yesterday)` + boundEnd)
	lastNDaysRe = regexp.MustCompile(`(?i)` + boundStart + `(?:за\s+останні\s+|за\s+последние\s+|last\s+)(\d{1,3})\s*(?:дн(?:і|ів)?|дней|days)` + boundEnd)
	lastWeekRe  = regexp.MustCompile(`(?i)` + boundStart + `(за\s+тиждень|за\s+неделю|last\s+week)` + boundEnd)
	lastMonthRe = regexp.MustCompile(`(?i)` + boundStart + `(за\s+минулий\s+місяць|за\s+прошлый\s+месяц|last\s+month)` + boundEnd)
	yyyymmRe    = regexp.MustCompile(boundStart + `за\s+(\d{4})[-./](\d{1,2})` + boundEnd)
	yearRe      = regexp.MustCompile(`(?:^|[^\d])((?:19|20)\d{2})(?:$|[^\d])`)
)

func utcDayStart(ts int64) int64 {
	return calendar.DayFloor(ts)
}

func monthRangeUTC(year int, month time.Month) calendar.Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return calendar.Range{Start: start.Unix(), End: end.Unix()}
}

// ParsePeriodRange recognizes explicit period phrases (today/yesterday,
// "last N days", last week/month, month names with optional year,
// "YYYY-MM") and returns the matching UTC range, or nil if text names no
// period.
func ParsePeriodRange(text string, nowTS int64) *calendar.Range {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return nil
	}

	if todayRe.MatchString(s) {
		return &calendar.Range{Start: utcDayStart(nowTS), End: nowTS}
	}
	if yesterdayRe.MatchString(s) {
		today0 := utcDayStart(nowTS)
		return &calendar.Range{Start: today0 - 86400, End: today0}
	}
	if m := lastNDaysRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return &calendar.Range{Start: nowTS - int64(n)*86400, End: nowTS}
		}
	}
	if lastWeekRe.MatchString(s) {
		return &calendar.Range{Start: nowTS - 7*86400, End: nowTS}
	}
	if lastMonthRe.MatchString(s) {
		t := time.Unix(nowTS, 0).UTC()
		y, mth := t.Year(), t.Month()
		mth--
		if mth < time.January {
			mth = time.December
			y--
		}
		r := monthRangeUTC(y, mth)
		return &r
	}
	for name, month := range monthNames {
		if strings.Contains(s, "за "+name) {
			year := time.Unix(nowTS, 0).UTC().Year()
			if m := yearRe.FindStringSubmatch(s); m != nil {
				if y, err := strconv.Atoi(m[1]); err == nil {
					year = y
				}
			}
			r := monthRangeUTC(year, month)
			return &r
		}
	}
	if m := yyyymmRe.FindStringSubmatch(s); m != nil {
		year, errY := strconv.Atoi(m[1])
		month, errM := strconv.Atoi(m[2])
		if errY == nil && errM == nil && month >= 1 && month <= 12 {
			r := monthRangeUTC(year, time.Month(month))
			return &r
		}
	}
	return nil
}
