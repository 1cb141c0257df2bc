package analytics

// CategoryFromMCC returns a stable Ukrainian label for mcc, grounded in
// analytics/categories.py's fixed range table. Unknown non-nil codes return
// "Інше"; a nil mcc returns "" (distinguishable from "Інше" for the
// uncategorized bucket).
func CategoryFromMCC(mcc *int) string {
	if mcc == nil {
		return ""
	}
	v := *mcc
	for _, r := range mccCategoryRanges {
		if v >= r.lo && v < r.hi {
			return r.label
		}
	}
	return "Інше"
}

type mccRange struct {
	lo, hi int
	label  string
}

var mccCategoryRanges = []mccRange{
	{4000, 4800, "Транспорт"},
	{4800, 4900, "Фінансові послуги"},
	{5000, 5599, "Подорожі"},
	{5600, 5699, "Одяг/Взуття"},
	{5700, 5736, "Техніка/Електроніка"},
	{5737, 5800, "Розваги/Діджитал"},
	{5811, 5830, "Кафе/Ресторани"},
	{5200, 5312, "Маркет/Побут"},
	{5313, 5399, "Маркет/Побут"},
	{5900, 5999, "Аптеки/Здоров'я"},
	{6000, 7300, "Послуги"},
	{7800, 8000, "Розваги/Ігри"},
	{8000, 9000, "Проф. послуги"},
}
