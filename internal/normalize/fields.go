package normalize

// candidate names one (module, provider field) source for a canonical output
// field. Candidates are consulted in order; the first non-null value wins and
// later candidates only fill the gap left by earlier ones. The order is fixed
// here, not inferred at runtime, because modules disagree on freshness and
// availability and the order encodes which one is authoritative.
type candidate struct {
	module string
	field  string
}

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindPercent
	kindDate
	kindDateTime
	kindText
)

type fieldSpec struct {
	name       string
	kind       fieldKind
	candidates []candidate

	setNum  func(*Row, *Number)
	setText func(*Row, string)
	empty   func(*Row) bool
}

// fieldSpecs is the full output schema in column order. summary_detail is
// preferred over price for previous-close style fields (it refreshes later in
// the provider's pipeline); price is preferred for live quote fields.
var fieldSpecs = []fieldSpec{
	{
		name: "MarketPrice", kind: kindNumber,
		candidates: []candidate{{"price", "regularMarketPrice"}, {"financial_data", "currentPrice"}},
		setNum:     func(r *Row, v *Number) { r.Price = v },
		empty:      func(r *Row) bool { return r.Price == nil },
	},
	{
		name: "MarketChange", kind: kindNumber,
		candidates: []candidate{{"price", "regularMarketChange"}},
		setNum:     func(r *Row, v *Number) { r.Change = v },
		empty:      func(r *Row) bool { return r.Change == nil },
	},
	{
		name: "MarketChangePercent", kind: kindPercent,
		candidates: []candidate{{"price", "regularMarketChangePercent"}, {"summary_detail", "regularMarketChangePercent"}},
		setNum:     func(r *Row, v *Number) { r.ChangePercent = v },
		empty:      func(r *Row) bool { return r.ChangePercent == nil },
	},
	{
		name: "MarketDayHigh", kind: kindNumber,
		candidates: []candidate{{"price", "regularMarketDayHigh"}, {"summary_detail", "dayHigh"}},
		setNum:     func(r *Row, v *Number) { r.DayHigh = v },
		empty:      func(r *Row) bool { return r.DayHigh == nil },
	},
	{
		name: "MarketDayLow", kind: kindNumber,
		candidates: []candidate{{"price", "regularMarketDayLow"}, {"summary_detail", "dayLow"}},
		setNum:     func(r *Row, v *Number) { r.DayLow = v },
		empty:      func(r *Row) bool { return r.DayLow == nil },
	},
	{
		name: "MarketPreviousClose", kind: kindNumber,
		candidates: []candidate{{"summary_detail", "regularMarketPreviousClose"}, {"price", "regularMarketPreviousClose"}},
		setNum:     func(r *Row, v *Number) { r.PreviousClose = v },
		empty:      func(r *Row) bool { return r.PreviousClose == nil },
	},
	{
		name: "MarketVolume", kind: kindNumber,
		candidates: []candidate{{"price", "regularMarketVolume"}, {"summary_detail", "volume"}},
		setNum:     func(r *Row, v *Number) { r.Volume = v },
		empty:      func(r *Row) bool { return r.Volume == nil },
	},
	{
		name: "MarketCap", kind: kindNumber,
		candidates: []candidate{{"price", "marketCap"}, {"summary_detail", "marketCap"}},
		setNum:     func(r *Row, v *Number) { r.MarketCap = v },
		empty:      func(r *Row) bool { return r.MarketCap == nil },
	},
	{
		name: "FiftyTwoWeekHigh", kind: kindNumber,
		candidates: []candidate{{"summary_detail", "fiftyTwoWeekHigh"}},
		setNum:     func(r *Row, v *Number) { r.FiftyTwoWeekHigh = v },
		empty:      func(r *Row) bool { return r.FiftyTwoWeekHigh == nil },
	},
	{
		name: "FiftyTwoWeekLow", kind: kindNumber,
		candidates: []candidate{{"summary_detail", "fiftyTwoWeekLow"}},
		setNum:     func(r *Row, v *Number) { r.FiftyTwoWeekLow = v },
		empty:      func(r *Row) bool { return r.FiftyTwoWeekLow == nil },
	},
	{
		name: "TargetMeanPrice", kind: kindNumber,
		candidates: []candidate{{"financial_data", "targetMeanPrice"}},
		setNum:     func(r *Row, v *Number) { r.TargetMeanPrice = v },
		empty:      func(r *Row) bool { return r.TargetMeanPrice == nil },
	},
	{
		name: "DividendRate", kind: kindNumber,
		candidates: []candidate{{"summary_detail", "dividendRate"}},
		setNum:     func(r *Row, v *Number) { r.DividendRate = v },
		empty:      func(r *Row) bool { return r.DividendRate == nil },
	},
	{
		name: "DividendYield", kind: kindPercent,
		candidates: []candidate{{"summary_detail", "dividendYield"}, {"summary_detail", "trailingAnnualDividendYield"}},
		setNum:     func(r *Row, v *Number) { r.DividendYield = v },
		empty:      func(r *Row) bool { return r.DividendYield == nil },
	},
	{
		name: "ExDividendDate", kind: kindDate,
		candidates: []candidate{{"summary_detail", "exDividendDate"}},
		setText:    func(r *Row, v string) { r.ExDividendDate = v },
		empty:      func(r *Row) bool { return r.ExDividendDate == "" },
	},
	{
		name: "EarningsDate", kind: kindDate,
		candidates: []candidate{{"calendar_events", "earningsDate"}},
		setText:    func(r *Row, v string) { r.EarningsDate = v },
		empty:      func(r *Row) bool { return r.EarningsDate == "" },
	},
	{
		name: "Currency", kind: kindText,
		candidates: []candidate{{"price", "currency"}, {"summary_detail", "currency"}, {"financial_data", "financialCurrency"}},
		setText:    func(r *Row, v string) { r.Currency = v },
		empty:      func(r *Row) bool { return r.Currency == "" },
	},
	{
		name: "MarketTime", kind: kindDateTime,
		candidates: []candidate{{"price", "regularMarketTime"}},
		setText:    func(r *Row, v string) { r.MarketTime = v },
		empty:      func(r *Row) bool { return r.MarketTime == "" },
	},
}
