package normalize

import (
	"math"
	"strconv"
)

// Number is a numeric cell value. It marshals with at most four decimal
// places so fractions derived at runtime (percent scaling, scraped values)
// do not leak float artifacts into the table.
type Number float64

// MarshalCSV implements the gocsv field marshaller.
func (n Number) MarshalCSV() (string, error) {
	v := math.Round(float64(n)*1e4) / 1e4
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// UnmarshalCSV implements the gocsv field unmarshaller.
func (n *Number) UnmarshalCSV(s string) error {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Status is the coarse data-quality classification of a Row.
type Status string

const (
	// StatusOK means every requested module answered for the symbol and the
	// row is populated past the minimum field threshold.
	StatusOK Status = "OK"
	// StatusPartial means some modules were missing for the symbol, or too
	// many output fields came back empty.
	StatusPartial Status = "PARTIAL"
	// StatusNoData means every requested module was missing or failed.
	StatusNoData Status = "NO_DATA"
	// StatusBlank marks the placeholder row emitted for a blank input cell.
	StatusBlank Status = "BLANK"
)

// Row is the merged, uniformly-typed output record for one input symbol.
// Numeric fields are pointers so "provider had no value" stays distinct from
// zero; nil marshals as an empty cell. Date and time fields are already
// formatted for output, in the run's configured timezone.
type Row struct {
	Ticker string `csv:"Ticker"`
	Status Status `csv:"Status"`

	Price         *Number `csv:"MarketPrice"`
	Change        *Number `csv:"MarketChange"`
	ChangePercent *Number `csv:"MarketChangePercent"`
	DayHigh       *Number `csv:"MarketDayHigh"`
	DayLow        *Number `csv:"MarketDayLow"`
	PreviousClose *Number `csv:"MarketPreviousClose"`
	Volume        *Number `csv:"MarketVolume"`
	MarketCap     *Number `csv:"MarketCap"`

	FiftyTwoWeekHigh *Number `csv:"FiftyTwoWeekHigh"`
	FiftyTwoWeekLow  *Number `csv:"FiftyTwoWeekLow"`

	TargetMeanPrice *Number `csv:"TargetMeanPrice"`
	DividendRate    *Number `csv:"DividendRate"`
	DividendYield   *Number `csv:"DividendYield"`
	ExDividendDate  string   `csv:"ExDividendDate"`
	EarningsDate    string   `csv:"EarningsDate"`

	Currency   string `csv:"Currency"`
	MarketTime string `csv:"MarketTime"`

	MissingFields string `csv:"MissingFields"`
}

// EmptyFields returns the names of output fields that carry no value, in
// schema order. Ticker, Status and MissingFields are bookkeeping, not data,
// and are not counted.
func (r *Row) EmptyFields() []string {
	var missing []string
	for _, f := range fieldSpecs {
		if f.empty(r) {
			missing = append(missing, f.name)
		}
	}
	return missing
}
