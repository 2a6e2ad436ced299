package normalize

import (
	"strings"
	"testing"
	"time"

	"quotesheet/internal/provider"
)

var testModules = []string{"price", "summary_detail", "calendar_events", "financial_data"}

// fullResults returns module results that populate every output field for the
// given symbol.
func fullResults(symbol string) map[string]provider.ModuleResult {
	return map[string]provider.ModuleResult{
		"price": {
			Symbols: map[string]provider.FieldMap{
				symbol: {
					"regularMarketPrice":         101.5,
					"regularMarketChange":        1.25,
					"regularMarketChangePercent": 0.0124,
					"regularMarketDayHigh":       102.0,
					"regularMarketDayLow":        99.5,
					"regularMarketPreviousClose": 100.0,
					"regularMarketVolume":        1250000.0,
					"marketCap":                  5.2e9,
					"currency":                   "AUD",
					"regularMarketTime":          1700000000.0,
				},
			},
			Failed: map[string]string{},
		},
		"summary_detail": {
			Symbols: map[string]provider.FieldMap{
				symbol: {
					"fiftyTwoWeekHigh": 120.0,
					"fiftyTwoWeekLow":  80.0,
					"dividendRate":     2.1,
					"dividendYield":    map[string]any{"raw": 0.045, "fmt": "4.50%"},
					"exDividendDate":   1700000000.0,
				},
			},
			Failed: map[string]string{},
		},
		"calendar_events": {
			Symbols: map[string]provider.FieldMap{
				symbol: {
					"earningsDate": []any{1710000000.0, 1710500000.0},
				},
			},
			Failed: map[string]string{},
		},
		"financial_data": {
			Symbols: map[string]provider.FieldMap{
				symbol: {
					"targetMeanPrice": 115.0,
				},
			},
			Failed: map[string]string{},
		},
	}
}

func TestNormalize_OrderAndCardinality(t *testing.T) {
	n := New(testModules, time.UTC)
	symbols := []string{"AAA", "", "BBB", "AAA", ""}

	rows := n.Normalize(symbols, fullResults("AAA"))
	if len(rows) != len(symbols) {
		t.Fatalf("Normalize() returned %d rows, want %d", len(rows), len(symbols))
	}
	for i, symbol := range symbols {
		if rows[i].Ticker != symbol {
			t.Errorf("rows[%d].Ticker = %q, want %q", i, rows[i].Ticker, symbol)
		}
	}
	if rows[1].Status != StatusBlank || rows[4].Status != StatusBlank {
		t.Errorf("blank positions should be BLANK, got %s and %s", rows[1].Status, rows[4].Status)
	}
	// Duplicate symbols each get a full row.
	if rows[0].Status != StatusOK || rows[3].Status != StatusOK {
		t.Errorf("duplicate AAA rows = %s, %s, want OK, OK", rows[0].Status, rows[3].Status)
	}
}

func TestNormalize_FieldPriority(t *testing.T) {
	// summary_detail is ahead of price in the PreviousClose candidate list,
	// so its value must win when both are present.
	results := map[string]provider.ModuleResult{
		"price": {
			Symbols: map[string]provider.FieldMap{
				"AAA": {"regularMarketPreviousClose": 100.0},
			},
		},
		"summary_detail": {
			Symbols: map[string]provider.FieldMap{
				"AAA": {"regularMarketPreviousClose": 101.5},
			},
		},
	}

	n := New([]string{"price", "summary_detail"}, time.UTC)
	rows := n.Normalize([]string{"AAA"}, results)

	if rows[0].PreviousClose == nil {
		t.Fatal("PreviousClose not set")
	}
	if *rows[0].PreviousClose != 101.5 {
		t.Errorf("PreviousClose = %v, want 101.5 from summary_detail", *rows[0].PreviousClose)
	}
}

func TestNormalize_FieldPriorityFallsBackToLowerModule(t *testing.T) {
	results := map[string]provider.ModuleResult{
		"price": {
			Symbols: map[string]provider.FieldMap{
				"AAA": {"regularMarketPreviousClose": 100.0},
			},
		},
		"summary_detail": {
			Symbols: map[string]provider.FieldMap{
				"AAA": {},
			},
		},
	}

	n := New([]string{"price", "summary_detail"}, time.UTC)
	rows := n.Normalize([]string{"AAA"}, results)

	if rows[0].PreviousClose == nil || *rows[0].PreviousClose != 100.0 {
		t.Errorf("PreviousClose should fall back to price module value 100.0")
	}
}

func TestPercentFraction(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.023, 0.023},
		{2.3, 0.023},
		{1.0, 1.0},
		{-0.5, -0.5},
		// The magnitude rule applies regardless of sign: -150 becomes -1.5.
		{-150.0, -1.5},
	}
	for _, tt := range tests {
		if got := PercentFraction(tt.in); got != tt.want {
			t.Errorf("PercentFraction(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_PercentScalingConfigurable(t *testing.T) {
	results := map[string]provider.ModuleResult{
		"summary_detail": {
			Symbols: map[string]provider.FieldMap{
				"AAA": {"dividendYield": 4.5},
			},
		},
	}

	n := New([]string{"summary_detail"}, time.UTC)
	rows := n.Normalize([]string{"AAA"}, results)
	if rows[0].DividendYield == nil || *rows[0].DividendYield != 0.045 {
		t.Errorf("scaled DividendYield = %v, want 0.045", rows[0].DividendYield)
	}

	n.ScalePercents = false
	rows = n.Normalize([]string{"AAA"}, results)
	if rows[0].DividendYield == nil || *rows[0].DividendYield != 4.5 {
		t.Errorf("unscaled DividendYield = %v, want 4.5", rows[0].DividendYield)
	}
}

func TestNormalize_StatusClassification(t *testing.T) {
	n := New(testModules, time.UTC)

	t.Run("all modules populated", func(t *testing.T) {
		rows := n.Normalize([]string{"AAA"}, fullResults("AAA"))
		if rows[0].Status != StatusOK {
			t.Errorf("Status = %s, want OK (missing: %s)", rows[0].Status, rows[0].MissingFields)
		}
		if rows[0].MissingFields != "" {
			t.Errorf("MissingFields = %q, want empty", rows[0].MissingFields)
		}
	})

	t.Run("present in two of four modules", func(t *testing.T) {
		results := fullResults("AAA")
		delete(results, "calendar_events")
		delete(results, "financial_data")

		rows := n.Normalize([]string{"AAA"}, results)
		if rows[0].Status != StatusPartial {
			t.Errorf("Status = %s, want PARTIAL", rows[0].Status)
		}
		if !strings.Contains(rows[0].MissingFields, "calendar_events") ||
			!strings.Contains(rows[0].MissingFields, "financial_data") {
			t.Errorf("MissingFields = %q, want both missing module names", rows[0].MissingFields)
		}
	})

	t.Run("absent from all modules", func(t *testing.T) {
		rows := n.Normalize([]string{"ZZZ"}, fullResults("AAA"))
		if rows[0].Status != StatusNoData {
			t.Errorf("Status = %s, want NO_DATA", rows[0].Status)
		}
	})

	t.Run("too many empty fields downgrades to partial", func(t *testing.T) {
		results := map[string]provider.ModuleResult{
			"price":           {Symbols: map[string]provider.FieldMap{"AAA": {"regularMarketPrice": 1.0}}},
			"summary_detail":  {Symbols: map[string]provider.FieldMap{"AAA": {}}},
			"calendar_events": {Symbols: map[string]provider.FieldMap{"AAA": {}}},
			"financial_data":  {Symbols: map[string]provider.FieldMap{"AAA": {}}},
		}
		rows := n.Normalize([]string{"AAA"}, results)
		if rows[0].Status != StatusPartial {
			t.Errorf("Status = %s, want PARTIAL for mostly-empty row", rows[0].Status)
		}
		if rows[0].MissingFields == "" {
			t.Error("MissingFields should list the empty field names")
		}
	})
}

func TestNormalize_BatchScopedFailure(t *testing.T) {
	// Module failed for AAA's batch but succeeded for CCC's.
	results := map[string]provider.ModuleResult{
		"price": {
			Symbols: map[string]provider.FieldMap{
				"CCC": {"regularMarketPrice": 9.5},
			},
			Failed: map[string]string{"AAA": "provider error"},
		},
	}

	n := New([]string{"price"}, time.UTC)
	rows := n.Normalize([]string{"AAA", "CCC"}, results)

	if rows[0].Status != StatusNoData {
		t.Errorf("AAA Status = %s, want NO_DATA", rows[0].Status)
	}
	if !strings.Contains(rows[0].MissingFields, "price") {
		t.Errorf("AAA MissingFields = %q, want price listed", rows[0].MissingFields)
	}
	if rows[1].Price == nil || *rows[1].Price != 9.5 {
		t.Error("CCC price fields should be populated from its successful batch")
	}
}

func TestNormalize_TimestampConversion(t *testing.T) {
	n := New([]string{"price", "summary_detail"}, time.UTC)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"epoch seconds", 1700000000.0, "14-Nov-2023"},
		{"epoch milliseconds", 1700000000000.0, "14-Nov-2023"},
		{"date string", "2023-11-14", "14-Nov-2023"},
		{"unparseable", "next Tuesday", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := map[string]provider.ModuleResult{
				"summary_detail": {
					Symbols: map[string]provider.FieldMap{
						"AAA": {"exDividendDate": tt.value},
					},
				},
			}
			rows := n.Normalize([]string{"AAA"}, results)
			if rows[0].ExDividendDate != tt.want {
				t.Errorf("ExDividendDate = %q, want %q", rows[0].ExDividendDate, tt.want)
			}
		})
	}
}

func TestNormalize_MarketTimeInConfiguredZone(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatal(err)
	}
	n := New([]string{"price"}, sydney)

	results := map[string]provider.ModuleResult{
		"price": {
			Symbols: map[string]provider.FieldMap{
				"AAA": {"regularMarketTime": 1700000000.0},
			},
		},
	}
	rows := n.Normalize([]string{"AAA"}, results)

	// 2023-11-14 22:13:20 UTC is 15-Nov 09:13 in Sydney (AEDT).
	if rows[0].MarketTime != "15-Nov-2023 09:13" {
		t.Errorf("MarketTime = %q, want %q", rows[0].MarketTime, "15-Nov-2023 09:13")
	}
}

func TestNormalize_RawFmtUnwrapAndEarningsList(t *testing.T) {
	n := New(testModules, time.UTC)
	rows := n.Normalize([]string{"AAA"}, fullResults("AAA"))

	if rows[0].DividendYield == nil || *rows[0].DividendYield != 0.045 {
		t.Errorf("DividendYield = %v, want 0.045 from raw/fmt wrapper", rows[0].DividendYield)
	}
	// 1710000000 is 2024-03-09 UTC; the first list entry wins.
	if rows[0].EarningsDate != "09-Mar-2024" {
		t.Errorf("EarningsDate = %q, want %q", rows[0].EarningsDate, "09-Mar-2024")
	}
}

func TestNormalize_StringNumbersCoerced(t *testing.T) {
	results := map[string]provider.ModuleResult{
		"price": {
			Symbols: map[string]provider.FieldMap{
				"AAA": {"regularMarketPrice": "101.5"},
			},
		},
	}
	n := New([]string{"price"}, time.UTC)
	rows := n.Normalize([]string{"AAA"}, results)
	if rows[0].Price == nil || *rows[0].Price != 101.5 {
		t.Errorf("Price = %v, want 101.5 coerced from string", rows[0].Price)
	}
}
