package enrich

import (
	"context"
	"errors"
	"testing"

	"quotesheet/internal/normalize"
	"quotesheet/internal/retry"
	"quotesheet/internal/testutil"
)

func numPtr(v float64) *normalize.Number {
	n := normalize.Number(v)
	return &n
}

func TestEnrich_FillsOnlyEmptySlots(t *testing.T) {
	scraper := &testutil.MockScraper{
		FetchSingleFunc: func(ctx context.Context, symbol string) (map[string]string, error) {
			return map[string]string{
				"targetMeanPrice": "99.0",
				"exDividendDate":  "14-Nov-2023",
				"earningsDate":    "20-Feb-2024",
				"dividendYield":   "4.5%",
			}, nil
		},
	}

	rows := []normalize.Row{
		{
			Ticker:          "AAA",
			Status:          normalize.StatusPartial,
			TargetMeanPrice: numPtr(12.5), // already populated upstream
		},
	}

	e := &Enricher{Scraper: scraper, Workers: 1, Retry: retry.Policy{MaxAttempts: 1}, ScalePercents: true}
	rows = e.Enrich(context.Background(), rows)

	if *rows[0].TargetMeanPrice != 12.5 {
		t.Errorf("TargetMeanPrice = %v, want 12.5 preserved", *rows[0].TargetMeanPrice)
	}
	if rows[0].ExDividendDate != "14-Nov-2023" {
		t.Errorf("ExDividendDate = %q, want backfilled", rows[0].ExDividendDate)
	}
	if rows[0].EarningsDate != "20-Feb-2024" {
		t.Errorf("EarningsDate = %q, want backfilled", rows[0].EarningsDate)
	}
	if rows[0].DividendYield == nil || *rows[0].DividendYield != 0.045 {
		t.Errorf("DividendYield = %v, want 0.045 from scraped 4.5%%", rows[0].DividendYield)
	}
}

func TestEnrich_FailureLeavesRowUntouched(t *testing.T) {
	scraper := &testutil.MockScraper{
		FetchSingleFunc: func(ctx context.Context, symbol string) (map[string]string, error) {
			return nil, errors.New("page unavailable")
		},
	}

	rows := []normalize.Row{
		{Ticker: "AAA", Status: normalize.StatusPartial, MissingFields: "modules: financial_data"},
	}

	e := &Enricher{Scraper: scraper, Workers: 1, Retry: retry.Policy{MaxAttempts: 2}}
	rows = e.Enrich(context.Background(), rows)

	if rows[0].Status != normalize.StatusPartial {
		t.Errorf("Status = %s, enrichment must not change status", rows[0].Status)
	}
	if rows[0].TargetMeanPrice != nil {
		t.Error("TargetMeanPrice should stay empty after a failed scrape")
	}
	if scraper.Calls() != 2 {
		t.Errorf("scraper calls = %d, want 2 (bounded retry)", scraper.Calls())
	}
}

func TestEnrich_SkipsBlankAndCompleteRows(t *testing.T) {
	scraper := &testutil.MockScraper{}

	rows := []normalize.Row{
		{Status: normalize.StatusBlank},
		{
			Ticker:          "DONE",
			Status:          normalize.StatusOK,
			TargetMeanPrice: numPtr(1),
			DividendYield:   numPtr(0.02),
			ExDividendDate:  "14-Nov-2023",
			EarningsDate:    "20-Feb-2024",
		},
	}

	e := &Enricher{Scraper: scraper, Workers: 2, Retry: retry.Policy{MaxAttempts: 1}}
	e.Enrich(context.Background(), rows)

	if scraper.Calls() != 0 {
		t.Errorf("scraper calls = %d, want 0", scraper.Calls())
	}
}

func TestEnrich_PreservesRowOrderWithWorkers(t *testing.T) {
	scraper := &testutil.MockScraper{
		FetchSingleFunc: func(ctx context.Context, symbol string) (map[string]string, error) {
			return map[string]string{"targetMeanPrice": "10"}, nil
		},
	}

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	rows := make([]normalize.Row, len(symbols))
	for i, s := range symbols {
		rows[i] = normalize.Row{Ticker: s, Status: normalize.StatusPartial}
	}

	e := &Enricher{Scraper: scraper, Workers: 4, Retry: retry.Policy{MaxAttempts: 1}}
	rows = e.Enrich(context.Background(), rows)

	for i, s := range symbols {
		if rows[i].Ticker != s {
			t.Errorf("rows[%d].Ticker = %q, want %q", i, rows[i].Ticker, s)
		}
		if rows[i].TargetMeanPrice == nil {
			t.Errorf("rows[%d] not backfilled", i)
		}
	}
}

func TestEnrich_ScrapedDatesRenderedInTableLayout(t *testing.T) {
	scraper := &testutil.MockScraper{
		FetchSingleFunc: func(ctx context.Context, symbol string) (map[string]string, error) {
			return map[string]string{
				"exDividendDate": "Feb 20, 2024",
				"earningsDate":   "Mar 9, 2024 - Mar 13, 2024",
			}, nil
		},
	}

	rows := []normalize.Row{{Ticker: "AAA", Status: normalize.StatusPartial}}
	e := &Enricher{Scraper: scraper, Workers: 1, Retry: retry.Policy{MaxAttempts: 1}}
	rows = e.Enrich(context.Background(), rows)

	if rows[0].ExDividendDate != "20-Feb-2024" {
		t.Errorf("ExDividendDate = %q, want %q", rows[0].ExDividendDate, "20-Feb-2024")
	}
	// A range keeps its first date.
	if rows[0].EarningsDate != "09-Mar-2024" {
		t.Errorf("EarningsDate = %q, want %q", rows[0].EarningsDate, "09-Mar-2024")
	}
}

func TestEnrich_UnparseableScrapedDateIsDropped(t *testing.T) {
	scraper := &testutil.MockScraper{
		FetchSingleFunc: func(ctx context.Context, symbol string) (map[string]string, error) {
			return map[string]string{"earningsDate": "soon"}, nil
		},
	}

	rows := []normalize.Row{{Ticker: "AAA", Status: normalize.StatusPartial}}
	e := &Enricher{Scraper: scraper, Workers: 1, Retry: retry.Policy{MaxAttempts: 1}}
	rows = e.Enrich(context.Background(), rows)

	if rows[0].EarningsDate != "" {
		t.Errorf("EarningsDate = %q, want empty for unparseable page text", rows[0].EarningsDate)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"99.5", 99.5, true},
		{"1,250.75", 1250.75, true},
		{"4.5%", 4.5, true},
		{"N/A", 0, false},
		{"--", 0, false},
		{"", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
