package enrich

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"quotesheet/internal/normalize"
	"quotesheet/internal/retry"
)

// Scraper fetches backfill fields for a single symbol from a secondary
// source. Keys in the returned map are canonical provider field names
// (targetMeanPrice, exDividendDate, earningsDate, dividendYield); values are
// display strings as found on the page. Missing fields are simply absent.
type Scraper interface {
	FetchSingle(ctx context.Context, symbol string) (map[string]string, error)
}

// Enricher backfills row fields the primary provider left empty, one
// single-symbol fetch at a time on a bounded worker pool. It fills gaps only:
// a field the normalizer populated is never overwritten, and a failed scrape
// leaves the row exactly as it was. Row status is never downgraded here.
type Enricher struct {
	Scraper Scraper
	Workers int
	Retry   retry.Policy

	// ScalePercents mirrors the normalizer's percent rule for scraped
	// yield values.
	ScalePercents bool

	Logger *slog.Logger
}

// Enrich mutates rows in place and returns them. Workers write only to their
// own row index, so completion order cannot leak into output order.
func (e *Enricher) Enrich(ctx context.Context, rows []normalize.Row) []normalize.Row {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range rows {
		row := &rows[i]
		if row.Status == normalize.StatusBlank || !needsBackfill(row) {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			fields, err := e.fetchSingle(ctx, row.Ticker)
			if err != nil {
				logger.Warn("enrichment miss",
					"symbol", row.Ticker, "cause", err.Error(),
					"elapsed", time.Since(start).Round(100*time.Millisecond))
				return nil
			}
			e.fill(row, fields)
			return nil
		})
	}
	g.Wait()
	return rows
}

func (e *Enricher) fetchSingle(ctx context.Context, symbol string) (map[string]string, error) {
	var fields map[string]string
	err := e.Retry.Do(ctx, func(ctx context.Context) error {
		got, err := e.Scraper.FetchSingle(ctx, symbol)
		if err != nil {
			return err
		}
		fields = got
		return nil
	})
	return fields, err
}

// needsBackfill reports whether any backfillable slot is still empty.
func needsBackfill(row *normalize.Row) bool {
	return row.TargetMeanPrice == nil ||
		row.DividendYield == nil ||
		row.ExDividendDate == "" ||
		row.EarningsDate == ""
}

// fill copies scraped values into empty slots only.
func (e *Enricher) fill(row *normalize.Row, fields map[string]string) {
	if row.TargetMeanPrice == nil {
		if v, ok := parseNumber(fields["targetMeanPrice"]); ok {
			num := normalize.Number(v)
			row.TargetMeanPrice = &num
		}
	}
	if row.DividendYield == nil {
		if v, ok := parseNumber(fields["dividendYield"]); ok {
			if e.ScalePercents {
				v = normalize.PercentFraction(v)
			}
			num := normalize.Number(v)
			row.DividendYield = &num
		}
	}
	if row.ExDividendDate == "" {
		row.ExDividendDate = parseDate(fields["exDividendDate"])
	}
	if row.EarningsDate == "" {
		row.EarningsDate = parseDate(fields["earningsDate"])
	}
}

// pageDateLayouts are the date renderings quote pages have been seen using.
var pageDateLayouts = []string{
	normalize.DateLayout,
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
}

// parseDate re-renders a scraped date in the table's date layout. Pages
// sometimes show a range ("Mar 9, 2024 - Mar 13, 2024"); the first date
// wins. Text that matches no known layout is dropped rather than written
// into a date cell.
func parseDate(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " - "); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	for _, layout := range pageDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(normalize.DateLayout)
		}
	}
	return ""
}

// parseNumber reads a display number, tolerating thousands separators, a
// trailing percent sign, and N/A placeholders.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.EqualFold(s, "N/A") || s == "--" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
