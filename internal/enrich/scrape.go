package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"
)

// labelSynonyms maps each canonical backfill field to the label variants the
// quote page has used for it. Matching is case-insensitive on the trimmed
// label text, so layout churn in surrounding markup does not break
// extraction as long as the label survives.
var labelSynonyms = map[string][]string{
	"targetMeanPrice": {"1y Target Est", "1-Year Target Price", "Target Est"},
	"exDividendDate":  {"Ex-Dividend Date", "Ex-Dividend"},
	"earningsDate":    {"Earnings Date", "Next Earnings Date"},
	"dividendYield":   {"Forward Dividend & Yield", "Dividend Yield", "Yield"},
}

// PageScraper extracts backfill fields from a per-symbol quote detail page.
// It is one versioned adapter behind the Scraper interface; when the page
// layout changes, this type gets replaced, not patched inline elsewhere.
type PageScraper struct {
	client *resty.Client
}

// NewPageScraper creates a scraper for quote pages served under baseURL;
// pages are fetched as GET {baseURL}/{symbol}.
func NewPageScraper(baseURL string) *PageScraper {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", "Mozilla/5.0")

	return &PageScraper{client: client}
}

// SetTimeout bounds each page round trip.
func (p *PageScraper) SetTimeout(d time.Duration) *PageScraper {
	p.client.SetTimeout(d)
	return p
}

// FetchSingle downloads the symbol's detail page and extracts whatever
// labelled values it can find. Fields without a matching label are absent
// from the result, not errors.
func (p *PageScraper) FetchSingle(ctx context.Context, symbol string) (map[string]string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		Get("/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("page fetch failed for %s: %w", symbol, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("page for %s returned status %d", symbol, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page for %s: %w", symbol, err)
	}
	return extractLabelled(doc), nil
}

// extractLabelled walks label/value pairs in the page's summary markup. The
// page renders them either as table rows (label td, value td) or list items
// holding two spans.
func extractLabelled(doc *goquery.Document) map[string]string {
	out := make(map[string]string)

	record := func(label, value string) {
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		if label == "" || value == "" {
			return
		}
		for field, synonyms := range labelSynonyms {
			if _, done := out[field]; done {
				continue
			}
			for _, syn := range synonyms {
				if strings.EqualFold(label, syn) {
					out[field] = value
					break
				}
			}
		}
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() >= 2 {
			record(cells.First().Text(), cells.Last().Text())
		}
	})
	doc.Find("li").Each(func(_ int, item *goquery.Selection) {
		spans := item.Find("span")
		if spans.Length() >= 2 {
			record(spans.First().Text(), spans.Last().Text())
		}
	})
	return out
}
