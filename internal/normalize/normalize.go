package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"quotesheet/internal/provider"
)

const (
	// millisEpochFloor disambiguates second from millisecond timestamps:
	// values at or above it are taken as milliseconds.
	millisEpochFloor = 1e12

	// DateLayout is the rendering layout for date cells; the enricher uses
	// it too so backfilled dates match provider-sourced ones.
	DateLayout = "02-Jan-2006"

	dateTimeLayout = "02-Jan-2006 15:04"
)

// Normalizer merges per-module field maps into flat Rows. It is pure with
// respect to its inputs: all fetching happens upstream.
type Normalizer struct {
	// Modules is the ordered list of module names requested for the run.
	Modules []string

	// Location is the timezone output dates and times are rendered in.
	Location *time.Location

	// ScalePercents applies the magnitude rule to percent-like fields:
	// |v| > 1 is taken as a percentage and divided by 100. Off, values pass
	// through untouched.
	ScalePercents bool

	// EmptyFieldLimit is how many empty output fields a fully-answered row
	// may have before it is downgraded to PARTIAL.
	EmptyFieldLimit int
}

// New returns a Normalizer with the observed-majority defaults: percent
// scaling on, and up to three empty fields tolerated before PARTIAL.
func New(modules []string, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{
		Modules:         modules,
		Location:        loc,
		ScalePercents:   true,
		EmptyFieldLimit: 3,
	}
}

// Normalize produces exactly one Row per input symbol, in input order. Blank
// symbols yield all-empty BLANK rows so positional alignment with the source
// table is preserved.
func (n *Normalizer) Normalize(symbols []string, results map[string]provider.ModuleResult) []Row {
	rows := make([]Row, len(symbols))
	for i, symbol := range symbols {
		if symbol == "" {
			rows[i] = Row{Status: StatusBlank}
			continue
		}
		rows[i] = n.normalizeSymbol(symbol, results)
	}
	return rows
}

func (n *Normalizer) normalizeSymbol(symbol string, results map[string]provider.ModuleResult) Row {
	row := Row{Ticker: symbol}

	var missingModules []string
	available := make(map[string]provider.FieldMap, len(n.Modules))
	for _, module := range n.Modules {
		result, ok := results[module]
		if !ok {
			missingModules = append(missingModules, module)
			continue
		}
		if _, failed := result.FailureFor(symbol); failed {
			missingModules = append(missingModules, module)
			continue
		}
		fields, present := result.Symbols[symbol]
		if !present {
			missingModules = append(missingModules, module)
			continue
		}
		available[module] = fields
	}

	if len(missingModules) == len(n.Modules) {
		row.Status = StatusNoData
		row.MissingFields = "modules: " + strings.Join(missingModules, ",")
		return row
	}

	for _, spec := range fieldSpecs {
		n.resolve(&row, spec, available)
	}

	empty := row.EmptyFields()
	switch {
	case len(missingModules) > 0:
		row.Status = StatusPartial
		row.MissingFields = "modules: " + strings.Join(missingModules, ",")
	case len(empty) > n.EmptyFieldLimit:
		row.Status = StatusPartial
		row.MissingFields = strings.Join(empty, ",")
	default:
		row.Status = StatusOK
	}
	return row
}

// resolve walks the field's candidate list and applies the first usable
// value. A candidate whose module is unavailable, whose field is absent, or
// whose value cannot be coerced contributes nothing; the next one is tried.
func (n *Normalizer) resolve(row *Row, spec fieldSpec, available map[string]provider.FieldMap) {
	for _, c := range spec.candidates {
		fields, ok := available[c.module]
		if !ok {
			continue
		}
		raw, ok := fields[c.field]
		if !ok || raw == nil {
			continue
		}
		raw = unwrap(raw)
		if raw == nil {
			continue
		}

		switch spec.kind {
		case kindNumber:
			if v, ok := toFloat(raw); ok {
				num := Number(v)
				spec.setNum(row, &num)
				return
			}
		case kindPercent:
			if v, ok := toFloat(raw); ok {
				if n.ScalePercents {
					v = PercentFraction(v)
				}
				num := Number(v)
				spec.setNum(row, &num)
				return
			}
		case kindDate:
			if s := n.toDate(raw, DateLayout); s != "" {
				spec.setText(row, s)
				return
			}
		case kindDateTime:
			if s := n.toDate(raw, dateTimeLayout); s != "" {
				spec.setText(row, s)
				return
			}
		case kindText:
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				spec.setText(row, strings.TrimSpace(s))
				return
			}
		}
	}
}

// PercentFraction normalizes a percent-like value to a fraction. Providers
// inconsistently return "2.3" and "0.023" for 2.3%; any magnitude above 1 is
// treated as a percentage and divided by 100, regardless of sign. That means
// -150.0 becomes -1.5 — a known quirk of the magnitude rule, kept as is.
func PercentFraction(v float64) float64 {
	if math.Abs(v) > 1 {
		return v / 100
	}
	return v
}

// unwrap reduces provider value shapes to a scalar: {"raw": x, "fmt": "..."}
// wrappers yield their raw member, lists yield their first element (earnings
// dates arrive as a list of candidate epochs). Anything else passes through.
func unwrap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if raw, ok := t["raw"]; ok {
			return unwrap(raw)
		}
		return nil
	case []any:
		if len(t) == 0 {
			return nil
		}
		return unwrap(t[0])
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toDate renders an epoch timestamp or a parseable date string in the run's
// timezone. Epochs at or above 1e12 are milliseconds, below that seconds.
// Unparseable values yield "", never an error.
func (n *Normalizer) toDate(v any, layout string) string {
	if f, ok := toFloat(v); ok {
		if f <= 0 {
			return ""
		}
		var ts time.Time
		if f >= millisEpochFloor {
			ts = time.UnixMilli(int64(f))
		} else {
			ts = time.Unix(int64(f), 0)
		}
		return ts.In(n.Location).Format(layout)
	}
	if s, ok := v.(string); ok {
		for _, parse := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(parse, strings.TrimSpace(s)); err == nil {
				return ts.In(n.Location).Format(layout)
			}
		}
	}
	return ""
}
