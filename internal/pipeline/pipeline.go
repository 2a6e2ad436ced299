package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"quotesheet/internal/config"
	"quotesheet/internal/enrich"
	"quotesheet/internal/fetch"
	"quotesheet/internal/normalize"
	"quotesheet/internal/provider"
	"quotesheet/internal/retry"
	"quotesheet/internal/tabular"
)

// Pipeline holds every run-scoped collaborator: the tabular store, the batch
// fetcher, the normalizer and the optional enricher. One Pipeline serves one
// run; nothing here outlives it and there are no package-level singletons.
type Pipeline struct {
	cfg       *config.Config
	store     *tabular.Store
	fetcher   *fetch.Fetcher
	norm      *normalize.Normalizer
	enricher  *enrich.Enricher
	logger    *slog.Logger
}

// Summary reports what one run produced.
type Summary struct {
	Tickers      int
	Rows         int
	TargetPrices int
	Statuses     map[normalize.Status]int
}

// New assembles a pipeline from configuration and the two external clients.
// Pass a nil scraper (or Enrich=false) to skip the enrichment stage; the
// primary pipeline is complete without it.
func New(cfg *config.Config, client provider.Client, scraper enrich.Scraper, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.BatchPause > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.BatchPause)*time.Second), 1)
	}

	norm := normalize.New(cfg.Modules, loc)
	norm.ScalePercents = cfg.ScalePercents
	norm.EmptyFieldLimit = cfg.MissingFieldLimit

	p := &Pipeline{
		cfg:   cfg,
		store: tabular.NewStore(cfg.Workbook),
		fetcher: &fetch.Fetcher{
			Client:    client,
			BatchSize: cfg.BatchSize,
			Retry: retry.Policy{
				MaxAttempts: cfg.MaxRetries,
				Delay:       cfg.RetryDelayDuration(),
			},
			Limiter: limiter,
			Logger:  logger,
		},
		norm:   norm,
		logger: logger,
	}

	if cfg.Enrich && scraper != nil {
		p.enricher = &enrich.Enricher{
			Scraper: scraper,
			Workers: cfg.EnrichWorkers,
			Retry: retry.Policy{
				MaxAttempts: cfg.EnrichRetries,
				Delay:       time.Duration(cfg.EnrichDelaySec) * time.Second,
				Jitter:      time.Duration(cfg.EnrichDelaySec) * time.Second,
			},
			ScalePercents: cfg.ScalePercents,
			Logger:        logger,
		}
	}
	return p, nil
}

// Run executes one load -> fetch -> normalize -> enrich -> write cycle.
// Per-symbol and per-module failures surface in row statuses, not as errors;
// only a missing input table/column or a failed write comes back as an error.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	symbols, err := p.store.ReadSymbols(p.cfg.InputTable, p.cfg.InputColumn, p.cfg.InputColumn+"s")
	if err != nil {
		return Summary{}, err
	}
	p.logger.Info("symbols loaded", "count", len(symbols), "table", p.cfg.InputTable)

	results := p.fetcher.Fetch(ctx, symbols, p.cfg.Modules)
	rows := p.norm.Normalize(symbols, results)

	if p.enricher != nil {
		rows = p.enricher.Enrich(ctx, rows)
	}

	if err := p.store.WriteRows(p.cfg.OutputTable, rows); err != nil {
		return Summary{}, err
	}
	if p.cfg.History {
		table := p.cfg.OutputTable + "_" + time.Now().Format("2006-01-02_15-04")
		if err := p.store.WriteRows(table, rows); err != nil {
			return Summary{}, err
		}
	}

	return summarize(symbols, rows), nil
}

func summarize(symbols []string, rows []normalize.Row) Summary {
	s := Summary{
		Tickers:  len(symbols),
		Rows:     len(rows),
		Statuses: make(map[normalize.Status]int),
	}
	for i := range rows {
		s.Statuses[rows[i].Status]++
		if rows[i].TargetMeanPrice != nil {
			s.TargetPrices++
		}
	}
	return s
}
