package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"quotesheet/internal/provider"
	"quotesheet/internal/retry"
)

// Fetcher partitions symbols into provider-safe batches, fetches each
// requested module per batch with bounded retry, and merges the per-batch
// responses into one ModuleResult per module. A failed (module, batch) call
// degrades only the symbols of that batch; other batches' results stand.
type Fetcher struct {
	Client    provider.Client
	BatchSize int
	Retry     retry.Policy

	// Limiter paces provider calls between batches to respect rate limits.
	// Nil disables pacing.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// Fetch queries every requested module for the distinct non-blank symbols in
// order of first appearance. It never fails the run: exhausted retries are
// recorded per symbol in the returned ModuleResults.
func (f *Fetcher) Fetch(ctx context.Context, symbols []string, modules []string) map[string]provider.ModuleResult {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	distinct := distinctSymbols(symbols)
	batches := chunk(distinct, f.BatchSize)

	results := make(map[string]provider.ModuleResult, len(modules))
	for _, module := range modules {
		results[module] = provider.ModuleResult{
			Symbols: make(map[string]provider.FieldMap),
			Failed:  make(map[string]string),
		}
	}

	for i, batch := range batches {
		if f.Limiter != nil && i > 0 {
			if err := f.Limiter.Wait(ctx); err != nil {
				f.recordBatchFailure(results, modules, batch, err.Error())
				continue
			}
		}
		logger.Info("fetching batch", "batch", i+1, "batches", len(batches), "symbols", len(batch))

		for _, module := range modules {
			resp, err := f.fetchModule(ctx, batch, module)
			if err != nil {
				logger.Warn("module failed for batch",
					"module", module, "batch", i+1, "cause", err.Error())
				result := results[module]
				for _, s := range batch {
					result.Failed[s] = err.Error()
				}
				continue
			}
			result := results[module]
			for symbol, fields := range resp.Symbols {
				result.Symbols[symbol] = fields
			}
		}
	}
	return results
}

// fetchModule calls the provider for one (module, batch) pair under the retry
// policy. A response classified as a failure marker counts as a failed
// attempt, same as a transport error.
func (f *Fetcher) fetchModule(ctx context.Context, batch []string, module string) (provider.ModuleResponse, error) {
	var resp provider.ModuleResponse

	err := f.Retry.Do(ctx, func(ctx context.Context) error {
		modules, err := f.Client.FetchModules(ctx, batch, []string{module})
		if err != nil {
			return err
		}
		r, ok := modules[module]
		if !ok {
			return fmt.Errorf("module %q missing from provider response", module)
		}
		if r.Failed() {
			return fmt.Errorf("module %q: %s", module, r.Err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return provider.ModuleResponse{}, err
	}
	return resp, nil
}

func (f *Fetcher) recordBatchFailure(results map[string]provider.ModuleResult, modules []string, batch []string, cause string) {
	for _, module := range modules {
		result := results[module]
		for _, s := range batch {
			result.Failed[s] = cause
		}
	}
}

// distinctSymbols drops blanks and duplicates while preserving the order of
// first appearance.
func distinctSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = len(symbols)
	}
	var out [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[start:end])
	}
	return out
}
