package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"quotesheet/internal/config"
	"quotesheet/internal/enrich"
	"quotesheet/internal/normalize"
	"quotesheet/internal/pipeline"
	"quotesheet/internal/provider"
	"quotesheet/internal/tabular"
)

func main() {
	var (
		configPath string
		workbook   string
		slow       bool
		timeout    int
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file (optional)")
	flag.StringVar(&workbook, "workbook", "", "workbook directory (overrides config)")
	flag.BoolVar(&slow, "slow", false, "run the fallback enrichment stage (slow, per-symbol fetches)")
	flag.IntVar(&timeout, "timeout", 0, "overall run timeout in minutes, 0 for none")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	if workbook != "" {
		cfg.Workbook = workbook
	}
	if slow {
		cfg.Enrich = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Minute)
		defer tcancel()
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	client := provider.NewQuoteClient(cfg.QuoteBaseURL).SetTimeout(requestTimeout)
	var scraper enrich.Scraper
	if cfg.Enrich {
		scraper = enrich.NewPageScraper(cfg.EnrichBaseURL).SetTimeout(requestTimeout)
	}

	p, err := pipeline.New(cfg, client, scraper, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(2)
	}

	summary, err := p.Run(ctx)
	if err != nil {
		var confErr *tabular.ConfigurationError
		if errors.As(err, &confErr) {
			logger.Error("configuration error", "error", err)
			os.Exit(2)
		}
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	printSummary(summary)
}

func printSummary(s pipeline.Summary) {
	fmt.Println("=== SUMMARY ===")
	fmt.Printf("Tickers processed : %d\n", s.Tickers)
	fmt.Printf("Rows written      : %d\n", s.Rows)
	fmt.Printf("Target prices     : %d\n", s.TargetPrices)

	statuses := make([]string, 0, len(s.Statuses))
	for status := range s.Statuses {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("%-17s : %d\n", status, s.Statuses[normalize.Status(status)])
	}
}
