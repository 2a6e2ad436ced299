package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for one pipeline run.
type Config struct {
	// Workbook is the directory holding the CSV tables.
	Workbook    string `mapstructure:"workbook"`
	InputTable  string `mapstructure:"input_table"`
	InputColumn string `mapstructure:"input_column"`
	OutputTable string `mapstructure:"output_table"`

	// History also writes a timestamped copy of the output table each run.
	History bool `mapstructure:"history"`

	// Provider settings.
	QuoteBaseURL string   `mapstructure:"quote_base_url"`
	Modules      []string `mapstructure:"modules"`
	BatchSize    int      `mapstructure:"batch_size"`
	MaxRetries   int      `mapstructure:"max_retries"`
	RetryDelay   int      `mapstructure:"retry_delay_sec"`
	BatchPause   int      `mapstructure:"batch_pause_sec"`

	// Normalization settings.
	Timezone          string `mapstructure:"timezone"`
	ScalePercents     bool   `mapstructure:"normalize_percent_over_one"`
	MissingFieldLimit int    `mapstructure:"missing_field_limit"`

	// Enrichment settings. Enrich defaults off; the stage is the slowest and
	// least reliable part of the run and the primary pipeline is correct
	// without it.
	Enrich         bool   `mapstructure:"enrich"`
	EnrichBaseURL  string `mapstructure:"enrich_base_url"`
	EnrichWorkers  int    `mapstructure:"enrich_workers"`
	EnrichRetries  int    `mapstructure:"enrich_retries"`
	EnrichDelaySec int    `mapstructure:"enrich_delay_sec"`

	RequestTimeoutSec int `mapstructure:"request_timeout_sec"`
}

// RetryDelayDuration returns the fetch retry delay.
func (c *Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

// Load reads configuration from an optional config file and environment
// variables; environment variables take precedence. Returns an error naming
// every missing required key at once.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("workbook", "data")
	v.SetDefault("input_table", "Tickers")
	v.SetDefault("input_column", "Ticker")
	v.SetDefault("output_table", "LatestData")
	v.SetDefault("history", false)

	v.SetDefault("quote_base_url", "https://quote.example.com/v7/modules")
	v.SetDefault("modules", []string{"price", "summary_detail", "calendar_events", "financial_data"})
	v.SetDefault("batch_size", 20)
	v.SetDefault("max_retries", 2)
	v.SetDefault("retry_delay_sec", 4)
	v.SetDefault("batch_pause_sec", 1)

	v.SetDefault("timezone", "Australia/Sydney")
	v.SetDefault("normalize_percent_over_one", true)
	v.SetDefault("missing_field_limit", 3)

	v.SetDefault("enrich", false)
	v.SetDefault("enrich_base_url", "https://quote.example.com/quote")
	v.SetDefault("enrich_workers", 6)
	v.SetDefault("enrich_retries", 2)
	v.SetDefault("enrich_delay_sec", 1)

	v.SetDefault("request_timeout_sec", 15)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.quotesheet")
		_ = v.ReadInConfig()
	}

	v.BindEnv("workbook", "QUOTESHEET_WORKBOOK")
	v.BindEnv("quote_base_url", "QUOTESHEET_QUOTE_BASE_URL")
	v.BindEnv("enrich_base_url", "QUOTESHEET_ENRICH_BASE_URL")
	v.BindEnv("timezone", "QUOTESHEET_TIMEZONE")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var missing []string
	if config.Workbook == "" {
		missing = append(missing, "workbook")
	}
	if config.InputTable == "" {
		missing = append(missing, "input_table")
	}
	if config.InputColumn == "" {
		missing = append(missing, "input_column")
	}
	if config.OutputTable == "" {
		missing = append(missing, "output_table")
	}
	if len(config.Modules) == 0 {
		missing = append(missing, "modules")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if _, err := time.LoadLocation(config.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", config.Timezone, err)
	}

	return config, nil
}
