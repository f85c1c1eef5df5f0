// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-picker CLI. It fetches
// arXiv papers for the configured keywords, selects a keyword-balanced
// subset through the scoring pipeline, summarizes and stores the selection,
// and writes a run report.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-picker/internal/secrets"
	"github.com/pdiddy/paper-picker/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ and .env at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paper-picker CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-picker",
	Short: "Pick, summarize and archive the most relevant new arXiv papers",
	Long: `paper-picker fetches recent arXiv papers for a list of target keywords,
scores them for relevance, importance and recency, and keeps a bounded,
keyword-balanced selection. Selected papers are summarized by a language
model, stored so later runs skip them, and recorded in a run report.

Use run for the whole flow, fetch and score to tune the selection offline
on a saved batch, and schedule to run on a cron expression.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.LoadAll(".secrets/", ".env")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-picker.yaml or ~/.config/paper-picker/paper-picker.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("tables", "", "scoring tables file merged over the built-in tables")

	viper.BindPFlag("scoring.tables_file", pf.Lookup("tables"))
}

func initConfig() {
	// A .env file seeds the environment; variables already set win.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-picker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-picker"))
		}
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configureViper registers the defaults and environment bindings. Every key
// needs a default so PAPER_PICKER_* variables reach Unmarshal.
func configureViper(v *viper.Viper) {
	v.SetEnvPrefix("PAPER_PICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := types.DefaultConfig()
	defaults := map[string]any{
		"selection.keywords":              d.Selection.Keywords,
		"selection.max_papers":            d.Selection.MaxPapers,
		"selection.window.mode":           string(d.Selection.Window.Mode),
		"selection.window.days_back":      d.Selection.Window.DaysBack,
		"selection.window.start":          d.Selection.Window.Start,
		"selection.window.end":            d.Selection.Window.End,
		"selection.relevance_floor":       d.Selection.RelevanceFloor,
		"selection.population_fraction":   d.Selection.PopulationFraction,
		"selection.population_ceiling":    d.Selection.PopulationCeiling,
		"selection.composite_floor":       d.Selection.CompositeFloor,
		"selection.weights.relevance":     d.Selection.Weights.Relevance,
		"selection.weights.importance":    d.Selection.Weights.Importance,
		"selection.weights.recency":       d.Selection.Weights.Recency,
		"selection.balance":               d.Selection.Balance,
		"selection.backfill":              d.Selection.Backfill,
		"selection.filter_expr":           d.Selection.FilterExpr,
		"fetch.timeout":                   d.Fetch.Timeout,
		"fetch.user_agent":                d.Fetch.UserAgent,
		"fetch.per_keyword":               d.Fetch.PerKeyword,
		"fetch.concurrency":               d.Fetch.Concurrency,
		"fetch.max_retries":               d.Fetch.MaxRetries,
		"store.driver":                    string(d.Store.Driver),
		"store.dsn":                       d.Store.DSN,
		"store.fail_closed":               d.Store.FailClosed,
		"store.bloom.enabled":             d.Store.Bloom.Enabled,
		"store.bloom.capacity":            d.Store.Bloom.Capacity,
		"store.bloom.false_positive_rate": d.Store.Bloom.FalsePositiveRate,
		"summary.model":                   d.Summary.Model,
		"summary.api_key":                 d.Summary.APIKey,
		"summary.max_retries":             d.Summary.MaxRetries,
		"summary.base_url":                d.Summary.BaseURL,
		"summary.language":                d.Summary.Language,
		"summary.timeout":                 d.Summary.Timeout,
		"summary.request_delay":           d.Summary.RequestDelay,
		"report.dir":                      d.Report.Dir,
		"scoring.tables_file":             d.Scoring.TablesFile,
		"schedule.cron":                   d.Schedule.Cron,
		"schedule.metrics_addr":           d.Schedule.MetricsAddr,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Variable names used by earlier deployments.
	v.BindEnv("selection.keywords", "PAPER_PICKER_SELECTION_KEYWORDS", "SEARCH_KEYWORDS")
	v.BindEnv("selection.max_papers", "PAPER_PICKER_SELECTION_MAX_PAPERS", "MAX_PAPERS")
	v.BindEnv("selection.window.days_back", "PAPER_PICKER_SELECTION_WINDOW_DAYS_BACK", "DAYS_BACK")
	v.BindEnv("summary.api_key", "PAPER_PICKER_SUMMARY_API_KEY", "OPENAI_API_KEY")
}

// loadConfig decodes the settings in v over the defaults. A summarizer API
// key missing from the config falls back to the loaded secrets.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Selection.Keywords = splitKeywords(cfg.Selection.Keywords)
	if cfg.Summary.APIKey == "" {
		cfg.Summary.APIKey = secrets.Get(loadedSecrets, secrets.OpenAIKey)
	}
	return cfg, nil
}

// splitKeywords trims keywords and splits comma-joined entries, which is how
// a keyword list arrives from a single environment variable.
func splitKeywords(in []string) []string {
	var out []string
	for _, kw := range in {
		for _, part := range strings.Split(kw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// newLogger builds the process logger writing to w.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want text or json", format)
	}
}

// commandLogger builds the logger from the persistent flags.
func commandLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return newLogger(cmd.ErrOrStderr(), level, format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
