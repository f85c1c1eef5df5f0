// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-picker/internal/search"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch arXiv papers and save them as a batch file",
	Long: `Fetch queries arXiv once per keyword and writes the raw records to a
YAML batch file. With --from/--to (or selection.window in date_range mode)
the queries are limited to papers submitted in that range. Score the batch with "paper-picker score" to tune the
selection without querying arXiv again.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringSlice("keywords", nil, "keywords to fetch (comma-separated); overrides selection.keywords")
	fetchCmd.Flags().String("from", "", "first submission date (YYYY-MM-DD); with --to limits the queries")
	fetchCmd.Flags().String("to", "", "last submission date (YYYY-MM-DD)")
	fetchCmd.Flags().String("out", "", "batch file path (default: batches/<YYYY-MM-DD-HHMMSS>.yaml)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := commandLogger(cmd)
	if err != nil {
		return err
	}

	if err := applySelectionFlags(cmd, &cfg.Selection); err != nil {
		return err
	}
	keywords := cfg.Selection.Keywords
	if len(keywords) == 0 {
		return fmt.Errorf("no keywords: set selection.keywords or pass --keywords")
	}

	now := time.Now().UTC()
	span, err := fetchSpan(cfg.Selection.Window, now)
	if err != nil {
		return err
	}
	out, err := search.NewFetcher(cfg.Fetch, logger).Fetch(cmd.Context(), keywords, span)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		path = filepath.Join("batches", now.Format("2006-01-02-150405")+".yaml")
	}
	if err := search.WriteBatch(path, search.NewBatch(keywords, out, now)); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "fetched %d records for %d keywords", len(out.Records), len(keywords))
	if len(out.FailedKeywords) > 0 {
		fmt.Fprintf(w, " (%d failed: %v)", len(out.FailedKeywords), out.FailedKeywords)
	}
	fmt.Fprintf(w, "\nbatch written to %s\n", path)
	return nil
}
