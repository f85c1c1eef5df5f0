// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-picker/internal/pipeline"
	"github.com/pdiddy/paper-picker/internal/report"
	"github.com/pdiddy/paper-picker/internal/scoring"
	"github.com/pdiddy/paper-picker/internal/search"
	"github.com/pdiddy/paper-picker/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score <batch-file>",
	Short: "Run the selection pipeline over a saved batch",
	Long: `Score runs the selection pipeline over a batch written by "paper-picker
fetch" and prints the selection with per-stage statistics. Nothing is
summarized or stored.

The batch's fetch time is the pipeline clock, so a days_back window covers
the same days on every re-run. Use --now to score as of another date and
--no-dedup to ignore the record store.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	addSelectionFlags(scoreCmd)
	scoreCmd.Flags().String("now", "", "score as of this date (YYYY-MM-DD) instead of the batch fetch time")
	scoreCmd.Flags().Bool("no-dedup", false, "skip the lookup against stored papers")
	scoreCmd.Flags().Bool("json", false, "print the selection and statistics as JSON")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := applySelectionFlags(cmd, &cfg.Selection); err != nil {
		return err
	}
	logger, err := commandLogger(cmd)
	if err != nil {
		return err
	}

	batch, err := search.ReadBatch(args[0])
	if err != nil {
		return err
	}
	if len(cfg.Selection.Keywords) == 0 {
		cfg.Selection.Keywords = batch.Keywords
	}

	now := batch.FetchedAt
	if s, _ := cmd.Flags().GetString("now"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("invalid --now %q: %w", s, err)
		}
		now = t
	}
	if now.IsZero() {
		now = time.Now()
	}

	tables, err := scoring.LoadTables(cfg.Scoring.TablesFile)
	if err != nil {
		return err
	}

	var lookup pipeline.Lookup
	if noDedup, _ := cmd.Flags().GetBool("no-dedup"); !noDedup {
		st, err := store.Open(cmd.Context(), cfg.Store, logger)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()
		lookup = st
	}

	p, err := pipeline.New(cfg.Selection, tables, lookup,
		pipeline.WithLogger(logger),
		pipeline.WithFailClosed(cfg.Store.FailClosed),
		pipeline.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		return err
	}
	res, err := p.Run(cmd.Context(), batch.Records)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return report.FormatJSON(res.Selected, res.Stats, w)
	}
	report.FormatTable(res.Selected, w)
	fmt.Fprintln(w)
	report.FormatStats(res.Stats, w)
	return nil
}
