// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-picker/internal/store"
	"github.com/pdiddy/paper-picker/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List papers stored by recent runs",
	Long: `History lists the papers stored in the last --days days, newest first,
with their scores and matched keyword.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("days", 7, "list papers processed in the last N days (0 lists all)")
	historyCmd.Flags().Int("limit", 50, "maximum number of papers to list (0 means no limit)")
	historyCmd.Flags().Bool("json", false, "output papers as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := commandLogger(cmd)
	if err != nil {
		return err
	}
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := store.Open(cmd.Context(), cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	hist, ok := store.AsHistory(st)
	if !ok {
		return fmt.Errorf("store %s cannot list history", st.Name())
	}

	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}
	papers, err := hist.Recent(cmd.Context(), since, limit)
	if err != nil {
		return err
	}
	return formatHistory(papers, jsonOutput, cmd.OutOrStdout())
}

func formatHistory(papers []types.StoredPaper, jsonOutput bool, w io.Writer) error {
	if jsonOutput {
		if papers == nil {
			papers = []types.StoredPaper{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers stored.")
		return nil
	}

	fmt.Fprintf(w, "%-16s  %-12s  %-9s  %-16s  %s\n", "Processed", "ID", "Composite", "Keyword", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, p := range papers {
		keyword := p.MatchedKeyword
		if len(keyword) > 16 {
			keyword = keyword[:13] + "..."
		}
		title := p.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(w, "%-16s  %-12s  %9.1f  %-16s  %s\n",
			p.ProcessedAt.Local().Format("2006-01-02 15:04"), p.ID, p.Composite, keyword, title)
	}
	fmt.Fprintf(w, "\n%d papers\n", len(papers))
	return nil
}
