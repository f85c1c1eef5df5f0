// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-picker/internal/pipeline"
	"github.com/pdiddy/paper-picker/internal/report"
	"github.com/pdiddy/paper-picker/internal/scoring"
	"github.com/pdiddy/paper-picker/internal/search"
	"github.com/pdiddy/paper-picker/internal/store"
	"github.com/pdiddy/paper-picker/internal/summarize"
	"github.com/pdiddy/paper-picker/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, select, summarize and store new papers",
	Long: `Run fetches recent arXiv papers for every keyword, drops papers already
stored, scores and selects a keyword-balanced subset, summarizes the
selection, stores the summarized papers and writes a run report to
report.dir.

With --dry-run the selection is printed and nothing is summarized or stored.`,
	RunE: runRun,
}

func init() {
	addSelectionFlags(runCmd)
	runCmd.Flags().Bool("dry-run", false, "select papers without summarizing or storing them")
	runCmd.Flags().Bool("json", false, "print the selection and statistics as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	r := &runner{
		cfg:     cfg,
		store:   st,
		fetcher: search.NewFetcher(cfg.Fetch, logger),
		logger:  logger,
		out:     cmd.OutOrStdout(),
		dryRun:  dryRun,
		json:    jsonOutput,
	}
	if !dryRun {
		backend, err := summarize.NewOpenAIBackend(cfg.Summary)
		if err != nil {
			return err
		}
		r.backend = backend
	}
	return r.run(ctx)
}

// fetcher is the part of search.Fetcher a run needs.
type fetcher interface {
	Fetch(ctx context.Context, keywords []string, span search.Span) (search.FetchOutput, error)
}

// fetchSpan scopes arXiv queries to the selection window in date_range
// mode. A rolling window leaves queries unrestricted and relies on the
// date filter stage.
func fetchSpan(cfg types.DateWindowConfig, now time.Time) (search.Span, error) {
	if cfg.Mode != types.WindowDateRange {
		return search.Span{}, nil
	}
	w, err := pipeline.ResolveWindow(cfg, now)
	if err != nil {
		return search.Span{}, err
	}
	return search.Span{From: w.Start, To: w.End}, nil
}

// runner carries one configured end-to-end run. The schedule command reuses
// it for every tick.
type runner struct {
	cfg     types.Config
	store   store.Store
	fetcher fetcher
	backend summarize.Backend
	metrics *report.Metrics
	logger  *slog.Logger
	out     io.Writer
	now     func() time.Time

	dryRun bool
	json   bool
}

func (r *runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// run executes fetch, selection, summarization, storage and reporting.
// Setup failures and fetch failures count as failed runs in the metrics;
// the pipeline records its own outcome.
func (r *runner) run(ctx context.Context) error {
	p, err := r.newPipeline()
	if err != nil {
		r.countFailure()
		return err
	}

	span, err := fetchSpan(r.cfg.Selection.Window, r.clock())
	if err != nil {
		r.countFailure()
		return err
	}
	fetched, err := r.fetcher.Fetch(ctx, r.cfg.Selection.Keywords, span)
	if err != nil {
		r.countFailure()
		return err
	}
	fmt.Fprintf(r.out, "fetched %d records for %d keywords\n", len(fetched.Records), len(r.cfg.Selection.Keywords))

	res, err := p.Run(ctx, fetched.Records)
	if err != nil {
		return err
	}
	for _, kw := range fetched.FailedKeywords {
		res.Stats.Note(fmt.Sprintf("fetch: keyword %q failed", kw))
	}

	if r.dryRun {
		return r.print(res.Selected, res.Stats)
	}

	stored, err := r.summarizeAndStore(ctx, res)
	if err != nil {
		return err
	}

	rep := &report.RunReport{Stats: res.Stats, Selection: r.cfg.Selection, Papers: stored}
	path, err := rep.Write(r.cfg.Report.Dir)
	if err != nil {
		return err
	}
	if err := r.print(res.Selected, res.Stats); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "report written to %s\n", path)

	if len(res.Selected) > 0 && len(stored) == 0 {
		return fmt.Errorf("no summaries generated for %d selected papers", len(res.Selected))
	}
	return nil
}

func (r *runner) newPipeline() (*pipeline.Pipeline, error) {
	tables, err := scoring.LoadTables(r.cfg.Scoring.TablesFile)
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{
		pipeline.WithLogger(r.logger),
		pipeline.WithFailClosed(r.cfg.Store.FailClosed),
		pipeline.WithClock(r.clock),
	}
	if r.metrics != nil {
		opts = append(opts, pipeline.WithMetrics(r.metrics))
	}
	var lookup pipeline.Lookup
	if r.store != nil {
		lookup = r.store
	}
	return pipeline.New(r.cfg.Selection, tables, lookup, opts...)
}

// summarizeAndStore summarizes the selection and saves the papers that got
// a summary. Papers whose summary failed stay unstored so a later run can
// select them again.
func (r *runner) summarizeAndStore(ctx context.Context, res pipeline.Result) ([]types.StoredPaper, error) {
	if len(res.Selected) == 0 {
		return nil, nil
	}
	s := summarize.New(r.backend, r.cfg.Summary, r.logger)
	results, counts, err := s.SummarizeAll(ctx, res.Selected, r.out)
	if err != nil {
		return nil, err
	}
	if counts.Failed > 0 {
		res.Stats.Note(fmt.Sprintf("summarize: %d of %d papers failed", counts.Failed, counts.Total()))
	}

	stored := summarize.Stored(results, r.clock())
	if err := r.store.Save(ctx, stored); err != nil {
		return nil, fmt.Errorf("saving papers: %w", err)
	}
	r.logger.Info("papers stored", "store", r.store.Name(), "count", len(stored))
	return stored, nil
}

func (r *runner) print(selected []types.ScoredPaper, stats *report.Stats) error {
	if r.json {
		return report.FormatJSON(selected, stats, r.out)
	}
	report.FormatTable(selected, r.out)
	fmt.Fprintln(r.out)
	report.FormatStats(stats, r.out)
	return nil
}

func (r *runner) countFailure() {
	if r.metrics != nil {
		r.metrics.IncRuns(report.StatusFailure)
	}
}

// --- selection flags shared by run, fetch and score ---

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("keywords", nil, "target keywords (comma-separated); overrides selection.keywords")
	cmd.Flags().Int("max-papers", 0, "final quota K; overrides selection.max_papers")
	cmd.Flags().Int("days-back", 0, "rolling window length in days; overrides selection.window")
	cmd.Flags().String("from", "", "window start (YYYY-MM-DD); with --to selects date_range mode")
	cmd.Flags().String("to", "", "window end (YYYY-MM-DD)")
	cmd.Flags().String("filter", "", "CEL filter expression over paper; overrides selection.filter_expr")
}

// applySelectionFlags overlays the flags the user set on cfg.
func applySelectionFlags(cmd *cobra.Command, cfg *types.SelectionConfig) error {
	f := cmd.Flags()
	if f.Changed("keywords") {
		kws, _ := f.GetStringSlice("keywords")
		cfg.Keywords = splitKeywords(kws)
	}
	if f.Changed("max-papers") {
		cfg.MaxPapers, _ = f.GetInt("max-papers")
	}
	if f.Changed("days-back") {
		cfg.Window = types.DateWindowConfig{Mode: types.WindowDaysBack}
		cfg.Window.DaysBack, _ = f.GetInt("days-back")
	}
	if f.Changed("from") || f.Changed("to") {
		if f.Changed("days-back") {
			return fmt.Errorf("--days-back cannot be combined with --from/--to")
		}
		from, _ := f.GetString("from")
		to, _ := f.GetString("to")
		cfg.Window = types.DateWindowConfig{Mode: types.WindowDateRange, Start: from, End: to}
	}
	if f.Changed("filter") {
		cfg.FilterExpr, _ = f.GetString("filter")
	}
	return nil
}
