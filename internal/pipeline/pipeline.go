// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline ranks and filters fetched paper records down to a
// bounded, keyword-balanced selection.
//
// Stages run strictly in order and never resurrect a dropped record:
//
//	dedup -> date_window -> filter_expr -> relevance_floor ->
//	population_cap -> composite_floor -> quota
//
// Every stage is a pure transformation of an in-memory slice except dedup,
// which makes one batched store lookup.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pdiddy/paper-picker/internal/report"
	"github.com/pdiddy/paper-picker/internal/scoring"
	"github.com/pdiddy/paper-picker/pkg/types"
)

// Stage names as recorded in report.Stats.
const (
	StageDedup          = "dedup"
	StageDateWindow     = "date_window"
	StageFilterExpr     = "filter_expr"
	StageRelevanceFloor = "relevance_floor"
	StagePopulationCap  = "population_cap"
	StageCompositeFloor = "composite_floor"
	StageQuota          = "quota"
)

// compositeEpsilon absorbs float error at the composite floor.
const compositeEpsilon = 1e-9

// Lookup reports which ids are already known. store.Store satisfies it.
type Lookup interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// Result is the outcome of one run.
type Result struct {
	Selected []types.ScoredPaper
	Stats    *report.Stats
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the clock used for days_back windows and paper age.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithFailClosed makes a failed store lookup abort the run.
func WithFailClosed(failClosed bool) Option {
	return func(p *Pipeline) { p.failClosed = failClosed }
}

// WithMetrics publishes each run's statistics to m.
func WithMetrics(m *report.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline is a configured selection pipeline. It holds no per-run state
// and may be reused across runs.
type Pipeline struct {
	cfg        types.SelectionConfig
	tables     *scoring.Tables
	store      Lookup
	relevance  *scoring.RelevanceScorer
	importance *scoring.ImportanceScorer
	filter     *exprGate

	logger     *slog.Logger
	now        func() time.Time
	failClosed bool
	metrics    *report.Metrics
}

// New validates cfg and builds a pipeline. A nil tables uses the built-in
// defaults; a nil store skips the history lookup. Invalid settings return a
// *ConfigurationError.
func New(cfg types.SelectionConfig, tables *scoring.Tables, store Lookup, opts ...Option) (*Pipeline, error) {
	if tables == nil {
		tables = scoring.DefaultTables()
	}
	p := &Pipeline{
		cfg:    cfg,
		tables: tables,
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := Validate(cfg, p.now()); err != nil {
		return nil, err
	}
	if cfg.FilterExpr != "" {
		gate, err := compileFilter(cfg.FilterExpr)
		if err != nil {
			return nil, err
		}
		p.filter = gate
	}
	p.relevance = scoring.NewRelevanceScorer(tables, cfg.Keywords)
	p.importance = scoring.NewImportanceScorer(tables)
	return p, nil
}

// Run pushes records through every stage and returns the selection with
// its statistics. Running twice on the same input, clock and store state
// yields the same selection. An empty selection is not an error.
func (p *Pipeline) Run(ctx context.Context, records []types.PaperRecord) (Result, error) {
	begin := time.Now()
	now := p.now()
	window, err := ResolveWindow(p.cfg.Window, now)
	if err != nil {
		return Result{}, err
	}
	stats := report.NewStats(p.tables.Version, now)
	stats.Input = len(records)
	stats.WindowStart, stats.WindowEnd = window.Start, window.End

	selected, err := p.run(ctx, records, window, now, stats)
	if p.metrics != nil {
		p.publish(stats, selected, err, time.Since(begin))
	}
	if err != nil {
		return Result{Stats: stats}, err
	}
	if selected == nil {
		selected = []types.ScoredPaper{}
	}

	p.logger.Info("selection finished",
		"run_id", stats.RunID,
		"input", len(records),
		"selected", len(selected),
		"tables_version", stats.TablesVersion,
	)
	return Result{Selected: selected, Stats: stats}, nil
}

func (p *Pipeline) run(ctx context.Context, records []types.PaperRecord, window Window, now time.Time, stats *report.Stats) ([]types.ScoredPaper, error) {
	cands, err := p.dedup(ctx, records, stats)
	if err != nil {
		return nil, err
	}
	stats.Stage(StageDedup, len(records), len(cands))
	if len(cands) == 0 {
		return nil, nil
	}

	type stage struct {
		name string
		fn   func([]types.ScoredPaper) []types.ScoredPaper
	}
	stages := []stage{
		{StageDateWindow, func(c []types.ScoredPaper) []types.ScoredPaper { return p.dateWindow(c, window) }},
	}
	if p.filter != nil {
		stages = append(stages, stage{StageFilterExpr, p.filterExpr})
	}
	stages = append(stages,
		stage{StageRelevanceFloor, func(c []types.ScoredPaper) []types.ScoredPaper { return p.relevanceFloor(c, stats) }},
		stage{StagePopulationCap, p.populationCap},
		stage{StageCompositeFloor, func(c []types.ScoredPaper) []types.ScoredPaper { return p.compositeFloor(c, window, now, stats) }},
		stage{StageQuota, p.quota},
	)

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := len(cands)
		cands = st.fn(cands)
		stats.Stage(st.name, in, len(cands))
		p.logger.Debug("stage finished", "stage", st.name, "in", in, "out", len(cands))
		if len(cands) == 0 {
			return nil, nil
		}
	}

	stats.Buckets = countBuckets(cands)
	return cands, nil
}

// dedup drops records seen earlier in the batch or already in the store.
// First occurrence wins.
func (p *Pipeline) dedup(ctx context.Context, records []types.PaperRecord, stats *report.Stats) ([]types.ScoredPaper, error) {
	seen := make(map[string]bool, len(records))
	unique := make([]types.ScoredPaper, 0, len(records))
	ids := make([]string, 0, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			p.logger.Warn("dropping record without id", "title", rec.Title, "position", i)
			continue
		}
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		unique = append(unique, types.ScoredPaper{PaperRecord: rec, Order: i})
		ids = append(ids, rec.ID)
	}
	if p.store == nil || len(ids) == 0 {
		return unique, nil
	}

	known, err := p.store.ExistingIDs(ctx, ids)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		degraded := &DegradedLookupError{Candidates: len(ids), Err: err}
		if p.failClosed {
			return nil, fmt.Errorf("deduplicating against store: %w", degraded)
		}
		p.logger.Warn("store lookup failed, treating all candidates as unseen",
			"candidates", len(ids), "error", err)
		stats.Degrade(degraded.Error())
		return unique, nil
	}

	kept := unique[:0]
	for _, c := range unique {
		if !known[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func (p *Pipeline) dateWindow(cands []types.ScoredPaper, w Window) []types.ScoredPaper {
	kept := cands[:0]
	for _, c := range cands {
		if w.Contains(c.Published) {
			kept = append(kept, c)
		}
	}
	return kept
}

func (p *Pipeline) filterExpr(cands []types.ScoredPaper) []types.ScoredPaper {
	kept := cands[:0]
	for _, c := range cands {
		ok, err := p.filter.Match(c.PaperRecord)
		if err != nil {
			p.logger.Warn("filter expression failed, dropping record", "id", c.ID, "error", err)
			continue
		}
		if ok {
			kept = append(kept, c)
		}
	}
	return kept
}

// relevanceFloor scores relevance and drops papers below the floor (gate A).
func (p *Pipeline) relevanceFloor(cands []types.ScoredPaper, stats *report.Stats) []types.ScoredPaper {
	scores := make([]float64, 0, len(cands))
	kept := cands[:0]
	for _, c := range cands {
		rel := p.relevance.Score(c.PaperRecord)
		scores = append(scores, rel.Score)
		if rel.Score < p.cfg.RelevanceFloor {
			continue
		}
		c.Relevance = rel.Score
		c.MatchedKeyword = rel.MatchedKeyword
		c.Breakdown = make(map[string]float64, len(rel.Parts)+6)
		for k, v := range rel.Parts {
			c.Breakdown[k] = v
		}
		kept = append(kept, c)
	}
	stats.Score(report.ScoreRelevance, scores)
	return kept
}

// populationCap keeps the best ceil(fraction * n) papers by relevance, at
// most the ceiling (gate B). Ties keep fetch order.
func (p *Pipeline) populationCap(cands []types.ScoredPaper) []types.ScoredPaper {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Relevance != cands[j].Relevance {
			return cands[i].Relevance > cands[j].Relevance
		}
		return cands[i].Order < cands[j].Order
	})
	keep := PopulationSize(len(cands), p.cfg.PopulationFraction, p.cfg.PopulationCeiling)
	return cands[:keep]
}

// PopulationSize returns min(ceil(fraction * n), ceiling).
func PopulationSize(n int, fraction float64, ceiling int) int {
	keep := int(math.Ceil(fraction*float64(n) - compositeEpsilon))
	if keep > n {
		keep = n
	}
	if ceiling > 0 && keep > ceiling {
		keep = ceiling
	}
	if keep < 0 {
		keep = 0
	}
	return keep
}

// compositeFloor scores importance, recency and composite, ranks the papers
// and drops those below the composite floor.
func (p *Pipeline) compositeFloor(cands []types.ScoredPaper, w Window, now time.Time, stats *report.Stats) []types.ScoredPaper {
	var imps, recs, comps []float64
	kept := cands[:0]
	for _, c := range cands {
		imp, parts := p.importance.Score(c.PaperRecord, now)
		c.Importance = imp
		c.Recency = scoring.Recency(day(c.Published), w.Start, w.End)
		c.Composite = scoring.Composite(p.cfg.Weights, c.Relevance, c.Importance, c.Recency)
		for k, v := range parts {
			c.Breakdown[k] = v
		}
		imps = append(imps, c.Importance)
		recs = append(recs, c.Recency)
		comps = append(comps, c.Composite)
		if c.Composite < p.cfg.CompositeFloor-compositeEpsilon {
			continue
		}
		kept = append(kept, c)
	}
	stats.Score(report.ScoreImportance, imps)
	stats.Score(report.ScoreRecency, recs)
	stats.Score(report.ScoreComposite, comps)
	sortRanked(kept)
	return kept
}

func (p *Pipeline) quota(ranked []types.ScoredPaper) []types.ScoredPaper {
	if !p.cfg.Balance {
		return selectTop(ranked, p.cfg.MaxPapers)
	}
	return selectBalanced(ranked, p.relevance.Keywords(), p.cfg.MaxPapers, p.cfg.Backfill)
}

func (p *Pipeline) publish(stats *report.Stats, selected []types.ScoredPaper, err error, elapsed time.Duration) {
	status := report.StatusSuccess
	if err != nil {
		status = report.StatusFailure
	}
	scores := map[string][]float64{}
	for _, s := range selected {
		scores[report.ScoreRelevance] = append(scores[report.ScoreRelevance], s.Relevance)
		scores[report.ScoreImportance] = append(scores[report.ScoreImportance], s.Importance)
		scores[report.ScoreRecency] = append(scores[report.ScoreRecency], s.Recency)
		scores[report.ScoreComposite] = append(scores[report.ScoreComposite], s.Composite)
	}
	p.metrics.Observe(stats, scores)
	p.metrics.IncRuns(status)
	p.metrics.ObserveRunDuration(elapsed.Seconds())
}
