// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-picker/internal/report"
	"github.com/pdiddy/paper-picker/pkg/types"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fakeStore struct {
	known map[string]bool
	err   error
	calls int
	ids   []string
}

func (f *fakeStore) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	f.calls++
	f.ids = append([]string(nil), ids...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool)
	for _, id := range ids {
		if f.known[id] {
			out[id] = true
		}
	}
	return out, nil
}

func testConfig() types.SelectionConfig {
	cfg := types.DefaultConfig().Selection
	cfg.Keywords = []string{"wind", "solar"}
	return cfg
}

func paper(id, title, keyword string, daysAgo int) types.PaperRecord {
	return types.PaperRecord{
		ID:         id,
		Title:      title,
		Abstract:   "We study " + title + " for power systems.",
		Authors:    []string{"A. Author", "B. Author", "C. Author"},
		Published:  now.AddDate(0, 0, -daysAgo),
		Categories: []string{"eess.SY"},
		Keyword:    keyword,
	}
}

func windPaper(i, daysAgo int) types.PaperRecord {
	return paper(fmt.Sprintf("w%02d", i), fmt.Sprintf("Wind turbine study %d", i), "wind", daysAgo)
}

func solarPaper(i, daysAgo int) types.PaperRecord {
	return paper(fmt.Sprintf("s%02d", i), fmt.Sprintf("Solar irradiance study %d", i), "solar", daysAgo)
}

func offTopic(i int) types.PaperRecord {
	return paper(fmt.Sprintf("x%02d", i), fmt.Sprintf("Category theory note %d", i), "", 1)
}

func newPipeline(t *testing.T, cfg types.SelectionConfig, store Lookup, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithClock(clock)}, opts...)
	p, err := New(cfg, nil, store, opts...)
	require.NoError(t, err)
	return p
}

func ids(papers []types.ScoredPaper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.ID
	}
	return out
}

func stage(t *testing.T, s *report.Stats, name string) report.StageCount {
	t.Helper()
	st, ok := s.StageByName(name)
	require.True(t, ok, "stage %s not recorded", name)
	return st
}

// --- Dedup ---

func TestRunDedupBatchDuplicates(t *testing.T) {
	var records []types.PaperRecord
	for i := 0; i < 8; i++ {
		records = append(records, windPaper(i, 1))
	}
	records = append(records, windPaper(2, 1), windPaper(5, 1))

	p := newPipeline(t, testConfig(), nil)
	res, err := p.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, report.StageCount{Name: StageDedup, In: 10, Out: 8}, stage(t, res.Stats, StageDedup))
}

func TestRunDedupFeedsRelevanceFloor(t *testing.T) {
	forecast := func(i int) types.PaperRecord {
		return paper(fmt.Sprintf("f%02d", i), fmt.Sprintf("Load forecast study %d", i), "forecast", 1)
	}
	var records []types.PaperRecord
	for i := 0; i < 8; i++ {
		records = append(records, forecast(i))
	}
	records = append(records, forecast(3), forecast(6))

	cfg := testConfig()
	cfg.Keywords = []string{"forecast"}
	p := newPipeline(t, cfg, nil)
	res, err := p.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 10, stage(t, res.Stats, StageDedup).In)
	assert.Equal(t, 8, stage(t, res.Stats, StageDedup).Out)
	assert.Equal(t, 8, stage(t, res.Stats, StageRelevanceFloor).In)
}

func TestRunDedupFirstOccurrenceWins(t *testing.T) {
	first := windPaper(1, 1)
	second := windPaper(1, 1)
	second.Title = "Different title entirely"

	cfg := testConfig()
	cfg.RelevanceFloor = 0
	cfg.PopulationFraction = 1
	p := newPipeline(t, cfg, nil)
	res, err := p.Run(context.Background(), []types.PaperRecord{first, second})
	require.NoError(t, err)
	require.Len(t, res.Selected, 1)
	assert.Equal(t, first.Title, res.Selected[0].Title)
	assert.Equal(t, 0, res.Selected[0].Order)
}

func TestRunDedupAgainstStore(t *testing.T) {
	store := &fakeStore{known: map[string]bool{"w01": true, "s00": true}}
	records := []types.PaperRecord{windPaper(0, 1), windPaper(1, 1), windPaper(0, 1), solarPaper(0, 1), {Title: "no id"}}

	cfg := testConfig()
	cfg.PopulationFraction = 1
	p := newPipeline(t, cfg, store)
	res, err := p.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls, "one batched lookup")
	assert.Equal(t, []string{"w00", "w01", "s00"}, store.ids)
	assert.Equal(t, []string{"w00"}, ids(res.Selected))
	assert.Equal(t, report.StageCount{Name: StageDedup, In: 5, Out: 1}, stage(t, res.Stats, StageDedup))
}

func TestRunStoreFailureFailsOpen(t *testing.T) {
	records := []types.PaperRecord{windPaper(0, 1), windPaper(1, 2), solarPaper(0, 1)}
	cfg := testConfig()
	cfg.PopulationFraction = 1

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	failing := newPipeline(t, cfg, &fakeStore{err: errors.New("connection refused")}, WithLogger(logger))
	res, err := failing.Run(context.Background(), records)
	require.NoError(t, err)

	clean, err := newPipeline(t, cfg, nil).Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, ids(clean.Selected), ids(res.Selected), "failed lookup behaves like nothing seen")
	require.Len(t, res.Stats.Degraded, 1)
	assert.Contains(t, res.Stats.Degraded[0], "connection refused")
	assert.Contains(t, logs.String(), "store lookup failed")
}

func TestRunStoreFailureFailClosed(t *testing.T) {
	p := newPipeline(t, testConfig(), &fakeStore{err: errors.New("timeout")}, WithFailClosed(true))
	_, err := p.Run(context.Background(), []types.PaperRecord{windPaper(0, 1)})
	require.Error(t, err)

	var degraded *DegradedLookupError
	require.True(t, errors.As(err, &degraded))
	assert.Equal(t, 1, degraded.Candidates)
	assert.EqualError(t, errors.Unwrap(degraded), "timeout")
}

func TestRunCanceledContextIsNotDegraded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline(t, testConfig(), &fakeStore{err: context.Canceled})
	_, err := p.Run(ctx, []types.PaperRecord{windPaper(0, 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Date window ---

func TestRunDaysBackWindow(t *testing.T) {
	inside := windPaper(0, 3)
	edge := windPaper(1, 7)
	outside := windPaper(2, 10)
	undated := windPaper(3, 0)
	undated.Published = time.Time{}

	cfg := testConfig()
	cfg.PopulationFraction = 1
	p := newPipeline(t, cfg, nil)
	res, err := p.Run(context.Background(), []types.PaperRecord{inside, edge, outside, undated})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"w00", "w01"}, ids(res.Selected))
	assert.Equal(t, report.StageCount{Name: StageDateWindow, In: 4, Out: 2}, stage(t, res.Stats, StageDateWindow))
	assert.True(t, res.Stats.WindowStart.Equal(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)))
}

func TestRunDateRangeWindow(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationFraction = 1
	cfg.Window = types.DateWindowConfig{Mode: types.WindowDateRange, Start: "2026-03-01", End: "2026-03-10"}
	p := newPipeline(t, cfg, nil)

	res, err := p.Run(context.Background(), []types.PaperRecord{
		windPaper(0, 14), // 2026-03-01
		windPaper(1, 5),  // 2026-03-10
		windPaper(2, 4),  // 2026-03-11
		windPaper(3, 15), // 2026-02-28
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"w00", "w01"}, ids(res.Selected))
}

func TestRunEmptyStageYieldsEmptySelection(t *testing.T) {
	p := newPipeline(t, testConfig(), nil)
	res, err := p.Run(context.Background(), []types.PaperRecord{windPaper(0, 30), windPaper(1, 40)})
	require.NoError(t, err)
	assert.NotNil(t, res.Selected)
	assert.Empty(t, res.Selected)
	assert.Contains(t, res.Stats.Notes, "date_window: no candidates remain")
	_, ran := res.Stats.StageByName(StageRelevanceFloor)
	assert.False(t, ran, "later stages are skipped")
}

func TestRunNoInput(t *testing.T) {
	res, err := newPipeline(t, testConfig(), &fakeStore{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
	assert.Equal(t, 0, res.Stats.Input)
}

// --- Gates ---

func TestRunRelevanceFloor(t *testing.T) {
	records := []types.PaperRecord{windPaper(0, 1), offTopic(0), solarPaper(0, 1), offTopic(1)}
	cfg := testConfig()
	cfg.PopulationFraction = 1
	p := newPipeline(t, cfg, nil)
	res, err := p.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, report.StageCount{Name: StageRelevanceFloor, In: 4, Out: 2}, stage(t, res.Stats, StageRelevanceFloor))
	for _, s := range res.Selected {
		assert.GreaterOrEqual(t, s.Relevance, cfg.RelevanceFloor)
	}
	assert.Equal(t, 4, res.Stats.Scores[report.ScoreRelevance].Count, "distribution covers every scored record")
}

func TestRunRelevanceBreakdown(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationFraction = 1
	res, err := newPipeline(t, cfg, nil).Run(context.Background(), []types.PaperRecord{windPaper(0, 0)})
	require.NoError(t, err)
	require.Len(t, res.Selected, 1)

	got := res.Selected[0]
	// title 30 + abstract 20 + search keyword 15 + turbine 4 + category 10.
	assert.InDelta(t, 79, got.Relevance, 1e-9)
	assert.Equal(t, "wind", got.MatchedKeyword)
	assert.InDelta(t, 100, got.Recency, 1e-9)
	assert.Contains(t, got.Breakdown, "relevance.title")
	assert.Contains(t, got.Breakdown, "importance.authors")
}

func TestRunPopulationCap(t *testing.T) {
	var records []types.PaperRecord
	for i := 0; i < 40; i++ {
		records = append(records, offTopic(i), windPaper(i, 1))
	}
	cfg := testConfig()
	cfg.RelevanceFloor = 0
	cfg.Balance = false
	cfg.MaxPapers = 100

	res, err := newPipeline(t, cfg, nil).Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, report.StageCount{Name: StagePopulationCap, In: 80, Out: 40}, stage(t, res.Stats, StagePopulationCap))
	require.Len(t, res.Selected, 40)
	for _, s := range res.Selected {
		assert.Equal(t, "wind", s.MatchedKeyword, "top half by relevance survives")
	}
}

func TestRunPopulationCeiling(t *testing.T) {
	var records []types.PaperRecord
	for i := 0; i < 30; i++ {
		records = append(records, windPaper(i, 1))
	}
	cfg := testConfig()
	cfg.PopulationFraction = 1
	cfg.PopulationCeiling = 12
	cfg.Balance = false
	cfg.MaxPapers = 50

	res, err := newPipeline(t, cfg, nil).Run(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, res.Selected, 12)
}

func TestPopulationSize(t *testing.T) {
	tests := []struct {
		n        int
		fraction float64
		ceiling  int
		want     int
	}{
		{80, 0.5, 100, 40},
		{81, 0.5, 100, 41},
		{30, 0.1, 100, 3},
		{1, 0.5, 100, 1},
		{0, 0.5, 100, 0},
		{500, 1, 100, 100},
		{10, 1, 0, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PopulationSize(tt.n, tt.fraction, tt.ceiling), "n=%d fraction=%v", tt.n, tt.fraction)
	}
}

func TestRunCompositeFloor(t *testing.T) {
	records := []types.PaperRecord{windPaper(0, 0), windPaper(1, 6), solarPaper(0, 3)}
	cfg := testConfig()
	cfg.PopulationFraction = 1
	cfg.CompositeFloor = 60

	res, err := newPipeline(t, cfg, nil).Run(context.Background(), records)
	require.NoError(t, err)
	for _, s := range res.Selected {
		assert.GreaterOrEqual(t, s.Composite, cfg.CompositeFloor-1e-9)
	}
	st := stage(t, res.Stats, StageCompositeFloor)
	assert.Equal(t, 3, st.In)
}

func TestRunFilterExpression(t *testing.T) {
	a := windPaper(0, 1)
	b := windPaper(1, 1)
	b.Categories = []string{"cs.LG"}

	cfg := testConfig()
	cfg.PopulationFraction = 1
	cfg.FilterExpr = `paper.categories.exists(c, c.startsWith("eess."))`
	res, err := newPipeline(t, cfg, nil).Run(context.Background(), []types.PaperRecord{a, b})
	require.NoError(t, err)

	assert.Equal(t, []string{"w00"}, ids(res.Selected))
	assert.Equal(t, report.StageCount{Name: StageFilterExpr, In: 2, Out: 1}, stage(t, res.Stats, StageFilterExpr))
}

func TestRunFilterEvaluationErrorDropsRecord(t *testing.T) {
	cfg := testConfig()
	cfg.FilterExpr = `paper.title`
	res, err := newPipeline(t, cfg, nil).Run(context.Background(), []types.PaperRecord{windPaper(0, 1)})
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
}

// --- Quota ---

func TestRunBalancedQuotaScenario(t *testing.T) {
	records := []types.PaperRecord{windPaper(0, 0), windPaper(1, 1), windPaper(2, 2), solarPaper(0, 1)}
	cfg := testConfig()
	cfg.PopulationFraction = 1
	cfg.MaxPapers = 4

	res, err := newPipeline(t, cfg, nil).Run(context.Background(), records)
	require.NoError(t, err)

	assert.Len(t, res.Selected, 3)
	assert.Equal(t, map[string]int{"wind": 2, "solar": 1}, res.Stats.Buckets)
}

func TestRunBalancedQuotaBackfill(t *testing.T) {
	records := []types.PaperRecord{windPaper(0, 0), windPaper(1, 1), windPaper(2, 2), solarPaper(0, 1)}
	cfg := testConfig()
	cfg.PopulationFraction = 1
	cfg.MaxPapers = 4
	cfg.Backfill = true

	res, err := newPipeline(t, cfg, nil).Run(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, res.Selected, 4)
}

func TestRunSelectionIsRanked(t *testing.T) {
	var records []types.PaperRecord
	for i := 0; i < 6; i++ {
		records = append(records, windPaper(i, i), solarPaper(i, i))
	}
	cfg := testConfig()
	cfg.PopulationFraction = 1

	res, err := newPipeline(t, cfg, nil).Run(context.Background(), records)
	require.NoError(t, err)
	require.NotEmpty(t, res.Selected)
	assert.LessOrEqual(t, len(res.Selected), cfg.MaxPapers)
	for i := 1; i < len(res.Selected); i++ {
		assert.False(t, rankLess(res.Selected[i], res.Selected[i-1]), "position %d out of order", i)
	}
	for _, s := range res.Selected {
		for _, v := range []float64{s.Relevance, s.Importance, s.Recency, s.Composite} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

// --- Properties ---

func TestRunIsIdempotent(t *testing.T) {
	var records []types.PaperRecord
	for i := 0; i < 10; i++ {
		records = append(records, windPaper(i, i%8), solarPaper(i, (i+3)%8), offTopic(i))
	}
	store := &fakeStore{known: map[string]bool{"w03": true}}
	p := newPipeline(t, testConfig(), store)

	first, err := p.Run(context.Background(), records)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, first.Selected, second.Selected)
	assert.Equal(t, first.Stats.Stages, second.Stats.Stages)
	assert.NotEqual(t, first.Stats.RunID, second.Stats.RunID)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	records := []types.PaperRecord{windPaper(0, 1), windPaper(0, 1), solarPaper(0, 2)}
	before := append([]types.PaperRecord(nil), records...)
	_, err := newPipeline(t, testConfig(), nil).Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, before, records)
}

func TestRunPublishesMetrics(t *testing.T) {
	m := report.NewMetrics()
	cfg := testConfig()
	cfg.PopulationFraction = 1
	p := newPipeline(t, cfg, nil, WithMetrics(m))
	_, err := p.Run(context.Background(), []types.PaperRecord{windPaper(0, 1), solarPaper(0, 1)})
	require.NoError(t, err)

	var found bool
	for _, c := range m.Collectors() {
		if testutil.CollectAndCount(c, report.MetricRunsTotal) == 1 {
			found = true
		}
	}
	assert.True(t, found, "run counter published")
}
