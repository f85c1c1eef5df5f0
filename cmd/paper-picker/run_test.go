// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-picker/internal/report"
	"github.com/pdiddy/paper-picker/internal/search"
	"github.com/pdiddy/paper-picker/internal/store"
	"github.com/pdiddy/paper-picker/pkg/types"
)

var runNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type stubFetcher struct {
	out  search.FetchOutput
	err  error
	span search.Span
}

func (f *stubFetcher) Fetch(_ context.Context, _ []string, span search.Span) (search.FetchOutput, error) {
	f.span = span
	return f.out, f.err
}

// stubBackend answers every prompt with a fixed summary, failing for titles
// listed in fail.
type stubBackend struct {
	fail  map[string]bool
	calls int
}

func (b *stubBackend) Complete(_ context.Context, _, user string) (string, error) {
	b.calls++
	for title := range b.fail {
		if strings.Contains(user, title) {
			return "", errors.New("model unavailable")
		}
	}
	return "A summary long enough to pass the minimum length check for stored papers.", nil
}

func windRecord(i int) types.PaperRecord {
	return types.PaperRecord{
		ID:         fmt.Sprintf("2603.%05d", i),
		Title:      fmt.Sprintf("Wind turbine control study %d", i),
		Abstract:   "We study wind turbine control for power systems with wind farm data.",
		Authors:    []string{"A. Author", "B. Author"},
		Published:  runNow.AddDate(0, 0, -1),
		Categories: []string{"eess.SY"},
		Keyword:    "wind",
	}
}

func testRunner(t *testing.T, records []types.PaperRecord) (*runner, *store.Memory, *bytes.Buffer) {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.Selection.Keywords = []string{"wind"}
	cfg.Selection.RelevanceFloor = 0
	cfg.Selection.PopulationFraction = 1
	cfg.Summary.RequestDelay = 0
	cfg.Summary.MaxRetries = 1
	cfg.Report.Dir = filepath.Join(t.TempDir(), "reports")

	mem := store.NewMemory()
	var out bytes.Buffer
	return &runner{
		cfg:     cfg,
		store:   mem,
		fetcher: &stubFetcher{out: search.FetchOutput{Records: records}},
		backend: &stubBackend{},
		logger:  slog.New(slog.NewTextHandler(&out, nil)),
		out:     &out,
		now:     func() time.Time { return runNow },
	}, mem, &out
}

func TestRunnerStoresSummarizedPapers(t *testing.T) {
	r, mem, out := testRunner(t, []types.PaperRecord{windRecord(1), windRecord(2), windRecord(3)})

	require.NoError(t, r.run(context.Background()))

	stored, err := mem.Recent(context.Background(), time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	for _, p := range stored {
		assert.True(t, p.SummaryGenerated)
		assert.Equal(t, "wind", p.MatchedKeyword)
		assert.True(t, runNow.Equal(p.ProcessedAt))
	}

	entries, err := os.ReadDir(r.cfg.Report.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	rep, err := report.ReadRunReport(filepath.Join(r.cfg.Report.Dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Len(t, rep.Papers, 3)
	assert.Equal(t, 3, rep.Stats.Selected())

	assert.Contains(t, out.String(), "fetched 3 records")
	assert.Contains(t, out.String(), "report written to")
}

func TestRunnerSkipsStoredPapers(t *testing.T) {
	r, mem, _ := testRunner(t, []types.PaperRecord{windRecord(1), windRecord(2)})
	require.NoError(t, r.run(context.Background()))

	backend := &stubBackend{}
	r.backend = backend
	require.NoError(t, r.run(context.Background()))

	assert.Equal(t, 0, backend.calls, "second run selects nothing new")
	stored, err := mem.Recent(context.Background(), time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRunnerLeavesFailedSummariesUnstored(t *testing.T) {
	failing := windRecord(2)
	r, mem, _ := testRunner(t, []types.PaperRecord{windRecord(1), failing})
	r.backend = &stubBackend{fail: map[string]bool{failing.Title: true}}

	require.NoError(t, r.run(context.Background()))

	has, err := store.Has(context.Background(), mem, failing.ID)
	require.NoError(t, err)
	assert.False(t, has)
	has, err = store.Has(context.Background(), mem, windRecord(1).ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRunnerFailsWhenNoSummaries(t *testing.T) {
	rec := windRecord(1)
	r, mem, _ := testRunner(t, []types.PaperRecord{rec})
	r.backend = &stubBackend{fail: map[string]bool{rec.Title: true}}

	err := r.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no summaries generated")

	ids, err := mem.IDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunnerDryRun(t *testing.T) {
	r, mem, out := testRunner(t, []types.PaperRecord{windRecord(1)})
	backend := &stubBackend{}
	r.backend = backend
	r.dryRun = true

	require.NoError(t, r.run(context.Background()))

	assert.Equal(t, 0, backend.calls)
	ids, err := mem.IDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = os.Stat(r.cfg.Report.Dir)
	assert.True(t, os.IsNotExist(err), "dry run writes no report")
	assert.Contains(t, out.String(), windRecord(1).ID)
}

func TestRunnerFetchFailure(t *testing.T) {
	r, _, _ := testRunner(t, nil)
	r.fetcher = &stubFetcher{err: errors.New("arxiv down")}

	err := r.run(context.Background())
	assert.ErrorContains(t, err, "arxiv down")
}

func TestRunnerPassesDateRangeToFetcher(t *testing.T) {
	r, _, _ := testRunner(t, []types.PaperRecord{windRecord(1)})
	r.cfg.Selection.Window = types.DateWindowConfig{Mode: types.WindowDateRange, Start: "2026-03-01", End: "2026-03-14"}
	r.dryRun = true
	f := r.fetcher.(*stubFetcher)

	require.NoError(t, r.run(context.Background()))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), f.span.From)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), f.span.To)
}

func TestRunnerRollingWindowLeavesFetchUnscoped(t *testing.T) {
	r, _, _ := testRunner(t, []types.PaperRecord{windRecord(1)})
	r.dryRun = true
	f := r.fetcher.(*stubFetcher)

	require.NoError(t, r.run(context.Background()))
	assert.True(t, f.span.IsZero())
}

func TestRunnerNotesFailedKeywords(t *testing.T) {
	r, _, _ := testRunner(t, nil)
	r.cfg.Selection.Keywords = []string{"wind", "solar"}
	r.fetcher = &stubFetcher{out: search.FetchOutput{
		Records:        []types.PaperRecord{windRecord(1)},
		FailedKeywords: []string{"solar"},
	}}
	r.json = true
	r.dryRun = true

	var out bytes.Buffer
	r.out = &out
	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), `fetch: keyword \"solar\" failed`)
}
