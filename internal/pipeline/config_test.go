// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// --- Validation ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.SelectionConfig)
		field  string
	}{
		{"defaults with keywords", func(*types.SelectionConfig) {}, ""},
		{"zero quota", func(c *types.SelectionConfig) { c.MaxPapers = 0 }, "max_papers"},
		{"no keywords with balance", func(c *types.SelectionConfig) { c.Keywords = []string{" ", "--"} }, "keywords"},
		{"no keywords without balance", func(c *types.SelectionConfig) { c.Keywords = nil; c.Balance = false }, ""},
		{"zero fraction", func(c *types.SelectionConfig) { c.PopulationFraction = 0 }, "population_fraction"},
		{"fraction above one", func(c *types.SelectionConfig) { c.PopulationFraction = 1.2 }, "population_fraction"},
		{"fraction of one", func(c *types.SelectionConfig) { c.PopulationFraction = 1 }, ""},
		{"zero ceiling", func(c *types.SelectionConfig) { c.PopulationCeiling = 0 }, "population_ceiling"},
		{"negative floor", func(c *types.SelectionConfig) { c.RelevanceFloor = -1 }, "relevance_floor"},
		{"floor above max", func(c *types.SelectionConfig) { c.RelevanceFloor = 101 }, "relevance_floor"},
		{"composite floor above max", func(c *types.SelectionConfig) { c.CompositeFloor = 150 }, "composite_floor"},
		{"negative weight", func(c *types.SelectionConfig) { c.Weights.Recency = -0.1 }, "weights"},
		{"zero days back", func(c *types.SelectionConfig) { c.Window.DaysBack = 0 }, "window.days_back"},
		{"unknown mode", func(c *types.SelectionConfig) { c.Window.Mode = "weekly" }, "window.mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := Validate(cfg, now)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPapers = -1
	_, err := New(cfg, nil, nil)
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, err.Error(), "max_papers")
}

// --- Window ---

func TestResolveWindow(t *testing.T) {
	clockTime := time.Date(2026, 3, 15, 23, 30, 0, 0, time.FixedZone("JST", 9*3600))

	tests := []struct {
		name      string
		cfg       types.DateWindowConfig
		wantStart string
		wantEnd   string
		wantErr   string
	}{
		{"days back", types.DateWindowConfig{Mode: types.WindowDaysBack, DaysBack: 7}, "2026-03-08", "2026-03-15", ""},
		{"empty mode is days back", types.DateWindowConfig{DaysBack: 1}, "2026-03-14", "2026-03-15", ""},
		{"date range", types.DateWindowConfig{Mode: types.WindowDateRange, Start: "2026-01-01", End: "2026-01-31"}, "2026-01-01", "2026-01-31", ""},
		{"single day range", types.DateWindowConfig{Mode: types.WindowDateRange, Start: "2026-01-05", End: "2026-01-05"}, "2026-01-05", "2026-01-05", ""},
		{"negative days", types.DateWindowConfig{Mode: types.WindowDaysBack, DaysBack: -3}, "", "", "window.days_back"},
		{"missing end", types.DateWindowConfig{Mode: types.WindowDateRange, Start: "2026-01-01"}, "", "", "needs both"},
		{"bad start", types.DateWindowConfig{Mode: types.WindowDateRange, Start: "01/01/2026", End: "2026-01-31"}, "", "", "window.start"},
		{"end before start", types.DateWindowConfig{Mode: types.WindowDateRange, Start: "2026-02-01", End: "2026-01-31"}, "", "", "before start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(tt.cfg, clockTime)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.Start.Format(dateLayout))
			assert.Equal(t, tt.wantEnd, w.End.Format(dateLayout))
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, w.Contains(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)), "end day is inclusive")
	assert.False(t, w.Contains(time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Time{}))
}

// --- Filter expression ---

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"category prefix", `paper.categories.exists(c, c.startsWith("eess."))`, false},
		{"title and authors", `paper.title.contains("grid") && size(paper.authors) <= 10`, false},
		{"timestamp", `paper.published > timestamp("2026-01-01T00:00:00Z")`, false},
		{"syntax error", `paper.title ==`, true},
		{"non-bool result", `1 + 2`, true},
		{"unknown variable", `article.title == "x"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileFilter(tt.expr)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, "filter_expr", cerr.Field)
		})
	}
}

func TestFilterMatch(t *testing.T) {
	rec := types.PaperRecord{
		ID:         "2603.00001",
		Title:      "Smart grid forecasting",
		Authors:    []string{"A", "B"},
		Categories: []string{"eess.SY", "cs.LG"},
		Published:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		expr string
		want bool
	}{
		{`paper.categories.exists(c, c.startsWith("eess."))`, true},
		{`paper.title.contains("grid") && size(paper.authors) <= 1`, false},
		{`paper.published > timestamp("2026-03-01T00:00:00Z")`, true},
		{`paper.id == "2603.00001"`, true},
	}
	for _, tt := range tests {
		gate, err := compileFilter(tt.expr)
		require.NoError(t, err, tt.expr)
		got, err := gate.Match(rec)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got, tt.expr)
	}

	gate, err := compileFilter(`paper.abstract`)
	require.NoError(t, err)
	_, err = gate.Match(rec)
	assert.Error(t, err, "non-bool value at runtime")
}
