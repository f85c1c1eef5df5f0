// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// --- Tokenize / Text ---

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Wind Power", []string{"wind", "power"}},
		{"splits punctuation", "load-forecast: (LSTM)", []string{"load", "forecast", "lstm"}},
		{"keeps digits", "PV2024 data", []string{"pv2024", "data"}},
		{"empty", "  ...  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextContainsMatchesWholeTokens(t *testing.T) {
	text := NewText("Short-term Load Forecasting with forecast reconciliation")

	assert.True(t, text.Contains("forecast"))
	assert.True(t, text.Contains("Short term"))
	assert.True(t, text.Contains("load forecasting"))
	assert.False(t, text.Contains("cast"), "substring of a token must not match")
	assert.False(t, text.Contains("term load forecast"), "phrase must be contiguous")
	assert.False(t, text.Contains(""))
}

func TestTextCount(t *testing.T) {
	text := NewText("solar solar solar power, solar")

	assert.Equal(t, 4, text.Count("solar"))
	assert.Equal(t, 1, text.Count("solar solar solar"))
	assert.Equal(t, 1, text.Count("solar solar"), "occurrences do not overlap")
	assert.Equal(t, 0, text.Count("wind"))
}

func TestTextCovered(t *testing.T) {
	text := NewText("a neural network for time series prediction")

	assert.Equal(t, 5, text.Covered([]string{"neural network", "time series", "prediction"}))
	assert.Equal(t, 2, text.Covered([]string{"neural network", "network"}), "overlaps count once")
	assert.Equal(t, 7, text.Len())
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard("Solar Forecast", "solar forecast"), 1e-9)
	assert.InDelta(t, 0.5, Jaccard("solar forecast", "solar"), 1e-9)
	assert.InDelta(t, 0.0, Jaccard("wind", "solar"), 1e-9)
	assert.InDelta(t, 0.0, Jaccard("", "solar"), 1e-9)
}

// --- Extractor ---

func testExtractor() *Extractor {
	return NewExtractor(
		[]string{"forecast", "Smart Grid", "forecast"},
		map[string]map[string]float64{
			"Forecast": {"prediction": 1.0, "projection": 0.5, "forecast": 1.0},
		},
		[]string{"eess.SY"},
	)
}

func TestExtractorNormalizesKeywords(t *testing.T) {
	e := testExtractor()
	assert.Equal(t, []string{"forecast", "smart grid"}, e.Keywords())
}

func TestExtract(t *testing.T) {
	e := testExtractor()
	rec := types.PaperRecord{
		Title:      "Smart grid forecast with transformers",
		Abstract:   "We study prediction and forecast of load on the smart grid. Projection horizons vary.",
		Categories: []string{"cs.LG", "eess.SY"},
		Keyword:    "forecast",
	}

	f := e.Extract(rec)

	assert.Equal(t, []string{"forecast", "smart grid"}, f.TitleKeywords)
	assert.Equal(t, []string{"forecast", "smart grid"}, f.AbstractKeywords)
	assert.True(t, f.Cooccurs())
	assert.Equal(t, 2, f.KeywordHits["forecast"])
	assert.Equal(t, 2, f.KeywordHits["smart grid"])
	assert.InDelta(t, 1.0, f.SearchKeywordSimilarity, 1e-9)
	assert.InDelta(t, 1.5, f.SemanticWeight, 1e-9, "the keyword itself is not a synonym hit")
	assert.Equal(t, []string{"prediction", "projection"}, f.SemanticTerms)
	assert.True(t, f.CategoryMatch)
}

func TestExtractNoMatches(t *testing.T) {
	e := testExtractor()
	f := e.Extract(types.PaperRecord{Title: "Graph theory", Abstract: "Forecasting is not forecast-free", Categories: []string{"math.CO"}})

	assert.Empty(t, f.TitleKeywords)
	assert.Equal(t, []string{"forecast"}, f.AbstractKeywords)
	assert.False(t, f.Cooccurs())
	assert.Zero(t, f.SearchKeywordSimilarity)
	assert.False(t, f.CategoryMatch)
}

func TestAttribute(t *testing.T) {
	e := testExtractor()
	tests := []struct {
		name string
		rec  types.PaperRecord
		want string
	}{
		{
			name: "source keyword is a target",
			rec:  types.PaperRecord{Keyword: "Smart Grid", Title: "forecast forecast"},
			want: "smart grid",
		},
		{
			name: "most hits wins",
			rec:  types.PaperRecord{Keyword: "battery", Title: "smart grid", Abstract: "forecast and forecast"},
			want: "forecast",
		},
		{
			name: "config order breaks ties",
			rec:  types.PaperRecord{Keyword: "battery", Title: "smart grid forecast"},
			want: "forecast",
		},
		{
			name: "falls back to source keyword",
			rec:  types.PaperRecord{Keyword: "Battery Storage", Title: "lithium"},
			want: "battery storage",
		},
		{
			name: "empty bucket",
			rec:  types.PaperRecord{Title: "lithium"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := e.Extract(tt.rec)
			require.NotNil(t, f.KeywordHits)
			assert.Equal(t, tt.want, e.Attribute(tt.rec, f))
		})
	}
}
