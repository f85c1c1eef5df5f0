// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"time"

	"github.com/pdiddy/paper-picker/internal/lexical"
	"github.com/pdiddy/paper-picker/internal/scoring"
	"github.com/pdiddy/paper-picker/pkg/types"
)

// Validate checks cfg and returns the first *ConfigurationError found.
func Validate(cfg types.SelectionConfig, now time.Time) error {
	if _, err := ResolveWindow(cfg.Window, now); err != nil {
		return err
	}
	if cfg.MaxPapers <= 0 {
		return configErr("max_papers", "must be positive, got %d", cfg.MaxPapers)
	}
	if cfg.Balance && !hasKeyword(cfg.Keywords) {
		return configErr("keywords", "balanced selection needs at least one keyword")
	}
	if cfg.PopulationFraction <= 0 || cfg.PopulationFraction > 1 {
		return configErr("population_fraction", "must be in (0, 1], got %v", cfg.PopulationFraction)
	}
	if cfg.PopulationCeiling <= 0 {
		return configErr("population_ceiling", "must be positive, got %d", cfg.PopulationCeiling)
	}
	if cfg.RelevanceFloor < 0 || cfg.RelevanceFloor > scoring.MaxScore {
		return configErr("relevance_floor", "must be in [0, 100], got %v", cfg.RelevanceFloor)
	}
	if cfg.CompositeFloor < 0 || cfg.CompositeFloor > scoring.MaxScore {
		return configErr("composite_floor", "must be in [0, 100], got %v", cfg.CompositeFloor)
	}
	w := cfg.Weights
	if w.Relevance < 0 || w.Importance < 0 || w.Recency < 0 {
		return configErr("weights", "must not be negative, got %+v", w)
	}
	return nil
}

func hasKeyword(keywords []string) bool {
	for _, kw := range keywords {
		if lexical.Normalize(kw) != "" {
			return true
		}
	}
	return false
}
