// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// RelevanceParams are the point values of the relevance sub-scores.
type RelevanceParams struct {
	// PointsPerWeight converts the per-match weights below into points.
	PointsPerWeight     float64 `json:"points_per_weight" yaml:"points_per_weight"`
	TitleWeight         float64 `json:"title_weight" yaml:"title_weight"`
	AbstractWeight      float64 `json:"abstract_weight" yaml:"abstract_weight"`
	SearchKeywordWeight float64 `json:"search_keyword_weight" yaml:"search_keyword_weight"`
	SemanticIncrement   float64 `json:"semantic_increment" yaml:"semantic_increment"`
	CategoryBonus       float64 `json:"category_bonus" yaml:"category_bonus"`
	CooccurrenceBonus   float64 `json:"cooccurrence_bonus" yaml:"cooccurrence_bonus"`
}

// ImportanceParams are the curves and bonuses of the importance sub-scores.
type ImportanceParams struct {
	AuthorCurve  Curve   `json:"author_curve" yaml:"author_curve"`
	DensityCurve Curve   `json:"density_curve" yaml:"density_curve"`
	LengthCurve  Curve   `json:"length_curve" yaml:"length_curve"`
	AgeCurve     Curve   `json:"age_curve" yaml:"age_curve"`
	DomainBonus  float64 `json:"domain_bonus" yaml:"domain_bonus"`
}

// Tables is the versioned scoring data loaded at startup. Changing a weight
// means shipping a new tables file, not new code.
type Tables struct {
	Version            string                        `json:"version" yaml:"version"`
	Synonyms           map[string]map[string]float64 `json:"synonyms" yaml:"synonyms"`
	RelevantCategories []string                      `json:"relevant_categories" yaml:"relevant_categories"`
	CategoryImportance map[string]float64            `json:"category_importance" yaml:"category_importance"`
	TechnicalTerms     []string                      `json:"technical_terms" yaml:"technical_terms"`
	DomainTerms        []string                      `json:"domain_terms" yaml:"domain_terms"`
	Relevance          RelevanceParams               `json:"relevance" yaml:"relevance"`
	Importance         ImportanceParams              `json:"importance" yaml:"importance"`
}

// DefaultTables returns a fresh copy of the built-in tables.
func DefaultTables() *Tables {
	t, err := ParseTables(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in scoring tables are invalid: %v", err))
	}
	return t
}

// ParseTables decodes and validates a tables document.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing scoring tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTables reads a tables file and merges it over the built-in defaults,
// so a file may override only the entries it cares about. An empty path
// returns the defaults.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scoring tables: %w", err)
	}
	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing scoring tables %s: %w", path, err)
	}
	merged := MergeTables(DefaultTables(), &override)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("scoring tables %s: %w", path, err)
	}
	if override.Version == "" {
		slog.Warn("scoring tables file has no version, reporting as defaults+override", "path", path)
	}
	return merged, nil
}

// MergeTables returns base with every non-empty entry of override applied.
// Maps, lists and curves replace the base value wholesale; numeric params
// replace it when non-zero.
func MergeTables(base, override *Tables) *Tables {
	if base == nil {
		base = DefaultTables()
	}
	result := *base
	if override == nil {
		return &result
	}

	if override.Version != "" {
		result.Version = override.Version
	} else {
		result.Version = base.Version + "+override"
	}
	if len(override.Synonyms) > 0 {
		result.Synonyms = override.Synonyms
	}
	if len(override.RelevantCategories) > 0 {
		result.RelevantCategories = override.RelevantCategories
	}
	if len(override.CategoryImportance) > 0 {
		result.CategoryImportance = override.CategoryImportance
	}
	if len(override.TechnicalTerms) > 0 {
		result.TechnicalTerms = override.TechnicalTerms
	}
	if len(override.DomainTerms) > 0 {
		result.DomainTerms = override.DomainTerms
	}

	r, o := &result.Relevance, override.Relevance
	mergeFloat(&r.PointsPerWeight, o.PointsPerWeight)
	mergeFloat(&r.TitleWeight, o.TitleWeight)
	mergeFloat(&r.AbstractWeight, o.AbstractWeight)
	mergeFloat(&r.SearchKeywordWeight, o.SearchKeywordWeight)
	mergeFloat(&r.SemanticIncrement, o.SemanticIncrement)
	mergeFloat(&r.CategoryBonus, o.CategoryBonus)
	mergeFloat(&r.CooccurrenceBonus, o.CooccurrenceBonus)

	im, oi := &result.Importance, override.Importance
	if len(oi.AuthorCurve) > 0 {
		im.AuthorCurve = oi.AuthorCurve
	}
	if len(oi.DensityCurve) > 0 {
		im.DensityCurve = oi.DensityCurve
	}
	if len(oi.LengthCurve) > 0 {
		im.LengthCurve = oi.LengthCurve
	}
	if len(oi.AgeCurve) > 0 {
		im.AgeCurve = oi.AgeCurve
	}
	mergeFloat(&im.DomainBonus, oi.DomainBonus)

	return &result
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// Validate rejects negative weights and malformed curves.
func (t *Tables) Validate() error {
	params := map[string]float64{
		"relevance.points_per_weight":     t.Relevance.PointsPerWeight,
		"relevance.title_weight":          t.Relevance.TitleWeight,
		"relevance.abstract_weight":       t.Relevance.AbstractWeight,
		"relevance.search_keyword_weight": t.Relevance.SearchKeywordWeight,
		"relevance.semantic_increment":    t.Relevance.SemanticIncrement,
		"relevance.category_bonus":        t.Relevance.CategoryBonus,
		"relevance.cooccurrence_bonus":    t.Relevance.CooccurrenceBonus,
		"importance.domain_bonus":         t.Importance.DomainBonus,
	}
	for name, v := range params {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
	}
	for term, related := range t.Synonyms {
		for rel, w := range related {
			if w < 0 {
				return fmt.Errorf("synonyms.%s.%s must not be negative, got %v", term, rel, w)
			}
		}
	}
	for cat, w := range t.CategoryImportance {
		if w < 0 {
			return fmt.Errorf("category_importance.%s must not be negative, got %v", cat, w)
		}
	}
	curves := []struct {
		name  string
		curve Curve
	}{
		{"importance.author_curve", t.Importance.AuthorCurve},
		{"importance.density_curve", t.Importance.DensityCurve},
		{"importance.length_curve", t.Importance.LengthCurve},
		{"importance.age_curve", t.Importance.AgeCurve},
	}
	for _, c := range curves {
		if err := c.curve.validate(c.name); err != nil {
			return err
		}
	}
	return nil
}

// Marshal renders the tables as YAML.
func (t *Tables) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}
