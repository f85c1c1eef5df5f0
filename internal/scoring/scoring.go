// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring turns paper records into relevance, importance, recency
// and composite scores. Every score is a sum of non-negative sub-scores in
// points, clamped to [0, 100].
//
// Composite formula: composite = relevance*0.6 + importance*0.3 + recency*0.1
// with the weights taken from the selection config.
package scoring

import (
	"math"
	"time"

	"github.com/pdiddy/paper-picker/internal/lexical"
	"github.com/pdiddy/paper-picker/pkg/types"
)

// MaxScore is the upper bound of every score.
const MaxScore = 100.0

// Clamp bounds v to [0, MaxScore]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > MaxScore:
		return MaxScore
	}
	return v
}

// Breakdown keys for relevance.
const (
	PartTitle         = "relevance.title"
	PartAbstract      = "relevance.abstract"
	PartSearchKeyword = "relevance.search_keyword"
	PartSemantic      = "relevance.semantic"
	PartCategory      = "relevance.category"
	PartCooccurrence  = "relevance.cooccurrence"
)

// Breakdown keys for importance.
const (
	PartAuthors        = "importance.authors"
	PartDensity        = "importance.density"
	PartLength         = "importance.length"
	PartCategoryWeight = "importance.category"
	PartAge            = "importance.age"
	PartDomain         = "importance.domain"
)

// RelevanceScorer scores topical match against the target keywords.
type RelevanceScorer struct {
	params    RelevanceParams
	extractor *lexical.Extractor
}

// NewRelevanceScorer builds a scorer for keywords using the tables.
func NewRelevanceScorer(t *Tables, keywords []string) *RelevanceScorer {
	return &RelevanceScorer{
		params:    t.Relevance,
		extractor: lexical.NewExtractor(keywords, t.Synonyms, t.RelevantCategories),
	}
}

// Keywords returns the normalized target keywords in configured order.
func (s *RelevanceScorer) Keywords() []string {
	return s.extractor.Keywords()
}

// Relevance is the outcome of scoring one record.
type Relevance struct {
	Score          float64
	Parts          map[string]float64
	MatchedKeyword string
}

// Score computes the relevance of rec and attributes it to a keyword bucket.
func (s *RelevanceScorer) Score(rec types.PaperRecord) Relevance {
	f := s.extractor.Extract(rec)
	p := s.params
	unit := p.PointsPerWeight

	parts := map[string]float64{
		PartTitle:         float64(len(f.TitleKeywords)) * p.TitleWeight * unit,
		PartAbstract:      float64(len(f.AbstractKeywords)) * p.AbstractWeight * unit,
		PartSearchKeyword: f.SearchKeywordSimilarity * p.SearchKeywordWeight * unit,
		PartSemantic:      f.SemanticWeight * p.SemanticIncrement,
		PartCategory:      0,
		PartCooccurrence:  0,
	}
	if f.CategoryMatch {
		parts[PartCategory] = p.CategoryBonus
	}
	if f.Cooccurs() {
		parts[PartCooccurrence] = p.CooccurrenceBonus
	}

	return Relevance{
		Score:          sumParts(parts, relevanceOrder),
		Parts:          parts,
		MatchedKeyword: s.extractor.Attribute(rec, f),
	}
}

var relevanceOrder = []string{PartTitle, PartAbstract, PartSearchKeyword, PartSemantic, PartCategory, PartCooccurrence}

var importanceOrder = []string{PartAuthors, PartDensity, PartLength, PartCategoryWeight, PartAge, PartDomain}

// sumParts adds parts in a fixed order and clamps the total.
func sumParts(parts map[string]float64, order []string) float64 {
	total := 0.0
	for _, k := range order {
		total += math.Max(0, parts[k])
	}
	return Clamp(total)
}

// ImportanceScorer estimates a paper's significance independent of topic.
type ImportanceScorer struct {
	params     ImportanceParams
	technical  []string
	domain     []string
	categories map[string]float64
}

// NewImportanceScorer builds a scorer from the tables.
func NewImportanceScorer(t *Tables) *ImportanceScorer {
	return &ImportanceScorer{
		params:     t.Importance,
		technical:  t.TechnicalTerms,
		domain:     t.DomainTerms,
		categories: t.CategoryImportance,
	}
}

// Score computes the importance of rec as of now.
func (s *ImportanceScorer) Score(rec types.PaperRecord, now time.Time) (float64, map[string]float64) {
	abstract := lexical.NewText(rec.Abstract)
	p := s.params

	density := 0.0
	if abstract.Len() > 0 {
		density = float64(abstract.Covered(s.technical)) / float64(abstract.Len())
	}

	category := 0.0
	for _, c := range rec.Categories {
		category = math.Max(category, s.categories[c])
	}

	ageDays := 0.0
	if !rec.Published.IsZero() {
		ageDays = math.Max(0, now.Sub(rec.Published).Hours()/24)
	}

	domain := 0.0
	for _, term := range s.domain {
		if abstract.Contains(term) {
			domain = p.DomainBonus
			break
		}
	}

	parts := map[string]float64{
		PartAuthors:        p.AuthorCurve.At(float64(len(rec.Authors))),
		PartDensity:        p.DensityCurve.At(density),
		PartLength:         p.LengthCurve.At(float64(abstract.Len())),
		PartCategoryWeight: category,
		PartAge:            p.AgeCurve.At(ageDays),
		PartDomain:         domain,
	}
	return sumParts(parts, importanceOrder), parts
}

// Recency places published within [start, end]: end scores 100, start
// scores 0, linear in between. A zero-length window scores 100.
func Recency(published, start, end time.Time) float64 {
	span := end.Sub(start)
	if span <= 0 {
		return MaxScore
	}
	return Clamp(MaxScore * float64(published.Sub(start)) / float64(span))
}

// Composite blends the three scores with w and clamps the result.
func Composite(w types.CompositeWeights, relevance, importance, recency float64) float64 {
	return Clamp(w.Relevance*relevance + w.Importance*importance + w.Recency*recency)
}
