// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lexical

import (
	"sort"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// Features are the lexical facts about one record that relevance scoring
// and keyword attribution need.
type Features struct {
	// TitleKeywords lists the configured keywords found in the title, in
	// configuration order.
	TitleKeywords []string

	// AbstractKeywords lists the configured keywords found in the abstract.
	AbstractKeywords []string

	// KeywordHits counts title plus abstract occurrences per configured keyword.
	KeywordHits map[string]int

	// SearchKeywordSimilarity is the best token overlap between the record's
	// source keyword and any configured keyword.
	SearchKeywordSimilarity float64

	// SemanticWeight sums the table weights of related terms found in the text.
	SemanticWeight float64

	// SemanticTerms lists the related terms that were found.
	SemanticTerms []string

	// CategoryMatch reports whether any category is in the relevant set.
	CategoryMatch bool
}

// Cooccurs reports whether two or more distinct keywords appear in the abstract.
func (f Features) Cooccurs() bool {
	return len(f.AbstractKeywords) >= 2
}

// Extractor computes Features against a fixed keyword list and lookup tables.
type Extractor struct {
	keywords   []string
	synonyms   map[string]map[string]float64
	categories map[string]bool
}

// NewExtractor builds an extractor. Keywords keep their configured order;
// synonym keys are matched after normalization.
func NewExtractor(keywords []string, synonyms map[string]map[string]float64, relevantCategories []string) *Extractor {
	e := &Extractor{
		synonyms:   make(map[string]map[string]float64, len(synonyms)),
		categories: make(map[string]bool, len(relevantCategories)),
	}
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		norm := Normalize(kw)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		e.keywords = append(e.keywords, norm)
	}
	for term, related := range synonyms {
		e.synonyms[Normalize(term)] = related
	}
	for _, c := range relevantCategories {
		e.categories[c] = true
	}
	return e
}

// Keywords returns the normalized, deduplicated keyword list.
func (e *Extractor) Keywords() []string {
	return e.keywords
}

// Extract computes the features of rec.
func (e *Extractor) Extract(rec types.PaperRecord) Features {
	title := NewText(rec.Title)
	abstract := NewText(rec.Abstract)

	f := Features{KeywordHits: make(map[string]int, len(e.keywords))}
	for _, kw := range e.keywords {
		th, ah := title.Count(kw), abstract.Count(kw)
		if th > 0 {
			f.TitleKeywords = append(f.TitleKeywords, kw)
		}
		if ah > 0 {
			f.AbstractKeywords = append(f.AbstractKeywords, kw)
		}
		if th+ah > 0 {
			f.KeywordHits[kw] = th + ah
		}

		related := e.synonyms[kw]
		for _, term := range sortedKeys(related) {
			weight := related[term]
			if Normalize(term) == kw || weight <= 0 {
				continue
			}
			if title.Contains(term) || abstract.Contains(term) {
				f.SemanticWeight += weight
				f.SemanticTerms = append(f.SemanticTerms, term)
			}
		}
	}

	if rec.Keyword != "" {
		for _, kw := range e.keywords {
			if sim := Jaccard(rec.Keyword, kw); sim > f.SearchKeywordSimilarity {
				f.SearchKeywordSimilarity = sim
			}
		}
	}

	for _, c := range rec.Categories {
		if e.categories[c] {
			f.CategoryMatch = true
			break
		}
	}
	return f
}

// Attribute picks the keyword bucket for rec: its source keyword when that
// is a configured keyword, otherwise the configured keyword with the most
// hits (configuration order breaks ties), otherwise the normalized source
// keyword. Records with neither get the empty bucket.
func (e *Extractor) Attribute(rec types.PaperRecord, f Features) string {
	source := Normalize(rec.Keyword)
	for _, kw := range e.keywords {
		if kw == source {
			return kw
		}
	}
	best, bestHits := "", 0
	for _, kw := range e.keywords {
		if hits := f.KeywordHits[kw]; hits > bestHits {
			best, bestHits = kw, hits
		}
	}
	if best != "" {
		return best
	}
	return source
}

// sortedKeys fixes the summation order so scores are reproducible.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
