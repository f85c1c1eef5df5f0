// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperRecord holds the metadata of one paper as returned by the literature
// source. Records are never mutated after fetch; later stages wrap them.
type PaperRecord struct {
	// ID is the source-assigned identifier (arXiv ID without version suffix).
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Published is the submission date.
	Published time.Time `json:"published" yaml:"published"`

	// Categories lists the source category tags (e.g. "cs.LG", "eess.SY").
	Categories []string `json:"categories" yaml:"categories"`

	// Keyword is the search keyword whose query produced this record.
	Keyword string `json:"keyword" yaml:"keyword"`

	// PDFURL is the link to the paper PDF.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`
}

// ScoredPaper annotates a PaperRecord with the scores computed by the
// selection pipeline. All scores lie in [0, 100].
type ScoredPaper struct {
	PaperRecord `yaml:",inline"`

	// Order is the record's position in the fetched batch. It is the final
	// tie-breaker when ranking.
	Order int `json:"order" yaml:"order"`

	// Relevance is the topical match strength against the configured keywords.
	Relevance float64 `json:"relevance" yaml:"relevance"`

	// Importance is the topic-independent quality estimate.
	Importance float64 `json:"importance" yaml:"importance"`

	// Recency is the position of the publication date within the date window.
	Recency float64 `json:"recency" yaml:"recency"`

	// Composite is the weighted blend used for final ranking.
	Composite float64 `json:"composite" yaml:"composite"`

	// MatchedKeyword is the keyword bucket the paper is attributed to.
	MatchedKeyword string `json:"matched_keyword" yaml:"matched_keyword"`

	// Breakdown maps each sub-score name to its contribution in points.
	Breakdown map[string]float64 `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// StoredPaper is the persisted form of a selected paper, written after
// summarization. Its ID is what later runs deduplicate against.
type StoredPaper struct {
	PaperRecord `yaml:",inline"`

	// Summary is the generated summary text. Empty when generation failed.
	Summary string `json:"summary" yaml:"summary"`

	// SummaryGenerated reports whether Summary came from the summarizer.
	SummaryGenerated bool `json:"summary_generated" yaml:"summary_generated"`

	MatchedKeyword string  `json:"matched_keyword" yaml:"matched_keyword"`
	Relevance      float64 `json:"relevance" yaml:"relevance"`
	Importance     float64 `json:"importance" yaml:"importance"`
	Composite      float64 `json:"composite" yaml:"composite"`

	// ProcessedAt is when the paper was stored.
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// NewStoredPaper copies the persisted fields of p.
func NewStoredPaper(p ScoredPaper, summary string, generated bool, at time.Time) StoredPaper {
	return StoredPaper{
		PaperRecord:      p.PaperRecord,
		Summary:          summary,
		SummaryGenerated: generated,
		MatchedKeyword:   p.MatchedKeyword,
		Relevance:        p.Relevance,
		Importance:       p.Importance,
		Composite:        p.Composite,
		ProcessedAt:      at,
	}
}
