// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// FormatTable writes the selection as a human-readable table to w.
func FormatTable(selected []types.ScoredPaper, w io.Writer) {
	if len(selected) == 0 {
		fmt.Fprintln(w, "No papers selected.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-12s  %-50s  %-16s  %-5s  %-5s  %-5s  %s\n",
		"Rank", "ID", "Title", "Keyword", "Rel", "Imp", "Comp", "Published")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, p := range selected {
		published := ""
		if !p.Published.IsZero() {
			published = p.Published.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-4d  %-12s  %-50s  %-16s  %5.1f  %5.1f  %5.1f  %s\n",
			i+1, truncate(p.ID, 12), truncate(p.Title, 50), truncate(p.MatchedKeyword, 16),
			p.Relevance, p.Importance, p.Composite, published)
	}

	fmt.Fprintf(w, "\n%d papers selected\n", len(selected))
}

// FormatStats writes per-stage counts, score summaries and notes to w.
func FormatStats(s *Stats, w io.Writer) {
	fmt.Fprintf(w, "Run %s (tables %s, input %d)\n", s.RunID, s.TablesVersion, s.Input)
	if !s.WindowStart.IsZero() {
		fmt.Fprintf(w, "Window: %s .. %s\n", s.WindowStart.Format("2006-01-02"), s.WindowEnd.Format("2006-01-02"))
	}

	fmt.Fprintf(w, "\n%-18s  %6s  %6s  %7s\n", "Stage", "In", "Out", "Dropped")
	for _, st := range s.Stages {
		fmt.Fprintf(w, "%-18s  %6d  %6d  %7d\n", st.Name, st.In, st.Out, st.Dropped())
	}

	if len(s.Scores) > 0 {
		fmt.Fprintf(w, "\n%-12s  %5s  %6s  %6s  %6s\n", "Score", "Count", "Mean", "Min", "Max")
		for _, name := range []string{ScoreRelevance, ScoreImportance, ScoreRecency, ScoreComposite} {
			sum, ok := s.Scores[name]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%-12s  %5d  %6.1f  %6.1f  %6.1f\n", name, sum.Count, sum.Mean, sum.Min, sum.Max)
		}
	}

	if len(s.Buckets) > 0 {
		keys := make([]string, 0, len(s.Buckets))
		for k := range s.Buckets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			label := k
			if label == "" {
				label = "(none)"
			}
			parts = append(parts, fmt.Sprintf("%s=%d", label, s.Buckets[k]))
		}
		fmt.Fprintf(w, "\nBuckets: %s\n", strings.Join(parts, ", "))
	}

	for _, d := range s.Degraded {
		fmt.Fprintf(w, "degraded: %s\n", d)
	}
	for _, n := range s.Notes {
		fmt.Fprintf(w, "note: %s\n", n)
	}
}

// FormatJSON writes the selection and statistics as indented JSON to w.
func FormatJSON(selected []types.ScoredPaper, s *Stats, w io.Writer) error {
	if selected == nil {
		selected = []types.ScoredPaper{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Selected []types.ScoredPaper `json:"selected"`
		Stats    *Stats              `json:"stats"`
	}{selected, s})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
