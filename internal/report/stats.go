// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report collects per-run selection statistics and renders them as
// console tables, JSON, YAML run reports and Prometheus metrics.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Score type names used as keys of Stats.Scores.
const (
	ScoreRelevance  = "relevance"
	ScoreImportance = "importance"
	ScoreRecency    = "recency"
	ScoreComposite  = "composite"
)

// StageCount records how many candidates entered and left one stage.
type StageCount struct {
	Name string `json:"name" yaml:"name"`
	In   int    `json:"in" yaml:"in"`
	Out  int    `json:"out" yaml:"out"`
}

// Dropped returns the number of candidates the stage removed.
func (s StageCount) Dropped() int { return s.In - s.Out }

// ScoreSummary describes the distribution of one score type.
type ScoreSummary struct {
	Count int     `json:"count" yaml:"count"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

// Summarize computes count, mean, min and max of values. An empty input
// yields the zero summary.
func Summarize(values []float64) ScoreSummary {
	if len(values) == 0 {
		return ScoreSummary{}
	}
	s := ScoreSummary{Count: len(values), Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	return s
}

// Stats is the statistics of one pipeline run. A Stats value belongs to a
// single run and is not safe for concurrent use.
type Stats struct {
	RunID         string                  `json:"run_id" yaml:"run_id"`
	TablesVersion string                  `json:"tables_version" yaml:"tables_version"`
	StartedAt     time.Time               `json:"started_at" yaml:"started_at"`
	WindowStart   time.Time               `json:"window_start" yaml:"window_start"`
	WindowEnd     time.Time               `json:"window_end" yaml:"window_end"`
	Input         int                     `json:"input" yaml:"input"`
	Stages        []StageCount            `json:"stages" yaml:"stages"`
	Scores        map[string]ScoreSummary `json:"scores" yaml:"scores"`
	Buckets       map[string]int          `json:"buckets,omitempty" yaml:"buckets,omitempty"`
	Degraded      []string                `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Notes         []string                `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// NewStats starts the statistics of a run with a fresh run id.
func NewStats(tablesVersion string, startedAt time.Time) *Stats {
	return &Stats{
		RunID:         uuid.NewString(),
		TablesVersion: tablesVersion,
		StartedAt:     startedAt,
		Scores:        make(map[string]ScoreSummary),
	}
}

// Stage appends the counts of a finished stage. A stage that leaves no
// candidates also records an empty-result note.
func (s *Stats) Stage(name string, in, out int) {
	s.Stages = append(s.Stages, StageCount{Name: name, In: in, Out: out})
	if out == 0 {
		s.Note(fmt.Sprintf("%s: no candidates remain", name))
	}
}

// StageByName returns the counts of the named stage.
func (s *Stats) StageByName(name string) (StageCount, bool) {
	for _, st := range s.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return StageCount{}, false
}

// Score records the distribution of one score type.
func (s *Stats) Score(name string, values []float64) {
	if s.Scores == nil {
		s.Scores = make(map[string]ScoreSummary)
	}
	s.Scores[name] = Summarize(values)
}

// Degrade records a degraded collaborator call.
func (s *Stats) Degrade(msg string) {
	s.Degraded = append(s.Degraded, msg)
}

// Note records a free-form run note.
func (s *Stats) Note(msg string) {
	s.Notes = append(s.Notes, msg)
}

// Selected returns the number of papers that left the last stage.
func (s *Stats) Selected() int {
	if len(s.Stages) == 0 {
		return 0
	}
	return s.Stages[len(s.Stages)-1].Out
}
