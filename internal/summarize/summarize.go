// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize generates a summary for each selected paper through a
// chat-completion backend.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/paper-picker/pkg/types"
)

const (
	minSummaryLength  = 50
	minTitleLength    = 10
	defaultMaxRetries = 2
	defaultLanguage   = "Japanese"
)

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// ErrShortSummary is returned when the backend reply is empty or shorter
// than 50 characters.
var ErrShortSummary = errors.New("summary too short or empty")

// Backend abstracts the chat-completion API so tests can supply a mock.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer produces summaries with retries.
type Summarizer struct {
	backend Backend
	cfg     types.SummaryConfig
	logger  *slog.Logger
}

// Result is the outcome for one paper. Generated is false when every attempt
// failed; Err then holds the last error.
type Result struct {
	Paper     types.ScoredPaper
	Summary   string
	Generated bool
	Err       error
}

// BatchSummary holds counts from a SummarizeAll run.
type BatchSummary struct {
	Summarized int
	Failed     int
}

// Total returns the number of papers processed.
func (s BatchSummary) Total() int {
	return s.Summarized + s.Failed
}

// New returns a Summarizer. A nil logger discards.
func New(backend Backend, cfg types.SummaryConfig, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	return &Summarizer{backend: backend, cfg: cfg, logger: logger}
}

// Summarize builds the prompt for p and calls the backend with exponential
// backoff. A reply shorter than 50 characters counts as a failed attempt.
// With the default of 2 retries a paper gets three attempts in total.
func (s *Summarizer) Summarize(ctx context.Context, p types.PaperRecord) (string, error) {
	if err := validatePaper(p); err != nil {
		return "", err
	}
	system, user, err := BuildPrompt(p, s.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	maxRetries := s.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return s.callWithRetry(ctx, system, user, maxRetries)
}

// callWithRetry makes 1+maxRetries attempts, backing off 1 s, 2 s, 4 s ...
// between them.
func (s *Summarizer) callWithRetry(ctx context.Context, system, user string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			s.logger.Warn("summary attempt failed, retrying", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := s.backend.Complete(ctx, system, user)
		if err == nil {
			text = strings.TrimSpace(text)
			if utf8.RuneCountInString(text) >= minSummaryLength {
				return text, nil
			}
			err = ErrShortSummary
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// SummarizeAll summarizes papers in order, pausing RequestDelay between
// calls. A failed paper is reported and marked ungenerated; the run
// continues. Only context cancellation stops it early.
func (s *Summarizer) SummarizeAll(ctx context.Context, papers []types.ScoredPaper, w io.Writer) ([]Result, BatchSummary, error) {
	results := make([]Result, 0, len(papers))
	var summary BatchSummary

	for i, p := range papers {
		if i > 0 && s.cfg.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return results, summary, ctx.Err()
			case <-time.After(s.cfg.RequestDelay):
			}
		}

		fmt.Fprintf(w, "summarizing %s\n", p.ID)
		text, err := s.Summarize(ctx, p.PaperRecord)
		if err != nil {
			if ctx.Err() != nil {
				return results, summary, ctx.Err()
			}
			s.logger.Error("summary failed", "id", p.ID, "title", truncateRunes(p.Title, 50), "error", err)
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			results = append(results, Result{Paper: p, Err: err})
			summary.Failed++
			continue
		}
		results = append(results, Result{Paper: p, Summary: text, Generated: true})
		summary.Summarized++
	}
	return results, summary, nil
}

// Stored converts the generated results to their persisted form. Failed
// papers are left out so a later run can pick them up again.
func Stored(results []Result, at time.Time) []types.StoredPaper {
	var out []types.StoredPaper
	for _, r := range results {
		if r.Generated {
			out = append(out, types.NewStoredPaper(r.Paper, r.Summary, true, at))
		}
	}
	return out
}

func validatePaper(p types.PaperRecord) error {
	if p.ID == "" {
		return fmt.Errorf("paper has no id")
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.Title)) < minTitleLength {
		return fmt.Errorf("paper %s: title %q too short", p.ID, p.Title)
	}
	return nil
}
