// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fetches candidate paper records from arXiv, one query per
// target keyword, and saves fetched batches to disk for offline re-runs.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-picker/internal/httputil"
	"github.com/pdiddy/paper-picker/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// energyCategories scope queries for power and energy keywords. Grid control,
// forecasting and market papers spread well beyond the AI categories.
var energyCategories = []string{
	"cs.AI", "cs.LG", "cs.CV", "cs.NE", "stat.ML",
	"eess.SP", "eess.SY", "cs.SY", "math.OC", "stat.AP",
	"cs.DC", "physics.soc-ph",
}

// aiCategories scope every other keyword.
var aiCategories = []string{"cs.AI", "cs.LG", "cs.CV", "cs.NE", "stat.ML"}

// powerTerms mark a keyword as power related when any occurs in it.
var powerTerms = []string{
	"power", "energy", "electricity", "grid", "renewable", "solar", "wind",
	"demand", "forecast", "prediction", "smart grid", "photovoltaic", "battery",
	"storage", "generation", "load", "voltage", "frequency", "stability",
}

// Fetcher queries arXiv for each keyword. Queries run concurrently up to
// Config.Concurrency; results keep keyword order.
type Fetcher struct {
	Client *http.Client
	Config types.FetchConfig
	Logger *slog.Logger
}

// FetchOutput holds a fetched batch and the keywords whose query failed.
type FetchOutput struct {
	Records        []types.PaperRecord
	FailedKeywords []string
}

// Span restricts queries to papers submitted between From and To, both
// inclusive calendar days. The zero Span leaves queries unrestricted.
type Span struct {
	From, To time.Time
}

// IsZero reports whether s leaves queries unrestricted.
func (s Span) IsZero() bool { return s.From.IsZero() && s.To.IsZero() }

// NewFetcher returns a Fetcher with an HTTP client honoring cfg.Timeout.
func NewFetcher(cfg types.FetchConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{
		Client: &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
		Logger: logger,
	}
}

// Fetch runs one query per keyword and concatenates the records in keyword
// order. A failing keyword is logged and listed in FailedKeywords; the call
// fails only when every keyword fails. A non-zero span adds a
// submittedDate clause to every query.
func (f *Fetcher) Fetch(ctx context.Context, keywords []string, span Span) (FetchOutput, error) {
	var kws []string
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	if len(kws) == 0 {
		f.Logger.Warn("no keywords to fetch")
		return FetchOutput{}, nil
	}

	limit := f.Config.Concurrency
	if limit <= 0 {
		limit = 1
	}

	results := make([][]types.PaperRecord, len(kws))
	errs := make([]error, len(kws))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, kw := range kws {
		g.Go(func() error {
			results[i], errs[i] = f.fetchKeyword(ctx, kw, span)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return FetchOutput{}, err
	}

	var out FetchOutput
	for i, kw := range kws {
		if errs[i] != nil {
			f.Logger.Error("arxiv query failed", "keyword", kw, "error", errs[i])
			out.FailedKeywords = append(out.FailedKeywords, kw)
			continue
		}
		out.Records = append(out.Records, results[i]...)
	}
	if len(out.FailedKeywords) == len(kws) {
		return out, fmt.Errorf("fetching papers: all %d keyword queries failed: %w", len(kws), errs[0])
	}

	f.Logger.Info("fetched papers",
		"records", len(out.Records),
		"keywords", len(kws)-len(out.FailedKeywords),
		"failed", len(out.FailedKeywords))
	return out, nil
}

func (f *Fetcher) fetchKeyword(ctx context.Context, keyword string, span Span) ([]types.PaperRecord, error) {
	perKeyword := f.Config.PerKeyword
	if perKeyword <= 0 {
		perKeyword = 50
	}

	params := url.Values{}
	params.Set("search_query", buildArxivQuery(keyword, span))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(2*perKeyword))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.Config.UserAgent != "" {
		req.Header.Set("User-Agent", f.Config.UserAgent)
	}

	retrier := &httputil.Retrier{Client: f.Client, MaxRetries: f.Config.MaxRetries, Logger: f.Logger}
	resp, err := retrier.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	feed, err := (&atom.Parser{}).Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var records []types.PaperRecord
	for _, entry := range feed.Entries {
		if rec, ok := toRecord(entry, keyword); ok {
			records = append(records, rec)
		}
	}
	f.Logger.Debug("arxiv query done", "keyword", keyword, "records", len(records))
	return records, nil
}

// toRecord converts one Atom entry. Entries without an arXiv abs id (such as
// the error entries arXiv returns for malformed queries) are skipped.
func toRecord(entry *atom.Entry, keyword string) (types.PaperRecord, bool) {
	id := extractArxivID(entry.ID)
	if id == "" {
		return types.PaperRecord{}, false
	}

	rec := types.PaperRecord{
		ID:       id,
		Title:    collapse(entry.Title),
		Abstract: collapse(entry.Summary),
		Keyword:  keyword,
		PDFURL:   pdfLink(entry.Links, id),
	}
	for _, a := range entry.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			rec.Authors = append(rec.Authors, strings.TrimSpace(a.Name))
		}
	}
	for _, c := range entry.Categories {
		if c != nil && c.Term != "" {
			rec.Categories = append(rec.Categories, c.Term)
		}
	}
	if entry.PublishedParsed != nil {
		rec.Published = entry.PublishedParsed.UTC()
	} else if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		rec.Published = t.UTC()
	}
	return rec, true
}

// pdfLink prefers the entry's PDF link and falls back to the canonical URL.
func pdfLink(links []*atom.Link, id string) string {
	for _, l := range links {
		if l != nil && (l.Title == "pdf" || l.Type == "application/pdf") {
			return l.Href
		}
	}
	return "https://arxiv.org/pdf/" + id
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// buildArxivQuery scopes a keyword to the categories that fit it:
// all:<keyword> AND (cat:A OR cat:B ...). Multi-word keywords are quoted
// as a phrase. A non-zero span appends
// AND submittedDate:[YYYYMMDD0000 TO YYYYMMDD2359].
func buildArxivQuery(keyword string, span Span) string {
	terms := strings.Fields(keyword)
	term := strings.Join(terms, " ")
	if len(terms) > 1 {
		term = `"` + term + `"`
	}

	cats := aiCategories
	if isPowerRelated(keyword) {
		cats = energyCategories
	}
	scoped := make([]string, len(cats))
	for i, c := range cats {
		scoped[i] = "cat:" + c
	}
	q := "all:" + term + " AND (" + strings.Join(scoped, " OR ") + ")"
	if !span.IsZero() {
		q += " AND submittedDate:[" + span.From.UTC().Format("20060102") + "0000 TO " +
			span.To.UTC().Format("20060102") + "2359]"
	}
	return q
}

func isPowerRelated(keyword string) bool {
	lower := strings.ToLower(keyword)
	for _, t := range powerTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
