// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// sqlStore holds the queries shared by the sqlite and postgres drivers.
// Queries are written with ? placeholders; postgres rebinds them to $n.
type sqlStore struct {
	db       *sql.DB
	numbered bool
}

const paperColumns = `id, title, authors, abstract, published, categories, keyword, pdf_url,
	summary, summary_generated, matched_keyword, relevance, importance, composite, processed_at`

func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// Save upserts papers in one transaction.
func (s *sqlStore) Save(ctx context.Context, papers []types.StoredPaper) error {
	if len(papers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO papers (`+paperColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			published=excluded.published, categories=excluded.categories, keyword=excluded.keyword,
			pdf_url=excluded.pdf_url, summary=excluded.summary,
			summary_generated=excluded.summary_generated, matched_keyword=excluded.matched_keyword,
			relevance=excluded.relevance, importance=excluded.importance,
			composite=excluded.composite, processed_at=excluded.processed_at`))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range papers {
		if p.ID == "" {
			return fmt.Errorf("saving paper %q: empty id", p.Title)
		}
		authorsJSON, _ := json.Marshal(p.Authors)
		categoriesJSON, _ := json.Marshal(p.Categories)
		_, err := stmt.ExecContext(ctx,
			p.ID, p.Title, string(authorsJSON), p.Abstract, formatTime(p.Published),
			string(categoriesJSON), p.Keyword, p.PDFURL,
			p.Summary, p.SummaryGenerated, p.MatchedKeyword,
			p.Relevance, p.Importance, p.Composite, formatTime(p.ProcessedAt),
		)
		if err != nil {
			return fmt.Errorf("saving paper %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Recent lists papers processed at or after since, newest first. A
// non-positive limit returns all of them.
func (s *sqlStore) Recent(ctx context.Context, since time.Time, limit int) ([]types.StoredPaper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE processed_at >= ? ORDER BY processed_at DESC, id`
	args := []any{formatTime(since)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent papers: %w", err)
	}
	defer rows.Close()

	var out []types.StoredPaper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IDs returns every stored id.
func (s *sqlStore) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM papers`)
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPaper(rows *sql.Rows) (types.StoredPaper, error) {
	var (
		p                      types.StoredPaper
		authors, categories    string
		published, processedAt string
	)
	err := rows.Scan(&p.ID, &p.Title, &authors, &p.Abstract, &published, &categories,
		&p.Keyword, &p.PDFURL, &p.Summary, &p.SummaryGenerated, &p.MatchedKeyword,
		&p.Relevance, &p.Importance, &p.Composite, &processedAt)
	if err != nil {
		return p, fmt.Errorf("scanning paper: %w", err)
	}
	if authors != "" {
		_ = json.Unmarshal([]byte(authors), &p.Authors)
	}
	if categories != "" {
		_ = json.Unmarshal([]byte(categories), &p.Categories)
	}
	p.Published = parseTime(published)
	p.ProcessedAt = parseTime(processedAt)
	return p, nil
}

// timeLayout is fixed-width UTC so string order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
