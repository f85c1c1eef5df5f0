// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteMaxVars keeps IN lists under SQLite's bound-parameter limit.
const sqliteMaxVars = 500

// SQLite is the default store: one papers table in a local database file.
type SQLite struct {
	sqlStore
}

// OpenSQLite opens or creates the database at path, creating parent
// directories and the schema as needed.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{sqlStore{db: db}}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			abstract TEXT NOT NULL DEFAULT '',
			published TEXT NOT NULL DEFAULT '',
			categories TEXT NOT NULL DEFAULT '[]',
			keyword TEXT NOT NULL DEFAULT '',
			pdf_url TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			summary_generated INTEGER NOT NULL DEFAULT 0,
			matched_keyword TEXT NOT NULL DEFAULT '',
			relevance REAL NOT NULL DEFAULT 0,
			importance REAL NOT NULL DEFAULT 0,
			composite REAL NOT NULL DEFAULT 0,
			processed_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_processed_at ON papers(processed_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// ExistingIDs looks ids up with IN queries of at most sqliteMaxVars ids.
func (s *SQLite) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	ids = uniqueIDs(ids)
	found := make(map[string]bool)
	for start := 0; start < len(ids); start += sqliteMaxVars {
		end := min(start+sqliteMaxVars, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		rows, err := s.db.QueryContext(ctx, `SELECT id FROM papers WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("looking up ids: %w", err)
		}
		known, err := scanIDs(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, id := range known {
			found[id] = true
		}
	}
	return found, nil
}
