// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists processed papers and answers "have we seen this
// id before" for deduplication. Drivers: sqlite (default), postgres, redis
// and an in-memory store for tests and dry runs. Any driver can sit behind
// a bloom-filter guard.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// Store is the record store contract used by the pipeline and the CLI.
type Store interface {
	// Name identifies the driver in logs.
	Name() string

	// ExistingIDs returns the subset of ids already stored. It is one
	// batched lookup regardless of len(ids).
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// Save upserts papers keyed by id.
	Save(ctx context.Context, papers []types.StoredPaper) error

	Close() error
}

// HistoryStore can list recently processed papers.
type HistoryStore interface {
	Store
	Recent(ctx context.Context, since time.Time, limit int) ([]types.StoredPaper, error)
}

// IDLister can enumerate every stored id. The bloom guard uses it to warm up.
type IDLister interface {
	IDs(ctx context.Context) ([]string, error)
}

// Has reports whether id is stored.
func Has(ctx context.Context, s Store, id string) (bool, error) {
	found, err := s.ExistingIDs(ctx, []string{id})
	if err != nil {
		return false, err
	}
	return found[id], nil
}

// Open connects the configured driver and, when enabled, wraps it in a
// warmed bloom guard.
func Open(ctx context.Context, cfg types.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case types.DriverSQLite, "":
		s, err = OpenSQLite(cfg.DSN)
	case types.DriverPostgres:
		s, err = OpenPostgres(ctx, cfg.DSN)
	case types.DriverRedis:
		s, err = OpenRedis(ctx, cfg.DSN)
	case types.DriverMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Bloom.Enabled {
		return s, nil
	}
	guard := NewBloomGuard(s, cfg.Bloom.Capacity, cfg.Bloom.FalsePositiveRate, logger)
	if err := guard.Warm(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("warming bloom guard: %w", err)
	}
	return guard, nil
}

// uniqueIDs drops empty and repeated ids, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
