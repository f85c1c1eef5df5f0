// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/pdiddy/paper-picker/pkg/types"
)

const (
	defaultBloomCapacity = 100000
	defaultBloomFPRate   = 0.01
)

// BloomGuard answers ExistingIDs from a bloom filter of stored ids and only
// asks the wrapped store about ids the filter might contain. Until Warm
// succeeds every lookup goes to the wrapped store.
type BloomGuard struct {
	Store

	logger *slog.Logger

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	warm   bool
}

// NewBloomGuard wraps s. Non-positive settings fall back to 100000 ids at
// a 1% false-positive rate.
func NewBloomGuard(s Store, capacity uint, falsePositiveRate float64, logger *slog.Logger) *BloomGuard {
	if capacity == 0 {
		capacity = defaultBloomCapacity
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = defaultBloomFPRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BloomGuard{
		Store:  s,
		logger: logger,
		filter: bloom.NewWithEstimates(capacity, falsePositiveRate),
	}
}

// Warm loads every stored id into the filter. The wrapped store must
// implement IDLister.
func (g *BloomGuard) Warm(ctx context.Context) error {
	lister, ok := g.Store.(IDLister)
	if !ok {
		return fmt.Errorf("store %s cannot list ids", g.Store.Name())
	}
	ids, err := lister.IDs(ctx)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		g.filter.AddString(id)
	}
	g.warm = true
	g.logger.Debug("bloom guard warmed", "store", g.Store.Name(), "ids", len(ids))
	return nil
}

func (g *BloomGuard) Name() string { return "bloom+" + g.Store.Name() }

// ExistingIDs skips the wrapped store for ids the filter rules out.
func (g *BloomGuard) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	g.mu.RLock()
	if !g.warm {
		g.mu.RUnlock()
		return g.Store.ExistingIDs(ctx, ids)
	}
	var maybe []string
	for _, id := range uniqueIDs(ids) {
		if g.filter.TestString(id) {
			maybe = append(maybe, id)
		}
	}
	g.mu.RUnlock()

	g.logger.Debug("bloom guard lookup", "candidates", len(ids), "forwarded", len(maybe))
	if len(maybe) == 0 {
		return make(map[string]bool), nil
	}
	return g.Store.ExistingIDs(ctx, maybe)
}

// Save writes through and records the ids in the filter.
func (g *BloomGuard) Save(ctx context.Context, papers []types.StoredPaper) error {
	if err := g.Store.Save(ctx, papers); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range papers {
		g.filter.AddString(p.ID)
	}
	return nil
}

// Unwrap returns the guarded store.
func (g *BloomGuard) Unwrap() Store { return g.Store }

// AsHistory returns s, or the store it guards, as a HistoryStore.
func AsHistory(s Store) (HistoryStore, bool) {
	for {
		if h, ok := s.(HistoryStore); ok {
			return h, true
		}
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return nil, false
		}
		s = u.Unwrap()
	}
}
