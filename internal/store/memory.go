// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// Memory is a process-local store. Nothing survives Close.
type Memory struct {
	mu     sync.RWMutex
	papers map[string]types.StoredPaper
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{papers: make(map[string]types.StoredPaper)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[string]bool)
	for _, id := range ids {
		if _, ok := m.papers[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (m *Memory) Save(_ context.Context, papers []types.StoredPaper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range papers {
		m.papers[p.ID] = p
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, since time.Time, limit int) ([]types.StoredPaper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.StoredPaper
	for _, p := range m.papers {
		if !p.ProcessedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ProcessedAt.After(out[j].ProcessedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) IDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.papers))
	for id := range m.papers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Close() error { return nil }
