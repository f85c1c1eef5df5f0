// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// Batch is the on-disk form of a fetched batch. Scoring a saved batch gives
// the same selection as scoring the live fetch, so the pipeline can be
// tuned offline without re-querying arXiv.
type Batch struct {
	Keywords       []string            `yaml:"keywords"`
	FetchedAt      time.Time           `yaml:"fetched_at"`
	FailedKeywords []string            `yaml:"failed_keywords,omitempty"`
	Records        []types.PaperRecord `yaml:"records"`
}

// NewBatch records the output of a fetch.
func NewBatch(keywords []string, out FetchOutput, at time.Time) Batch {
	return Batch{
		Keywords:       keywords,
		FetchedAt:      at.UTC(),
		FailedKeywords: out.FailedKeywords,
		Records:        out.Records,
	}
}

// WriteBatch saves b as YAML, creating the parent directory.
func WriteBatch(path string, b Batch) error {
	data, err := yaml.Marshal(&b)
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating batch directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadBatch loads a previously saved batch from disk.
func ReadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}
	return &b, nil
}
