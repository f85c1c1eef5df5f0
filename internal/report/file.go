// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// RunReport is the document written for each run.
type RunReport struct {
	Stats     *Stats                `yaml:"stats"`
	Selection types.SelectionConfig `yaml:"selection"`
	Papers    []types.StoredPaper   `yaml:"papers"`
}

// Path returns the report file path for r under dir:
// <dir>/<YYYY-MM-DD>-<run id>.yaml.
func (r *RunReport) Path(dir string) string {
	name := fmt.Sprintf("%s-%s.yaml", r.Stats.StartedAt.Format("2006-01-02"), r.Stats.RunID)
	return filepath.Join(dir, name)
}

// Write renders r as YAML under dir, creating dir as needed, and returns
// the written path.
func (r *RunReport) Write(dir string) (string, error) {
	if r.Stats == nil {
		return "", fmt.Errorf("run report has no statistics")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding run report: %w", err)
	}
	path := r.Path(dir)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing run report: %w", err)
	}
	return path, nil
}

// ReadRunReport loads a run report written by Write.
func ReadRunReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run report: %w", err)
	}
	var r RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing run report %s: %w", path, err)
	}
	return &r, nil
}
