// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "fmt"

// ConfigurationError reports an invalid selection setting. It is returned
// by New before any record is processed.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

func configErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DegradedLookupError wraps a failed store lookup during deduplication. By
// default the run continues as if no candidate had been seen before.
type DegradedLookupError struct {
	Candidates int
	Err        error
}

func (e *DegradedLookupError) Error() string {
	return fmt.Sprintf("store lookup for %d candidates failed: %v", e.Candidates, e.Err)
}

func (e *DegradedLookupError) Unwrap() error { return e.Err }
