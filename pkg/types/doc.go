// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-picker pipeline:
// fetched paper records, their scored annotations, the persisted form written
// after summarization, and the configuration of every stage.
package types
