// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"time"
)

// SyncError records a per-document failure without stopping the batch.
type SyncError struct {
	// Path is the document the failure belongs to.
	Path string `json:"path"`

	// Err is the underlying error.
	Err error `json:"error"`
}

// Error implements the error interface.
func (e SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e SyncError) Unwrap() error {
	return e.Err
}

// MarshalJSON serializes the underlying error as its string form.
func (e SyncError) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"path":%q,"error":%q}`, e.Path, e.Err.Error())), nil
}

// SyncResult is the summary of one sync pass: counts per change type,
// per-document errors, cascade warnings, and embedding bookkeeping.
// The result always reports successes and failures together.
type SyncResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`

	Errors []SyncError `json:"errors"`

	Duration time.Duration `json:"duration"`

	Changes []DocumentChange `json:"changes"`

	CascadeWarnings []CascadeAnalysis `json:"cascadeWarnings"`

	EmbeddingsGenerated       int `json:"embeddingsGenerated"`
	EntityEmbeddingsGenerated int `json:"entityEmbeddingsGenerated"`
}

// HasErrors reports whether any document failed during the pass. The
// calling CLI maps this to a non-zero exit status after printing the
// summary.
func (r *SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// RecordChange tallies a classification into the per-type counters and
// appends it to Changes.
func (r *SyncResult) RecordChange(change DocumentChange) {
	r.Changes = append(r.Changes, change)
	switch change.Type {
	case ChangeNew:
		r.Added++
	case ChangeUpdated:
		r.Updated++
	case ChangeDeleted:
		r.Deleted++
	case ChangeUnchanged:
		r.Unchanged++
	}
}

// RecordError appends a per-document error.
func (r *SyncResult) RecordError(path string, err error) {
	r.Errors = append(r.Errors, SyncError{Path: path, Err: err})
}
