// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"time"
)

// StatusSummary reports the persisted sync state without touching the
// graph.
type StatusSummary struct {
	// TrackedDocuments is the number of documents with a hash entry.
	TrackedDocuments int `json:"trackedDocuments"`

	// LastSync is the most recent per-document sync time. Zero when
	// nothing has synced yet.
	LastSync time.Time `json:"lastSync,omitempty"`

	// TotalEntities and TotalRelationships sum the per-document
	// bookkeeping counts.
	TotalEntities      int `json:"totalEntities"`
	TotalRelationships int `json:"totalRelationships"`
}

// Status loads the hash index and summarizes it.
func (e *Engine) Status(ctx context.Context) (*StatusSummary, error) {
	if err := e.detector.LoadIndex(ctx); err != nil {
		return nil, err
	}

	summary := &StatusSummary{}
	for _, path := range e.detector.TrackedPaths() {
		hashes, ok := e.detector.Tracked(path)
		if !ok {
			continue
		}
		summary.TrackedDocuments++
		summary.TotalEntities += hashes.EntityCount
		summary.TotalRelationships += hashes.RelationshipCount
		if hashes.SyncedAt.After(summary.LastSync) {
			summary.LastSync = hashes.SyncedAt
		}
	}
	return summary, nil
}
