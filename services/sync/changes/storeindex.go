// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package changes

import (
	"context"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// HashStore is the slice of the graph client the store-backed index
// needs. Declared here so this package does not depend on the full
// client surface.
type HashStore interface {
	LoadAllDocumentHashes(ctx context.Context) (map[string]datatypes.DocumentHashes, error)
	UpdateDocumentHashes(ctx context.Context, path string, hashes datatypes.DocumentHashes) error
	RemoveDocumentHashes(ctx context.Context, path string) error
}

// StoreIndex keeps the hash index inside the graph store itself, so a
// single backend holds both the graph and the sync state. Useful when
// the store is remote and local files would go stale across machines.
type StoreIndex struct {
	store HashStore
}

// NewStoreIndex wraps a graph client's document-hash operations as an
// Index backend.
func NewStoreIndex(store HashStore) *StoreIndex {
	return &StoreIndex{store: store}
}

// Load delegates to the store's full hash scan.
func (ix *StoreIndex) Load(ctx context.Context) (map[string]datatypes.DocumentHashes, error) {
	return ix.store.LoadAllDocumentHashes(ctx)
}

// Put delegates to the store's per-document hash upsert.
func (ix *StoreIndex) Put(ctx context.Context, path string, hashes datatypes.DocumentHashes) error {
	return ix.store.UpdateDocumentHashes(ctx, path, hashes)
}

// Delete removes the store's record for one path.
func (ix *StoreIndex) Delete(ctx context.Context, path string) error {
	return ix.store.RemoveDocumentHashes(ctx, path)
}

// Clear removes the given paths one by one; nil clears every record.
func (ix *StoreIndex) Clear(ctx context.Context, paths []string) error {
	if paths == nil {
		all, err := ix.store.LoadAllDocumentHashes(ctx)
		if err != nil {
			return err
		}
		paths = make([]string, 0, len(all))
		for p := range all {
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		if err := ix.store.RemoveDocumentHashes(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the graph client owns the connection lifecycle.
func (ix *StoreIndex) Close() error {
	return nil
}
