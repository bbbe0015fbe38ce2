// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package changes

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// Detector classifies documents against the persisted hash index.
//
// Description:
//
//	LoadIndex must run once per sync pass before any classification;
//	Classify before a successful load returns ErrIndexNotLoaded rather
//	than defaulting every document to new. Classification reads the
//	in-memory snapshot; Record/Forget write through to the backend and
//	keep the snapshot coherent for the rest of the pass.
//
// Thread Safety: Safe for concurrent use.
type Detector struct {
	index Index

	mu      sync.RWMutex
	loaded  bool
	tracked map[string]datatypes.DocumentHashes
}

// NewDetector creates a Detector over the given index backend.
func NewDetector(index Index) *Detector {
	return &Detector{index: index}
}

// LoadIndex reads the persisted index into memory.
//
// Outputs:
//
//	error - Non-nil if the backend read fails; the detector stays
//	        unloaded and classification keeps failing fast.
func (d *Detector) LoadIndex(ctx context.Context) error {
	tracked, err := d.index.Load(ctx)
	if err != nil {
		return fmt.Errorf("load hash index: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracked = tracked
	d.loaded = true
	return nil
}

// Classify reports how a document changed since the last sync.
//
// Behavior:
//
//   - Path absent from the index: new.
//   - Stored record with an empty content hash (legacy entry): updated,
//     forcing re-processing.
//   - Stored hash equals the current hash: unchanged.
//   - Otherwise: updated.
func (d *Detector) Classify(path, contentHash string) (datatypes.ChangeType, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.loaded {
		return "", ErrIndexNotLoaded
	}

	stored, ok := d.tracked[path]
	switch {
	case !ok:
		return datatypes.ChangeNew, nil
	case stored.ContentHash == "":
		return datatypes.ChangeUpdated, nil
	case stored.ContentHash == contentHash:
		return datatypes.ChangeUnchanged, nil
	default:
		return datatypes.ChangeUpdated, nil
	}
}

// Deletions returns the sorted tracked paths that are absent from the
// on-disk set.
func (d *Detector) Deletions(onDisk []string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.loaded {
		return nil, ErrIndexNotLoaded
	}

	present := make(map[string]struct{}, len(onDisk))
	for _, p := range onDisk {
		present[p] = struct{}{}
	}

	var deleted []string
	for p := range d.tracked {
		if _, ok := present[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(deleted)
	return deleted, nil
}

// TrackedPaths returns the sorted paths currently in the index.
func (d *Detector) TrackedPaths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	paths := make([]string, 0, len(d.tracked))
	for p := range d.tracked {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Tracked returns the stored record for a path, if any.
func (d *Detector) Tracked(path string) (datatypes.DocumentHashes, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h, ok := d.tracked[path]
	return h, ok
}

// Record persists the post-sync record for a path and updates the
// in-memory snapshot.
func (d *Detector) Record(ctx context.Context, path string, hashes datatypes.DocumentHashes) error {
	if err := d.index.Put(ctx, path, hashes); err != nil {
		return fmt.Errorf("record %s: %w", path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tracked == nil {
		d.tracked = make(map[string]datatypes.DocumentHashes)
	}
	d.tracked[path] = hashes
	return nil
}

// Forget removes a path from the index after its graph state is gone.
func (d *Detector) Forget(ctx context.Context, path string) error {
	if err := d.index.Delete(ctx, path); err != nil {
		return fmt.Errorf("forget %s: %w", path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tracked, path)
	return nil
}

// ForceResync clears the given paths (nil clears everything) so the next
// classification reports them as new or updated.
func (d *Detector) ForceResync(ctx context.Context, paths []string) error {
	if err := d.index.Clear(ctx, paths); err != nil {
		return fmt.Errorf("force resync: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if paths == nil {
		d.tracked = make(map[string]datatypes.DocumentHashes)
		return nil
	}
	for _, p := range paths {
		delete(d.tracked, p)
	}
	return nil
}
