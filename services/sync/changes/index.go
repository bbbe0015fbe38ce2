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

// Index is the capability contract a hash-index backend must satisfy.
//
// All methods are keyed by absolute document path. Implementations must
// be safe for use by a single sync pass at a time; the Detector holds
// the in-memory view and funnels writes through one goroutine.
type Index interface {
	// Load returns every persisted record. An empty (never-synced)
	// index returns an empty map, not an error.
	Load(ctx context.Context) (map[string]datatypes.DocumentHashes, error)

	// Put persists the record for one document path.
	Put(ctx context.Context, path string, hashes datatypes.DocumentHashes) error

	// Delete removes the record for one document path. Deleting an
	// absent path is a no-op.
	Delete(ctx context.Context, path string) error

	// Clear removes the records for the given paths. A nil slice
	// clears the entire index.
	Clear(ctx context.Context, paths []string) error

	// Close releases backend resources.
	Close() error
}
