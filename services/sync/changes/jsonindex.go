// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package changes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// jsonIndexVersion guards against silently reading a future file layout.
const jsonIndexVersion = 1

// jsonIndexFile is the on-disk layout of the JSON index.
type jsonIndexFile struct {
	Version   int                                 `json:"version"`
	Documents map[string]datatypes.DocumentHashes `json:"documents"`
}

// JSONIndex stores the hash index as a single JSON document on disk.
//
// Description:
//
//	The default backend. Every mutation rewrites the whole file via a
//	temp file and atomic rename, so a crash mid-write leaves either the
//	old index or the new one, never a torn file.
//
// Thread Safety: Safe for concurrent use.
type JSONIndex struct {
	mu   sync.Mutex
	path string
}

// NewJSONIndex creates a JSON-file index at the given path. The file is
// created lazily on first write; a missing file loads as empty.
func NewJSONIndex(path string) *JSONIndex {
	return &JSONIndex{path: path}
}

// Load reads the whole index from disk.
func (ix *JSONIndex) Load(ctx context.Context) (map[string]datatypes.DocumentHashes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.read()
}

// Put persists the record for one path.
func (ix *JSONIndex) Put(ctx context.Context, path string, hashes datatypes.DocumentHashes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	docs, err := ix.read()
	if err != nil {
		return err
	}
	docs[path] = hashes
	return ix.write(docs)
}

// Delete removes the record for one path.
func (ix *JSONIndex) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	docs, err := ix.read()
	if err != nil {
		return err
	}
	if _, ok := docs[path]; !ok {
		return nil
	}
	delete(docs, path)
	return ix.write(docs)
}

// Clear removes the given paths, or everything when paths is nil.
func (ix *JSONIndex) Clear(ctx context.Context, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if paths == nil {
		return ix.write(map[string]datatypes.DocumentHashes{})
	}

	docs, err := ix.read()
	if err != nil {
		return err
	}
	for _, p := range paths {
		delete(docs, p)
	}
	return ix.write(docs)
}

// Close is a no-op; the file is not held open between operations.
func (ix *JSONIndex) Close() error {
	return nil
}

// read loads the file, treating a missing file as an empty index.
// Caller holds ix.mu.
func (ix *JSONIndex) read() (map[string]datatypes.DocumentHashes, error) {
	data, err := os.ReadFile(ix.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]datatypes.DocumentHashes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", ix.path, err)
	}

	var file jsonIndexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIndexCorrupt, ix.path, err)
	}
	if file.Version > jsonIndexVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrIndexCorrupt, ix.path, file.Version)
	}
	if file.Documents == nil {
		file.Documents = map[string]datatypes.DocumentHashes{}
	}
	return file.Documents, nil
}

// write replaces the file atomically. Caller holds ix.mu.
func (ix *JSONIndex) write(docs map[string]datatypes.DocumentHashes) error {
	if err := os.MkdirAll(filepath.Dir(ix.path), 0750); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	data, err := json.MarshalIndent(jsonIndexFile{
		Version:   jsonIndexVersion,
		Documents: docs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(ix.path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}

	if err := os.Rename(tmpName, ix.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace index %s: %w", ix.path, err)
	}
	return nil
}
