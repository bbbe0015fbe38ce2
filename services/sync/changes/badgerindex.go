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
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// badgerKeyPrefix namespaces hash records within the database so the
// directory can be shared with other embedded state later.
var badgerKeyPrefix = []byte("hash/")

// BadgerIndex stores the hash index in an embedded BadgerDB, one key per
// document path. Suited to large document sets where rewriting a single
// JSON file per mutation gets expensive.
//
// Thread Safety: Safe for concurrent use.
type BadgerIndex struct {
	db *badger.DB
}

// BadgerConfig holds configuration for a BadgerIndex.
type BadgerConfig struct {
	// Path is the directory for database files. Required unless
	// InMemory is true.
	Path string

	// InMemory enables in-memory mode. Useful for testing.
	InMemory bool

	// Logger receives BadgerDB's internal log output. If nil, internal
	// logging is disabled.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerIndex opens (creating if needed) a Badger-backed hash index.
//
// Inputs:
//
//	cfg - Database configuration. Path is required unless InMemory.
//
// Outputs:
//
//	*BadgerIndex - The opened index. Caller must Close when done.
//	error - Non-nil if the database cannot be opened.
func NewBadgerIndex(cfg BadgerConfig) (*BadgerIndex, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent index")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create index directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger index: %w", err)
	}
	return &BadgerIndex{db: db}, nil
}

// Load iterates every hash record in the database.
func (ix *BadgerIndex) Load(ctx context.Context) (map[string]datatypes.DocumentHashes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make(map[string]datatypes.DocumentHashes)
	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			path := string(item.Key()[len(badgerKeyPrefix):])
			err := item.Value(func(val []byte) error {
				var h datatypes.DocumentHashes
				if err := json.Unmarshal(val, &h); err != nil {
					return fmt.Errorf("%w: %s: %v", ErrIndexCorrupt, path, err)
				}
				docs[path] = h
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Put persists the record for one path.
func (ix *BadgerIndex) Put(ctx context.Context, path string, hashes datatypes.DocumentHashes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(hashes)
	if err != nil {
		return fmt.Errorf("encode record for %s: %w", path, err)
	}
	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(path), data)
	})
}

// Delete removes the record for one path.
func (ix *BadgerIndex) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(path))
	})
}

// Clear removes the given paths, or everything when paths is nil.
func (ix *BadgerIndex) Clear(ctx context.Context, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if paths != nil {
		return ix.db.Update(func(txn *badger.Txn) error {
			for _, p := range paths {
				if err := txn.Delete(badgerKey(p)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return ix.db.DropPrefix(badgerKeyPrefix)
}

// Close closes the underlying database.
func (ix *BadgerIndex) Close() error {
	return ix.db.Close()
}

func badgerKey(path string) []byte {
	return append(append([]byte{}, badgerKeyPrefix...), path...)
}
