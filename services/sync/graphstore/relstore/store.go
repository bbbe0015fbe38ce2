// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package relstore is the embedded relational graph adapter.
//
// It maps the graph operations onto three SQLite tables (nodes, edges,
// document_hashes) so a sync can run with no external server at all.
// Property bags are stored as JSON; embeddings as JSON float arrays with
// brute-force cosine search, which is plenty for personal-scale corpora.
// All SQL is parameterized; no value is ever concatenated into a query.
package relstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	node_type  TEXT NOT NULL,
	name       TEXT NOT NULL,
	properties TEXT NOT NULL DEFAULT '{}',
	embedding  TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (node_type, name)
);

CREATE TABLE IF NOT EXISTS edges (
	src_type        TEXT NOT NULL,
	src_name        TEXT NOT NULL,
	relation        TEXT NOT NULL,
	dst_type        TEXT NOT NULL,
	dst_name        TEXT NOT NULL,
	properties      TEXT NOT NULL DEFAULT '{}',
	source_document TEXT,
	PRIMARY KEY (src_type, src_name, relation, dst_type, dst_name)
);

CREATE INDEX IF NOT EXISTS idx_edges_source_document ON edges(source_document);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst_type, dst_name);

CREATE TABLE IF NOT EXISTS document_hashes (
	path                  TEXT PRIMARY KEY,
	content_hash          TEXT NOT NULL,
	embedding_source_hash TEXT NOT NULL DEFAULT '',
	synced_at             TEXT NOT NULL,
	entity_count          INTEGER NOT NULL DEFAULT 0,
	relationship_count    INTEGER NOT NULL DEFAULT 0
);
`

// Config holds settings for the relational store.
type Config struct {
	// Path is the database file location. Parent directories are
	// created as needed.
	Path string

	// Dimensions is the embedding dimensionality enforced by
	// UpdateNodeEmbedding. Zero disables the check.
	Dimensions int
}

// Store implements graphstore.Client on an embedded SQLite database.
//
// Thread Safety: Safe for concurrent use; database/sql pools
// connections and WAL mode allows readers during writes.
type Store struct {
	conn *sql.DB
	cfg  Config
}

// Open opens (creating if needed) the store at cfg.Path.
//
// Outputs:
//
//	*Store - Ready store with the schema applied. Caller must Close.
//	error - Non-nil if the file cannot be opened or the schema fails.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", graphstore.ErrUnavailable, err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Checkpoint truncates the WAL so everything lives in the main file.
func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Close checkpoints and closes the database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := s.conn.Close()
	s.conn = nil
	return err
}

var _ graphstore.Client = (*Store)(nil)
