// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package relstore

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// LoadAllDocumentHashes returns the per-document sync records.
func (s *Store) LoadAllDocumentHashes(ctx context.Context) (map[string]datatypes.DocumentHashes, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT path, content_hash, embedding_source_hash, synced_at, entity_count, relationship_count
		FROM document_hashes`)
	if err != nil {
		return nil, fmt.Errorf("load document hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]datatypes.DocumentHashes)
	for rows.Next() {
		var path, syncedAt string
		var h datatypes.DocumentHashes
		if err := rows.Scan(&path, &h.ContentHash, &h.EmbeddingSourceHash, &syncedAt,
			&h.EntityCount, &h.RelationshipCount); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, syncedAt); err == nil {
			h.SyncedAt = t
		}
		out[path] = h
	}
	return out, rows.Err()
}

// UpdateDocumentHashes upserts the sync record for one document.
func (s *Store) UpdateDocumentHashes(ctx context.Context, path string, hashes datatypes.DocumentHashes) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO document_hashes (path, content_hash, embedding_source_hash, synced_at, entity_count, relationship_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			content_hash = excluded.content_hash,
			embedding_source_hash = excluded.embedding_source_hash,
			synced_at = excluded.synced_at,
			entity_count = excluded.entity_count,
			relationship_count = excluded.relationship_count`,
		path, hashes.ContentHash, hashes.EmbeddingSourceHash,
		hashes.SyncedAt.UTC().Format(time.RFC3339Nano),
		hashes.EntityCount, hashes.RelationshipCount)
	if err != nil {
		return fmt.Errorf("update hashes of %s: %w", path, err)
	}
	return nil
}

// RemoveDocumentHashes deletes the sync record for one document.
func (s *Store) RemoveDocumentHashes(ctx context.Context, path string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM document_hashes WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("remove hashes of %s: %w", path, err)
	}
	return nil
}
