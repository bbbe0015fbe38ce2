// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphstore

import (
	"context"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// PropSourceDocument is the provenance property every document-derived
// edge carries, and the key DeleteDocumentRelationships matches on.
const PropSourceDocument = "source_document"

// Row is one result row from an ad hoc query, keyed by column name.
type Row map[string]datatypes.Value

// SearchHit is one vector search result.
type SearchHit struct {
	// NodeType and Name identify the matched node.
	NodeType string `json:"nodeType"`
	Name     string `json:"name"`

	// Score is the cosine similarity to the query vector, higher is
	// closer.
	Score float64 `json:"score"`

	// Properties are the matched node's stored properties.
	Properties datatypes.Properties `json:"properties,omitempty"`
}

// Client is the capability contract for a knowledge-graph backend.
//
// Every operation is idempotent: calling it twice with identical
// arguments leaves the store in the same observable state as calling it
// once. The sync engine relies on this to make crashed passes safely
// re-runnable.
type Client interface {
	// UpsertNode merges a node on (nodeType, name). Given properties
	// overwrite stored ones; created_at is set on first creation and
	// updated_at bumps on every call. Returns ErrMissingName when props
	// lack a non-empty "name".
	UpsertNode(ctx context.Context, nodeType string, props datatypes.Properties) error

	// UpsertRelationship merges the edge keyed by the full
	// (srcType, srcName, relation, dstType, dstName) tuple, creating
	// bare endpoint nodes as needed. Given properties overwrite the
	// edge's stored ones.
	UpsertRelationship(ctx context.Context, srcType, srcName, relation, dstType, dstName string, props datatypes.Properties) error

	// DeleteNode removes a node and its incident edges. Deleting an
	// absent node is a no-op.
	DeleteNode(ctx context.Context, nodeType, name string) error

	// DeleteDocumentRelationships removes every edge whose
	// source_document property equals documentPath.
	DeleteDocumentRelationships(ctx context.Context, documentPath string) error

	// UpdateNodeEmbedding stores a node's embedding vector. Returns
	// ErrDimensionMismatch when the vector length differs from the
	// configured dimensionality and ErrNodeNotFound when the node is
	// absent.
	UpdateNodeEmbedding(ctx context.Context, nodeType, name string, vector []float32) error

	// VectorSearch returns the k nearest nodes of one type by cosine
	// similarity.
	VectorSearch(ctx context.Context, nodeType string, query []float32, k int) ([]SearchHit, error)

	// VectorSearchAll searches every node type and returns the merged
	// top k, re-sorted by score.
	VectorSearchAll(ctx context.Context, query []float32, k int) ([]SearchHit, error)

	// DocumentsReferencingEntity returns the paths of documents the
	// named entity appears in, excluding excludePath. Used by cascade
	// analysis.
	DocumentsReferencingEntity(ctx context.Context, entityName, excludePath string) ([]string, error)

	// EntitiesInDocument returns the entities with an APPEARS_IN edge
	// into the named document, sorted by type then name. This is the
	// document's graph-side entity list as of its last sync, which
	// cascade analysis diffs against the freshly parsed version.
	EntitiesInDocument(ctx context.Context, documentPath string) ([]datatypes.Entity, error)

	// LoadAllDocumentHashes returns the per-document sync records
	// stored alongside the graph.
	LoadAllDocumentHashes(ctx context.Context) (map[string]datatypes.DocumentHashes, error)

	// UpdateDocumentHashes upserts the sync record for one document.
	UpdateDocumentHashes(ctx context.Context, path string, hashes datatypes.DocumentHashes) error

	// RemoveDocumentHashes deletes the sync record for one document.
	RemoveDocumentHashes(ctx context.Context, path string) error

	// Query executes a raw backend query (Cypher for FalkorDB, SQL for
	// the relational store). Escape hatch for tooling; the engine never
	// calls it.
	Query(ctx context.Context, raw string) ([]Row, error)

	// Checkpoint asks the backend to persist its state. A no-op for
	// backends that are always durable.
	Checkpoint(ctx context.Context) error

	// Close releases the connection or file handles.
	Close() error
}
