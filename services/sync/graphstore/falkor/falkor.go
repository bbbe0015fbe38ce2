// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package falkor is the FalkorDB graph adapter.
//
// FalkorDB runs as a Redis module, so the adapter speaks GRAPH.QUERY
// over a standard Redis connection and generates Cypher. Every string
// literal embedded in a query goes through pkg/validation escaping, and
// every label through identifier validation, before the query leaves
// this package.
package falkor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AleutianAI/NoteGraph/pkg/logging"
	"github.com/AleutianAI/NoteGraph/pkg/validation"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

// syncStateLabel is the node label the per-document sync records live
// under. It is not an entity type and never appears in search results.
const syncStateLabel = "SyncState"

// Config holds FalkorDB connection settings.
type Config struct {
	// Addr is the host:port of the FalkorDB server.
	Addr string

	// Password is optional server auth.
	Password string

	// GraphName is the key the graph is stored under.
	GraphName string

	// Dimensions is the embedding dimensionality enforced by
	// UpdateNodeEmbedding and used when creating vector indexes.
	Dimensions int

	// Timeout bounds each query round-trip.
	Timeout time.Duration
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.GraphName == "" {
		c.GraphName = "notegraph"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Client implements graphstore.Client against a FalkorDB server.
//
// Thread Safety: Safe for concurrent use; the underlying Redis client
// pools connections.
type Client struct {
	rdb    *redis.Client
	cfg    Config
	logger *logging.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New connects to FalkorDB and verifies the server is reachable.
//
// Inputs:
//
//	ctx - Bounds the connection check.
//	cfg - Connection settings. Zero values get defaults.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Client - Connected client. Caller must Close when done.
//	error - ErrUnavailable (wrapped) if the server cannot be reached.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.applyDefaults()

	c := &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		}),
		cfg:    cfg,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("%w: %s: %v", graphstore.ErrUnavailable, cfg.Addr, err)
	}
	return c, nil
}

// query runs one Cypher statement and parses the reply.
func (c *Client) query(ctx context.Context, cypher string) ([]graphstore.Row, error) {
	reply, err := c.rdb.Do(ctx, "GRAPH.QUERY", c.cfg.GraphName, cypher).Result()
	if err != nil {
		return nil, fmt.Errorf("graph query: %w", err)
	}
	return parseReply(reply)
}

// EnsureVectorIndexes creates the per-label vector indexes, once.
//
// Description:
//
//	Issues the index DDL for every entity type plus the document label.
//	FalkorDB rejects duplicate index creation, so "already indexed"
//	errors are swallowed; anything else propagates.
func (c *Client) EnsureVectorIndexes(ctx context.Context) error {
	if c.cfg.Dimensions <= 0 {
		return nil
	}
	for _, et := range datatypes.EntityTypes {
		q := createVectorIndexQuery(string(et), c.cfg.Dimensions)
		if _, err := c.query(ctx, q); err != nil && !isAlreadyIndexed(err) {
			return fmt.Errorf("create vector index for %s: %w", et, err)
		}
	}
	return nil
}

func isAlreadyIndexed(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already indexed") || strings.Contains(msg, "already exists")
}

// UpsertNode merges a node on (nodeType, name).
func (c *Client) UpsertNode(ctx context.Context, nodeType string, props datatypes.Properties) error {
	name := props.StringValue("name")
	if name == "" {
		return graphstore.ErrMissingName
	}
	if err := validation.ValidateLabel(nodeType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}

	rest := props.Clone()
	delete(rest, "name")

	_, err := c.query(ctx, upsertNodeQuery(nodeType, name, rest))
	return err
}

// UpsertRelationship merges the edge keyed by the full endpoint tuple,
// creating bare endpoint nodes as needed.
func (c *Client) UpsertRelationship(ctx context.Context, srcType, srcName, relation, dstType, dstName string, props datatypes.Properties) error {
	if err := validation.ValidateLabels(srcType, relation, dstType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}
	if srcName == "" || dstName == "" {
		return graphstore.ErrMissingName
	}

	_, err := c.query(ctx, upsertRelationshipQuery(srcType, srcName, relation, dstType, dstName, props))
	return err
}

// DeleteNode removes a node and its incident edges.
func (c *Client) DeleteNode(ctx context.Context, nodeType, name string) error {
	if err := validation.ValidateLabel(nodeType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}
	_, err := c.query(ctx, deleteNodeQuery(nodeType, name))
	return err
}

// DeleteDocumentRelationships removes every edge whose source_document
// property equals documentPath.
func (c *Client) DeleteDocumentRelationships(ctx context.Context, documentPath string) error {
	_, err := c.query(ctx, deleteDocumentRelationshipsQuery(documentPath))
	return err
}

// UpdateNodeEmbedding stores a node's embedding vector.
func (c *Client) UpdateNodeEmbedding(ctx context.Context, nodeType, name string, vector []float32) error {
	if c.cfg.Dimensions > 0 && len(vector) != c.cfg.Dimensions {
		return fmt.Errorf("%w: got %d, want %d", graphstore.ErrDimensionMismatch, len(vector), c.cfg.Dimensions)
	}
	if err := validation.ValidateLabel(nodeType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}

	rows, err := c.query(ctx, updateEmbeddingQuery(nodeType, name, vector))
	if err != nil {
		return err
	}
	if len(rows) == 1 {
		if n, ok := numberOf(rows[0]["count(n)"]); ok && n == 0 {
			return fmt.Errorf("%w: %s %q", graphstore.ErrNodeNotFound, nodeType, name)
		}
	}
	return nil
}

// VectorSearch returns the k nearest nodes of one type by cosine
// similarity.
func (c *Client) VectorSearch(ctx context.Context, nodeType string, query []float32, k int) ([]graphstore.SearchHit, error) {
	if c.cfg.Dimensions > 0 && len(query) != c.cfg.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", graphstore.ErrDimensionMismatch, len(query), c.cfg.Dimensions)
	}
	if err := validation.ValidateLabel(nodeType); err != nil {
		return nil, fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}

	rows, err := c.query(ctx, vectorSearchQuery(nodeType, query, k))
	if err != nil {
		return nil, err
	}

	hits := make([]graphstore.SearchHit, 0, len(rows))
	for _, row := range rows {
		name, _ := row["node.name"].AsString()
		distance, ok := numberOf(row["score"])
		if !ok {
			continue
		}
		hits = append(hits, graphstore.SearchHit{
			NodeType: nodeType,
			Name:     name,
			// The index reports cosine distance; flip to similarity
			// so larger means closer everywhere above this layer.
			Score: 1 - distance,
		})
	}
	return hits, nil
}

// VectorSearchAll searches every entity type and returns the merged top
// k, re-sorted by score.
func (c *Client) VectorSearchAll(ctx context.Context, query []float32, k int) ([]graphstore.SearchHit, error) {
	var all []graphstore.SearchHit
	for _, et := range datatypes.EntityTypes {
		hits, err := c.VectorSearch(ctx, string(et), query, k)
		if err != nil {
			// A label with no index yet just has nothing to offer.
			if isMissingIndex(err) {
				continue
			}
			return nil, err
		}
		all = append(all, hits...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

func isMissingIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such index") || strings.Contains(msg, "does not exist")
}

// DocumentsReferencingEntity returns the paths of documents the named
// entity appears in, excluding excludePath.
func (c *Client) DocumentsReferencingEntity(ctx context.Context, entityName, excludePath string) ([]string, error) {
	rows, err := c.query(ctx, documentsReferencingQuery(entityName, excludePath))
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(rows))
	for _, row := range rows {
		if p, ok := row["d.name"].AsString(); ok && p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// EntitiesInDocument returns the entities with an APPEARS_IN edge into
// the named document.
func (c *Client) EntitiesInDocument(ctx context.Context, documentPath string) ([]datatypes.Entity, error) {
	rows, err := c.query(ctx, entitiesInDocumentQuery(documentPath))
	if err != nil {
		return nil, err
	}

	entities := make([]datatypes.Entity, 0, len(rows))
	for _, row := range rows {
		label, _ := row["labels(e)[0]"].AsString()
		name, ok := row["e.name"].AsString()
		if !ok || name == "" {
			continue
		}
		entities = append(entities, datatypes.Entity{
			Name: name,
			Type: datatypes.EntityType(label),
		})
	}
	return entities, nil
}

// LoadAllDocumentHashes returns the per-document sync records.
func (c *Client) LoadAllDocumentHashes(ctx context.Context) (map[string]datatypes.DocumentHashes, error) {
	q := fmt.Sprintf(
		"MATCH (s:%s) RETURN s.path, s.content_hash, s.embedding_source_hash, s.synced_at, s.entity_count, s.relationship_count",
		syncStateLabel)
	rows, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make(map[string]datatypes.DocumentHashes, len(rows))
	for _, row := range rows {
		path, ok := row["s.path"].AsString()
		if !ok || path == "" {
			continue
		}
		h := datatypes.DocumentHashes{
			ContentHash:         row["s.content_hash"].StringOr(""),
			EmbeddingSourceHash: row["s.embedding_source_hash"].StringOr(""),
		}
		if ts, ok := row["s.synced_at"].AsString(); ok {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				h.SyncedAt = t
			}
		}
		if n, ok := numberOf(row["s.entity_count"]); ok {
			h.EntityCount = int(n)
		}
		if n, ok := numberOf(row["s.relationship_count"]); ok {
			h.RelationshipCount = int(n)
		}
		out[path] = h
	}
	return out, nil
}

// UpdateDocumentHashes upserts the sync record for one document.
func (c *Client) UpdateDocumentHashes(ctx context.Context, path string, hashes datatypes.DocumentHashes) error {
	props := datatypes.Properties{
		"content_hash":          datatypes.String(hashes.ContentHash),
		"embedding_source_hash": datatypes.String(hashes.EmbeddingSourceHash),
		"synced_at":             datatypes.String(hashes.SyncedAt.UTC().Format(time.RFC3339Nano)),
		"entity_count":          datatypes.Number(float64(hashes.EntityCount)),
		"relationship_count":    datatypes.Number(float64(hashes.RelationshipCount)),
	}
	q := fmt.Sprintf("MERGE (s:%s {path: %s}) SET %s",
		syncStateLabel, validation.QuoteCypherString(path), setClauses("s", props))
	_, err := c.query(ctx, q)
	return err
}

// RemoveDocumentHashes deletes the sync record for one document.
func (c *Client) RemoveDocumentHashes(ctx context.Context, path string) error {
	q := fmt.Sprintf("MATCH (s:%s {path: %s}) DELETE s",
		syncStateLabel, validation.QuoteCypherString(path))
	_, err := c.query(ctx, q)
	return err
}

// Query executes raw Cypher. Escape hatch for tooling.
func (c *Client) Query(ctx context.Context, raw string) ([]graphstore.Row, error) {
	return c.query(ctx, raw)
}

// Checkpoint asks the server to snapshot to disk. An already-running
// background save counts as success.
func (c *Client) Checkpoint(ctx context.Context) error {
	err := c.rdb.BgSave(ctx).Err()
	if err != nil && strings.Contains(err.Error(), "in progress") {
		c.logger.Debug("checkpoint skipped, background save already running")
		return nil
	}
	return err
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

var _ graphstore.Client = (*Client)(nil)
