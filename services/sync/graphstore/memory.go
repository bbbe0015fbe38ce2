// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/AleutianAI/NoteGraph/pkg/validation"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// memNode is one stored node.
type memNode struct {
	props     datatypes.Properties
	embedding []float32
}

// memEdgeKey is the full identity tuple of an edge.
type memEdgeKey struct {
	srcType, srcName, relation, dstType, dstName string
}

// Memory is an in-memory Client.
//
// Description:
//
//	Backs dry-run syncs, where writes must be observable but nothing
//	may persist, and serves as the store double in tests. Semantics
//	mirror the durable adapters, including idempotent upserts and the
//	sentinel errors.
//
// Thread Safety: Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	nodes  map[string]*memNode // key: type + ":" + name
	edges  map[memEdgeKey]datatypes.Properties
	hashes map[string]datatypes.DocumentHashes

	dimensions int

	// FailQueries makes graph reads fail, for exercising degraded
	// paths in tests.
	FailQueries bool
}

// NewMemory creates an empty in-memory store. dimensions of zero
// disables embedding dimension checks.
func NewMemory(dimensions int) *Memory {
	return &Memory{
		nodes:      make(map[string]*memNode),
		edges:      make(map[memEdgeKey]datatypes.Properties),
		hashes:     make(map[string]datatypes.DocumentHashes),
		dimensions: dimensions,
	}
}

func nodeKey(nodeType, name string) string {
	return nodeType + ":" + name
}

// NodeCount returns the number of stored nodes.
func (m *Memory) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// EdgeCount returns the number of stored edges.
func (m *Memory) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}

// HasNode reports whether a (type, name) node exists.
func (m *Memory) HasNode(nodeType, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[nodeKey(nodeType, name)]
	return ok
}

// NodeProperties returns a copy of a node's stored properties.
func (m *Memory) NodeProperties(nodeType, name string) (datatypes.Properties, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[nodeKey(nodeType, name)]
	if !ok {
		return nil, false
	}
	return n.props.Clone(), true
}

// UpsertNode merges a node on (nodeType, name).
func (m *Memory) UpsertNode(ctx context.Context, nodeType string, props datatypes.Properties) error {
	name := props.StringValue("name")
	if name == "" {
		return ErrMissingName
	}
	if err := validation.ValidateLabel(nodeType); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLabel, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := nodeKey(nodeType, name)
	n, ok := m.nodes[key]
	if !ok {
		n = &memNode{props: datatypes.Properties{}}
		m.nodes[key] = n
	}
	for k, v := range props {
		n.props[k] = v
	}
	return nil
}

func (m *Memory) ensureNode(nodeType, name string) {
	key := nodeKey(nodeType, name)
	if _, ok := m.nodes[key]; !ok {
		m.nodes[key] = &memNode{props: datatypes.Properties{
			"name": datatypes.String(name),
		}}
	}
}

// UpsertRelationship merges the edge keyed by the full endpoint tuple.
func (m *Memory) UpsertRelationship(ctx context.Context, srcType, srcName, relation, dstType, dstName string, props datatypes.Properties) error {
	if err := validation.ValidateLabels(srcType, relation, dstType); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLabel, err)
	}
	if srcName == "" || dstName == "" {
		return ErrMissingName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureNode(srcType, srcName)
	m.ensureNode(dstType, dstName)
	m.edges[memEdgeKey{srcType, srcName, relation, dstType, dstName}] = props.Clone()
	return nil
}

// DeleteNode removes a node and its incident edges.
func (m *Memory) DeleteNode(ctx context.Context, nodeType, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.nodes, nodeKey(nodeType, name))
	for key := range m.edges {
		if (key.srcType == nodeType && key.srcName == name) ||
			(key.dstType == nodeType && key.dstName == name) {
			delete(m.edges, key)
		}
	}
	return nil
}

// DeleteDocumentRelationships removes edges whose source_document
// property equals documentPath.
func (m *Memory) DeleteDocumentRelationships(ctx context.Context, documentPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, props := range m.edges {
		if props.StringValue(PropSourceDocument) == documentPath {
			delete(m.edges, key)
		}
	}
	return nil
}

// UpdateNodeEmbedding stores a node's embedding vector.
func (m *Memory) UpdateNodeEmbedding(ctx context.Context, nodeType, name string, vector []float32) error {
	if m.dimensions > 0 && len(vector) != m.dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), m.dimensions)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[nodeKey(nodeType, name)]
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrNodeNotFound, nodeType, name)
	}
	n.embedding = append([]float32(nil), vector...)
	return nil
}

// VectorSearch returns the k nearest nodes of one type.
func (m *Memory) VectorSearch(ctx context.Context, nodeType string, query []float32, k int) ([]SearchHit, error) {
	return m.search(query, k, func(t string) bool { return t == nodeType })
}

// VectorSearchAll searches every node type.
func (m *Memory) VectorSearchAll(ctx context.Context, query []float32, k int) ([]SearchHit, error) {
	return m.search(query, k, func(string) bool { return true })
}

func (m *Memory) search(query []float32, k int, match func(nodeType string) bool) ([]SearchHit, error) {
	if m.dimensions > 0 && len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), m.dimensions)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []SearchHit
	for key, n := range m.nodes {
		if n.embedding == nil {
			continue
		}
		nodeType, name, ok := splitNodeKey(key)
		if !ok || !match(nodeType) {
			continue
		}
		score, ok := cosine(query, n.embedding)
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{
			NodeType:   nodeType,
			Name:       name,
			Score:      score,
			Properties: n.props.Clone(),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Name < hits[j].Name
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func splitNodeKey(key string) (nodeType, name string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

// DocumentsReferencingEntity returns the documents the entity appears
// in, excluding excludePath.
func (m *Memory) DocumentsReferencingEntity(ctx context.Context, entityName, excludePath string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailQueries {
		return nil, fmt.Errorf("%w: query disabled", ErrUnavailable)
	}

	seen := make(map[string]struct{})
	for key := range m.edges {
		if key.srcName == entityName &&
			key.relation == string(datatypes.RelAppearsIn) &&
			key.dstType == string(datatypes.EntityDocument) &&
			key.dstName != excludePath {
			seen[key.dstName] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// EntitiesInDocument returns the entities appearing in a document.
func (m *Memory) EntitiesInDocument(ctx context.Context, documentPath string) ([]datatypes.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailQueries {
		return nil, fmt.Errorf("%w: query disabled", ErrUnavailable)
	}

	var entities []datatypes.Entity
	for key := range m.edges {
		if key.relation == string(datatypes.RelAppearsIn) &&
			key.dstType == string(datatypes.EntityDocument) &&
			key.dstName == documentPath {
			entities = append(entities, datatypes.Entity{
				Name: key.srcName,
				Type: datatypes.EntityType(key.srcType),
			})
		}
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Type != entities[j].Type {
			return entities[i].Type < entities[j].Type
		}
		return entities[i].Name < entities[j].Name
	})
	return entities, nil
}

// LoadAllDocumentHashes returns the per-document sync records.
func (m *Memory) LoadAllDocumentHashes(ctx context.Context) (map[string]datatypes.DocumentHashes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]datatypes.DocumentHashes, len(m.hashes))
	for k, v := range m.hashes {
		out[k] = v
	}
	return out, nil
}

// UpdateDocumentHashes upserts the sync record for one document.
func (m *Memory) UpdateDocumentHashes(ctx context.Context, path string, hashes datatypes.DocumentHashes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[path] = hashes
	return nil
}

// RemoveDocumentHashes deletes the sync record for one document.
func (m *Memory) RemoveDocumentHashes(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes, path)
	return nil
}

// Query is unsupported; the memory store has no query language.
func (m *Memory) Query(ctx context.Context, raw string) ([]Row, error) {
	return nil, fmt.Errorf("memory store does not support raw queries")
}

// Checkpoint is a no-op.
func (m *Memory) Checkpoint(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

var _ Client = (*Memory)(nil)
