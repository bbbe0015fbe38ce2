// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package relstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/NoteGraph/pkg/validation"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

// UpdateNodeEmbedding stores a node's embedding vector as a JSON float
// array.
func (s *Store) UpdateNodeEmbedding(ctx context.Context, nodeType, name string, vector []float32) error {
	if s.cfg.Dimensions > 0 && len(vector) != s.cfg.Dimensions {
		return fmt.Errorf("%w: got %d, want %d", graphstore.ErrDimensionMismatch, len(vector), s.cfg.Dimensions)
	}
	if err := validation.ValidateLabel(nodeType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}

	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}

	res, err := s.conn.ExecContext(ctx,
		`UPDATE nodes SET embedding = ? WHERE node_type = ? AND name = ?`,
		string(encoded), nodeType, name)
	if err != nil {
		return fmt.Errorf("update embedding of %s %q: %w", nodeType, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %q", graphstore.ErrNodeNotFound, nodeType, name)
	}
	return nil
}

// VectorSearch returns the k nearest nodes of one type by cosine
// similarity. Brute force over stored vectors.
func (s *Store) VectorSearch(ctx context.Context, nodeType string, query []float32, k int) ([]graphstore.SearchHit, error) {
	if err := validation.ValidateLabel(nodeType); err != nil {
		return nil, fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}
	return s.vectorSearch(ctx, query, k,
		`SELECT node_type, name, embedding, properties FROM nodes
		 WHERE node_type = ? AND embedding IS NOT NULL`, nodeType)
}

// VectorSearchAll searches every node type and returns the merged top k.
func (s *Store) VectorSearchAll(ctx context.Context, query []float32, k int) ([]graphstore.SearchHit, error) {
	return s.vectorSearch(ctx, query, k,
		`SELECT node_type, name, embedding, properties FROM nodes
		 WHERE embedding IS NOT NULL`)
}

func (s *Store) vectorSearch(ctx context.Context, query []float32, k int, q string, args ...any) ([]graphstore.SearchHit, error) {
	if s.cfg.Dimensions > 0 && len(query) != s.cfg.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", graphstore.ErrDimensionMismatch, len(query), s.cfg.Dimensions)
	}

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []graphstore.SearchHit
	for rows.Next() {
		var nodeType, name, rawEmbedding string
		var rawProps string
		if err := rows.Scan(&nodeType, &name, &rawEmbedding, &rawProps); err != nil {
			return nil, err
		}

		var vec []float32
		if err := json.Unmarshal([]byte(rawEmbedding), &vec); err != nil {
			continue
		}
		score, ok := cosineSimilarity(query, vec)
		if !ok {
			continue
		}

		props, err := decodeProps(rawProps)
		if err != nil {
			props = nil
		}
		hits = append(hits, graphstore.SearchHit{
			NodeType:   nodeType,
			Name:       name,
			Score:      score,
			Properties: props,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or false when lengths differ or either vector is zero.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
