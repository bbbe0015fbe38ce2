// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package relstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/NoteGraph/pkg/validation"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

// now returns the timestamp format stored in created_at/updated_at.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// encodeProps serializes a property bag to its JSON column form.
func encodeProps(props datatypes.Properties) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encode properties: %w", err)
	}
	return string(data), nil
}

// decodeProps deserializes the JSON column form.
func decodeProps(raw string) (datatypes.Properties, error) {
	if raw == "" || raw == "{}" {
		return datatypes.Properties{}, nil
	}
	var props datatypes.Properties
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return props, nil
}

// UpsertNode merges a node on (nodeType, name). Stored properties not
// present in props survive, matching the Cypher adapter's SET semantics.
func (s *Store) UpsertNode(ctx context.Context, nodeType string, props datatypes.Properties) error {
	name := props.StringValue("name")
	if name == "" {
		return graphstore.ErrMissingName
	}
	if err := validation.ValidateLabel(nodeType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}

	rest := props.Clone()
	delete(rest, "name")

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	merged, err := mergeNodeProps(ctx, tx, nodeType, name, rest)
	if err != nil {
		return err
	}
	encoded, err := encodeProps(merged)
	if err != nil {
		return err
	}

	ts := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (node_type, name, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (node_type, name) DO UPDATE SET
			properties = excluded.properties,
			updated_at = excluded.updated_at`,
		nodeType, name, encoded, ts, ts)
	if err != nil {
		return fmt.Errorf("upsert node %s %q: %w", nodeType, name, err)
	}
	return tx.Commit()
}

// mergeNodeProps overlays props onto the node's stored bag, if any.
func mergeNodeProps(ctx context.Context, tx *sql.Tx, nodeType, name string, props datatypes.Properties) (datatypes.Properties, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT properties FROM nodes WHERE node_type = ? AND name = ?`,
		nodeType, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return props, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load node %s %q: %w", nodeType, name, err)
	}

	merged, err := decodeProps(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range props {
		merged[k] = v
	}
	return merged, nil
}

// ensureNode creates a bare node if the (nodeType, name) pair is new.
func ensureNode(ctx context.Context, tx *sql.Tx, nodeType, name string) error {
	ts := now()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (node_type, name, properties, created_at, updated_at)
		VALUES (?, ?, '{}', ?, ?)
		ON CONFLICT (node_type, name) DO NOTHING`,
		nodeType, name, ts, ts)
	if err != nil {
		return fmt.Errorf("ensure node %s %q: %w", nodeType, name, err)
	}
	return nil
}

// UpsertRelationship merges the edge keyed by the full endpoint tuple,
// creating bare endpoint nodes as needed.
func (s *Store) UpsertRelationship(ctx context.Context, srcType, srcName, relation, dstType, dstName string, props datatypes.Properties) error {
	if err := validation.ValidateLabels(srcType, relation, dstType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}
	if srcName == "" || dstName == "" {
		return graphstore.ErrMissingName
	}

	encoded, err := encodeProps(props)
	if err != nil {
		return err
	}
	// Extracted into its own column so the per-document delete is one
	// indexed statement.
	sourceDoc := props.StringValue(graphstore.PropSourceDocument)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := ensureNode(ctx, tx, srcType, srcName); err != nil {
		return err
	}
	if err := ensureNode(ctx, tx, dstType, dstName); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO edges (src_type, src_name, relation, dst_type, dst_name, properties, source_document)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (src_type, src_name, relation, dst_type, dst_name) DO UPDATE SET
			properties = excluded.properties,
			source_document = excluded.source_document`,
		srcType, srcName, relation, dstType, dstName, encoded, nullable(sourceDoc))
	if err != nil {
		return fmt.Errorf("upsert edge %s-%s->%s: %w", srcName, relation, dstName, err)
	}
	return tx.Commit()
}

// nullable maps "" to NULL so the source_document index stays sparse.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// DeleteNode removes a node and its incident edges. Absent nodes are a
// no-op.
func (s *Store) DeleteNode(ctx context.Context, nodeType, name string) error {
	if err := validation.ValidateLabel(nodeType); err != nil {
		return fmt.Errorf("%w: %v", graphstore.ErrInvalidLabel, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Edges first, then the node.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM edges
		WHERE (src_type = ? AND src_name = ?) OR (dst_type = ? AND dst_name = ?)`,
		nodeType, name, nodeType, name)
	if err != nil {
		return fmt.Errorf("delete edges of %s %q: %w", nodeType, name, err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM nodes WHERE node_type = ? AND name = ?`, nodeType, name)
	if err != nil {
		return fmt.Errorf("delete node %s %q: %w", nodeType, name, err)
	}
	return tx.Commit()
}

// DeleteDocumentRelationships removes every edge whose source_document
// equals documentPath.
func (s *Store) DeleteDocumentRelationships(ctx context.Context, documentPath string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM edges WHERE source_document = ?`, documentPath)
	if err != nil {
		return fmt.Errorf("delete relationships of %s: %w", documentPath, err)
	}
	return nil
}

// DocumentsReferencingEntity returns the paths of documents the named
// entity appears in, excluding excludePath.
func (s *Store) DocumentsReferencingEntity(ctx context.Context, entityName, excludePath string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT dst_name FROM edges
		WHERE src_name = ? AND relation = ? AND dst_type = ? AND dst_name <> ?
		ORDER BY dst_name`,
		entityName, string(datatypes.RelAppearsIn), string(datatypes.EntityDocument), excludePath)
	if err != nil {
		return nil, fmt.Errorf("query references of %q: %w", entityName, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// EntitiesInDocument returns the entities with an APPEARS_IN edge into
// the named document, sorted by type then name.
func (s *Store) EntitiesInDocument(ctx context.Context, documentPath string) ([]datatypes.Entity, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT src_type, src_name FROM edges
		WHERE relation = ? AND dst_type = ? AND dst_name = ?
		ORDER BY src_type, src_name`,
		string(datatypes.RelAppearsIn), string(datatypes.EntityDocument), documentPath)
	if err != nil {
		return nil, fmt.Errorf("query entities of %s: %w", documentPath, err)
	}
	defer rows.Close()

	var entities []datatypes.Entity
	for rows.Next() {
		var nodeType, name string
		if err := rows.Scan(&nodeType, &name); err != nil {
			return nil, err
		}
		entities = append(entities, datatypes.Entity{
			Name: name,
			Type: datatypes.EntityType(nodeType),
		})
	}
	return entities, rows.Err()
}

// Query executes raw SQL. Escape hatch for tooling.
func (s *Store) Query(ctx context.Context, raw string) ([]graphstore.Row, error) {
	rows, err := s.conn.QueryContext(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []graphstore.Row
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(graphstore.Row, len(cols))
		for i, col := range cols {
			row[col] = scanValue(cells[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// scanValue maps a database/sql scan result onto the property value
// type.
func scanValue(cell any) datatypes.Value {
	switch v := cell.(type) {
	case nil:
		return datatypes.Null()
	case int64:
		return datatypes.Number(float64(v))
	case float64:
		return datatypes.Number(v)
	case bool:
		return datatypes.Bool(v)
	case string:
		return datatypes.String(v)
	case []byte:
		return datatypes.String(string(v))
	default:
		return datatypes.Null()
	}
}
