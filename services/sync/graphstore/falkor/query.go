// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package falkor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/NoteGraph/pkg/validation"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

// cypherLiteral renders a property value as a Cypher literal. All string
// content is escaped through pkg/validation; nothing else in this
// package concatenates user input into a query.
func cypherLiteral(v datatypes.Value) string {
	switch {
	case v.IsNull():
		return "null"
	default:
	}
	if s, ok := v.AsString(); ok {
		return validation.QuoteCypherString(s)
	}
	if n, ok := v.AsNumber(); ok {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	if b, ok := v.AsBool(); ok {
		return strconv.FormatBool(b)
	}
	if list, ok := v.AsStringList(); ok {
		quoted := make([]string, len(list))
		for i, s := range list {
			quoted[i] = validation.QuoteCypherString(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	}
	return "null"
}

// setClauses renders "ident.key = literal" assignments in sorted key
// order so generated queries are deterministic.
func setClauses(ident string, props datatypes.Properties) string {
	keys := props.SortedKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s.%s = %s", ident, k, cypherLiteral(props[k])))
	}
	return strings.Join(parts, ", ")
}

// vectorLiteral renders a float32 vector as a vecf32 call.
func vectorLiteral(vector []float32) string {
	parts := make([]string, len(vector))
	for i, f := range vector {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "vecf32([" + strings.Join(parts, ", ") + "])"
}

// upsertNodeQuery builds the MERGE for one node keyed by (label, name).
func upsertNodeQuery(label, name string, props datatypes.Properties) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (n:%s {name: %s})", label, validation.QuoteCypherString(name))
	b.WriteString(" ON CREATE SET n.created_at = timestamp()")
	b.WriteString(" SET n.updated_at = timestamp()")
	if len(props) > 0 {
		b.WriteString(", ")
		b.WriteString(setClauses("n", props))
	}
	return b.String()
}

// upsertRelationshipQuery builds the MERGE for one edge keyed by the
// full (srcLabel, srcName, relation, dstLabel, dstName) tuple. Both
// endpoints are merged first so a relationship can reference an entity
// that no node upsert has created yet.
func upsertRelationshipQuery(srcLabel, srcName, relation, dstLabel, dstName string, props datatypes.Properties) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (a:%s {name: %s})", srcLabel, validation.QuoteCypherString(srcName))
	fmt.Fprintf(&b, " MERGE (b:%s {name: %s})", dstLabel, validation.QuoteCypherString(dstName))
	fmt.Fprintf(&b, " MERGE (a)-[r:%s]->(b)", relation)
	if len(props) > 0 {
		b.WriteString(" SET ")
		b.WriteString(setClauses("r", props))
	}
	return b.String()
}

// deleteNodeQuery removes a node and its incident edges.
func deleteNodeQuery(label, name string) string {
	return fmt.Sprintf("MATCH (n:%s {name: %s}) DETACH DELETE n",
		label, validation.QuoteCypherString(name))
}

// deleteDocumentRelationshipsQuery removes every edge carrying the
// document's provenance property.
func deleteDocumentRelationshipsQuery(documentPath string) string {
	return fmt.Sprintf("MATCH ()-[r]->() WHERE r.%s = %s DELETE r",
		graphstore.PropSourceDocument, validation.QuoteCypherString(documentPath))
}

// updateEmbeddingQuery stores a node's embedding vector and returns the
// match count so the caller can distinguish a missing node.
func updateEmbeddingQuery(label, name string, vector []float32) string {
	return fmt.Sprintf("MATCH (n:%s {name: %s}) SET n.embedding = %s RETURN count(n)",
		label, validation.QuoteCypherString(name), vectorLiteral(vector))
}

// vectorSearchQuery runs a k-nearest query against the label's vector
// index.
func vectorSearchQuery(label string, query []float32, k int) string {
	return fmt.Sprintf(
		"CALL db.idx.vector.queryNodes(%s, 'embedding', %d, %s) YIELD node, score RETURN node.name, score",
		validation.QuoteCypherString(label), k, vectorLiteral(query))
}

// documentsReferencingQuery finds the documents an entity appears in.
func documentsReferencingQuery(entityName, excludePath string) string {
	return fmt.Sprintf(
		"MATCH (e {name: %s})-[:%s]->(d:%s) WHERE d.name <> %s RETURN DISTINCT d.name ORDER BY d.name",
		validation.QuoteCypherString(entityName),
		datatypes.RelAppearsIn,
		datatypes.EntityDocument,
		validation.QuoteCypherString(excludePath))
}

// entitiesInDocumentQuery finds the entities appearing in a document,
// with their labels.
func entitiesInDocumentQuery(documentPath string) string {
	return fmt.Sprintf(
		"MATCH (e)-[:%s]->(d:%s {name: %s}) RETURN labels(e)[0], e.name ORDER BY labels(e)[0], e.name",
		datatypes.RelAppearsIn,
		datatypes.EntityDocument,
		validation.QuoteCypherString(documentPath))
}

// createVectorIndexQuery builds the idempotent vector index DDL for one
// label.
func createVectorIndexQuery(label string, dimensions int) string {
	return fmt.Sprintf(
		"CREATE VECTOR INDEX FOR (n:%s) ON (n.embedding) OPTIONS {dimension: %d, similarityFunction: 'cosine'}",
		label, dimensions)
}
