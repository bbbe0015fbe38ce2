// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package relstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:       filepath.Join(t.TempDir(), "graph.db"),
		Dimensions: 3,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func nodeProps(name string, extra datatypes.Properties) datatypes.Properties {
	props := datatypes.Properties{"name": datatypes.String(name)}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func TestStore_UpsertNode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	t.Run("missing name rejected", func(t *testing.T) {
		err := s.UpsertNode(ctx, "Topic", datatypes.Properties{})
		if !errors.Is(err, graphstore.ErrMissingName) {
			t.Errorf("err = %v, want ErrMissingName", err)
		}
	})

	t.Run("invalid label rejected", func(t *testing.T) {
		err := s.UpsertNode(ctx, "bad label", nodeProps("X", nil))
		if !errors.Is(err, graphstore.ErrInvalidLabel) {
			t.Errorf("err = %v, want ErrInvalidLabel", err)
		}
	})

	t.Run("double upsert is idempotent", func(t *testing.T) {
		props := nodeProps("FalkorDB", datatypes.Properties{
			"description": datatypes.String("graph db"),
		})
		if err := s.UpsertNode(ctx, "Technology", props); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
		if err := s.UpsertNode(ctx, "Technology", props); err != nil {
			t.Fatalf("UpsertNode again: %v", err)
		}

		rows, err := s.Query(ctx, `SELECT count(*) AS n FROM nodes WHERE node_type = 'Technology'`)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if n, _ := rows[0]["n"].AsNumber(); n != 1 {
			t.Errorf("node count = %v, want 1", n)
		}
	})

	t.Run("partial upsert keeps absent stored properties", func(t *testing.T) {
		if err := s.UpsertNode(ctx, "Concept", nodeProps("Merge", datatypes.Properties{
			"description": datatypes.String("kept"),
			"weight":      datatypes.Number(2),
		})); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
		if err := s.UpsertNode(ctx, "Concept", nodeProps("Merge", datatypes.Properties{
			"weight": datatypes.Number(5),
		})); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}

		rows, err := s.Query(ctx, `SELECT properties FROM nodes WHERE node_type = 'Concept' AND name = 'Merge'`)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		raw, _ := rows[0]["properties"].AsString()
		props, err := decodeProps(raw)
		if err != nil {
			t.Fatalf("decodeProps: %v", err)
		}
		if props.StringValue("description") != "kept" {
			t.Errorf("description = %q, want kept", props.StringValue("description"))
		}
		if w, _ := props["weight"].AsNumber(); w != 5 {
			t.Errorf("weight = %v, want 5", w)
		}
	})
}

func TestStore_UpsertRelationship(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	props := datatypes.Properties{
		graphstore.PropSourceDocument: datatypes.String("/notes/a.md"),
	}

	t.Run("creates bare endpoints", func(t *testing.T) {
		err := s.UpsertRelationship(ctx, "Topic", "Graphs", "REFERENCES", "Technology", "FalkorDB", props)
		if err != nil {
			t.Fatalf("UpsertRelationship: %v", err)
		}

		rows, err := s.Query(ctx, `SELECT count(*) AS n FROM nodes`)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if n, _ := rows[0]["n"].AsNumber(); n != 2 {
			t.Errorf("node count = %v, want 2", n)
		}
	})

	t.Run("double upsert keeps one edge", func(t *testing.T) {
		err := s.UpsertRelationship(ctx, "Topic", "Graphs", "REFERENCES", "Technology", "FalkorDB", props)
		if err != nil {
			t.Fatalf("UpsertRelationship: %v", err)
		}

		rows, err := s.Query(ctx, `SELECT count(*) AS n FROM edges`)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if n, _ := rows[0]["n"].AsNumber(); n != 1 {
			t.Errorf("edge count = %v, want 1", n)
		}
	})

	t.Run("distinct tuple makes a second edge", func(t *testing.T) {
		err := s.UpsertRelationship(ctx, "Topic", "Graphs", "DEPENDS_ON", "Technology", "FalkorDB", props)
		if err != nil {
			t.Fatalf("UpsertRelationship: %v", err)
		}

		rows, err := s.Query(ctx, `SELECT count(*) AS n FROM edges`)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if n, _ := rows[0]["n"].AsNumber(); n != 2 {
			t.Errorf("edge count = %v, want 2", n)
		}
	})
}

func TestStore_DeleteNode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertRelationship(ctx, "Topic", "Graphs", "REFERENCES", "Technology", "FalkorDB", nil); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}

	if err := s.DeleteNode(ctx, "Technology", "FalkorDB"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	rows, err := s.Query(ctx, `SELECT count(*) AS n FROM edges`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if n, _ := rows[0]["n"].AsNumber(); n != 0 {
		t.Errorf("edges remain after DeleteNode: %v", n)
	}

	// Absent node is a no-op.
	if err := s.DeleteNode(ctx, "Technology", "FalkorDB"); err != nil {
		t.Errorf("DeleteNode absent: %v", err)
	}
}

func TestStore_DeleteDocumentRelationships(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	docA := datatypes.Properties{graphstore.PropSourceDocument: datatypes.String("/notes/a.md")}
	docB := datatypes.Properties{graphstore.PropSourceDocument: datatypes.String("/notes/b.md")}

	if err := s.UpsertRelationship(ctx, "Topic", "T1", "REFERENCES", "Concept", "C1", docA); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}
	if err := s.UpsertRelationship(ctx, "Topic", "T2", "REFERENCES", "Concept", "C2", docB); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}

	if err := s.DeleteDocumentRelationships(ctx, "/notes/a.md"); err != nil {
		t.Fatalf("DeleteDocumentRelationships: %v", err)
	}

	rows, err := s.Query(ctx, `SELECT source_document FROM edges`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("edges = %v, want 1", rows)
	}
	if src, _ := rows[0]["source_document"].AsString(); src != "/notes/b.md" {
		t.Errorf("surviving edge source = %q", src)
	}
}

func TestStore_Embeddings(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertNode(ctx, "Concept", nodeProps("A", nil)); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	t.Run("dimension mismatch", func(t *testing.T) {
		err := s.UpdateNodeEmbedding(ctx, "Concept", "A", []float32{1, 0})
		if !errors.Is(err, graphstore.ErrDimensionMismatch) {
			t.Errorf("err = %v, want ErrDimensionMismatch", err)
		}
	})

	t.Run("missing node", func(t *testing.T) {
		err := s.UpdateNodeEmbedding(ctx, "Concept", "Nope", []float32{1, 0, 0})
		if !errors.Is(err, graphstore.ErrNodeNotFound) {
			t.Errorf("err = %v, want ErrNodeNotFound", err)
		}
	})

	t.Run("search orders by similarity", func(t *testing.T) {
		if err := s.UpsertNode(ctx, "Concept", nodeProps("B", nil)); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
		if err := s.UpsertNode(ctx, "Topic", nodeProps("C", nil)); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}

		if err := s.UpdateNodeEmbedding(ctx, "Concept", "A", []float32{1, 0, 0}); err != nil {
			t.Fatalf("UpdateNodeEmbedding: %v", err)
		}
		if err := s.UpdateNodeEmbedding(ctx, "Concept", "B", []float32{0, 1, 0}); err != nil {
			t.Fatalf("UpdateNodeEmbedding: %v", err)
		}
		if err := s.UpdateNodeEmbedding(ctx, "Topic", "C", []float32{0.9, 0.1, 0}); err != nil {
			t.Fatalf("UpdateNodeEmbedding: %v", err)
		}

		hits, err := s.VectorSearch(ctx, "Concept", []float32{1, 0, 0}, 10)
		if err != nil {
			t.Fatalf("VectorSearch: %v", err)
		}
		if len(hits) != 2 || hits[0].Name != "A" {
			t.Errorf("hits = %+v", hits)
		}
		if hits[0].Score < 0.99 {
			t.Errorf("exact match score = %v", hits[0].Score)
		}

		all, err := s.VectorSearchAll(ctx, []float32{1, 0, 0}, 2)
		if err != nil {
			t.Fatalf("VectorSearchAll: %v", err)
		}
		if len(all) != 2 || all[0].Name != "A" || all[1].Name != "C" {
			t.Errorf("all = %+v", all)
		}
	})
}

func TestStore_DocumentsReferencingEntity(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, doc := range []string{"/notes/a.md", "/notes/b.md", "/notes/self.md"} {
		err := s.UpsertRelationship(ctx, "Technology", "FalkorDB", "APPEARS_IN", "Document", doc,
			datatypes.Properties{graphstore.PropSourceDocument: datatypes.String(doc)})
		if err != nil {
			t.Fatalf("UpsertRelationship: %v", err)
		}
	}

	paths, err := s.DocumentsReferencingEntity(ctx, "FalkorDB", "/notes/self.md")
	if err != nil {
		t.Fatalf("DocumentsReferencingEntity: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/notes/a.md" || paths[1] != "/notes/b.md" {
		t.Errorf("paths = %v", paths)
	}
}

func TestStore_EntitiesInDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	seed := []struct{ nodeType, name string }{
		{"Technology", "FalkorDB"},
		{"Concept", "Graphs"},
		{"Technology", "BadgerDB"},
	}
	for _, e := range seed {
		err := s.UpsertRelationship(ctx, e.nodeType, e.name, "APPEARS_IN", "Document", "/notes/a.md", nil)
		if err != nil {
			t.Fatalf("UpsertRelationship: %v", err)
		}
	}

	entities, err := s.EntitiesInDocument(ctx, "/notes/a.md")
	if err != nil {
		t.Fatalf("EntitiesInDocument: %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("entities = %+v", entities)
	}
	if entities[0].Name != "Graphs" || entities[1].Name != "BadgerDB" || entities[2].Name != "FalkorDB" {
		t.Errorf("entities = %+v", entities)
	}

	none, err := s.EntitiesInDocument(ctx, "/notes/missing.md")
	if err != nil {
		t.Fatalf("EntitiesInDocument: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("entities = %+v", none)
	}
}

func TestStore_DocumentHashes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	synced := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	want := datatypes.DocumentHashes{
		ContentHash:         "abc",
		EmbeddingSourceHash: "def",
		SyncedAt:            synced,
		EntityCount:         4,
		RelationshipCount:   2,
	}

	if err := s.UpdateDocumentHashes(ctx, "/notes/a.md", want); err != nil {
		t.Fatalf("UpdateDocumentHashes: %v", err)
	}
	// Upsert over the same path keeps one record.
	want.ContentHash = "abc2"
	if err := s.UpdateDocumentHashes(ctx, "/notes/a.md", want); err != nil {
		t.Fatalf("UpdateDocumentHashes: %v", err)
	}

	all, err := s.LoadAllDocumentHashes(ctx)
	if err != nil {
		t.Fatalf("LoadAllDocumentHashes: %v", err)
	}
	got, ok := all["/notes/a.md"]
	if !ok || len(all) != 1 {
		t.Fatalf("all = %v", all)
	}
	if got.ContentHash != "abc2" || !got.SyncedAt.Equal(synced) || got.EntityCount != 4 {
		t.Errorf("got %+v", got)
	}

	if err := s.RemoveDocumentHashes(ctx, "/notes/a.md"); err != nil {
		t.Fatalf("RemoveDocumentHashes: %v", err)
	}
	all, err = s.LoadAllDocumentHashes(ctx)
	if err != nil {
		t.Fatalf("LoadAllDocumentHashes: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("records remain: %v", all)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if _, ok := cosineSimilarity([]float32{1, 0}, []float32{1}); ok {
		t.Error("length mismatch should fail")
	}
	if _, ok := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); ok {
		t.Error("zero vector should fail")
	}
	if sim, _ := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); sim != 0 {
		t.Errorf("orthogonal similarity = %v", sim)
	}
	if sim, _ := cosineSimilarity([]float32{2, 0}, []float32{5, 0}); sim < 0.999 {
		t.Errorf("parallel similarity = %v", sim)
	}
}
