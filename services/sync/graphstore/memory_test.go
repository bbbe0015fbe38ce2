// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphstore

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

func TestMemory_UpsertNode(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	t.Run("missing name", func(t *testing.T) {
		if err := m.UpsertNode(ctx, "Topic", datatypes.Properties{}); !errors.Is(err, ErrMissingName) {
			t.Errorf("err = %v, want ErrMissingName", err)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		props := datatypes.Properties{
			"name":        datatypes.String("Graphs"),
			"description": datatypes.String("d"),
		}
		if err := m.UpsertNode(ctx, "Topic", props); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
		if err := m.UpsertNode(ctx, "Topic", props); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
		if m.NodeCount() != 1 {
			t.Errorf("NodeCount = %d", m.NodeCount())
		}
	})

	t.Run("partial update keeps other properties", func(t *testing.T) {
		err := m.UpsertNode(ctx, "Topic", datatypes.Properties{
			"name":  datatypes.String("Graphs"),
			"extra": datatypes.Bool(true),
		})
		if err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}

		props, ok := m.NodeProperties("Topic", "Graphs")
		if !ok {
			t.Fatal("node missing")
		}
		if props.StringValue("description") != "d" {
			t.Errorf("description lost: %v", props)
		}
	})
}

func TestMemory_Relationships(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	props := datatypes.Properties{PropSourceDocument: datatypes.String("/notes/a.md")}
	if err := m.UpsertRelationship(ctx, "Topic", "A", "REFERENCES", "Concept", "B", props); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}
	if err := m.UpsertRelationship(ctx, "Topic", "A", "REFERENCES", "Concept", "B", props); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}

	if m.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", m.EdgeCount())
	}
	// Endpoints created as bare nodes.
	if !m.HasNode("Topic", "A") || !m.HasNode("Concept", "B") {
		t.Error("endpoints not ensured")
	}

	if err := m.DeleteDocumentRelationships(ctx, "/notes/a.md"); err != nil {
		t.Fatalf("DeleteDocumentRelationships: %v", err)
	}
	if m.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d after delete", m.EdgeCount())
	}
}

func TestMemory_DeleteNodeRemovesEdges(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	if err := m.UpsertRelationship(ctx, "Topic", "A", "REFERENCES", "Concept", "B", nil); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}
	if err := m.DeleteNode(ctx, "Concept", "B"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if m.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d", m.EdgeCount())
	}
	if m.HasNode("Concept", "B") {
		t.Error("node survived delete")
	}
}

func TestMemory_Embeddings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	if err := m.UpsertNode(ctx, "Concept", datatypes.Properties{"name": datatypes.String("A")}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	if err := m.UpdateNodeEmbedding(ctx, "Concept", "A", []float32{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	if err := m.UpdateNodeEmbedding(ctx, "Concept", "Missing", []float32{1, 0}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}

	if err := m.UpdateNodeEmbedding(ctx, "Concept", "A", []float32{1, 0}); err != nil {
		t.Fatalf("UpdateNodeEmbedding: %v", err)
	}

	hits, err := m.VectorSearch(ctx, "Concept", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("VectorSearch: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "A" || hits[0].Score < 0.99 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestMemory_DocumentsReferencingEntity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	for _, doc := range []string{"/b.md", "/a.md", "/self.md"} {
		err := m.UpsertRelationship(ctx, "Technology", "FalkorDB", "APPEARS_IN", "Document", doc, nil)
		if err != nil {
			t.Fatalf("UpsertRelationship: %v", err)
		}
	}

	paths, err := m.DocumentsReferencingEntity(ctx, "FalkorDB", "/self.md")
	if err != nil {
		t.Fatalf("DocumentsReferencingEntity: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/a.md" || paths[1] != "/b.md" {
		t.Errorf("paths = %v", paths)
	}

	m.FailQueries = true
	if _, err := m.DocumentsReferencingEntity(ctx, "FalkorDB", ""); err == nil {
		t.Error("want error when queries disabled")
	}
}

func TestMemory_EntitiesInDocument(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	seed := []struct{ nodeType, name string }{
		{"Technology", "FalkorDB"},
		{"Concept", "Graphs"},
		{"Technology", "BadgerDB"},
	}
	for _, e := range seed {
		err := m.UpsertRelationship(ctx, e.nodeType, e.name, "APPEARS_IN", "Document", "/a.md", nil)
		if err != nil {
			t.Fatalf("UpsertRelationship: %v", err)
		}
	}
	if err := m.UpsertRelationship(ctx, "Tool", "jq", "APPEARS_IN", "Document", "/other.md", nil); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}

	entities, err := m.EntitiesInDocument(ctx, "/a.md")
	if err != nil {
		t.Fatalf("EntitiesInDocument: %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("entities = %+v", entities)
	}
	// Sorted by type then name.
	if entities[0].Name != "Graphs" || entities[1].Name != "BadgerDB" || entities[2].Name != "FalkorDB" {
		t.Errorf("entities = %+v", entities)
	}
}
