// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cascade

import (
	"context"
	"testing"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

// seedReferences registers entity APPEARS_IN document edges.
func seedReferences(t *testing.T, m *graphstore.Memory, entity string, docs ...string) {
	t.Helper()
	for _, doc := range docs {
		err := m.UpsertRelationship(context.Background(),
			"Technology", entity, string(datatypes.RelAppearsIn), string(datatypes.EntityDocument), doc, nil)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func docWith(path string, entities ...datatypes.Entity) *datatypes.ParsedDocument {
	return &datatypes.ParsedDocument{Path: path, Entities: entities}
}

func tech(name string) datatypes.Entity {
	return datatypes.Entity{Name: name, Type: datatypes.EntityTechnology}
}

func TestAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("nil old document produces nothing", func(t *testing.T) {
		a := New(graphstore.NewMemory(0))
		got := a.Analyze(ctx, nil, docWith("/n.md", tech("X")))
		if got != nil {
			t.Errorf("analyses = %+v", got)
		}
	})

	t.Run("rename detected with affected documents", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "RedisGraph", "/other.md", "/third.md")
		a := New(m)

		got := a.Analyze(ctx,
			docWith("/n.md", tech("RedisGraph")),
			docWith("/n.md", tech("FalkorDB")))

		if len(got) != 1 {
			t.Fatalf("analyses = %+v", got)
		}
		an := got[0]
		if an.Trigger != datatypes.TriggerEntityRenamed {
			t.Errorf("Trigger = %q", an.Trigger)
		}
		if len(an.AffectedDocuments) != 2 {
			t.Fatalf("AffectedDocuments = %+v", an.AffectedDocuments)
		}
		if an.AffectedDocuments[0].SuggestedAction != datatypes.ActionUpdateReference {
			t.Errorf("SuggestedAction = %q", an.AffectedDocuments[0].SuggestedAction)
		}
		if an.AffectedDocuments[0].Confidence != datatypes.ConfidenceHigh {
			t.Errorf("Confidence = %q", an.AffectedDocuments[0].Confidence)
		}
	})

	t.Run("rename pairing is positional within type", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "A1", "/d1.md")
		seedReferences(t, m, "A2", "/d2.md")
		a := New(m)

		got := a.Analyze(ctx,
			docWith("/n.md", tech("A1"), tech("A2")),
			docWith("/n.md", tech("B1"), tech("B2")))

		if len(got) != 2 {
			t.Fatalf("analyses = %+v", got)
		}
		if got[0].Summary != `entity "A1" renamed to "B1"` {
			t.Errorf("Summary = %q", got[0].Summary)
		}
		if got[1].Summary != `entity "A2" renamed to "B2"` {
			t.Errorf("Summary = %q", got[1].Summary)
		}
	})

	t.Run("rename does not pair across types", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "OldTech", "/d.md")
		a := New(m)

		got := a.Analyze(ctx,
			docWith("/n.md", tech("OldTech")),
			docWith("/n.md", datatypes.Entity{Name: "NewConcept", Type: datatypes.EntityConcept}))

		if len(got) != 1 || got[0].Trigger != datatypes.TriggerEntityDeleted {
			t.Errorf("analyses = %+v", got)
		}
	})

	t.Run("unpaired removal is a deletion", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "Gone", "/d.md")
		a := New(m)

		got := a.Analyze(ctx,
			docWith("/n.md", tech("Kept"), tech("Gone")),
			docWith("/n.md", tech("Kept")))

		if len(got) != 1 {
			t.Fatalf("analyses = %+v", got)
		}
		if got[0].Trigger != datatypes.TriggerEntityDeleted {
			t.Errorf("Trigger = %q", got[0].Trigger)
		}
		if got[0].AffectedDocuments[0].SuggestedAction != datatypes.ActionReviewContent {
			t.Errorf("SuggestedAction = %q", got[0].AffectedDocuments[0].SuggestedAction)
		}
	})

	t.Run("type change detected by name intersection", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "Shifty", "/d.md")
		a := New(m)

		got := a.Analyze(ctx,
			docWith("/n.md", tech("Shifty")),
			docWith("/n.md", datatypes.Entity{Name: "Shifty", Type: datatypes.EntityConcept}))

		if len(got) != 1 || got[0].Trigger != datatypes.TriggerEntityTypeChanged {
			t.Fatalf("analyses = %+v", got)
		}
	})

	t.Run("rename and deletion sets are disjoint", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "R1", "/d.md")
		seedReferences(t, m, "Del", "/d.md")
		a := New(m)

		// One added entity: R1 pairs with N1; Del is deleted.
		got := a.Analyze(ctx,
			docWith("/n.md", tech("R1"), tech("Del")),
			docWith("/n.md", tech("N1")))

		var renamed, deleted []string
		for _, an := range got {
			for _, ad := range an.AffectedDocuments {
				switch an.Trigger {
				case datatypes.TriggerEntityRenamed:
					renamed = append(renamed, ad.AffectedEntities...)
				case datatypes.TriggerEntityDeleted:
					deleted = append(deleted, ad.AffectedEntities...)
				}
			}
		}
		for _, r := range renamed {
			for _, d := range deleted {
				if r == d {
					t.Errorf("entity %q both renamed and deleted", r)
				}
			}
		}
		if len(renamed) != 1 || renamed[0] != "R1" {
			t.Errorf("renamed = %v", renamed)
		}
		if len(deleted) != 1 || deleted[0] != "Del" {
			t.Errorf("deleted = %v", deleted)
		}
	})

	t.Run("no affected documents drops the analysis", func(t *testing.T) {
		a := New(graphstore.NewMemory(0))
		got := a.Analyze(ctx,
			docWith("/n.md", tech("Unreferenced")),
			docWith("/n.md"))
		if len(got) != 0 {
			t.Errorf("analyses = %+v", got)
		}
	})

	t.Run("graph failure degrades to no analyses", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "X", "/d.md")
		m.FailQueries = true
		a := New(m)

		got := a.Analyze(ctx,
			docWith("/n.md", tech("X")),
			docWith("/n.md"))
		if len(got) != 0 {
			t.Errorf("analyses = %+v, want none on graph failure", got)
		}
	})

	t.Run("source document itself is excluded", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "Self", "/n.md", "/other.md")
		a := New(m)

		got := a.Analyze(ctx,
			docWith("/n.md", tech("Self")),
			docWith("/n.md"))

		if len(got) != 1 || len(got[0].AffectedDocuments) != 1 {
			t.Fatalf("analyses = %+v", got)
		}
		if got[0].AffectedDocuments[0].Path != "/other.md" {
			t.Errorf("Path = %q", got[0].AffectedDocuments[0].Path)
		}
	})
}

func TestAnalyzer_AnalyzeDeletion(t *testing.T) {
	ctx := context.Background()

	t.Run("deleted document with referenced entities", func(t *testing.T) {
		m := graphstore.NewMemory(0)
		seedReferences(t, m, "E1", "/a.md", "/b.md")
		seedReferences(t, m, "E2", "/a.md")
		a := New(m)

		got := a.AnalyzeDeletion(ctx, docWith("/gone.md", tech("E1"), tech("E2")))
		if len(got) != 1 {
			t.Fatalf("analyses = %+v", got)
		}
		an := got[0]
		if an.Trigger != datatypes.TriggerDocumentDeleted {
			t.Errorf("Trigger = %q", an.Trigger)
		}
		if len(an.AffectedDocuments) != 2 {
			t.Fatalf("AffectedDocuments = %+v", an.AffectedDocuments)
		}
		// /a.md references both entities; they accumulate on one entry.
		for _, ad := range an.AffectedDocuments {
			if ad.Path == "/a.md" && len(ad.AffectedEntities) != 2 {
				t.Errorf("AffectedEntities = %v", ad.AffectedEntities)
			}
		}
	})

	t.Run("no entities means no analysis", func(t *testing.T) {
		a := New(graphstore.NewMemory(0))
		if got := a.AnalyzeDeletion(ctx, docWith("/gone.md")); got != nil {
			t.Errorf("analyses = %+v", got)
		}
	})
}
