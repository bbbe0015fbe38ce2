// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// writeDoc writes a markdown file into dir and returns its path.
func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestSource_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	writeDoc(t, tmpDir, "a.md", "# A")
	writeDoc(t, tmpDir, "sub/b.md", "# B")
	writeDoc(t, tmpDir, "sub/c.markdown", "# C")
	writeDoc(t, tmpDir, "sub/skip.txt", "not markdown")
	writeDoc(t, tmpDir, ".obsidian/workspace.md", "hidden")
	writeDoc(t, tmpDir, "node_modules/dep.md", "excluded")

	source := NewSource(tmpDir)
	paths, err := source.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(paths) != 3 {
		t.Fatalf("len(paths) = %d, want 3: %v", len(paths), paths)
	}
	// Results are sorted and absolute.
	for i := 1; i < len(paths); i++ {
		if paths[i-1] >= paths[i] {
			t.Errorf("paths not sorted: %v", paths)
		}
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			t.Errorf("path %q is not absolute", p)
		}
	}
}

func TestSource_Discover_InvalidRoot(t *testing.T) {
	source := NewSource(filepath.Join(t.TempDir(), "missing"))
	if _, err := source.Discover(); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("err = %v, want ErrInvalidRoot", err)
	}
}

func TestSource_Parse(t *testing.T) {
	tmpDir := t.TempDir()
	source := NewSource(tmpDir)

	t.Run("full frontmatter", func(t *testing.T) {
		path := writeDoc(t, tmpDir, "graph.md", `---
title: Graph Databases
tags: [databases, graphs]
status: published
created: 2025-03-01
entities:
  - name: FalkorDB
    type: Technology
    description: A Cypher-speaking graph database
relationships:
  - source: this
    relation: REFERENCES
    target: FalkorDB
---
# Ignored Heading

Body text.
`)

		doc, err := source.Parse(path)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}

		if doc.Title != "Graph Databases" {
			t.Errorf("Title = %q", doc.Title)
		}
		if doc.Status != "published" {
			t.Errorf("Status = %q", doc.Status)
		}
		if doc.Created == nil || doc.Created.Year() != 2025 {
			t.Errorf("Created = %v", doc.Created)
		}
		if len(doc.ContentHash) != 64 {
			t.Errorf("ContentHash = %q, want 64 hex chars", doc.ContentHash)
		}
		if len(doc.Entities) != 1 || doc.Entities[0].Type != datatypes.EntityTechnology {
			t.Fatalf("Entities = %+v", doc.Entities)
		}

		// "this" resolved to the document path.
		if len(doc.Relationships) != 1 {
			t.Fatalf("Relationships = %+v", doc.Relationships)
		}
		rel := doc.Relationships[0]
		if rel.Source != doc.Path {
			t.Errorf("Source = %q, want %q", rel.Source, doc.Path)
		}
		if rel.Relation != datatypes.RelReferences || rel.Target != "FalkorDB" {
			t.Errorf("rel = %+v", rel)
		}
	})

	t.Run("title falls back to first heading", func(t *testing.T) {
		path := writeDoc(t, tmpDir, "heading.md", "intro\n\n# The Real Title\n")
		doc, err := source.Parse(path)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if doc.Title != "The Real Title" {
			t.Errorf("Title = %q", doc.Title)
		}
	})

	t.Run("title falls back to filename", func(t *testing.T) {
		path := writeDoc(t, tmpDir, "plain-note.md", "no headings here\n")
		doc, err := source.Parse(path)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if doc.Title != "plain-note" {
			t.Errorf("Title = %q", doc.Title)
		}
	})

	t.Run("identical content yields identical hash", func(t *testing.T) {
		p1 := writeDoc(t, tmpDir, "h1.md", "same content")
		p2 := writeDoc(t, tmpDir, "h2.md", "same content")
		d1, err := source.Parse(p1)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		d2, err := source.Parse(p2)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if d1.ContentHash != d2.ContentHash {
			t.Error("hashes differ for identical content")
		}
	})

	t.Run("unterminated frontmatter is malformed", func(t *testing.T) {
		path := writeDoc(t, tmpDir, "broken.md", "---\ntitle: oops\nnever closed\n")
		if _, err := source.Parse(path); !errors.Is(err, ErrMalformedFrontmatter) {
			t.Errorf("err = %v, want ErrMalformedFrontmatter", err)
		}
	})

	t.Run("unknown entity type rejected", func(t *testing.T) {
		path := writeDoc(t, tmpDir, "badtype.md", `---
entities:
  - name: Thing
    type: Gadget
---
body
`)
		if _, err := source.Parse(path); !errors.Is(err, ErrUnknownEntityType) {
			t.Errorf("err = %v, want ErrUnknownEntityType", err)
		}
	})

	t.Run("horizontal rule without frontmatter open is body", func(t *testing.T) {
		path := writeDoc(t, tmpDir, "rule.md", "text first\n\n---\n\nmore text\n")
		doc, err := source.Parse(path)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(doc.Entities) != 0 {
			t.Errorf("Entities = %+v", doc.Entities)
		}
	})
}

func TestValidateRelationships(t *testing.T) {
	docA := &datatypes.ParsedDocument{
		Path: "/notes/a.md",
		Entities: []datatypes.Entity{
			{Name: "FalkorDB", Type: datatypes.EntityTechnology},
		},
		Relationships: []datatypes.Relationship{
			{Source: "/notes/a.md", Relation: datatypes.RelReferences, Target: "FalkorDB"},
		},
	}
	docB := &datatypes.ParsedDocument{
		Path: "/notes/b.md",
		Relationships: []datatypes.Relationship{
			// Cross-document reference to an entity declared in A.
			{Source: "/notes/b.md", Relation: datatypes.RelReferences, Target: "FalkorDB"},
		},
	}

	t.Run("valid cross-document endpoints pass", func(t *testing.T) {
		if err := ValidateRelationships([]*datatypes.ParsedDocument{docA, docB}); err != nil {
			t.Errorf("ValidateRelationships: %v", err)
		}
	})

	t.Run("dangling endpoint aborts", func(t *testing.T) {
		bad := &datatypes.ParsedDocument{
			Path: "/notes/c.md",
			Relationships: []datatypes.Relationship{
				{Source: "/notes/c.md", Relation: datatypes.RelReferences, Target: "NoSuchEntity"},
			},
		}
		err := ValidateRelationships([]*datatypes.ParsedDocument{docA, bad})
		if !errors.Is(err, ErrDanglingRelationship) {
			t.Errorf("err = %v, want ErrDanglingRelationship", err)
		}
	})
}

func TestHashBytes(t *testing.T) {
	// SHA-256 of the empty string is a well-known digest.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashBytes(nil); got != want {
		t.Errorf("HashBytes(nil) = %q", got)
	}
	if HashString("a") == HashString("b") {
		t.Error("distinct inputs should hash differently")
	}
}
