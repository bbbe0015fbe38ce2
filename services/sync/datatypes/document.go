// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// ParsedDocument is one markdown document's extracted state for a sync
// pass. Produced by the document source (and enriched by AI extraction);
// immutable once produced for a given pass.
type ParsedDocument struct {
	// Path is the absolute document path and the unique key.
	Path string `json:"path"`

	// Title comes from frontmatter, the first H1, or the filename.
	Title string `json:"title"`

	// ContentHash is the SHA-256 digest of the raw file bytes.
	ContentHash string `json:"contentHash"`

	// Summary is optional, typically produced by AI extraction.
	Summary string `json:"summary,omitempty"`

	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`

	// Tags are free-form frontmatter tags.
	Tags []string `json:"tags,omitempty"`

	// Lifecycle metadata from frontmatter, all optional.
	Created *time.Time `json:"created,omitempty"`
	Updated *time.Time `json:"updated,omitempty"`
	Status  string     `json:"status,omitempty"`

	// Body is the markdown text below the frontmatter. Kept in memory
	// for extraction and embedding; never serialized.
	Body string `json:"-"`
}

// EntityByName returns the document's entity with the given name, or
// false if no entity declares it.
func (d *ParsedDocument) EntityByName(name string) (Entity, bool) {
	for _, e := range d.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// EntityNames returns the names of all entities in declaration order.
func (d *ParsedDocument) EntityNames() []string {
	names := make([]string, 0, len(d.Entities))
	for _, e := range d.Entities {
		names = append(names, e.Name)
	}
	return names
}

// DocumentHashes is the persisted per-document record that drives change
// detection. Created on first successful sync of a path, updated on each
// re-sync, deleted when the document disappears from disk.
type DocumentHashes struct {
	// ContentHash is the document's content digest at last sync. An
	// empty value marks a legacy record and forces re-processing.
	ContentHash string `json:"contentHash"`

	// EmbeddingSourceHash is the digest of the text the document
	// embedding was generated from, when embeddings are enabled.
	EmbeddingSourceHash string `json:"embeddingSourceHash,omitempty"`

	// SyncedAt is when the document last synced successfully.
	SyncedAt time.Time `json:"syncedAt"`

	// EntityCount and RelationshipCount are bookkeeping for status
	// reporting; they do not participate in change detection.
	EntityCount       int `json:"entityCount,omitempty"`
	RelationshipCount int `json:"relationshipCount,omitempty"`
}
