// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package entity deduplicates the entities declared across a batch of
// parsed documents into one unique record per (type, name) pair.
package entity

import (
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// CollectResult holds the deduplicated entities of one sync pass.
type CollectResult struct {
	byKey map[string]*datatypes.UniqueEntity
	order []string
}

// Collect merges entity declarations from every document into unique
// entities keyed by "type:name".
//
// Behavior:
//
//   - First declaration of a key inserts the entity with its source
//     document path.
//   - Repeat declarations append the document path (once per document)
//     and replace the description only when the new one is non-empty and
//     strictly longer, so information accumulates monotonically and
//     input order cannot erase a better description.
//   - Entities with an empty name are skipped.
//
// Deterministic: identical input yields identical output, including the
// first-seen ordering of Ordered.
func Collect(docs []*datatypes.ParsedDocument) *CollectResult {
	res := &CollectResult{byKey: make(map[string]*datatypes.UniqueEntity)}

	for _, doc := range docs {
		for _, e := range doc.Entities {
			if e.Name == "" {
				continue
			}
			key := e.Key()

			existing, ok := res.byKey[key]
			if !ok {
				res.byKey[key] = &datatypes.UniqueEntity{
					Type:          e.Type,
					Name:          e.Name,
					Description:   e.Description,
					DocumentPaths: []string{doc.Path},
				}
				res.order = append(res.order, key)
				continue
			}

			if len(e.Description) > len(existing.Description) {
				existing.Description = e.Description
			}
			if !containsPath(existing.DocumentPaths, doc.Path) {
				existing.DocumentPaths = append(existing.DocumentPaths, doc.Path)
			}
		}
	}

	return res
}

// Ordered returns the unique entities in first-seen order.
func (r *CollectResult) Ordered() []datatypes.UniqueEntity {
	out := make([]datatypes.UniqueEntity, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.byKey[key])
	}
	return out
}

// Get returns the unique entity for a (type, name) pair, if collected.
func (r *CollectResult) Get(entityType datatypes.EntityType, name string) (datatypes.UniqueEntity, bool) {
	e, ok := r.byKey[string(entityType)+":"+name]
	if !ok {
		return datatypes.UniqueEntity{}, false
	}
	return *e, true
}

// Len returns the number of unique entities.
func (r *CollectResult) Len() int {
	return len(r.order)
}

func containsPath(paths []string, p string) bool {
	for _, existing := range paths {
		if existing == p {
			return true
		}
	}
	return false
}
