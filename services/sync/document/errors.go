// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package document discovers and parses the markdown documents a sync
// pass operates on.
//
// A Source walks a root directory for markdown files and parses each one
// into a datatypes.ParsedDocument: SHA-256 content hash, YAML frontmatter
// (title, tags, status, lifecycle dates, declared entities and
// relationships), and title fallbacks. The literal relationship endpoint
// "this" is resolved to the owning document's path here, so nothing
// downstream ever sees the placeholder.
package document

import "errors"

// Sentinel errors for document parsing.
var (
	// ErrInvalidRoot is returned when the documents root is not a
	// readable directory.
	ErrInvalidRoot = errors.New("invalid documents root")

	// ErrMalformedFrontmatter is returned when a document's YAML
	// frontmatter cannot be parsed.
	ErrMalformedFrontmatter = errors.New("malformed frontmatter")

	// ErrUnknownEntityType is returned when frontmatter declares an
	// entity with a type outside the closed enumeration.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrDanglingRelationship is returned when a declared relationship
	// endpoint names no declared entity and no document. Dangling
	// references would corrupt cross-document invariants, so this
	// aborts the pass before any store mutation.
	ErrDanglingRelationship = errors.New("relationship references unknown entity")
)
