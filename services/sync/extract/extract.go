// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extract pulls entities and relationships out of document text
// with an LLM.
//
// Extraction is best-effort by contract: a failed call never fails the
// sync pass, it degrades the document to its frontmatter-declared
// entities. That is why Extract returns a result with Success=false
// instead of a Go error.
package extract

import (
	"context"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// ExtractionResult is the outcome of one extraction call.
type ExtractionResult struct {
	// Success reports whether extraction produced usable output. When
	// false, Error holds the reason and the other fields are empty.
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Entities and Relationships as extracted. Relationship endpoints
	// may still be the literal "this"; the caller resolves it.
	Entities      []datatypes.Entity       `json:"entities"`
	Relationships []datatypes.Relationship `json:"relationships"`

	// Summary is a model-written abstract of the document.
	Summary string `json:"summary,omitempty"`
}

// Extractor is the capability contract for entity extraction.
type Extractor interface {
	// Extract analyzes one document. Never returns a Go error;
	// failures come back as Success=false.
	Extract(ctx context.Context, doc *datatypes.ParsedDocument) ExtractionResult
}

// failure builds a failed result.
func failure(reason string) ExtractionResult {
	return ExtractionResult{Success: false, Error: reason}
}
