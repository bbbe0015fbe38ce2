// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package embed generates vector embeddings for documents and entities.
//
// Two implementations: an OpenAI-compatible embeddings API client and a
// client for a local HTTP embedding service. Both report a fixed
// dimensionality; the graph store enforces it on write.
package embed

import (
	"context"
	"errors"
)

// Sentinel errors for embedding.
var (
	// ErrEmptyText is returned when the text to embed is empty.
	ErrEmptyText = errors.New("text to embed is empty")

	// ErrUnavailable is returned when the embedding service cannot be
	// reached or is unhealthy.
	ErrUnavailable = errors.New("embedding service unavailable")
)

// Embedder is the capability contract for vector embedding.
type Embedder interface {
	// Embed converts text into a dense vector. Returns ErrEmptyText
	// for empty input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length this embedder produces.
	Dimensions() int
}
