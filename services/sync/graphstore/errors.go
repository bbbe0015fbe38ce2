// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graphstore defines the capability contract the sync engine
// writes the knowledge graph through.
//
// Two adapters satisfy it: graphstore/falkor speaks Cypher to a FalkorDB
// server over the Redis protocol, and graphstore/relstore maps the same
// operations onto an embedded SQLite database. The engine never sees
// which one it holds.
package graphstore

import "errors"

// Sentinel errors shared by every adapter.
var (
	// ErrMissingName is returned by UpsertNode when the property bag
	// lacks a non-empty "name". Identity is (type, name); a node
	// without a name cannot be merged idempotently.
	ErrMissingName = errors.New("node properties missing name")

	// ErrNodeNotFound is returned when an operation targets a node that
	// does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDimensionMismatch is returned when a vector's length differs
	// from the store's configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidLabel is returned when a node type or relation label
	// fails identifier validation before query construction.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrUnavailable is returned when the backing store cannot be
	// reached.
	ErrUnavailable = errors.New("graph store unavailable")
)
