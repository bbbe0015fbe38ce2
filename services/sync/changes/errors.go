// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package changes tracks per-document content hashes and classifies
// documents as new, updated, deleted, or unchanged between sync passes.
//
// The hash index is pluggable: a JSON file (default), an embedded
// BadgerDB database, or the graph store itself can hold the per-path
// records. The Detector layers classification on top of whichever
// backend is configured.
package changes

import "errors"

// Sentinel errors for change detection.
var (
	// ErrIndexNotLoaded is returned when classification is attempted
	// before LoadIndex has run. Classifying against a missing index
	// would mark every document as new and trigger a full re-sync, so
	// this fails fast instead.
	ErrIndexNotLoaded = errors.New("hash index not loaded")

	// ErrIndexCorrupt is returned when a persisted index cannot be
	// decoded.
	ErrIndexCorrupt = errors.New("hash index corrupt")
)
