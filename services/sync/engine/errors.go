// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "errors"

var (
	// ErrMissingCollaborator means the engine was built without one of
	// its required collaborators (source, detector, or graph client).
	ErrMissingCollaborator = errors.New("engine: missing collaborator")

	// ErrValidation means declared relationships reference unknown
	// entities. The pass aborts before any store mutation.
	ErrValidation = errors.New("engine: relationship validation failed")
)
