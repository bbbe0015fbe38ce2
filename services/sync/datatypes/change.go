// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// ChangeType classifies a document against the persisted hash index.
type ChangeType string

const (
	ChangeNew       ChangeType = "new"
	ChangeUpdated   ChangeType = "updated"
	ChangeDeleted   ChangeType = "deleted"
	ChangeUnchanged ChangeType = "unchanged"
)

// DocumentChange records one classification for one sync pass. It is
// ephemeral: its effect is persisted via DocumentHashes updates, never
// directly.
type DocumentChange struct {
	Path string `json:"path"`

	Type ChangeType `json:"changeType"`

	// Reason is a human-readable explanation of the classification,
	// e.g. "not tracked in index" or "content hash changed".
	Reason string `json:"reason"`
}
