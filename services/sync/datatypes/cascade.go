// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// CascadeTrigger identifies what kind of entity-level change produced a
// cascade analysis.
type CascadeTrigger string

const (
	TriggerEntityRenamed       CascadeTrigger = "entity_renamed"
	TriggerEntityDeleted       CascadeTrigger = "entity_deleted"
	TriggerEntityTypeChanged   CascadeTrigger = "entity_type_changed"
	TriggerRelationshipChanged CascadeTrigger = "relationship_changed"
	TriggerDocumentDeleted     CascadeTrigger = "document_deleted"
)

// SuggestedAction is the recommended follow-up for an affected document.
type SuggestedAction string

const (
	ActionUpdateReference SuggestedAction = "update_reference"
	ActionRemoveReference SuggestedAction = "remove_reference"
	ActionReviewContent   SuggestedAction = "review_content"
	ActionAddEntity       SuggestedAction = "add_entity"
)

// Confidence grades how certain the analyzer is that a document is
// actually affected.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// AffectedDocument is one downstream document whose content may now be
// stale because of an entity change elsewhere.
type AffectedDocument struct {
	Path             string          `json:"path"`
	Reason           string          `json:"reason"`
	SuggestedAction  SuggestedAction `json:"suggestedAction"`
	Confidence       Confidence      `json:"confidence"`
	AffectedEntities []string        `json:"affectedEntities"`
}

// CascadeAnalysis is the result of analyzing one entity-level change in
// one document. Ephemeral: surfaced to the caller in the sync result,
// never persisted.
type CascadeAnalysis struct {
	Trigger           CascadeTrigger     `json:"trigger"`
	SourceDocument    string             `json:"sourceDocument"`
	AffectedDocuments []AffectedDocument `json:"affectedDocuments"`
	Summary           string             `json:"summary"`
}
