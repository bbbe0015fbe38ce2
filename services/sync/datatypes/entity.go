// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the domain types shared by the sync engine:
// entities, relationships, parsed documents, change classifications,
// cascade analyses, and the property-bag value type written to the graph
// store.
//
// Types here are plain data. Behavior lives in the packages that own the
// corresponding phase of a sync pass (document, changes, entity, cascade,
// engine).
package datatypes

import (
	"fmt"
	"strings"
)

// EntityType is the closed enumeration of entity kinds the knowledge
// graph models. Entity identity is (Type, Name).
type EntityType string

const (
	EntityTopic        EntityType = "Topic"
	EntityTechnology   EntityType = "Technology"
	EntityConcept      EntityType = "Concept"
	EntityTool         EntityType = "Tool"
	EntityProcess      EntityType = "Process"
	EntityPerson       EntityType = "Person"
	EntityOrganization EntityType = "Organization"
	EntityDocument     EntityType = "Document"
	EntityQuestion     EntityType = "Question"
)

// EntityTypes lists every valid entity type in a stable order.
var EntityTypes = []EntityType{
	EntityTopic,
	EntityTechnology,
	EntityConcept,
	EntityTool,
	EntityProcess,
	EntityPerson,
	EntityOrganization,
	EntityDocument,
	EntityQuestion,
}

// ParseEntityType parses a case-insensitive entity type name.
//
// Outputs:
//
//	EntityType - The canonical type on success.
//	error - Non-nil if the name is not in the closed enumeration.
func ParseEntityType(s string) (EntityType, error) {
	for _, t := range EntityTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Valid reports whether t is a member of the closed enumeration.
func (t EntityType) Valid() bool {
	_, err := ParseEntityType(string(t))
	return err == nil
}

// RelationType is the closed set of relationship labels.
type RelationType string

const (
	RelReferences RelationType = "REFERENCES"
	RelAppearsIn  RelationType = "APPEARS_IN"
	RelAnsweredBy RelationType = "ANSWERED_BY"
	RelRelatesTo  RelationType = "RELATES_TO"
	RelDependsOn  RelationType = "DEPENDS_ON"
	RelPartOf     RelationType = "PART_OF"
	RelAuthoredBy RelationType = "AUTHORED_BY"
)

// RelationTypes lists every valid relation in a stable order.
var RelationTypes = []RelationType{
	RelReferences,
	RelAppearsIn,
	RelAnsweredBy,
	RelRelatesTo,
	RelDependsOn,
	RelPartOf,
	RelAuthoredBy,
}

// NormalizeRelation maps a free-form relation label onto the closed set.
//
// AI extraction can produce novel labels; rather than abort the pass on a
// label the model invented, unknown relations collapse to RELATES_TO.
// Matching is case-insensitive and tolerates spaces or hyphens in place
// of underscores.
func NormalizeRelation(s string) RelationType {
	canon := strings.ToUpper(strings.TrimSpace(s))
	canon = strings.NewReplacer(" ", "_", "-", "_").Replace(canon)
	for _, r := range RelationTypes {
		if string(r) == canon {
			return r
		}
	}
	return RelRelatesTo
}

// Valid reports whether r is a member of the closed set.
func (r RelationType) Valid() bool {
	for _, known := range RelationTypes {
		if r == known {
			return true
		}
	}
	return false
}

// Entity is one entity mention as extracted from a single document.
// Name is unique within a Type.
type Entity struct {
	Name        string     `json:"name" yaml:"name"`
	Type        EntityType `json:"type" yaml:"type"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Key returns the dedup key "type:name" used by the entity collector and
// the graph adapters.
func (e Entity) Key() string {
	return string(e.Type) + ":" + e.Name
}

// SourcePlaceholder is the literal relationship endpoint value that
// resolves to the owning document's path at parse/extraction time.
const SourcePlaceholder = "this"

// Relationship is a typed edge declared by or extracted from a document.
// Source and Target are entity names or a document path; the literal
// "this" is resolved to the owning document's path before the
// relationship leaves the parsing/extraction layer.
type Relationship struct {
	Source   string       `json:"source" yaml:"source"`
	Relation RelationType `json:"relation" yaml:"relation"`
	Target   string       `json:"target" yaml:"target"`
}

// UniqueEntity is one entity merged across every document that mentions
// it: the longest non-empty description seen wins, and DocumentPaths
// preserves first-seen order.
//
// Invariant: for a fixed (Type, Name) exactly one UniqueEntity exists per
// sync pass, and description merging is monotonic (never shortens).
type UniqueEntity struct {
	Type          EntityType `json:"type"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	DocumentPaths []string   `json:"documentPaths"`
}

// Key returns the dedup key "type:name".
func (u UniqueEntity) Key() string {
	return string(u.Type) + ":" + u.Name
}
