// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cascade detects entity-level changes between two versions of
// a document and reports which other documents those changes may have
// made stale.
//
// The analyzer is advisory: its output is warnings in the sync result,
// never writes. A graph lookup failure degrades an analysis to zero
// affected documents instead of failing the pass, because a missing
// warning is recoverable and an aborted sync is not.
package cascade

import (
	"context"
	"fmt"

	"github.com/AleutianAI/NoteGraph/pkg/logging"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// ReferenceFinder is the slice of the graph client the analyzer needs.
type ReferenceFinder interface {
	DocumentsReferencingEntity(ctx context.Context, entityName, excludePath string) ([]string, error)
}

// Analyzer computes cascade analyses. Pure per call: all state lives in
// the arguments.
type Analyzer struct {
	graph  ReferenceFinder
	logger *logging.Logger
}

// Option is a functional option for configuring an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the analyzer's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// New creates an Analyzer over the given graph.
func New(graph ReferenceFinder, opts ...Option) *Analyzer {
	a := &Analyzer{
		graph:  graph,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// entityDiff is the classified difference between two entity lists.
type entityDiff struct {
	// renames pairs an old name with its new name, same type.
	renames [][2]string
	// deleted names vanished entirely.
	deleted []string
	// typeChanged names survive under a different type.
	typeChanged []string
}

// Analyze compares the old and new versions of one document and returns
// an analysis per detected change kind.
//
// Behavior:
//
//   - oldDoc nil (first sync of the path) produces no analyses; there
//     is no previous state to cascade from.
//   - Renames pair removed and added entities of the same type
//     positionally, in input order.
//   - Deletions are old entities absent from the new version entirely,
//     excluding names claimed by rename pairing.
//   - Type changes are names present in both versions under different
//     types.
//   - Analyses with no affected documents are dropped.
func (a *Analyzer) Analyze(ctx context.Context, oldDoc, newDoc *datatypes.ParsedDocument) []datatypes.CascadeAnalysis {
	if oldDoc == nil || newDoc == nil {
		return nil
	}

	diff := diffEntities(oldDoc.Entities, newDoc.Entities)
	var analyses []datatypes.CascadeAnalysis

	for _, pair := range diff.renames {
		oldName, newName := pair[0], pair[1]
		affected := a.affectedBy(ctx, oldName, newDoc.Path,
			fmt.Sprintf("references %q, renamed to %q", oldName, newName),
			datatypes.ActionUpdateReference)
		if len(affected) == 0 {
			continue
		}
		analyses = append(analyses, datatypes.CascadeAnalysis{
			Trigger:           datatypes.TriggerEntityRenamed,
			SourceDocument:    newDoc.Path,
			AffectedDocuments: affected,
			Summary:           fmt.Sprintf("entity %q renamed to %q", oldName, newName),
		})
	}

	for _, name := range diff.deleted {
		affected := a.affectedBy(ctx, name, newDoc.Path,
			fmt.Sprintf("references deleted entity %q", name),
			datatypes.ActionReviewContent)
		if len(affected) == 0 {
			continue
		}
		analyses = append(analyses, datatypes.CascadeAnalysis{
			Trigger:           datatypes.TriggerEntityDeleted,
			SourceDocument:    newDoc.Path,
			AffectedDocuments: affected,
			Summary:           fmt.Sprintf("entity %q removed", name),
		})
	}

	for _, name := range diff.typeChanged {
		affected := a.affectedBy(ctx, name, newDoc.Path,
			fmt.Sprintf("references %q, whose type changed", name),
			datatypes.ActionReviewContent)
		if len(affected) == 0 {
			continue
		}
		analyses = append(analyses, datatypes.CascadeAnalysis{
			Trigger:           datatypes.TriggerEntityTypeChanged,
			SourceDocument:    newDoc.Path,
			AffectedDocuments: affected,
			Summary:           fmt.Sprintf("entity %q changed type", name),
		})
	}

	return analyses
}

// AnalyzeDeletion reports the documents that referenced entities of a
// document that is being removed from the corpus.
func (a *Analyzer) AnalyzeDeletion(ctx context.Context, doc *datatypes.ParsedDocument) []datatypes.CascadeAnalysis {
	if doc == nil || len(doc.Entities) == 0 {
		return nil
	}

	seen := make(map[string]int) // path -> index into affected
	var affected []datatypes.AffectedDocument
	for _, e := range doc.Entities {
		for _, path := range a.lookup(ctx, e.Name, doc.Path) {
			if idx, ok := seen[path]; ok {
				affected[idx].AffectedEntities = appendUnique(affected[idx].AffectedEntities, e.Name)
				continue
			}
			seen[path] = len(affected)
			affected = append(affected, datatypes.AffectedDocument{
				Path:             path,
				Reason:           fmt.Sprintf("references entities from deleted document %s", doc.Path),
				SuggestedAction:  datatypes.ActionReviewContent,
				Confidence:       datatypes.ConfidenceHigh,
				AffectedEntities: []string{e.Name},
			})
		}
	}

	if len(affected) == 0 {
		return nil
	}
	return []datatypes.CascadeAnalysis{{
		Trigger:           datatypes.TriggerDocumentDeleted,
		SourceDocument:    doc.Path,
		AffectedDocuments: affected,
		Summary:           fmt.Sprintf("document %s deleted", doc.Path),
	}}
}

// affectedBy builds the affected-document list for one changed entity.
func (a *Analyzer) affectedBy(ctx context.Context, entityName, excludePath, reason string, action datatypes.SuggestedAction) []datatypes.AffectedDocument {
	paths := a.lookup(ctx, entityName, excludePath)
	affected := make([]datatypes.AffectedDocument, 0, len(paths))
	for _, p := range paths {
		affected = append(affected, datatypes.AffectedDocument{
			Path:             p,
			Reason:           reason,
			SuggestedAction:  action,
			Confidence:       datatypes.ConfidenceHigh,
			AffectedEntities: []string{entityName},
		})
	}
	return affected
}

// lookup queries the graph, degrading to empty on failure.
func (a *Analyzer) lookup(ctx context.Context, entityName, excludePath string) []string {
	paths, err := a.graph.DocumentsReferencingEntity(ctx, entityName, excludePath)
	if err != nil {
		a.logger.Warn("cascade graph lookup failed",
			"entity", entityName, "error", err)
		return nil
	}
	return paths
}

// diffEntities classifies the entity-level changes between two versions.
func diffEntities(oldEntities, newEntities []datatypes.Entity) entityDiff {
	oldTypes := typesByName(oldEntities)
	newTypes := typesByName(newEntities)

	var diff entityDiff

	// Type changes: same name, different type set membership.
	for _, e := range oldEntities {
		if newType, ok := newTypes[e.Name]; ok && newType != e.Type {
			diff.typeChanged = append(diff.typeChanged, e.Name)
		}
	}
	typeChanged := make(map[string]struct{}, len(diff.typeChanged))
	for _, n := range diff.typeChanged {
		typeChanged[n] = struct{}{}
	}

	// Removed/added per type, in input order, excluding names that
	// survive as type changes.
	removedByType := make(map[datatypes.EntityType][]string)
	var removedOrder []datatypes.EntityType
	for _, e := range oldEntities {
		if _, survives := newTypes[e.Name]; survives {
			continue
		}
		if _, ok := removedByType[e.Type]; !ok {
			removedOrder = append(removedOrder, e.Type)
		}
		removedByType[e.Type] = append(removedByType[e.Type], e.Name)
	}

	addedByType := make(map[datatypes.EntityType][]string)
	for _, e := range newEntities {
		if _, existed := oldTypes[e.Name]; existed {
			continue
		}
		addedByType[e.Type] = append(addedByType[e.Type], e.Name)
	}

	// Positional pairing within each type; unpaired removals are
	// deletions.
	for _, et := range removedOrder {
		removed := removedByType[et]
		added := addedByType[et]
		n := len(removed)
		if len(added) < n {
			n = len(added)
		}
		for i := 0; i < n; i++ {
			diff.renames = append(diff.renames, [2]string{removed[i], added[i]})
		}
		diff.deleted = append(diff.deleted, removed[n:]...)
	}

	return diff
}

// typesByName maps entity name to its declared type. Later duplicates
// keep the first type, matching collector semantics.
func typesByName(entities []datatypes.Entity) map[string]datatypes.EntityType {
	m := make(map[string]datatypes.EntityType, len(entities))
	for _, e := range entities {
		if _, ok := m[e.Name]; !ok {
			m[e.Name] = e.Type
		}
	}
	return m
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
