// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine orchestrates one sync pass: change detection, parsing
// and extraction, entity collection, graph writes, cascade analysis, and
// hash persistence.
//
// A pass is a single logical writer. Phases run strictly in order and
// documents are processed in discovery order; the only concurrency is
// inside the collaborators (connection pools, HTTP clients). Per-document
// failures are isolated into the result's error list, so one bad file
// never aborts a batch. A document's hash-index entry is written only
// after its graph writes succeed, which keeps crashed passes safely
// re-runnable.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/NoteGraph/pkg/logging"
	"github.com/AleutianAI/NoteGraph/services/sync/cascade"
	"github.com/AleutianAI/NoteGraph/services/sync/changes"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/document"
	"github.com/AleutianAI/NoteGraph/services/sync/embed"
	"github.com/AleutianAI/NoteGraph/services/sync/entity"
	"github.com/AleutianAI/NoteGraph/services/sync/extract"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

// DefaultCheckpointEvery is how many processed changes pass between
// periodic store checkpoints.
const DefaultCheckpointEvery = 25

// Config wires the engine's collaborators. Source, Detector, and Graph
// are required; Extractor and Embedder are optional and gate the
// corresponding Options flags.
type Config struct {
	Source   *document.Source
	Detector *changes.Detector
	Graph    graphstore.Client

	// Extractor runs AI entity extraction on parsed documents. Nil
	// disables extraction regardless of Options.AIExtraction.
	Extractor extract.Extractor

	// Embedder generates node embeddings. Nil disables embeddings
	// regardless of Options.Embeddings.
	Embedder embed.Embedder

	Logger *logging.Logger

	// CheckpointEvery is the periodic checkpoint batch size.
	CheckpointEvery int
}

// Options selects the behavior of one sync pass.
type Options struct {
	// Force re-processes every target document regardless of stored
	// hashes.
	Force bool

	// DryRun classifies and analyzes but issues no store writes and
	// persists no hashes.
	DryRun bool

	// Paths restricts the pass to the given document paths. Empty means
	// every document under the source root.
	Paths []string

	// SkipCascade disables cascade impact analysis.
	SkipCascade bool

	// Embeddings enables embedding generation for entity and document
	// nodes.
	Embeddings bool

	// AIExtraction enables LLM entity extraction for changed documents.
	AIExtraction bool
}

// Engine runs sync passes.
//
// Thread Safety: one Engine must not run two passes concurrently; the
// hash index and the entity map are owned by the running pass.
type Engine struct {
	source   *document.Source
	detector *changes.Detector
	graph    graphstore.Client
	extract  extract.Extractor
	embedder embed.Embedder
	analyzer *cascade.Analyzer
	logger   *logging.Logger

	checkpointEvery int
}

// New builds an Engine from its collaborators.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: document source", ErrMissingCollaborator)
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("%w: change detector", ErrMissingCollaborator)
	}
	if cfg.Graph == nil {
		return nil, fmt.Errorf("%w: graph client", ErrMissingCollaborator)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = DefaultCheckpointEvery
	}

	return &Engine{
		source:          cfg.Source,
		detector:        cfg.Detector,
		graph:           cfg.Graph,
		extract:         cfg.Extractor,
		embedder:        cfg.Embedder,
		analyzer:        cascade.New(cfg.Graph, cascade.WithLogger(cfg.Logger)),
		logger:          cfg.Logger,
		checkpointEvery: cfg.CheckpointEvery,
	}, nil
}

// workItem is one changed document moving through the pass.
type workItem struct {
	path   string
	change datatypes.ChangeType
	doc    *datatypes.ParsedDocument
}

// Sync runs one full pass and returns its summary.
//
// Description:
//
//	Phases: load the hash index; classify every on-disk document and
//	derive deletions; parse (and optionally extract) changed documents
//	with per-document error isolation; collect unique entities; upsert
//	entities with optional embeddings; process each change's graph
//	writes and cascade analysis in discovery order; persist each
//	document's hash entry after its writes succeed.
//
// Outputs:
//
//	*datatypes.SyncResult - Pass summary. Non-nil whenever error is
//	        nil; per-document failures live in its Errors list.
//	error - Non-nil only for pass-level failures: index load failure,
//	        relationship validation failure, or context cancellation.
func (e *Engine) Sync(ctx context.Context, opts Options) (*datatypes.SyncResult, error) {
	start := time.Now()
	log := e.logger.With("pass", uuid.NewString()[:8])
	result := &datatypes.SyncResult{}

	// Phase 1: index.
	if err := e.detector.LoadIndex(ctx); err != nil {
		return nil, err
	}

	onDisk, err := e.discover(opts)
	if err != nil {
		return nil, err
	}

	// Deletions come from the pre-force tracked set; a forced resync
	// must not hide documents that vanished from disk.
	deletions, err := e.deletions(onDisk, opts)
	if err != nil {
		return nil, err
	}

	if opts.Force && !opts.DryRun {
		if err := e.detector.ForceResync(ctx, opts.Paths); err != nil {
			return nil, fmt.Errorf("force resync: %w", err)
		}
	}

	// Phase 2: classification.
	items := e.classify(onDisk, opts, result)
	for _, path := range deletions {
		result.RecordChange(datatypes.DocumentChange{
			Path:   path,
			Type:   datatypes.ChangeDeleted,
			Reason: "tracked path missing from disk",
		})
	}
	log.Info("classified documents",
		"new", result.Added, "updated", result.Updated,
		"deleted", len(deletions), "unchanged", result.Unchanged)

	// Phase 3: parse + extract.
	parsed := e.parse(ctx, items, opts, result)

	docs := make([]*datatypes.ParsedDocument, 0, len(parsed))
	for _, it := range parsed {
		docs = append(docs, it.doc)
	}

	// Declared relationships are the only edge source when extraction
	// is off, so dangling endpoints are a correctness gate there.
	if !e.extractionEnabled(opts) {
		if err := document.ValidateRelationships(docs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	// Phase 4: entity collection.
	collected := entity.Collect(docs)
	log.Info("collected entities", "unique", collected.Len())

	// Phase 5: entity upserts.
	if !opts.DryRun {
		e.upsertEntities(ctx, collected, opts, result)
		e.checkpoint(ctx, log)
	}

	// Phase 6 + 7: per-change writes, cascade, hash persistence.
	processed := 0
	for _, it := range parsed {
		e.processDocument(ctx, it, collected, opts, result, log)
		processed++
		if !opts.DryRun && processed%e.checkpointEvery == 0 {
			e.checkpoint(ctx, log)
		}
	}
	for _, path := range deletions {
		e.processDeletion(ctx, path, opts, result, log)
		processed++
		if !opts.DryRun && processed%e.checkpointEvery == 0 {
			e.checkpoint(ctx, log)
		}
	}

	if !opts.DryRun {
		e.checkpoint(ctx, log)
	}

	result.Duration = time.Since(start)
	log.Info("sync pass complete",
		"added", result.Added, "updated", result.Updated,
		"deleted", result.Deleted, "unchanged", result.Unchanged,
		"errors", len(result.Errors), "duration", result.Duration)
	return result, nil
}

// discover lists the pass's on-disk targets.
func (e *Engine) discover(opts Options) ([]string, error) {
	onDisk, err := e.source.Discover()
	if err != nil {
		return nil, err
	}
	if len(opts.Paths) == 0 {
		return onDisk, nil
	}

	want := make(map[string]struct{}, len(opts.Paths))
	for _, p := range opts.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		want[abs] = struct{}{}
	}

	filtered := onDisk[:0]
	for _, p := range onDisk {
		if _, ok := want[p]; ok {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// deletions derives tracked-but-missing paths, restricted to the target
// set when one was given.
func (e *Engine) deletions(onDisk []string, opts Options) ([]string, error) {
	all, err := e.detector.Deletions(onDisk)
	if err != nil {
		return nil, err
	}
	if len(opts.Paths) == 0 {
		return all, nil
	}

	want := make(map[string]struct{}, len(opts.Paths))
	for _, p := range opts.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		want[abs] = struct{}{}
	}

	filtered := all[:0]
	for _, p := range all {
		if _, ok := want[p]; ok {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// classify hashes and classifies every on-disk target.
func (e *Engine) classify(onDisk []string, opts Options, result *datatypes.SyncResult) []workItem {
	var items []workItem
	for _, path := range onDisk {
		hash, err := document.HashFile(path)
		if err != nil {
			result.RecordError(path, err)
			continue
		}

		change, err := e.detector.Classify(path, hash)
		if err != nil {
			result.RecordError(path, err)
			continue
		}
		if opts.Force && opts.DryRun && change == datatypes.ChangeUnchanged {
			// Dry-run must not clear index entries, so force is
			// simulated at classification time.
			change = datatypes.ChangeUpdated
		}

		result.RecordChange(datatypes.DocumentChange{
			Path:   path,
			Type:   change,
			Reason: changeReason(change),
		})
		if change == datatypes.ChangeNew || change == datatypes.ChangeUpdated {
			items = append(items, workItem{path: path, change: change})
		}
	}
	return items
}

func changeReason(change datatypes.ChangeType) string {
	switch change {
	case datatypes.ChangeNew:
		return "not tracked in index"
	case datatypes.ChangeUpdated:
		return "content hash changed"
	case datatypes.ChangeUnchanged:
		return "content hash matches"
	default:
		return ""
	}
}

// parse loads changed documents, running extraction when enabled. Items
// that fail drop out of the pass with their error recorded.
func (e *Engine) parse(ctx context.Context, items []workItem, opts Options, result *datatypes.SyncResult) []workItem {
	parsed := make([]workItem, 0, len(items))
	for _, it := range items {
		doc, err := e.source.Parse(it.path)
		if err != nil {
			result.RecordError(it.path, err)
			continue
		}

		if e.extractionEnabled(opts) {
			res := e.extract.Extract(ctx, doc)
			if !res.Success {
				result.RecordError(it.path, fmt.Errorf("extraction failed: %s", res.Error))
				continue
			}
			mergeExtraction(doc, res)
		}

		it.doc = doc
		parsed = append(parsed, it)
	}
	return parsed
}

func (e *Engine) extractionEnabled(opts Options) bool {
	return opts.AIExtraction && e.extract != nil
}

func (e *Engine) embeddingsEnabled(opts Options) bool {
	return opts.Embeddings && e.embedder != nil
}

// mergeExtraction folds an extraction result into the parsed document:
// extracted entities the frontmatter didn't declare are appended,
// relationships are appended with "this" resolved, and the summary fills
// in when frontmatter left it empty.
func mergeExtraction(doc *datatypes.ParsedDocument, res extract.ExtractionResult) {
	declared := make(map[string]struct{}, len(doc.Entities))
	for _, en := range doc.Entities {
		declared[en.Key()] = struct{}{}
	}
	for _, en := range res.Entities {
		if _, ok := declared[en.Key()]; ok {
			continue
		}
		declared[en.Key()] = struct{}{}
		doc.Entities = append(doc.Entities, en)
	}

	for _, rel := range res.Relationships {
		if rel.Source == datatypes.SourcePlaceholder {
			rel.Source = doc.Path
		}
		if rel.Target == datatypes.SourcePlaceholder {
			rel.Target = doc.Path
		}
		doc.Relationships = append(doc.Relationships, rel)
	}

	if doc.Summary == "" {
		doc.Summary = res.Summary
	}
}

// upsertEntities writes every unique entity node, with embeddings when
// enabled.
func (e *Engine) upsertEntities(ctx context.Context, collected *entity.CollectResult, opts Options, result *datatypes.SyncResult) {
	for _, u := range collected.Ordered() {
		props := datatypes.Properties{
			"name":           datatypes.String(u.Name),
			"document_paths": datatypes.StringList(u.DocumentPaths),
		}
		if u.Description != "" {
			props["description"] = datatypes.String(u.Description)
		}

		if err := e.graph.UpsertNode(ctx, string(u.Type), props); err != nil {
			result.RecordError(u.DocumentPaths[0], fmt.Errorf("upsert entity %s: %w", u.Key(), err))
			continue
		}

		if !e.embeddingsEnabled(opts) {
			continue
		}
		vec, err := e.embedder.Embed(ctx, entityEmbedText(u))
		if err != nil {
			result.RecordError(u.DocumentPaths[0], fmt.Errorf("embed entity %s: %w", u.Key(), err))
			continue
		}
		if err := e.graph.UpdateNodeEmbedding(ctx, string(u.Type), u.Name, vec); err != nil {
			result.RecordError(u.DocumentPaths[0], fmt.Errorf("store entity embedding %s: %w", u.Key(), err))
			continue
		}
		result.EntityEmbeddingsGenerated++
	}
}

// entityEmbedText is the text an entity's embedding derives from.
func entityEmbedText(u datatypes.UniqueEntity) string {
	if u.Description == "" {
		return fmt.Sprintf("%s (%s)", u.Name, u.Type)
	}
	return fmt.Sprintf("%s (%s): %s", u.Name, u.Type, u.Description)
}

// processDocument runs phase 6 and 7 for one new or updated document.
func (e *Engine) processDocument(ctx context.Context, it workItem, collected *entity.CollectResult, opts Options, result *datatypes.SyncResult, log *logging.Logger) {
	doc := it.doc

	// The graph-side entity list must be read before this document's
	// edges are rewritten; it is the "old version" cascade diffs
	// against.
	var oldEntities []datatypes.Entity
	if it.change == datatypes.ChangeUpdated && !opts.SkipCascade {
		var err error
		oldEntities, err = e.graph.EntitiesInDocument(ctx, doc.Path)
		if err != nil {
			log.Warn("could not load previous entities, skipping cascade",
				"path", doc.Path, "error", err)
			oldEntities = nil
		}
	}

	embedSourceHash := ""
	if !opts.DryRun {
		var err error
		embedSourceHash, err = e.writeDocument(ctx, doc, collected, opts, result)
		if err != nil {
			result.RecordError(doc.Path, err)
			return
		}
	}

	if it.change == datatypes.ChangeUpdated && !opts.SkipCascade && len(oldEntities) > 0 {
		oldDoc := &datatypes.ParsedDocument{Path: doc.Path, Entities: oldEntities}
		analyses := e.analyzer.Analyze(ctx, oldDoc, doc)
		result.CascadeWarnings = append(result.CascadeWarnings, analyses...)
	}

	if opts.DryRun {
		return
	}
	err := e.detector.Record(ctx, doc.Path, datatypes.DocumentHashes{
		ContentHash:         doc.ContentHash,
		EmbeddingSourceHash: embedSourceHash,
		SyncedAt:            time.Now().UTC(),
		EntityCount:         len(doc.Entities),
		RelationshipCount:   len(doc.Relationships),
	})
	if err != nil {
		result.RecordError(doc.Path, fmt.Errorf("persist hash entry: %w", err))
	}
}

// writeDocument issues one document's graph writes: stale-edge clearing,
// the Document node with optional embedding, APPEARS_IN edges, and
// declared relationships. Returns the embedding source hash persisted
// into the document's index entry.
func (e *Engine) writeDocument(ctx context.Context, doc *datatypes.ParsedDocument, collected *entity.CollectResult, opts Options, result *datatypes.SyncResult) (string, error) {
	if err := e.graph.DeleteDocumentRelationships(ctx, doc.Path); err != nil {
		return "", fmt.Errorf("clear stale relationships: %w", err)
	}

	props := datatypes.Properties{
		"name":         datatypes.String(doc.Path),
		"title":        datatypes.String(doc.Title),
		"content_hash": datatypes.String(doc.ContentHash),
	}
	if doc.Summary != "" {
		props["summary"] = datatypes.String(doc.Summary)
	}
	if len(doc.Tags) > 0 {
		props["tags"] = datatypes.StringList(doc.Tags)
	}
	if doc.Status != "" {
		props["status"] = datatypes.String(doc.Status)
	}
	if err := e.graph.UpsertNode(ctx, string(datatypes.EntityDocument), props); err != nil {
		return "", fmt.Errorf("upsert document node: %w", err)
	}

	embedSourceHash := ""
	if e.embeddingsEnabled(opts) {
		hash, err := e.embedDocument(ctx, doc, result)
		if err != nil {
			// A document node without its expected embedding would
			// silently break search, so this fails the document.
			return "", err
		}
		embedSourceHash = hash
	}

	edgeProps := datatypes.Properties{
		graphstore.PropSourceDocument: datatypes.String(doc.Path),
	}
	for _, en := range doc.Entities {
		err := e.graph.UpsertRelationship(ctx,
			string(en.Type), en.Name,
			string(datatypes.RelAppearsIn),
			string(datatypes.EntityDocument), doc.Path,
			edgeProps)
		if err != nil {
			return "", fmt.Errorf("link entity %s: %w", en.Key(), err)
		}
	}

	for _, rel := range doc.Relationships {
		srcType, srcName := e.resolveEndpoint(doc, collected, rel.Source)
		dstType, dstName := e.resolveEndpoint(doc, collected, rel.Target)
		err := e.graph.UpsertRelationship(ctx,
			srcType, srcName, string(rel.Relation), dstType, dstName,
			edgeProps)
		if err != nil {
			return "", fmt.Errorf("create relationship %s-%s->%s: %w",
				rel.Source, rel.Relation, rel.Target, err)
		}
	}

	return embedSourceHash, nil
}

// embedDocument generates the document node's embedding, skipping the
// provider call when the embedding source text is unchanged since the
// last sync.
func (e *Engine) embedDocument(ctx context.Context, doc *datatypes.ParsedDocument, result *datatypes.SyncResult) (string, error) {
	text := doc.Title + "\n\n" + doc.Body
	hash := document.HashString(text)

	if prev, ok := e.detector.Tracked(doc.Path); ok && prev.EmbeddingSourceHash == hash {
		return hash, nil
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed document: %w", err)
	}
	if err := e.graph.UpdateNodeEmbedding(ctx, string(datatypes.EntityDocument), doc.Path, vec); err != nil {
		return "", fmt.Errorf("store document embedding: %w", err)
	}
	result.EmbeddingsGenerated++
	return hash, nil
}

// resolveEndpoint maps a relationship endpoint name to its node type.
// The document's own path is a Document node; otherwise the declared or
// collected entity's type wins; unknown names fall back to Concept so a
// declared edge is never silently dropped.
func (e *Engine) resolveEndpoint(doc *datatypes.ParsedDocument, collected *entity.CollectResult, name string) (string, string) {
	if name == doc.Path {
		return string(datatypes.EntityDocument), name
	}
	if en, ok := doc.EntityByName(name); ok {
		return string(en.Type), name
	}
	for _, et := range datatypes.EntityTypes {
		if _, ok := collected.Get(et, name); ok {
			return string(et), name
		}
	}
	return string(datatypes.EntityConcept), name
}

// processDeletion removes a vanished document from the graph and the
// index, surfacing the cascade impact first.
func (e *Engine) processDeletion(ctx context.Context, path string, opts Options, result *datatypes.SyncResult, log *logging.Logger) {
	if !opts.SkipCascade {
		entities, err := e.graph.EntitiesInDocument(ctx, path)
		if err != nil {
			log.Warn("could not load entities of deleted document",
				"path", path, "error", err)
		} else if len(entities) > 0 {
			oldDoc := &datatypes.ParsedDocument{Path: path, Entities: entities}
			analyses := e.analyzer.AnalyzeDeletion(ctx, oldDoc)
			result.CascadeWarnings = append(result.CascadeWarnings, analyses...)
		}
	}

	if opts.DryRun {
		return
	}

	if err := e.graph.DeleteDocumentRelationships(ctx, path); err != nil {
		result.RecordError(path, fmt.Errorf("delete relationships: %w", err))
		return
	}
	if err := e.graph.DeleteNode(ctx, string(datatypes.EntityDocument), path); err != nil {
		result.RecordError(path, fmt.Errorf("delete document node: %w", err))
		return
	}
	if err := e.detector.Forget(ctx, path); err != nil {
		result.RecordError(path, fmt.Errorf("remove hash entry: %w", err))
	}
}

// checkpoint asks the store to persist. Failure is a warning: the data
// is still durable under the store's own transaction semantics.
func (e *Engine) checkpoint(ctx context.Context, log *logging.Logger) {
	if err := e.graph.Checkpoint(ctx); err != nil {
		log.Warn("store checkpoint failed", "error", err)
	}
}
