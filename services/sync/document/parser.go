// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// frontmatterDelimiter separates YAML frontmatter from the markdown body.
var frontmatterDelimiter = []byte("---")

// frontmatter is the YAML schema a document may declare.
type frontmatter struct {
	Title         string            `yaml:"title"`
	Summary       string            `yaml:"summary"`
	Tags          []string          `yaml:"tags"`
	Status        string            `yaml:"status"`
	Created       string            `yaml:"created"`
	Updated       string            `yaml:"updated"`
	Entities      []frontEntity     `yaml:"entities"`
	Relationships []frontRelation   `yaml:"relationships"`
}

type frontEntity struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

type frontRelation struct {
	Source   string `yaml:"source"`
	Relation string `yaml:"relation"`
	Target   string `yaml:"target"`
}

// dateLayouts are the accepted frontmatter date formats, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse reads and parses one markdown document.
//
// Description:
//
//	Computes the SHA-256 content hash over the raw bytes, extracts YAML
//	frontmatter when present, resolves the "this" relationship
//	placeholder to the document's own path, and falls back for the
//	title to the first H1 heading and then the filename.
//
// Inputs:
//
//	path - Document path. Resolved to an absolute path for the Path key.
//
// Outputs:
//
//	*datatypes.ParsedDocument - The parsed document. Nil on error.
//	error - Non-nil on I/O failure or malformed input (bad YAML,
//	        unknown entity type).
func (s *Source) Parse(path string) (*datatypes.ParsedDocument, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", absPath, err)
	}

	doc := &datatypes.ParsedDocument{
		Path:        absPath,
		ContentHash: HashBytes(raw),
	}

	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}

	if fm != nil {
		if err := applyFrontmatter(doc, fm); err != nil {
			return nil, fmt.Errorf("%s: %w", absPath, err)
		}
	}

	doc.Body = string(body)

	if doc.Title == "" {
		doc.Title = firstHeading(body)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	}

	resolvePlaceholders(doc)
	return doc, nil
}

// splitFrontmatter separates the YAML frontmatter block from the body.
// Returns a nil frontmatter when the document has none.
func splitFrontmatter(raw []byte) (*frontmatter, []byte, error) {
	trimmed := bytes.TrimPrefix(raw, []byte("\ufeff")) // strip BOM
	if !bytes.HasPrefix(trimmed, frontmatterDelimiter) {
		return nil, trimmed, nil
	}

	rest := trimmed[len(frontmatterDelimiter):]
	// The opening delimiter must be alone on its line.
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != '\n' {
		return nil, trimmed, nil
	}
	rest = rest[1:]

	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: unterminated frontmatter block", ErrMalformedFrontmatter)
	}

	block := rest[:end]
	body := rest[end+len("\n---"):]
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = nil
	}

	var fm frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
	}
	return &fm, body, nil
}

// applyFrontmatter copies parsed frontmatter onto the document, with
// strict entity-type validation. Frontmatter is user-authored, so an
// unknown type is a parse error rather than a silent drop.
func applyFrontmatter(doc *datatypes.ParsedDocument, fm *frontmatter) error {
	doc.Title = strings.TrimSpace(fm.Title)
	doc.Summary = strings.TrimSpace(fm.Summary)
	doc.Tags = fm.Tags
	doc.Status = strings.TrimSpace(fm.Status)

	if fm.Created != "" {
		t, err := parseDate(fm.Created)
		if err != nil {
			return fmt.Errorf("%w: created: %v", ErrMalformedFrontmatter, err)
		}
		doc.Created = &t
	}
	if fm.Updated != "" {
		t, err := parseDate(fm.Updated)
		if err != nil {
			return fmt.Errorf("%w: updated: %v", ErrMalformedFrontmatter, err)
		}
		doc.Updated = &t
	}

	for _, fe := range fm.Entities {
		name := strings.TrimSpace(fe.Name)
		if name == "" {
			return fmt.Errorf("%w: entity with empty name", ErrMalformedFrontmatter)
		}
		et, err := datatypes.ParseEntityType(fe.Type)
		if err != nil {
			return fmt.Errorf("%w: entity %q: %v", ErrUnknownEntityType, name, err)
		}
		doc.Entities = append(doc.Entities, datatypes.Entity{
			Name:        name,
			Type:        et,
			Description: strings.TrimSpace(fe.Description),
		})
	}

	for _, fr := range fm.Relationships {
		src := strings.TrimSpace(fr.Source)
		dst := strings.TrimSpace(fr.Target)
		if src == "" || dst == "" {
			return fmt.Errorf("%w: relationship with empty endpoint", ErrMalformedFrontmatter)
		}
		doc.Relationships = append(doc.Relationships, datatypes.Relationship{
			Source:   src,
			Relation: datatypes.NormalizeRelation(fr.Relation),
			Target:   dst,
		})
	}

	return nil
}

// parseDate tries the accepted frontmatter date layouts in order.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// firstHeading returns the text of the first H1 heading in the body.
func firstHeading(body []byte) string {
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// resolvePlaceholders rewrites the "this" endpoint to the document path.
func resolvePlaceholders(doc *datatypes.ParsedDocument) {
	for i := range doc.Relationships {
		if doc.Relationships[i].Source == datatypes.SourcePlaceholder {
			doc.Relationships[i].Source = doc.Path
		}
		if doc.Relationships[i].Target == datatypes.SourcePlaceholder {
			doc.Relationships[i].Target = doc.Path
		}
	}
}

// ValidateRelationships checks that every relationship endpoint in every
// document names a declared entity or a known document path.
//
// Description:
//
//	This is the correctness gate applied when documents carry
//	user-declared relationships (AI extraction disabled). A dangling
//	endpoint aborts the entire pass before any store mutation, because
//	writing it would corrupt cross-document invariants.
//
// Inputs:
//
//	docs - Every successfully parsed document in the pass.
//
// Outputs:
//
//	error - ErrDanglingRelationship (wrapped, naming the offender) if
//	        any endpoint is unknown; nil otherwise.
func ValidateRelationships(docs []*datatypes.ParsedDocument) error {
	entityNames := make(map[string]struct{})
	docPaths := make(map[string]struct{})
	for _, doc := range docs {
		docPaths[doc.Path] = struct{}{}
		for _, e := range doc.Entities {
			entityNames[e.Name] = struct{}{}
		}
	}

	known := func(endpoint string) bool {
		if _, ok := entityNames[endpoint]; ok {
			return true
		}
		_, ok := docPaths[endpoint]
		return ok
	}

	for _, doc := range docs {
		for _, rel := range doc.Relationships {
			if !known(rel.Source) {
				return fmt.Errorf("%w: %s: source %q", ErrDanglingRelationship, doc.Path, rel.Source)
			}
			if !known(rel.Target) {
				return fmt.Errorf("%w: %s: target %q", ErrDanglingRelationship, doc.Path, rel.Target)
			}
		}
	}
	return nil
}
