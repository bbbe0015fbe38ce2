// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/NoteGraph/pkg/logging"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// rawResponse is the JSON shape the extraction prompt asks for.
type rawResponse struct {
	Entities []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"entities"`
	Relationships []struct {
		Source   string `json:"source"`
		Relation string `json:"relation"`
		Target   string `json:"target"`
	} `json:"relationships"`
	Summary string `json:"summary"`
}

// parseResponse decodes a model reply into an extraction result.
//
// Behavior:
//
//   - A fenced code block around the JSON is tolerated and stripped.
//   - Entities with an unknown type or empty name are dropped with a
//     warning, not failed: one hallucinated type must not cost the
//     document its valid entities.
//   - Relation labels are normalized onto the closed set; relationship
//     endpoints are kept verbatim, including the "this" placeholder.
func parseResponse(content string, logger *logging.Logger) (ExtractionResult, error) {
	payload := stripFences(content)
	if payload == "" {
		return ExtractionResult{}, fmt.Errorf("empty model response")
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return ExtractionResult{}, fmt.Errorf("decode model response: %w", err)
	}

	res := ExtractionResult{
		Success: true,
		Summary: strings.TrimSpace(raw.Summary),
	}

	for _, e := range raw.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		et, err := datatypes.ParseEntityType(e.Type)
		if err != nil {
			logger.Warn("dropping extracted entity with unknown type",
				"entity", name, "type", e.Type)
			continue
		}
		res.Entities = append(res.Entities, datatypes.Entity{
			Name:        name,
			Type:        et,
			Description: strings.TrimSpace(e.Description),
		})
	}

	for _, r := range raw.Relationships {
		src := strings.TrimSpace(r.Source)
		dst := strings.TrimSpace(r.Target)
		if src == "" || dst == "" {
			continue
		}
		res.Relationships = append(res.Relationships, datatypes.Relationship{
			Source:   src,
			Relation: datatypes.NormalizeRelation(r.Relation),
			Target:   dst,
		})
	}

	return res, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Language tag on the opening fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
