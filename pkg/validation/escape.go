// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation and escaping for
// security-critical operations.
//
// This package contains the single audited escaping function for string
// values embedded into generated graph queries, plus validators for
// identifiers used in query structure (labels, relation names). Backends
// that support parameterized queries should prefer them; for the Cypher
// backend, which interpolates literals, every user-controlled string MUST
// pass through QuoteCypherString. Ad hoc string concatenation of
// user-controlled values elsewhere is a query-injection defect.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// labelPattern matches valid node labels and relation identifiers.
// These become part of query STRUCTURE (not literals), so they are
// restricted to a safe identifier alphabet rather than escaped.
var labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// cypherReplacer escapes the characters that terminate or alter a quoted
// Cypher string literal. Backslash must be listed first so escapes are not
// double-processed.
var cypherReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\x00", ``,
)

// EscapeCypherLiteral escapes a string for embedding inside a single-quoted
// Cypher string literal.
//
// This is a correctness requirement, not an optimization: unescaped values
// let a document title like `'}) DETACH DELETE n //` rewrite the query.
//
// Example:
//
//	query := fmt.Sprintf("MERGE (n:Topic {name: '%s'})",
//	    validation.EscapeCypherLiteral(name))
func EscapeCypherLiteral(s string) string {
	return cypherReplacer.Replace(s)
}

// QuoteCypherString escapes and single-quotes a string for use as a Cypher
// literal. Prefer this over calling EscapeCypherLiteral and quoting by hand,
// so the quoting style stays uniform and auditable.
func QuoteCypherString(s string) string {
	return "'" + EscapeCypherLiteral(s) + "'"
}

// ValidateLabel validates a node label or relationship type identifier.
//
// Valid identifiers:
//   - 1-64 characters
//   - Start with a letter
//   - Letters, digits, underscores only
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateLabel(nodeType); err != nil {
//	    return fmt.Errorf("invalid node type: %w", err)
//	}
//	// Safe to use as a Cypher label or SQL-stored type
func ValidateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("label cannot be empty")
	}
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("invalid label format: %q (must be 1-64 chars, letter first, alphanumeric or underscore)", label)
	}
	return nil
}

// ValidateLabels validates multiple identifiers.
// Returns an error listing all invalid labels if any fail validation.
func ValidateLabels(labels ...string) error {
	var invalid []string
	for _, l := range labels {
		if err := ValidateLabel(l); err != nil {
			invalid = append(invalid, l)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid labels: %v", invalid)
	}
	return nil
}
