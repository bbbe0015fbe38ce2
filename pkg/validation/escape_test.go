// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"
)

func TestEscapeCypherLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string", "FalkorDB", "FalkorDB"},
		{"single quote", "O'Reilly", `O\'Reilly`},
		{"double quote", `say "hi"`, `say \"hi\"`},
		{"backslash", `C:\notes`, `C:\\notes`},
		{"backslash before quote", `\'`, `\\\'`},
		{"newline", "line1\nline2", `line1\nline2`},
		{"tab and cr", "a\tb\rc", `a\tb\rc`},
		{"nul byte dropped", "a\x00b", "ab"},
		{"injection attempt", `'}) DETACH DELETE n //`, `\'}) DETACH DELETE n //`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeCypherLiteral(tt.input); got != tt.want {
				t.Errorf("EscapeCypherLiteral(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuoteCypherString(t *testing.T) {
	got := QuoteCypherString("it's")
	want := `'it\'s'`
	if got != want {
		t.Errorf("QuoteCypherString = %s, want %s", got, want)
	}

	// The quoted result must never contain an unescaped single quote
	// between the delimiters.
	inner := got[1 : len(got)-1]
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\'' && (i == 0 || inner[i-1] != '\\') {
			t.Errorf("unescaped quote at %d in %s", i, got)
		}
	}
}

func TestValidateLabel(t *testing.T) {
	valid := []string{"Topic", "Technology", "APPEARS_IN", "x", "Rel_2"}
	for _, l := range valid {
		if err := ValidateLabel(l); err != nil {
			t.Errorf("ValidateLabel(%q) = %v, want nil", l, err)
		}
	}

	invalid := []string{"", "1abc", "has space", "has-dash", "n;DROP", strings.Repeat("a", 65)}
	for _, l := range invalid {
		if err := ValidateLabel(l); err == nil {
			t.Errorf("ValidateLabel(%q) = nil, want error", l)
		}
	}
}

func TestValidateLabels(t *testing.T) {
	if err := ValidateLabels("Topic", "Tool"); err != nil {
		t.Errorf("all valid: %v", err)
	}

	err := ValidateLabels("Topic", "bad label", "also;bad")
	if err == nil {
		t.Fatal("want error for invalid labels")
	}
	if !strings.Contains(err.Error(), "bad label") {
		t.Errorf("error should name the offending label: %v", err)
	}
}
