// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExcludes are directory names skipped during discovery.
var DefaultExcludes = []string{".git", ".obsidian", "node_modules", ".trash"}

// SourceOption is a functional option for configuring a Source.
type SourceOption func(*Source)

// Source discovers and parses markdown documents under a root directory.
//
// Thread Safety: Source is safe for concurrent use.
type Source struct {
	root     string
	excludes []string
}

// NewSource creates a Source rooted at the given directory.
//
// Inputs:
//
//	root - Path to the documents directory. Resolved to an absolute
//	       path on first Discover call.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Source - Ready-to-use source.
func NewSource(root string, opts ...SourceOption) *Source {
	s := &Source{
		root:     root,
		excludes: DefaultExcludes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithExcludes replaces the excluded directory names.
func WithExcludes(names ...string) SourceOption {
	return func(s *Source) {
		s.excludes = names
	}
}

// Root returns the configured root directory.
func (s *Source) Root() string {
	return s.root
}

// Discover walks the root and returns the sorted absolute paths of every
// markdown file found.
//
// Behavior:
//
//   - Directories whose name starts with "." or matches an exclude are
//     skipped entirely.
//   - Only files with a .md or .markdown extension (case-insensitive)
//     are returned.
//   - Symlinked directories are not followed.
//
// Outputs:
//
//	[]string - Sorted absolute document paths.
//	error - Non-nil if the root is invalid or the walk fails.
func (s *Source) Discover() ([]string, error) {
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrInvalidRoot)
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || s.excluded(name) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".md" || ext == ".markdown" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// excluded reports whether a directory name matches the exclude list.
func (s *Source) excluded(name string) bool {
	for _, ex := range s.excludes {
		if name == ex {
			return true
		}
	}
	return false
}

// HashBytes returns the lowercase hex SHA-256 digest of data. This is
// the content-hash function used for both document bytes and embedding
// source text.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString returns the lowercase hex SHA-256 digest of s.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashFile returns the content hash of a file's raw bytes. Change
// classification needs the hash before deciding whether a document is
// worth parsing.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return HashBytes(data), nil
}
