// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("defaults fill unset fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notegraph.yaml")
		require.NoError(t, os.WriteFile(path, []byte("vault:\n  root: /tmp/notes\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/notes", cfg.Vault.Root)
		assert.Equal(t, "sqlite", cfg.Store.Backend)
		assert.Equal(t, "json", cfg.Index.Backend)
		assert.Equal(t, 2*time.Second, cfg.Watch.Debounce.Std())
	})

	t.Run("overrides apply", func(t *testing.T) {
		raw := `
vault:
  root: /tmp/notes
store:
  backend: falkor
  falkor:
    addr: graph.internal:6379
    graph_name: myvault
index:
  backend: badger
  path: /tmp/index
embeddings:
  enabled: true
  provider: local
  dimensions: 768
watch:
  debounce: 500ms
`
		path := filepath.Join(t.TempDir(), "notegraph.yaml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "falkor", cfg.Store.Backend)
		assert.Equal(t, "graph.internal:6379", cfg.Store.Falkor.Addr)
		assert.Equal(t, "myvault", cfg.Store.Falkor.GraphName)
		assert.Equal(t, "badger", cfg.Index.Backend)
		assert.True(t, cfg.Embeddings.Enabled)
		assert.Equal(t, 768, cfg.Embeddings.Dimensions)
		assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce.Std())
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		raw := "vault:\n  root: /tmp/notes\nstore:\n  backend: mongo\n"
		path := filepath.Join(t.TempDir(), "notegraph.yaml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing vault root rejected", func(t *testing.T) {
		raw := "store:\n  backend: sqlite\nvault:\n  root: \"\"\n"
		path := filepath.Join(t.TempDir(), "notegraph.yaml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestWriteDefault(t *testing.T) {
	t.Run("writes and round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "notegraph.yaml")

		written, err := WriteDefault(path)
		require.NoError(t, err)
		assert.Equal(t, path, written)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Store.Backend)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notegraph.yaml")
		_, err := WriteDefault(path)
		require.NoError(t, err)

		_, err = WriteDefault(path)
		assert.Error(t, err)
	})
}

func TestAPIKey(t *testing.T) {
	t.Setenv("NOTEGRAPH_TEST_KEY", "sk-test")

	ai := AIConfig{APIKeyEnv: "NOTEGRAPH_TEST_KEY"}
	assert.Equal(t, "sk-test", ai.APIKey())

	ai.APIKeyEnv = ""
	assert.Equal(t, "", ai.APIKey())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), ExpandPath("~/x"))
	assert.Equal(t, "/abs/x", ExpandPath("/abs/x"))
	assert.Equal(t, "", ExpandPath(""))
}

func TestErrNotFoundIsSentinel(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
