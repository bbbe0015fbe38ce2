// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the notegraph YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultDir is the per-user configuration directory.
const DefaultDir = "~/.notegraph"

// DefaultFile is the configuration file name inside DefaultDir.
const DefaultFile = "notegraph.yaml"

// ErrNotFound means no configuration file exists at the resolved path.
var ErrNotFound = errors.New("config file not found")

// Duration is a time.Duration that marshals to and from the "2s" form
// in YAML.
type Duration time.Duration

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full notegraph configuration.
type Config struct {
	Vault      VaultConfig      `yaml:"vault" validate:"required"`
	Store      StoreConfig      `yaml:"store"`
	Index      IndexConfig      `yaml:"index"`
	AI         AIConfig         `yaml:"ai"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Logging    LoggingConfig    `yaml:"logging"`
	Watch      WatchConfig      `yaml:"watch"`
}

// VaultConfig locates the markdown corpus.
type VaultConfig struct {
	// Root is the directory holding the markdown documents.
	Root string `yaml:"root" validate:"required"`

	// Excludes are directory names skipped during discovery, replacing
	// the built-in defaults when non-empty.
	Excludes []string `yaml:"excludes"`
}

// StoreConfig selects and configures the graph backend.
type StoreConfig struct {
	// Backend is "falkor" or "sqlite".
	Backend string `yaml:"backend" validate:"oneof=falkor sqlite"`

	Falkor FalkorConfig `yaml:"falkor"`
	SQLite SQLiteConfig `yaml:"sqlite"`

	// CheckpointEvery is the periodic checkpoint batch size.
	CheckpointEvery int `yaml:"checkpoint_every" validate:"gte=0"`
}

// FalkorConfig holds FalkorDB connection settings.
type FalkorConfig struct {
	Addr      string   `yaml:"addr"`
	Password  string   `yaml:"password"`
	GraphName string   `yaml:"graph_name"`
	Timeout   Duration `yaml:"timeout"`
}

// SQLiteConfig holds the relational backend settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig selects the hash index backend.
type IndexConfig struct {
	// Backend is "json", "badger", or "store". The store backend keeps
	// hash records inside the graph store itself.
	Backend string `yaml:"backend" validate:"oneof=json badger store"`

	// Path is the JSON file or the Badger directory, ignored for the
	// store backend.
	Path string `yaml:"path"`
}

// AIConfig configures LLM entity extraction.
type AIConfig struct {
	Enabled bool `yaml:"enabled"`

	// APIKeyEnv names the environment variable holding the API key.
	// Keys never live in the config file.
	APIKeyEnv string `yaml:"api_key_env"`

	// BaseURL overrides the endpoint for OpenAI-compatible local
	// servers.
	BaseURL string `yaml:"base_url"`

	Model string `yaml:"model"`

	// MinInterval is the minimum gap between extraction calls.
	MinInterval Duration `yaml:"min_interval"`
}

// EmbeddingsConfig configures embedding generation.
type EmbeddingsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Provider is "openai" or "local".
	Provider string `yaml:"provider" validate:"omitempty,oneof=openai local"`

	// LocalURL is the base URL of the local embedding service.
	LocalURL string `yaml:"local_url"`

	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`

	// Dimensions is the vector length; must match the store's vector
	// index configuration.
	Dimensions int `yaml:"dimensions" validate:"gte=0"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables JSON file logging into the directory.
	Dir string `yaml:"dir"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the quiet window before a triggered re-sync.
	Debounce Duration `yaml:"debounce"`
}

// Default returns the configuration written by `notegraph init`.
func Default() *Config {
	return &Config{
		Vault: VaultConfig{Root: "~/notes"},
		Store: StoreConfig{
			Backend: "sqlite",
			Falkor: FalkorConfig{
				Addr:      "localhost:6379",
				GraphName: "notegraph",
				Timeout:   Duration(30 * time.Second),
			},
			SQLite:          SQLiteConfig{Path: filepath.Join(DefaultDir, "notegraph.db")},
			CheckpointEvery: 25,
		},
		Index: IndexConfig{
			Backend: "json",
			Path:    filepath.Join(DefaultDir, "index.json"),
		},
		AI: AIConfig{
			Enabled:     false,
			APIKeyEnv:   "OPENAI_API_KEY",
			MinInterval: Duration(2 * time.Second),
		},
		Embeddings: EmbeddingsConfig{
			Enabled:    false,
			Provider:   "local",
			LocalURL:   "http://localhost:8000",
			Dimensions: 384,
		},
		Logging: LoggingConfig{Level: "info"},
		Watch:   WatchConfig{Debounce: Duration(2 * time.Second)},
	}
}

// DefaultPath returns the expanded default config file location.
func DefaultPath() string {
	return ExpandPath(filepath.Join(DefaultDir, DefaultFile))
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}

// Load reads, validates, and normalizes the config at path. An empty
// path means the default location.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	raw, err := os.ReadFile(ExpandPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (run `notegraph init`)", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Vault.Root = ExpandPath(cfg.Vault.Root)
	cfg.Store.SQLite.Path = ExpandPath(cfg.Store.SQLite.Path)
	cfg.Index.Path = ExpandPath(cfg.Index.Path)
	cfg.Logging.Dir = ExpandPath(cfg.Logging.Dir)
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// APIKey resolves the extraction API key from the environment.
func (c *AIConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// APIKey resolves the embeddings API key from the environment.
func (c *EmbeddingsConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// WriteDefault writes the default config to path, refusing to overwrite
// an existing file. An empty path means the default location.
func WriteDefault(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	} else {
		path = ExpandPath(path)
	}

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
