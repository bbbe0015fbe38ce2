// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/AleutianAI/NoteGraph/cmd/notegraph/config"
	"github.com/AleutianAI/NoteGraph/pkg/logging"
	"github.com/AleutianAI/NoteGraph/services/sync/changes"
	"github.com/AleutianAI/NoteGraph/services/sync/document"
	"github.com/AleutianAI/NoteGraph/services/sync/embed"
	"github.com/AleutianAI/NoteGraph/services/sync/engine"
	"github.com/AleutianAI/NoteGraph/services/sync/extract"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore/falkor"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore/relstore"
)

// app bundles everything a command needs at runtime.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	graph    graphstore.Client
	embedder embed.Embedder
	engine   *engine.Engine
}

// close releases the app's resources in reverse construction order.
func (a *app) close() {
	if a.graph != nil {
		if err := a.graph.Close(); err != nil {
			a.logger.Warn("closing graph store", "error", err)
		}
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// buildApp loads the config and wires the engine's collaborators.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)
	a := &app{cfg: cfg, logger: logger}

	graph, err := openGraph(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.graph = graph

	index, err := openIndex(cfg, graph, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	var opts []document.SourceOption
	if len(cfg.Vault.Excludes) > 0 {
		opts = append(opts, document.WithExcludes(cfg.Vault.Excludes...))
	}
	source := document.NewSource(cfg.Vault.Root, opts...)

	var extractor extract.Extractor
	if cfg.AI.Enabled {
		extractor = extract.NewOpenAIExtractor(extract.OpenAIConfig{
			APIKey:      cfg.AI.APIKey(),
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			MinInterval: cfg.AI.MinInterval.Std(),
		}, extract.WithLogger(logger))
	}

	if cfg.Embeddings.Enabled {
		a.embedder = newEmbedder(cfg)
	}

	eng, err := engine.New(engine.Config{
		Source:          source,
		Detector:        changes.NewDetector(index),
		Graph:           graph,
		Extractor:       extractor,
		Embedder:        a.embedder,
		Logger:          logger,
		CheckpointEvery: cfg.Store.CheckpointEvery,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.engine = eng
	return a, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "notegraph",
	})
}

func openGraph(ctx context.Context, cfg *config.Config, logger *logging.Logger) (graphstore.Client, error) {
	switch cfg.Store.Backend {
	case "falkor":
		client, err := falkor.New(ctx, falkor.Config{
			Addr:       cfg.Store.Falkor.Addr,
			Password:   cfg.Store.Falkor.Password,
			GraphName:  cfg.Store.Falkor.GraphName,
			Dimensions: cfg.Embeddings.Dimensions,
			Timeout:    cfg.Store.Falkor.Timeout.Std(),
		}, falkor.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if cfg.Embeddings.Enabled {
			if err := client.EnsureVectorIndexes(ctx); err != nil {
				client.Close()
				return nil, err
			}
		}
		return client, nil

	case "sqlite":
		return relstore.Open(relstore.Config{
			Path:       cfg.Store.SQLite.Path,
			Dimensions: cfg.Embeddings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openIndex(cfg *config.Config, graph graphstore.Client, logger *logging.Logger) (changes.Index, error) {
	switch cfg.Index.Backend {
	case "json":
		return changes.NewJSONIndex(cfg.Index.Path), nil
	case "badger":
		return changes.NewBadgerIndex(changes.BadgerConfig{
			Path:   cfg.Index.Path,
			Logger: logger.Slog(),
		})
	case "store":
		return changes.NewStoreIndex(graph), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func newEmbedder(cfg *config.Config) embed.Embedder {
	if cfg.Embeddings.Provider == "openai" {
		return embed.NewOpenAIClient(embed.OpenAIConfig{
			APIKey:     cfg.Embeddings.APIKey(),
			BaseURL:    cfg.Embeddings.BaseURL,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
		})
	}
	return embed.NewLocalClient(cfg.Embeddings.LocalURL, cfg.Embeddings.Dimensions)
}
