// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/engine"
)

var (
	syncForce       bool
	syncDryRun      bool
	syncSkipCascade bool
	syncNoEmbed     bool
	syncNoAI        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [paths...]",
	Short: "Sync changed documents into the knowledge graph",
	Long: `Runs one incremental sync pass: classifies every document against the
hash index, parses and optionally extracts changed ones, upserts
entities and relationships, and warns about documents made stale by
entity renames or deletions.

Examples:
  notegraph sync
  notegraph sync --dry-run
  notegraph sync --force notes/projects/graph.md
  notegraph sync --no-ai --no-embeddings`,
	RunE: runSync,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault and re-sync on changes",
	Long: `Runs an initial sync pass and then re-syncs whenever markdown files
change, coalescing editor write bursts into one pass. Stop with
Ctrl-C; a final store checkpoint is flushed before exit.`,
	RunE: runWatch,
}

func init() {
	for _, cmd := range []*cobra.Command{syncCmd, watchCmd} {
		cmd.Flags().BoolVar(&syncSkipCascade, "skip-cascade", false,
			"disable cascade impact analysis")
		cmd.Flags().BoolVar(&syncNoEmbed, "no-embeddings", false,
			"skip embedding generation even when configured")
		cmd.Flags().BoolVar(&syncNoAI, "no-ai", false,
			"skip AI entity extraction even when configured")
	}
	syncCmd.Flags().BoolVar(&syncForce, "force", false,
		"re-process every document regardless of stored hashes")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false,
		"classify and analyze without writing to the store")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
}

// syncOptions maps the flags and config onto engine options.
func syncOptions(a *app, paths []string) engine.Options {
	return engine.Options{
		Force:        syncForce,
		DryRun:       syncDryRun,
		Paths:        paths,
		SkipCascade:  syncSkipCascade,
		Embeddings:   a.cfg.Embeddings.Enabled && !syncNoEmbed,
		AIExtraction: a.cfg.AI.Enabled && !syncNoAI,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.engine.Sync(ctx, syncOptions(a, args))
	if err != nil {
		return err
	}

	printResult(cmd, result)
	if result.HasErrors() {
		return fmt.Errorf("%d document(s) failed", len(result.Errors))
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	opts := syncOptions(a, nil)
	opts.Force = false
	opts.DryRun = false
	return a.engine.Watch(ctx, opts, a.cfg.Watch.Debounce.Std())
}

// timeRounding keeps printed durations readable.
const timeRounding = time.Millisecond

// printResult writes the pass summary to the command's stdout.
func printResult(cmd *cobra.Command, result *datatypes.SyncResult) {
	cmd.Printf("Sync complete in %s: %d added, %d updated, %d deleted, %d unchanged\n",
		result.Duration.Round(timeRounding),
		result.Added, result.Updated, result.Deleted, result.Unchanged)

	if result.EmbeddingsGenerated > 0 || result.EntityEmbeddingsGenerated > 0 {
		cmd.Printf("Embeddings: %d documents, %d entities\n",
			result.EmbeddingsGenerated, result.EntityEmbeddingsGenerated)
	}

	for _, warning := range result.CascadeWarnings {
		cmd.Printf("\nCascade warning [%s]: %s\n", warning.Trigger, warning.Summary)
		for _, affected := range warning.AffectedDocuments {
			cmd.Printf("  %s - %s (%s, confidence %s)\n",
				affected.Path, affected.Reason, affected.SuggestedAction, affected.Confidence)
		}
	}

	for _, syncErr := range result.Errors {
		cmd.Printf("\nError: %s: %v\n", syncErr.Path, syncErr.Err)
	}
}
