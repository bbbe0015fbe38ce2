// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

var (
	searchType string
	searchK    int
)

var searchCmd = &cobra.Command{
	Use:   "search TEXT...",
	Short: "Semantic search over the knowledge graph",
	Long: `Embeds the query text and returns the nearest nodes by cosine
similarity. Requires embeddings to be enabled and synced.

Examples:
  notegraph search graph databases
  notegraph search --type Technology -k 5 vector index`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "",
		"restrict results to one entity type (e.g. Technology)")
	searchCmd.Flags().IntVarP(&searchK, "top", "k", 10,
		"number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.embedder == nil {
		return fmt.Errorf("search requires embeddings.enabled in the config")
	}

	query := strings.Join(args, " ")
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	var hits []graphstore.SearchHit
	if searchType != "" {
		entityType, err := datatypes.ParseEntityType(searchType)
		if err != nil {
			return err
		}
		hits, err = a.graph.VectorSearch(ctx, string(entityType), vec, searchK)
		if err != nil {
			return err
		}
	} else {
		hits, err = a.graph.VectorSearchAll(ctx, vec, searchK)
		if err != nil {
			return err
		}
	}

	if len(hits) == 0 {
		cmd.Println("No results.")
		return nil
	}
	for _, hit := range hits {
		cmd.Printf("%6.3f  %-12s %s\n", hit.Score, hit.NodeType, hit.Name)
	}
	return nil
}
