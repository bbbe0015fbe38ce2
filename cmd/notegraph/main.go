// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// notegraph maintains a knowledge graph derived from a directory of
// markdown documents: incremental sync, entity extraction, embeddings,
// and cascade impact analysis.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the --config override, empty for the default location.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "notegraph",
	Short: "Sync markdown notes into a knowledge graph",
	Long: `notegraph watches a directory of markdown documents and maintains a
knowledge graph of the entities they mention: change detection via
content hashes, idempotent graph upserts, optional AI entity extraction
and embeddings, and cascade analysis that warns when an edit makes
other documents stale.

Run 'notegraph init' once to write the default configuration, point
vault.root at your notes, then 'notegraph sync'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.notegraph/notegraph.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
