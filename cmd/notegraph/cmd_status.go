// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted sync state",
	Long: `Summarizes the hash index: how many documents are tracked, when the
most recent sync finished, and the entity/relationship bookkeeping
totals. Reads only the index, never the graph.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	status, err := a.engine.Status(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Tracked documents: %d\n", status.TrackedDocuments)
	cmd.Printf("Entities: %d, relationships: %d\n",
		status.TotalEntities, status.TotalRelationships)
	if status.LastSync.IsZero() {
		cmd.Println("Last sync: never")
	} else {
		cmd.Printf("Last sync: %s\n", status.LastSync.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
