// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/NoteGraph/cmd/notegraph/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Writes a commented default configuration. Refuses to overwrite an
existing file.

Examples:
  notegraph init
  notegraph init --config ./notegraph.yaml`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	written, err := config.WriteDefault(configPath)
	if err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", written)
	cmd.Println("Edit vault.root to point at your notes, then run 'notegraph sync'.")
	return nil
}
