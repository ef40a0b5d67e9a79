/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// root.go defines the root command and CLI execution entry point.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coderd",
	Short: "Programming sub-agent MCP server with fuzzy file editing",
	Long: `coderd exposes file and shell tools (edit, read, write, grep, glob,
bash) to an LLM orchestrator over MCP on stdin/stdout. Edits use a
nine-layer fuzzy matcher cascade and every operation is confined to a
single workspace directory.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	SilenceUsage: true,
}

// Execute runs the root command and handles process lifecycle. Exit code 1
// indicates error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
