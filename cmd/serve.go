// serve.go implements the serve command, the main entry point for MCP
// clients. stdout carries JSON-RPC only; anything user-facing goes to
// stderr.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jpl-au/coderd/internal/mcp"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	var (
		workspaceDir string
		sandbox      bool
	)

	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdin/stdout",
		Long: `Starts the MCP server. The client (an LLM orchestrator such as Claude
Desktop) sends JSON-RPC 2.0 requests on stdin, one per line, and reads
responses from stdout. The server exits when stdin closes.

  coderd serve --workspace /path/to/project
  coderd serve --workspace . --sandbox`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if workspaceDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				workspaceDir = wd
			}
			return mcp.Serve(workspaceDir, sandbox)
		},
	}
	c.Flags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace directory (default: current directory)")
	c.Flags().BoolVar(&sandbox, "sandbox", false, "Wrap bash commands with the configured sandbox command")
	return c
}
