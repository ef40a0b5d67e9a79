// Package mcp implements the Model Context Protocol server that exposes
// coderd's file and shell tools to an LLM orchestrator. Transport is
// line-delimited JSON-RPC 2.0 on stdin/stdout; stdout is reserved for the
// protocol, so all logging goes to stderr.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jpl-au/coderd/internal/auditlog"
	"github.com/jpl-au/coderd/internal/config"
	"github.com/jpl-au/coderd/internal/tools"
	"github.com/jpl-au/coderd/internal/workspace"
)

// Version is advertised to clients for capability negotiation.
const Version = "1.0.0"

// Serve starts the MCP server over stdio for a workspace directory. It
// returns when the client closes stdin.
func Serve(workspaceDir string, sandbox bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root, err := workspace.New(workspaceDir)
	if err != nil {
		slog.Error("invalid workspace", "dir", workspaceDir, "error", err)
		return err
	}
	cfg, err := config.Load(root.Dir())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	if err := auditlog.Open(); err != nil {
		slog.Warn("audit log unavailable", "error", err)
	} else {
		auditlog.SetWorkspace(root.Dir())
		defer auditlog.Close()
	}

	h := &handlers{svc: tools.New(root, cfg, sandbox)}

	s := server.NewMCPServer(
		"coderd",
		Version,
		server.WithToolCapabilities(true),
	)
	registerTools(s, h)

	slog.Info("coderd MCP server ready",
		"version", Version, "transport", "stdio",
		"workspace", root.Dir(), "sandbox", sandbox)

	err = server.ServeStdio(s)
	if errors.Is(err, context.Canceled) {
		slog.Info("server stopped")
		return nil
	}
	return err
}

// handlers provides MCP request handlers with access to the tool service.
type handlers struct {
	svc *tools.Service
}

// registerTools declares the tool surface with JSON schemas for every
// parameter. Descriptions are written for the consuming LLM, not humans.
func registerTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("edit",
			mcp.WithDescription("Edit a file by replacing oldString with newString using fuzzy matching that tolerates whitespace, indentation and escape drift. If oldString is empty and the file does not exist, creates it with newString as content. Returns a unified diff."),
			mcp.WithString("filePath", mcp.Required(), mcp.Description("Path to the file to edit, relative to the workspace")),
			mcp.WithString("oldString", mcp.Required(), mcp.Description("The text to find (empty string = create new file)")),
			mcp.WithString("newString", mcp.Required(), mcp.Description("The replacement text")),
			mcp.WithBoolean("replaceAll", mcp.Description("Replace all occurrences (default: false)")),
		),
		h.edit,
	)

	s.AddTool(
		mcp.NewTool("read",
			mcp.WithDescription("Read a file with line numbers in cat -n format. Supports offset and limit for large files. Binary files are rejected."),
			mcp.WithString("filePath", mcp.Required(), mcp.Description("Path to the file to read")),
			mcp.WithNumber("offset", mcp.Description("Starting line number (1-based, default: 1)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of lines to return (default: 2000)")),
		),
		h.read,
	)

	s.AddTool(
		mcp.NewTool("write",
			mcp.WithDescription("Write content to a file, creating it and any parent directories. Overwrites existing content atomically."),
			mcp.WithString("filePath", mcp.Required(), mcp.Description("Path to the file to write")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Content to write")),
		),
		h.write,
	)

	s.AddTool(
		mcp.NewTool("grep",
			mcp.WithDescription("Search file contents with a regex pattern. Uses ripgrep when installed (gitignore-aware); falls back to a basic search otherwise."),
			mcp.WithString("pattern", mcp.Required(), mcp.Description("Regex pattern to search for")),
			mcp.WithString("path", mcp.Description("File or directory to search in (default: workspace root)")),
			mcp.WithString("include", mcp.Description("Glob filter on file names, e.g. \"*.go\"")),
			mcp.WithNumber("maxResults", mcp.Description("Maximum result lines (default: 100)")),
			mcp.WithNumber("contextLines", mcp.Description("Lines of context around matches (default: 0)")),
		),
		h.grep,
	)

	s.AddTool(
		mcp.NewTool("glob",
			mcp.WithDescription("List workspace files matching a glob pattern (supports *, **, ?, {a,b}), newest first."),
			mcp.WithString("pattern", mcp.Required(), mcp.Description("Glob pattern, e.g. \"**/*.go\"")),
			mcp.WithString("path", mcp.Description("Directory to search in (default: workspace root)")),
		),
		h.glob,
	)

	s.AddTool(
		mcp.NewTool("bash",
			mcp.WithDescription("Run a shell command in the workspace with a timeout. Output is stdout and stderr combined; non-zero exits are reported, not errors."),
			mcp.WithString("command", mcp.Required(), mcp.Description("Command to run with bash -c")),
			mcp.WithNumber("timeout", mcp.Description("Timeout in milliseconds (default: 120000, max: 600000)")),
		),
		h.bash,
	)

	s.AddTool(
		mcp.NewTool("guide",
			mcp.WithDescription("Get usage documentation for coderd tools"),
			mcp.WithString("topic", mcp.Description("Guide topic (e.g. 'edit') or empty for the index")),
		),
		h.guide,
	)
}
