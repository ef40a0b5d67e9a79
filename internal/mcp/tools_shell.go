// tools_shell.go implements the bash tool handler.

package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/coderd/internal/auditlog"
)

func (h *handlers) bash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError("command is required"), nil
	}

	timeout := time.Duration(getInt(req, "timeout", 0)) * time.Millisecond
	out, err := h.svc.Bash(ctx, command, timeout)

	auditlog.Event("mcp:bash", "exec").Detail("command", command).Write(err)

	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(out), nil
}
