// tools_fs.go implements the edit, read and write tool handlers.
//
// Handlers convert tool-service failures into MCP tool error results rather
// than Go errors so the LLM receives actionable feedback — including the
// stable JSON-RPC error code — instead of an opaque protocol failure.

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/coderd/internal/auditlog"
	"github.com/jpl-au/coderd/internal/tools"
)

func (h *handlers) edit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("filePath")
	if err != nil {
		return mcp.NewToolResultError("filePath is required"), nil
	}
	old, err := req.RequireString("oldString")
	if err != nil {
		return mcp.NewToolResultError("oldString is required"), nil
	}
	newStr, err := req.RequireString("newString")
	if err != nil {
		return mcp.NewToolResultError("newString is required"), nil
	}

	res, err := h.svc.Edit(tools.EditRequest{
		Path:       path,
		Old:        old,
		New:        newStr,
		ReplaceAll: getBool(req, "replaceAll", false),
	})

	auditlog.Event("mcp:edit", "edit").
		Path(res.Path).
		Matcher(res.Matcher).
		Replacements(res.Replacements).
		Write(err)

	if err != nil {
		return errResult(err), nil
	}
	if res.Created {
		return mcp.NewToolResultText(fmt.Sprintf("Created new file: %s", res.Path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Applied %d replacement(s).\n\n%s",
		res.Replacements, res.Diff)), nil
}

func (h *handlers) read(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("filePath")
	if err != nil {
		return mcp.NewToolResultError("filePath is required"), nil
	}

	out, err := h.svc.Read(path, getInt(req, "offset", 1), getInt(req, "limit", 0))

	auditlog.Event("mcp:read", "read").Path(path).Write(err)

	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *handlers) write(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("filePath")
	if err != nil {
		return mcp.NewToolResultError("filePath is required"), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content is required"), nil
	}

	res, err := h.svc.Write(path, content)

	auditlog.Event("mcp:write", "write").Path(res.Path).Detail("lines", res.Lines).Write(err)

	if err != nil {
		return errResult(err), nil
	}
	action := "Updated"
	if res.Created {
		action = "Created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s: %d lines written",
		action, res.Path, res.Lines)), nil
}
