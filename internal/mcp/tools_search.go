// tools_search.go implements the grep, glob and guide tool handlers.

package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/coderd/guide"
	"github.com/jpl-au/coderd/internal/auditlog"
	"github.com/jpl-au/coderd/internal/search"
)

func (h *handlers) grep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError("pattern is required"), nil
	}

	path := getString(req, "path", "")
	out, err := h.svc.Grep(path, search.GrepOptions{
		Pattern:      pattern,
		Include:      getString(req, "include", ""),
		MaxResults:   getInt(req, "maxResults", 0),
		ContextLines: getInt(req, "contextLines", 0),
	})

	auditlog.Event("mcp:grep", "search").Path(path).Detail("pattern", pattern).Write(err)

	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *handlers) glob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError("pattern is required"), nil
	}

	path := getString(req, "path", "")
	paths, err := h.svc.Glob(path, pattern)

	auditlog.Event("mcp:glob", "search").Path(path).
		Detail("pattern", pattern).Detail("count", len(paths)).Write(err)

	if err != nil {
		return errResult(err), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("No files matched."), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (h *handlers) guide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic := getString(req, "topic", "")
	content, err := guide.Get(topic)

	auditlog.Event("mcp:guide", "read").Detail("topic", topic).Write(err)

	if err != nil {
		available, listErr := guide.List()
		if listErr != nil {
			return mcp.NewToolResultError(listErr.Error()), nil
		}
		return mcp.NewToolResultError("guide not found. Available: " + strings.Join(available, ", ")), nil
	}
	return mcp.NewToolResultText(content), nil
}
