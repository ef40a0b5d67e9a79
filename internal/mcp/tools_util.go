// tools_util.go centralises parameter extraction and error formatting for
// the MCP handlers.
//
// Extraction is permissive: an LLM omitting an optional parameter, or
// sending it in an unexpected type, gets the documented default rather than
// a cryptic type error it may struggle to recover from.

package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/coderd/internal/coderr"
)

// getString extracts an optional string parameter, falling back to def.
func getString(req mcp.CallToolRequest, name, def string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return def
}

// getBool extracts an optional boolean parameter from the raw argument map.
func getBool(req mcp.CallToolRequest, name string, def bool) bool {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}

// getInt extracts an optional integer parameter. JSON numbers decode as
// float64, so that is the type asserted before conversion.
func getInt(req mcp.CallToolRequest, name string, def int) int {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}
	if v, ok := args[name].(float64); ok {
		return int(v)
	}
	return def
}

// errResult renders a classified error as an MCP tool error. The JSON-RPC
// code leads the text so the orchestrator can branch on it without parsing
// the message.
func errResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error %d: %v", coderr.CodeOf(err), err))
}
