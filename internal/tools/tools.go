// Package tools exposes the review workflow as MCP tools.
package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/averycrespi/codedoc-mcp/internal/results"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
)

// Tool names
const (
	ToolProcessResponse   = "process_response"
	ToolGetRenameMap      = "get_rename_map"
	ToolAcceptRenames     = "accept_renames"
	ToolRejectRenames     = "reject_renames"
	ToolListSymbolsInFile = "list_symbols_in_file"
)

// resolvePath returns the absolute path of a file argument and its workspace-relative form
func resolvePath(filePath string, workspaceRoot string) (abs string, rel string) {
	abs = workspace.UriToPath(workspace.PathToUri(filePath, workspaceRoot))
	return abs, filepath.ToSlash(workspace.GetRelativePath(abs, workspaceRoot))
}

// jsonResult marshals a tool result the way every tool reports success
func jsonResult(tool string, v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal tool result", "tool", tool, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal tool result into JSON: %v", err)), nil
	}

	slog.Debug("MCP tool completed successfully", "tool", tool)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// parseIndexes reads an optional array of integer indexes. A missing argument yields nil.
func parseIndexes(req mcp.CallToolRequest, key string) ([]int, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}

	indexes := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := item.(float64)
		if !ok || n != float64(int(n)) {
			return nil, fmt.Errorf("%s must be an array of integers, got %v", key, item)
		}
		indexes = append(indexes, int(n))
	}
	return indexes, nil
}

// parseAnchors reads an optional array of symbol anchors. A missing argument yields nil.
func parseAnchors(req mcp.CallToolRequest, key string) ([]results.SymbolAnchor, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}

	anchors := make([]results.SymbolAnchor, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be an array of strings, got %v", key, item)
		}
		anchors = append(anchors, results.SymbolAnchor(s))
	}
	return anchors, nil
}
