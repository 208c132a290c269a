package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/averycrespi/codedoc-mcp/internal/results"
	"github.com/averycrespi/codedoc-mcp/internal/symbols"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// FileExtractor extracts the symbols of a file on disk
type FileExtractor interface {
	ExtractFile(ctx context.Context, path string) ([]symbols.Symbol, error)
}

// ListSymbolsInFileTool handles list symbols in file requests
type ListSymbolsInFileTool struct {
	extractor FileExtractor
	config    types.Config
}

// NewListSymbolsInFileTool creates a new list symbols in file tool
func NewListSymbolsInFileTool(extractor FileExtractor, config types.Config) *ListSymbolsInFileTool {
	return &ListSymbolsInFileTool{
		extractor: extractor,
		config:    config,
	}
}

// GetTool returns the MCP tool definition
func (t *ListSymbolsInFileTool) GetTool() mcp.Tool {
	return mcp.NewTool(ToolListSymbolsInFile,
		mcp.WithDescription("List all symbols declared in a source file, returning a hierarchical list with anchors"),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to the source file, absolute or relative to the workspace root")),
	)
}

// Handle processes the tool request
func (t *ListSymbolsInFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := mcp.ParseString(req, "file_path", "")
	if filePath == "" {
		slog.Debug("MCP tool called with missing file_path parameter", "tool", ToolListSymbolsInFile)
		return mcp.NewToolResultError("file_path parameter is required"), nil
	}

	slog.Debug("MCP tool called", "tool", ToolListSymbolsInFile, "file_path", filePath)

	abs, rel := resolvePath(filePath, t.config.WorkspaceRoot)
	syms, err := t.extractor.ExtractFile(ctx, abs)
	if err != nil {
		slog.Debug("Failed to extract symbols", "tool", ToolListSymbolsInFile, "file_path", filePath, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get symbols for file: %s: %v", filePath, err)), nil
	}

	toolResult := results.ListSymbolsInFileToolResult{
		Arguments:   results.ListSymbolsInFileToolArgs{FilePath: filePath},
		FileSymbols: results.NewFileSymbols(rel, syms),
	}
	if len(toolResult.FileSymbols) == 0 {
		toolResult.Message = "No symbols found in file. " +
			"This could mean that the file is empty or its language is not supported."
	} else {
		toolResult.Message = fmt.Sprintf("Found %d symbols in file.", symbols.Count(syms))
	}

	return jsonResult(ToolListSymbolsInFile, toolResult)
}
