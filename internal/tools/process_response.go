package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/averycrespi/codedoc-mcp/internal/results"
	"github.com/averycrespi/codedoc-mcp/internal/review"
	"github.com/averycrespi/codedoc-mcp/internal/textdoc"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// Differ renders a presented comparison
type Differ interface {
	Diff(ref types.ComparisonRef) (string, error)
}

// ProcessResponseTool merges a model response into a file and opens a rename review
type ProcessResponseTool struct {
	orchestrator *review.Orchestrator
	differ       Differ
	config       types.Config
}

// NewProcessResponseTool creates a new process response tool
func NewProcessResponseTool(orchestrator *review.Orchestrator, differ Differ, config types.Config) *ProcessResponseTool {
	return &ProcessResponseTool{
		orchestrator: orchestrator,
		differ:       differ,
		config:       config,
	}
}

// GetTool returns the MCP tool definition
func (t *ProcessResponseTool) GetTool() mcp.Tool {
	return mcp.NewTool(ToolProcessResponse,
		mcp.WithDescription("Merge the renamed and commented variants of a code region into a file. "+
			"Symbol renames are detected and held for review; responses without renames are written directly."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to the source file, absolute or relative to the workspace root")),
		mcp.WithString("original", mcp.Description("The code region as it currently appears in the file. Defaults to the selection.")),
		mcp.WithString("renamed", mcp.Description("The region with identifiers renamed")),
		mcp.WithString("commented", mcp.Description("The region with comments added")),
		mcp.WithNumber("start_line", mcp.Description("Selection start line (1-indexed)")),
		mcp.WithNumber("start_character", mcp.Description("Selection start character (1-indexed)")),
		mcp.WithNumber("end_line", mcp.Description("Selection end line (1-indexed)")),
		mcp.WithNumber("end_character", mcp.Description("Selection end character (1-indexed, exclusive)")),
	)
}

// Handle processes the tool request
func (t *ProcessResponseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := mcp.ParseString(req, "file_path", "")
	if filePath == "" {
		slog.Debug("MCP tool called with missing file_path parameter", "tool", ToolProcessResponse)
		return mcp.NewToolResultError("file_path parameter is required"), nil
	}

	span := review.EditSpan{
		Original:  mcp.ParseString(req, "original", ""),
		Renamed:   mcp.ParseString(req, "renamed", ""),
		Commented: mcp.ParseString(req, "commented", ""),
	}
	if span.Renamed == "" && span.Commented == "" {
		return mcp.NewToolResultError("at least one of renamed or commented is required"), nil
	}

	slog.Debug("MCP tool called", "tool", ToolProcessResponse, "file_path", filePath)

	abs, rel := resolvePath(filePath, t.config.WorkspaceRoot)
	content, err := os.ReadFile(abs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read file: %s: %v", filePath, err)), nil
	}
	text := string(content)

	selection, display, err := selectionFromRequest(req, text, span.Original)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	buf := review.Buffer{
		URI:        workspace.PathToUri(abs, ""),
		LanguageID: workspace.LanguageForPath(abs),
		Text:       text,
		Selection:  selection,
	}

	res, err := t.orchestrator.ProcessResponse(ctx, buf, span)
	if err != nil {
		slog.Debug("Failed to process response", "tool", ToolProcessResponse, "file_path", filePath, "error", err)
		switch {
		case errors.Is(err, review.ErrSessionActive):
			return mcp.NewToolResultError("A rename review is already in progress. Accept or reject it first."), nil
		case errors.Is(err, review.ErrSelectionMismatch):
			return mcp.NewToolResultError("The original text does not match the selected region of the file."), nil
		case errors.Is(err, review.ErrEmptySelection):
			return mcp.NewToolResultError("No code selected."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to process response: %v", err)), nil
	}

	toolResult := results.ProcessResponseToolResult{
		Arguments:   results.ProcessResponseToolArgs{FilePath: filePath, Selection: display},
		SessionID:   res.SessionID,
		MergedText:  res.MergedText,
		RenameCount: res.RenameCount,
		NoChange:    res.NoChange,
		Applied:     res.Applied,
	}

	switch {
	case res.NoChange:
		toolResult.Message = "No changes detected."
	case res.Applied:
		toolResult.Message = fmt.Sprintf("No renames detected. Changes written to %s.", rel)
	default:
		toolResult.Message = fmt.Sprintf("Detected %d renames. Review them with %s, then call %s or %s.",
			res.RenameCount, ToolGetRenameMap, ToolAcceptRenames, ToolRejectRenames)
		if t.differ != nil {
			if diff, err := t.differ.Diff(res.Comparison); err == nil {
				toolResult.Diff = diff
			} else {
				slog.Warn("Failed to render comparison", "ref", res.Comparison, "error", err)
			}
		}
	}

	return jsonResult(ToolProcessResponse, toolResult)
}

// selectionFromRequest resolves the selection: explicit display coordinates, else the first
// occurrence of original, else the whole file
func selectionFromRequest(req mcp.CallToolRequest, text string, original string) (types.Range, *results.SelectionRange, error) {
	startLine := mcp.ParseInt(req, "start_line", 0)
	if startLine > 0 {
		display := &results.SelectionRange{
			StartLine:      startLine,
			StartCharacter: mcp.ParseInt(req, "start_character", 1),
			EndLine:        mcp.ParseInt(req, "end_line", startLine),
			EndCharacter:   mcp.ParseInt(req, "end_character", 1),
		}
		if display.StartCharacter < 1 || display.EndLine < 1 || display.EndCharacter < 1 {
			return types.Range{}, nil, errors.New("selection coordinates must be positive (start at 1)")
		}
		r := types.Range{
			Start: types.Position{Line: display.StartLine - 1, Character: display.StartCharacter - 1},
			End:   types.Position{Line: display.EndLine - 1, Character: display.EndCharacter - 1},
		}
		if _, _, err := textdoc.Resolve(text, r); err != nil {
			return types.Range{}, nil, fmt.Errorf("invalid selection: %w", err)
		}
		return r, display, nil
	}

	if original != "" {
		r, ok := textdoc.FindRange(text, original)
		if !ok {
			return types.Range{}, nil, errors.New("original text not found in file")
		}
		return r, nil, nil
	}

	return textdoc.FullRange(text), nil, nil
}
