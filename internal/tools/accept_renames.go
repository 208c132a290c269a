package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/averycrespi/codedoc-mcp/internal/match"
	"github.com/averycrespi/codedoc-mcp/internal/results"
	"github.com/averycrespi/codedoc-mcp/internal/review"
	"github.com/averycrespi/codedoc-mcp/internal/substitute"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// AcceptRenamesTool applies the selected renames of the review
type AcceptRenamesTool struct {
	orchestrator *review.Orchestrator
	config       types.Config
}

// NewAcceptRenamesTool creates a new accept renames tool
func NewAcceptRenamesTool(orchestrator *review.Orchestrator, config types.Config) *AcceptRenamesTool {
	return &AcceptRenamesTool{
		orchestrator: orchestrator,
		config:       config,
	}
}

// GetTool returns the MCP tool definition
func (t *AcceptRenamesTool) GetTool() mcp.Tool {
	return mcp.NewTool(ToolAcceptRenames,
		mcp.WithDescription("Apply the reviewed renames. Unselected renames are reverted in the merged code."),
		mcp.WithArray("indexes",
			mcp.Description("Indexes from get_rename_map to apply. Omit to apply every rename."),
			mcp.Items(map[string]any{"type": "integer"}),
		),
		mcp.WithArray("anchors",
			mcp.Description("Anchors from get_rename_map to apply, in addition to indexes"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("scope",
			mcp.Description("buffer renames inside the file only; project renames across the workspace"),
			mcp.Enum(string(substitute.ScopeBuffer), string(substitute.ScopeProject)),
		),
	)
}

// Handle processes the tool request
func (t *AcceptRenamesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	indexes, err := parseIndexes(req, "indexes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	anchors, err := parseAnchors(req, "anchors")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if anchors != nil {
		anchored, err := t.anchorIndexes(anchors)
		if err != nil {
			if errors.Is(err, review.ErrNoActiveSession) {
				return mcp.NewToolResultError("No rename review is in progress."), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		if indexes == nil {
			indexes = []int{}
		}
		indexes = append(indexes, anchored...)
	}

	fallback, err := substitute.ParseScope(t.config.DefaultScope, substitute.ScopeBuffer)
	if err != nil {
		fallback = substitute.ScopeBuffer
	}
	scope, err := substitute.ParseScope(mcp.ParseString(req, "scope", ""), fallback)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	slog.Debug("MCP tool called", "tool", ToolAcceptRenames, "indexes", indexes, "scope", scope)

	res, err := t.orchestrator.AcceptRenames(ctx, indexes, scope)
	if err != nil {
		slog.Debug("Failed to accept renames", "tool", ToolAcceptRenames, "error", err)
		switch {
		case errors.Is(err, review.ErrNoActiveSession):
			return mcp.NewToolResultError("No rename review is in progress."), nil
		case errors.Is(err, review.ErrInvalidSelection):
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to accept renames: %v", err)), nil
	}

	toolResult := results.AcceptRenamesToolResult{
		Arguments: results.AcceptRenamesToolArgs{Indexes: indexes, Anchors: anchors, Scope: string(scope)},
		Applied:   res.Applied,
		Skipped:   res.Skipped,
		Files:     make([]string, 0, len(res.Files)),
	}
	for _, file := range res.Files {
		_, rel := resolvePath(file, t.config.WorkspaceRoot)
		toolResult.Files = append(toolResult.Files, rel)
	}
	for _, w := range res.Warnings {
		toolResult.Warnings = append(toolResult.Warnings, w.String())
	}

	toolResult.Message = fmt.Sprintf("Applied %d renames across %d files.", res.Applied, len(toolResult.Files))
	if len(toolResult.Warnings) > 0 {
		toolResult.Message += fmt.Sprintf(" %d warnings.", len(toolResult.Warnings))
	}

	return jsonResult(ToolAcceptRenames, toolResult)
}

// anchorIndexes resolves anchors of the reviewed file to rename indexes
func (t *AcceptRenamesTool) anchorIndexes(anchors []results.SymbolAnchor) ([]int, error) {
	session, ok := t.orchestrator.Current()
	renames := t.orchestrator.GetRenameMap()
	if !ok || session.State != review.StateReviewing {
		return nil, review.ErrNoActiveSession
	}
	_, rel := resolvePath(session.Buffer.URI, t.config.WorkspaceRoot)

	indexes := make([]int, 0, len(anchors))
	for _, anchor := range anchors {
		file, position, err := anchor.ToFilePosition()
		if err != nil {
			return nil, fmt.Errorf("invalid anchor: %w", err)
		}
		i := slices.IndexFunc(renames, func(e match.RenameEntry) bool {
			return e.Old.Declaration == position
		})
		if file != rel || i < 0 {
			return nil, fmt.Errorf("anchor %s does not name a rename under review", anchor)
		}
		indexes = append(indexes, i)
	}
	return indexes, nil
}
