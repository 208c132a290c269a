package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/averycrespi/codedoc-mcp/internal/results"
	"github.com/averycrespi/codedoc-mcp/internal/review"
)

// RejectRenamesTool discards the review without touching any file
type RejectRenamesTool struct {
	orchestrator *review.Orchestrator
}

// NewRejectRenamesTool creates a new reject renames tool
func NewRejectRenamesTool(orchestrator *review.Orchestrator) *RejectRenamesTool {
	return &RejectRenamesTool{orchestrator: orchestrator}
}

// GetTool returns the MCP tool definition
func (t *RejectRenamesTool) GetTool() mcp.Tool {
	return mcp.NewTool(ToolRejectRenames,
		mcp.WithDescription("Discard the rename review. The file is left exactly as it was."),
	)
}

// Handle processes the tool request
func (t *RejectRenamesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slog.Debug("MCP tool called", "tool", ToolRejectRenames)

	session, _ := t.orchestrator.Current()
	if err := t.orchestrator.RejectRenames(ctx); err != nil {
		if errors.Is(err, review.ErrNoActiveSession) {
			return mcp.NewToolResultError("No rename review is in progress."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to reject renames: %v", err)), nil
	}

	return jsonResult(ToolRejectRenames, results.RejectRenamesToolResult{
		Message:   "Renames rejected. No files were changed.",
		SessionID: session.ID,
	})
}
