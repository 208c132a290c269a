package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/averycrespi/codedoc-mcp/internal/results"
	"github.com/averycrespi/codedoc-mcp/internal/review"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// GetRenameMapTool lists the renames under review
type GetRenameMapTool struct {
	orchestrator *review.Orchestrator
	config       types.Config
}

// NewGetRenameMapTool creates a new get rename map tool
func NewGetRenameMapTool(orchestrator *review.Orchestrator, config types.Config) *GetRenameMapTool {
	return &GetRenameMapTool{
		orchestrator: orchestrator,
		config:       config,
	}
}

// GetTool returns the MCP tool definition
func (t *GetRenameMapTool) GetTool() mcp.Tool {
	return mcp.NewTool(ToolGetRenameMap,
		mcp.WithDescription("List the symbol renames detected by process_response that are awaiting review"),
	)
}

// Handle processes the tool request
func (t *GetRenameMapTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slog.Debug("MCP tool called", "tool", ToolGetRenameMap)

	session, ok := t.orchestrator.Current()
	renames := t.orchestrator.GetRenameMap()
	if !ok || session.State != review.StateReviewing {
		return jsonResult(ToolGetRenameMap, results.GetRenameMapToolResult{Message: "No rename review is in progress."})
	}

	_, rel := resolvePath(session.Buffer.URI, t.config.WorkspaceRoot)
	toolResult := results.GetRenameMapToolResult{
		Message:   fmt.Sprintf("%d renames awaiting review.", len(renames)),
		SessionID: session.ID,
		Renames:   results.NewRenameEntries(rel, session.Buffer.Text, renames),
	}
	return jsonResult(ToolGetRenameMap, toolResult)
}
