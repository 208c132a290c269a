package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/averycrespi/codedoc-mcp/internal/client"
	"github.com/averycrespi/codedoc-mcp/internal/review"
	"github.com/averycrespi/codedoc-mcp/internal/symbols"
	"github.com/averycrespi/codedoc-mcp/internal/tools"
	"github.com/averycrespi/codedoc-mcp/pkg/project"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

var _ types.Server = &CodedocServer{}

// CodedocServer serves the review workflow over MCP stdio
type CodedocServer struct {
	mcpServer    *server.MCPServer
	manager      *client.Manager
	extractor    *symbols.Extractor
	presenter    *review.DiffPresenter
	orchestrator *review.Orchestrator
	config       types.Config
}

// NewCodedocServer wires the language servers, extractor and orchestrator for config
func NewCodedocServer(config types.Config) *CodedocServer {
	manager := client.NewManager(config.WorkspaceRoot, config.LanguageServers, config.RequestTimeout)
	extractor := NewExtractor(manager, config)
	presenter := review.NewDiffPresenter()

	orchestrator := review.NewOrchestrator(review.Dependencies{
		Extractor:     extractor,
		Presenter:     presenter,
		Persister:     review.NewFilePersister(),
		Renamer:       client.NewRenameProvider(manager),
		WorkspaceRoot: config.WorkspaceRoot,
	})

	s := &CodedocServer{
		mcpServer:    server.NewMCPServer(project.Name, project.Version, server.WithToolCapabilities(false)),
		manager:      manager,
		extractor:    extractor,
		presenter:    presenter,
		orchestrator: orchestrator,
		config:       config,
	}
	s.registerTools()
	return s
}

// NewExtractor builds the symbol extractor: language servers first, then the in-process parser
func NewExtractor(manager *client.Manager, config types.Config) *symbols.Extractor {
	provider := symbols.ChainProvider{
		client.NewSymbolProvider(manager),
		symbols.NewTreeSitterProvider(),
	}
	return symbols.NewExtractor(provider,
		symbols.WithScratchDir(config.ScratchDir),
		symbols.WithTimeout(config.RequestTimeout),
	)
}

// Start serves MCP over stdio until stdin closes
func (s *CodedocServer) Start(ctx context.Context) error {
	slog.Info("Starting codedoc MCP server",
		"workspace_root", s.config.WorkspaceRoot,
		"language_servers", len(s.config.LanguageServers),
		"default_scope", s.config.DefaultScope)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve MCP server: %w", err)
	}
	return nil
}

func (s *CodedocServer) registerTools() {
	processTool := tools.NewProcessResponseTool(s.orchestrator, s.presenter, s.config)
	s.mcpServer.AddTool(processTool.GetTool(), processTool.Handle)

	renameMapTool := tools.NewGetRenameMapTool(s.orchestrator, s.config)
	s.mcpServer.AddTool(renameMapTool.GetTool(), renameMapTool.Handle)

	acceptTool := tools.NewAcceptRenamesTool(s.orchestrator, s.config)
	s.mcpServer.AddTool(acceptTool.GetTool(), acceptTool.Handle)

	rejectTool := tools.NewRejectRenamesTool(s.orchestrator)
	s.mcpServer.AddTool(rejectTool.GetTool(), rejectTool.Handle)

	listSymbolsTool := tools.NewListSymbolsInFileTool(s.extractor, s.config)
	s.mcpServer.AddTool(listSymbolsTool.GetTool(), listSymbolsTool.Handle)
}

// Shutdown stops every language server that was started
func (s *CodedocServer) Shutdown(ctx context.Context) error {
	if err := s.manager.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown language servers: %w", err)
	}
	return nil
}
