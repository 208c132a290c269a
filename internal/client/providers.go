package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

var (
	_ types.SymbolProvider = &SymbolProvider{}
	_ types.RenameProvider = &RenameProvider{}
)

// SymbolProvider answers documentSymbol requests through the language server for the document's language
type SymbolProvider struct {
	manager *Manager
}

// NewSymbolProvider creates a language server backed symbol provider
func NewSymbolProvider(manager *Manager) *SymbolProvider {
	return &SymbolProvider{manager: manager}
}

func (p *SymbolProvider) ProvideSymbols(ctx context.Context, uri string, languageID string) ([]types.DocumentSymbol, error) {
	c, err := p.manager.ClientFor(ctx, languageID)
	if err != nil {
		return nil, err
	}

	var symbols []types.DocumentSymbol
	err = withOpenDocument(ctx, c, uri, languageID, func() error {
		var err error
		symbols, err = c.GetDocumentSymbols(ctx, uri)
		return err
	})
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

// RenameProvider answers prepareRename and rename requests through the language server.
// Documents are read from disk, so callers persist pending edits before asking for the next rename.
type RenameProvider struct {
	manager *Manager
}

// NewRenameProvider creates a language server backed rename provider
func NewRenameProvider(manager *Manager) *RenameProvider {
	return &RenameProvider{manager: manager}
}

// Supports reports whether a server is configured for the language
func (p *RenameProvider) Supports(languageID string) bool {
	return p.manager.HasServer(languageID)
}

func (p *RenameProvider) ProvideRenameEdit(ctx context.Context, uri string, position types.Position, newName string) (*types.WorkspaceEdit, error) {
	languageID := workspace.LanguageForPath(uri)
	c, err := p.manager.ClientFor(ctx, languageID)
	if err != nil {
		return nil, err
	}

	var edit *types.WorkspaceEdit
	err = withOpenDocument(ctx, c, uri, languageID, func() error {
		if _, err := c.PrepareRename(ctx, uri, position); err != nil {
			if errors.Is(err, ErrRenameNotAllowed) {
				return err
			}
			// Servers without prepareRename support answer with an error; rename may still work
			slog.Debug("Prepare rename failed, attempting rename anyway", "uri", uri, "error", err)
		}

		var err error
		edit, err = c.RenameSymbol(ctx, uri, position, newName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edit, nil
}

func withOpenDocument(ctx context.Context, c types.Client, uri string, languageID string, fn func() error) error {
	content, err := os.ReadFile(workspace.UriToPath(uri))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	if err := c.OpenDocument(ctx, uri, languageID, string(content)); err != nil {
		return err
	}
	defer func() {
		if err := c.CloseDocument(ctx, uri); err != nil {
			slog.Warn("Failed to close document", "uri", uri, "error", err)
		}
	}()

	return fn()
}
