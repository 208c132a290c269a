package types

import (
	"context"
)

// Client defines the language server client interface
type Client interface {
	Start(ctx context.Context, workspaceRoot string) error
	Stop(ctx context.Context) error

	OpenDocument(ctx context.Context, uri string, languageID string, text string) error
	CloseDocument(ctx context.Context, uri string) error
	GetDocumentSymbols(ctx context.Context, uri string) ([]DocumentSymbol, error)
	PrepareRename(ctx context.Context, uri string, position Position) (*PrepareRenameResult, error)
	RenameSymbol(ctx context.Context, uri string, position Position, newName string) (*WorkspaceEdit, error)
}

// Position represents a position in a text document.
// Character offsets are counted in UTF-16 code units, as in LSP.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range represents a range in a text document
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// IsEmpty reports whether the range covers no text
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Location represents a location in a text document
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// SymbolInformation represents information about a symbol
type SymbolInformation struct {
	Name     string   `json:"name"`
	Kind     int      `json:"kind"`
	Location Location `json:"location"`
}

// DocumentSymbol represents a symbol within a document with hierarchical structure
type DocumentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           int              `json:"kind"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

// PrepareRenameResult represents the result of a prepareRename request
type PrepareRenameResult struct {
	Range       Range  `json:"range"`
	Placeholder string `json:"placeholder,omitempty"`
}

// TextEdit represents a textual edit applicable to a text document
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// VersionedTextDocumentIdentifier identifies a specific version of a text document
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version *int   `json:"version,omitempty"`
}

// TextDocumentEdit represents edits to a single versioned document
type TextDocumentEdit struct {
	TextDocument VersionedTextDocumentIdentifier `json:"textDocument"`
	Edits        []TextEdit                      `json:"edits"`
}

// WorkspaceEdit represents changes to many resources managed in the workspace
type WorkspaceEdit struct {
	Changes         map[string][]TextEdit `json:"changes,omitempty"`
	DocumentChanges []TextDocumentEdit    `json:"documentChanges,omitempty"`
}

// FileChanges folds DocumentChanges into the Changes map and returns it.
// Servers may answer with either form; callers only deal with the map.
func (w *WorkspaceEdit) FileChanges() map[string][]TextEdit {
	changes := make(map[string][]TextEdit, len(w.Changes)+len(w.DocumentChanges))
	for uri, edits := range w.Changes {
		changes[uri] = append(changes[uri], edits...)
	}
	for _, docEdit := range w.DocumentChanges {
		uri := docEdit.TextDocument.URI
		changes[uri] = append(changes[uri], docEdit.Edits...)
	}
	return changes
}

// IsEmpty reports whether the edit touches no file
func (w *WorkspaceEdit) IsEmpty() bool {
	if w == nil {
		return true
	}
	for _, edits := range w.FileChanges() {
		if len(edits) > 0 {
			return false
		}
	}
	return true
}
