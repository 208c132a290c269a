package types

import "context"

// SymbolProvider produces the outline of a document.
// A nil or empty result means no symbols could be determined.
type SymbolProvider interface {
	ProvideSymbols(ctx context.Context, uri string, languageID string) ([]DocumentSymbol, error)
}

// RenameProvider computes the workspace edit that renames the symbol at a position
type RenameProvider interface {
	ProvideRenameEdit(ctx context.Context, uri string, position Position, newName string) (*WorkspaceEdit, error)
}

// ComparisonRef identifies a before/after view created by a Presenter
type ComparisonRef string

// Presenter renders a before/after comparison. It is purely presentational.
type Presenter interface {
	PresentComparison(ctx context.Context, originalRef string, original string, modified string) (ComparisonRef, error)
	Release(ctx context.Context, ref ComparisonRef) error
}

// Persister writes final document content
type Persister interface {
	Persist(ctx context.Context, uri string, text string) error
}
