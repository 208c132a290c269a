package results

import "github.com/averycrespi/codedoc-mcp/pkg/types"

// SymbolLocation is where a symbol is declared.
// Unlike types.Position, it carries a workspace-relative file and is 1-indexed.
type SymbolLocation struct {
	File        string `json:"file"`
	DisplayLine int    `json:"line"`
	DisplayChar int    `json:"character"`
}

// NewSymbolLocation converts a 0-indexed LSP position in file to display coordinates
func NewSymbolLocation(file string, position types.Position) SymbolLocation {
	return SymbolLocation{
		File:        file,
		DisplayLine: position.Line + 1,
		DisplayChar: position.Character + 1,
	}
}

// Position returns the 0-indexed LSP position of the location
func (sl SymbolLocation) Position() types.Position {
	return types.Position{Line: sl.DisplayLine - 1, Character: sl.DisplayChar - 1}
}

// ToAnchor creates a SymbolAnchor from this location
func (sl SymbolLocation) ToAnchor() SymbolAnchor {
	return NewSymbolAnchor(sl.File, sl.DisplayLine, sl.DisplayChar)
}
