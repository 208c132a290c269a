package results

import "github.com/averycrespi/codedoc-mcp/internal/symbols"

// ListSymbolsInFileToolResult represents the result of the list_symbols_in_file tool
type ListSymbolsInFileToolResult struct {
	Message     string                    `json:"message"`
	Arguments   ListSymbolsInFileToolArgs `json:"arguments"`
	FileSymbols []FileSymbol              `json:"file_symbols,omitempty"`
}

// ListSymbolsInFileToolArgs represents the input arguments for the list_symbols_in_file tool
type ListSymbolsInFileToolArgs struct {
	FilePath string `json:"file_path"`
}

// FileSymbol represents a symbol within a file with hierarchical structure
type FileSymbol struct {
	Name     string         `json:"name"`
	Kind     symbols.Kind   `json:"kind"`
	Location SymbolLocation `json:"location"`
	Anchor   SymbolAnchor   `json:"anchor"`
	Children []FileSymbol   `json:"children,omitempty"`
}

// NewFileSymbols converts a symbol tree of file (workspace-relative) into results
func NewFileSymbols(file string, syms []symbols.Symbol) []FileSymbol {
	if len(syms) == 0 {
		return nil
	}

	out := make([]FileSymbol, 0, len(syms))
	for _, s := range syms {
		location := NewSymbolLocation(file, s.Declaration)
		out = append(out, FileSymbol{
			Name:     s.Name,
			Kind:     s.Kind,
			Location: location,
			Anchor:   location.ToAnchor(),
			Children: NewFileSymbols(file, s.Children),
		})
	}
	return out
}
