// Package symbols extracts trees of named declarations from source text.
package symbols

import "github.com/averycrespi/codedoc-mcp/pkg/types"

// Symbol is a named declaration in a document. Symbols are never mutated after extraction.
type Symbol struct {
	Name        string         `json:"name"`
	Kind        Kind           `json:"kind"`
	Range       types.Range    `json:"range"`
	Declaration types.Position `json:"declaration"`
	Children    []Symbol       `json:"children,omitempty"`
}

// FromDocumentSymbols converts a provider outline into symbols.
// The declaration position is the start of the selection range, where a rename request is valid.
func FromDocumentSymbols(docSymbols []types.DocumentSymbol) []Symbol {
	if len(docSymbols) == 0 {
		return nil
	}

	symbols := make([]Symbol, 0, len(docSymbols))
	for _, ds := range docSymbols {
		declaration := ds.SelectionRange.Start
		if ds.SelectionRange == (types.Range{}) {
			declaration = ds.Range.Start
		}
		symbols = append(symbols, Symbol{
			Name:        ds.Name,
			Kind:        KindFromLSP(ds.Kind),
			Range:       ds.Range,
			Declaration: declaration,
			Children:    FromDocumentSymbols(ds.Children),
		})
	}
	return symbols
}

// Walk visits symbols in pre-order with their nesting depth
func Walk(symbols []Symbol, fn func(s Symbol, depth int)) {
	walk(symbols, 0, fn)
}

func walk(symbols []Symbol, depth int, fn func(s Symbol, depth int)) {
	for _, s := range symbols {
		fn(s, depth)
		walk(s.Children, depth+1, fn)
	}
}

// Count returns the number of symbols in the tree
func Count(symbols []Symbol) int {
	n := 0
	Walk(symbols, func(Symbol, int) { n++ })
	return n
}
