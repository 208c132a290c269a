package results

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

const anchorScheme = "sym"

// SymbolAnchor encodes the declaration position of a symbol as sym://FILE#LINE:CHAR,
// using 1-indexed display coordinates
type SymbolAnchor string

// NewSymbolAnchor creates a new SymbolAnchor from a file, display line, and display character
func NewSymbolAnchor(file string, displayLine int, displayChar int) SymbolAnchor {
	return SymbolAnchor(fmt.Sprintf("%s://%s#%d:%d", anchorScheme, file, displayLine, displayChar))
}

func (a SymbolAnchor) String() string {
	return string(a)
}

// ToSymbolLocation converts the anchor to a SymbolLocation
func (a SymbolAnchor) ToSymbolLocation() (SymbolLocation, error) {
	file, displayLine, displayChar, err := a.Parse()
	if err != nil {
		return SymbolLocation{}, err
	}
	return SymbolLocation{File: file, DisplayLine: displayLine, DisplayChar: displayChar}, nil
}

// ToFilePosition converts the anchor to a file path and a 0-indexed LSP position
func (a SymbolAnchor) ToFilePosition() (string, types.Position, error) {
	loc, err := a.ToSymbolLocation()
	if err != nil {
		return "", types.Position{}, err
	}
	return loc.File, loc.Position(), nil
}

// Parse parses a SymbolAnchor into a file, display line, and display character
func (a SymbolAnchor) Parse() (file string, displayLine int, displayChar int, err error) {
	rest, ok := strings.CutPrefix(string(a), anchorScheme+"://")
	if !ok {
		return "", 0, 0, fmt.Errorf("invalid anchor scheme, expected '%s://', got: %s", anchorScheme, a)
	}

	file, coords, ok := strings.Cut(rest, "#")
	if !ok {
		return "", 0, 0, fmt.Errorf("invalid anchor format, expected 'sym://FILE#LINE:CHAR', got: %s", a)
	}
	if file == "" {
		return "", 0, 0, fmt.Errorf("empty file in anchor: %s", a)
	}

	lineStr, charStr, ok := strings.Cut(coords, ":")
	if !ok {
		return "", 0, 0, fmt.Errorf("invalid coordinate format, expected 'LINE:CHAR', got: %s", coords)
	}

	if displayLine, err = strconv.Atoi(lineStr); err != nil {
		return "", 0, 0, fmt.Errorf("invalid line number '%s': %w", lineStr, err)
	}
	if displayChar, err = strconv.Atoi(charStr); err != nil {
		return "", 0, 0, fmt.Errorf("invalid character number '%s': %w", charStr, err)
	}

	if displayLine < 1 {
		return "", 0, 0, fmt.Errorf("display line must be positive (starts at 1): %d", displayLine)
	}
	if displayChar < 1 {
		return "", 0, 0, fmt.Errorf("display character must be positive (starts at 1): %d", displayChar)
	}

	return file, displayLine, displayChar, nil
}
