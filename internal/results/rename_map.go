package results

import (
	"github.com/averycrespi/codedoc-mcp/internal/match"
	"github.com/averycrespi/codedoc-mcp/internal/symbols"
)

// GetRenameMapToolResult represents the result of the get_rename_map tool
type GetRenameMapToolResult struct {
	Message   string        `json:"message"`
	SessionID string        `json:"session_id,omitempty"`
	Renames   []RenameEntry `json:"renames,omitempty"`
}

// RenameEntry is one detected rename, addressed by Index in accept_renames
type RenameEntry struct {
	Index    int            `json:"index"`
	OldName  string         `json:"old_name"`
	NewName  string         `json:"new_name"`
	Kind     symbols.Kind   `json:"kind"`
	Location SymbolLocation `json:"location"`
	Anchor   SymbolAnchor   `json:"anchor"`
	Source   *SourceContext `json:"source,omitempty"`
}

// NewRenameEntries converts detected renames of file. Locations refer to the original text.
func NewRenameEntries(file string, text string, entries []match.RenameEntry) []RenameEntry {
	out := make([]RenameEntry, 0, len(entries))
	for i, e := range entries {
		location := NewSymbolLocation(file, e.Old.Declaration)
		out = append(out, RenameEntry{
			Index:    i,
			OldName:  e.Old.Name,
			NewName:  e.New.Name,
			Kind:     e.Old.Kind,
			Location: location,
			Anchor:   location.ToAnchor(),
			Source:   NewSourceContext(text, e.Old.Declaration.Line, 1),
		})
	}
	return out
}
