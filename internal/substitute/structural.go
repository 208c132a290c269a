package substitute

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/averycrespi/codedoc-mcp/internal/match"
	"github.com/averycrespi/codedoc-mcp/internal/textdoc"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// Warning describes a rename or file that was skipped
type Warning struct {
	Symbol string `json:"symbol,omitempty"`
	File   string `json:"file,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	switch {
	case w.Symbol != "" && w.File != "":
		return fmt.Sprintf("%s (%s): %s", w.Symbol, w.File, w.Reason)
	case w.Symbol != "":
		return fmt.Sprintf("%s: %s", w.Symbol, w.Reason)
	case w.File != "":
		return fmt.Sprintf("%s: %s", w.File, w.Reason)
	}
	return w.Reason
}

// Owner is the document the renames were detected in. Start and End delimit the reviewed
// selection in byte offsets of Text.
type Owner struct {
	URI   string
	Text  string
	Start int
	End   int
}

// StructuralResult is the outcome of a structural rename batch
type StructuralResult struct {
	// Owner holds the owner document after the applied renames, with the selection remapped
	Owner    Owner
	Applied  []match.RenameEntry
	Skipped  []match.RenameEntry
	Warnings []Warning
	// Files lists every file persisted, owner included
	Files []string
}

// Structural renames symbols through a RenameProvider. Each symbol's workspace edit is
// applied in memory all-or-nothing; touched files are then persisted one by one so that a
// failing file does not abort the rest of the batch.
type Structural struct {
	renamer   types.RenameProvider
	persister types.Persister
}

// NewStructural creates a structural rename engine
func NewStructural(renamer types.RenameProvider, persister types.Persister) *Structural {
	return &Structural{renamer: renamer, persister: persister}
}

// Apply renames each entry at its declaration in the owner document. Declarations and the
// selection are remapped through the owner edits already persisted by earlier entries.
func (s *Structural) Apply(ctx context.Context, owner Owner, entries []match.RenameEntry) (*StructuralResult, error) {
	res := &StructuralResult{Owner: owner}
	originalText := owner.Text
	var ownerEdits [][]textdoc.Replacement
	persisted := make(map[string]bool)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("structural rename cancelled: %w", err)
		}

		skip := func(file, reason string) {
			slog.Warn("Skipping rename", "symbol", entry.Old.Name, "file", file, "reason", reason)
			res.Skipped = append(res.Skipped, entry)
			res.Warnings = append(res.Warnings, Warning{Symbol: entry.Old.Name, File: file, Reason: reason})
		}

		declOffset, err := textdoc.Offset(originalText, entry.Old.Declaration)
		if err != nil {
			skip("", fmt.Sprintf("declaration position is invalid: %v", err))
			continue
		}
		for _, reps := range ownerEdits {
			declOffset = textdoc.MapOffset(declOffset, reps)
		}
		position := textdoc.PositionAt(res.Owner.Text, declOffset)

		edit, err := s.renamer.ProvideRenameEdit(ctx, owner.URI, position, entry.New.Name)
		if err != nil {
			skip("", fmt.Sprintf("rename failed: %v", err))
			continue
		}
		if edit.IsEmpty() {
			skip("", "rename produced no edits")
			continue
		}

		updated, ownerReps, ok := s.applyInMemory(res.Owner, edit, skip)
		if !ok {
			continue
		}

		ownerWritten := true
		for _, uri := range sortedKeys(updated) {
			file := workspace.UriToPath(uri)
			if err := s.persister.Persist(ctx, uri, updated[uri]); err != nil {
				slog.Warn("Failed to persist renamed file", "symbol", entry.Old.Name, "file", file, "error", err)
				res.Warnings = append(res.Warnings, Warning{Symbol: entry.Old.Name, File: file, Reason: fmt.Sprintf("failed to persist: %v", err)})
				if uri == owner.URI {
					ownerWritten = false
				}
				continue
			}
			if !persisted[file] {
				persisted[file] = true
				res.Files = append(res.Files, file)
			}
		}

		// The provider reads the owner from disk, so the in-memory owner only advances
		// with what was written.
		if reps, touched := ownerReps[owner.URI]; touched && ownerWritten {
			ownerEdits = append(ownerEdits, reps)
			res.Owner.Text = updated[owner.URI]
			res.Owner.Start = textdoc.MapOffset(res.Owner.Start, reps)
			res.Owner.End = textdoc.MapOffset(res.Owner.End, reps)
		}
		res.Applied = append(res.Applied, entry)
	}

	slog.Info("Structural rename finished",
		"applied", len(res.Applied),
		"skipped", len(res.Skipped),
		"files", len(res.Files),
		"warnings", len(res.Warnings))
	return res, nil
}

// applyInMemory resolves every file edit of one symbol. Nothing is kept unless all files apply.
func (s *Structural) applyInMemory(owner Owner, edit *types.WorkspaceEdit, skip func(file, reason string)) (map[string]string, map[string][]textdoc.Replacement, bool) {
	updated := make(map[string]string)
	replacements := make(map[string][]textdoc.Replacement)

	for uri, edits := range edit.FileChanges() {
		if len(edits) == 0 {
			continue
		}
		file := workspace.UriToPath(uri)

		text := owner.Text
		if uri != owner.URI {
			content, err := os.ReadFile(file)
			if err != nil {
				skip(file, fmt.Sprintf("failed to read file: %v", err))
				return nil, nil, false
			}
			text = string(content)
		}

		newText, reps, err := textdoc.ApplyEdits(text, edits)
		if err != nil {
			skip(file, fmt.Sprintf("failed to apply edits: %v", err))
			return nil, nil, false
		}
		updated[uri] = newText
		replacements[uri] = reps
	}
	return updated, replacements, true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
