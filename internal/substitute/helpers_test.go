package substitute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/averycrespi/codedoc-mcp/internal/textdoc"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// wordRenamer renames the identifier under the cursor in every listed file, reading from disk
type wordRenamer struct {
	files []string
	err   error
	extra map[string][]types.TextEdit
	words []string
}

var identifierChar = regexp.MustCompile(`[A-Za-z0-9_$]`)

func (r *wordRenamer) ProvideRenameEdit(ctx context.Context, uri string, position types.Position, newName string) (*types.WorkspaceEdit, error) {
	if r.err != nil {
		return nil, r.err
	}

	content, err := os.ReadFile(workspace.UriToPath(uri))
	if err != nil {
		return nil, err
	}
	text := string(content)
	offset, err := textdoc.Offset(text, position)
	if err != nil {
		return nil, err
	}

	end := offset
	for end < len(text) && identifierChar.MatchString(text[end:end+1]) {
		end++
	}
	word := text[offset:end]
	if word == "" {
		return nil, errors.New("no identifier at position")
	}
	r.words = append(r.words, word)

	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	edit := &types.WorkspaceEdit{Changes: map[string][]types.TextEdit{}}
	for _, file := range r.files {
		fileContent, err := os.ReadFile(file)
		if err != nil {
			// reference an unreadable file so the engine has to cope
			edit.Changes[workspace.PathToUri(file, "")] = []types.TextEdit{{NewText: newName}}
			continue
		}
		fileText := string(fileContent)
		var edits []types.TextEdit
		for _, loc := range pattern.FindAllStringIndex(fileText, -1) {
			edits = append(edits, types.TextEdit{
				Range:   types.Range{Start: textdoc.PositionAt(fileText, loc[0]), End: textdoc.PositionAt(fileText, loc[1])},
				NewText: newName,
			})
		}
		if len(edits) > 0 {
			edit.Changes[workspace.PathToUri(file, "")] = edits
		}
	}
	for uri, edits := range r.extra {
		edit.Changes[uri] = append(edit.Changes[uri], edits...)
	}
	return edit, nil
}

// diskPersister writes files to disk, failing for the listed paths
type diskPersister struct {
	fail      map[string]bool
	persisted []string
}

func (p *diskPersister) Persist(ctx context.Context, uri string, text string) error {
	path := workspace.UriToPath(uri)
	if p.fail[path] {
		return fmt.Errorf("permission denied: %s", filepath.Base(path))
	}
	p.persisted = append(p.persisted, path)
	return os.WriteFile(path, []byte(text), 0o644)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}
