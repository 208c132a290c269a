package review

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

var _ types.Persister = &FilePersister{}

// FilePersister writes documents to disk atomically, keeping the existing file mode
type FilePersister struct{}

// NewFilePersister creates a new file persister
func NewFilePersister() *FilePersister {
	return &FilePersister{}
}

func (p *FilePersister) Persist(ctx context.Context, uri string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := workspace.UriToPath(uri)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	slog.Debug("Persisted document", "path", path, "bytes", len(text))
	return nil
}
