package symbols

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

const scratchBaseName = "buffer"

// Extractor produces symbol trees for raw text by materializing it as a scratch file
// and asking a SymbolProvider for its outline.
type Extractor struct {
	provider   types.SymbolProvider
	scratchDir string
	timeout    time.Duration
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithScratchDir sets the parent directory for scratch files. The default is the OS temp dir.
func WithScratchDir(dir string) ExtractorOption {
	return func(e *Extractor) {
		e.scratchDir = dir
	}
}

// WithTimeout bounds each provider call
func WithTimeout(timeout time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.timeout = timeout
	}
}

// NewExtractor creates a new extractor
func NewExtractor(provider types.SymbolProvider, opts ...ExtractorOption) *Extractor {
	e := &Extractor{provider: provider}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the symbol tree of text. It never fails: an unsupported language,
// a provider error, a timeout or a provider panic all yield an empty tree and a warning.
// The scratch file is removed before Extract returns.
func (e *Extractor) Extract(ctx context.Context, text string, languageID string) (symbols []Symbol) {
	start := time.Now()

	dir, err := os.MkdirTemp(e.scratchDir, "codedoc-*")
	if err != nil {
		slog.Warn("Symbol analysis unavailable", "language_id", languageID, "error", fmt.Errorf("failed to create scratch dir: %w", err))
		return nil
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("Failed to remove scratch dir", "dir", dir, "error", err)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Symbol analysis unavailable", "language_id", languageID, "error", fmt.Errorf("provider panicked: %v", r))
			symbols = nil
		}
	}()

	path := filepath.Join(dir, scratchBaseName+workspace.ExtensionForLanguage(languageID))
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		slog.Warn("Symbol analysis unavailable", "language_id", languageID, "error", fmt.Errorf("failed to write scratch file: %w", err))
		return nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	docSymbols, err := e.provider.ProvideSymbols(ctx, workspace.PathToUri(path, ""), languageID)
	if err != nil {
		slog.Warn("Symbol analysis unavailable", "language_id", languageID, "error", err)
		return nil
	}

	symbols = FromDocumentSymbols(docSymbols)
	slog.Debug("Extracted symbols",
		"language_id", languageID,
		"count", Count(symbols),
		"duration_ms", time.Since(start).Milliseconds())
	return symbols
}

// ExtractFile returns the symbol tree of a file on disk, reading it through the same scratch path
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]Symbol, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return e.Extract(ctx, string(content), workspace.LanguageForPath(path)), nil
}
