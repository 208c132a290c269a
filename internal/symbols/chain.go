package symbols

import (
	"context"
	"errors"
	"log/slog"

	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

var _ types.SymbolProvider = ChainProvider{}

// ChainProvider asks each provider in turn and returns the first non-empty outline
type ChainProvider []types.SymbolProvider

func (c ChainProvider) ProvideSymbols(ctx context.Context, uri string, languageID string) ([]types.DocumentSymbol, error) {
	var errs []error
	for _, p := range c {
		symbols, err := p.ProvideSymbols(ctx, uri, languageID)
		if err != nil {
			slog.Debug("Symbol provider failed, trying next", "uri", uri, "error", err)
			errs = append(errs, err)
			continue
		}
		if len(symbols) > 0 {
			return symbols, nil
		}
	}
	return nil, errors.Join(errs...)
}
