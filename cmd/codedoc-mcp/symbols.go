package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/averycrespi/codedoc-mcp/internal/client"
	"github.com/averycrespi/codedoc-mcp/internal/results"
	"github.com/averycrespi/codedoc-mcp/internal/server"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
)

func newSymbolsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols FILE",
		Short: "Print the symbol tree of a source file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			manager := client.NewManager(cfg.WorkspaceRoot, cfg.LanguageServers, cfg.RequestTimeout)
			defer manager.Shutdown(context.Background())

			path := workspace.UriToPath(workspace.PathToUri(args[0], cfg.WorkspaceRoot))
			syms, err := server.NewExtractor(manager, *cfg).ExtractFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			rel := filepath.ToSlash(workspace.GetRelativePath(path, cfg.WorkspaceRoot))
			out, err := json.MarshalIndent(results.NewFileSymbols(rel, syms), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal symbols: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
