package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/averycrespi/codedoc-mcp/internal/client"
	"github.com/averycrespi/codedoc-mcp/internal/match"
	"github.com/averycrespi/codedoc-mcp/internal/merge"
	"github.com/averycrespi/codedoc-mcp/internal/server"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
)

type mergeOptions struct {
	renamed   string
	commented string
	language  string
}

func newMergeCmd(opts *rootOptions) *cobra.Command {
	mo := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge ORIGINAL",
		Short: "Merge renamed and commented variants of a file and report renamed symbols",
		Long: `Merges the renamed and commented variants of ORIGINAL, prints the merged text to
stdout and lists every detected rename on stderr. Nothing is written to disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mo.renamed == "" && mo.commented == "" {
				return fmt.Errorf("at least one of --renamed or --commented is required")
			}

			cfg, closer, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			original, err := readVariant(args[0])
			if err != nil {
				return err
			}
			renamed, err := readVariant(mo.renamed)
			if err != nil {
				return err
			}
			commented, err := readVariant(mo.commented)
			if err != nil {
				return err
			}

			core := strings.TrimSpace(original)
			merged := merge.Merge(core, orCore(renamed, core), orCore(commented, core))
			fmt.Fprintln(cmd.OutOrStdout(), merged)

			languageID := mo.language
			if languageID == "" {
				languageID = workspace.LanguageForPath(args[0])
			}

			manager := client.NewManager(cfg.WorkspaceRoot, cfg.LanguageServers, cfg.RequestTimeout)
			defer manager.Shutdown(context.Background())
			extractor := server.NewExtractor(manager, *cfg)

			res := match.Match(
				extractor.Extract(cmd.Context(), core, languageID),
				extractor.Extract(cmd.Context(), merged, languageID),
			)
			for i, e := range res.Entries {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d: %s -> %s (%s)\n", i, e.Old.Name, e.New.Name, e.Old.Kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mo.renamed, "renamed", "", "File holding the renamed variant")
	cmd.Flags().StringVar(&mo.commented, "commented", "", "File holding the commented variant")
	cmd.Flags().StringVar(&mo.language, "language", "", "Language id (default: from the ORIGINAL file extension)")
	return cmd
}

func readVariant(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(content), nil
}

// orCore trims a variant; an absent or blank variant is the unchanged core
func orCore(variant, core string) string {
	if v := strings.TrimSpace(variant); v != "" {
		return v
	}
	return core
}
