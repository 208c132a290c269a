package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/averycrespi/codedoc-mcp/internal/config"
	"github.com/averycrespi/codedoc-mcp/internal/logging"
	"github.com/averycrespi/codedoc-mcp/pkg/project"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

type rootOptions struct {
	configPath    string
	workspaceRoot string
	logLevel      string
	logFormat     string
	logFile       string
	noLSP         bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   project.Name,
		Short: "Review symbol renames in AI-generated code edits",
		Long: `codedoc-mcp merges renamed and commented variants of a code region, detects
renamed symbols and lets an MCP client accept or reject them before anything is written.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.workspaceRoot, "workspace-root", "", "Root directory of the workspace (default \".\")")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	flags.BoolVar(&opts.noLSP, "no-lsp", false, "Do not start language servers; use the built-in parser only")

	cmd.AddCommand(
		newServeCmd(opts),
		newSymbolsCmd(opts),
		newMergeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load builds the validated config from the config file and flags, and sets up logging
func (o *rootOptions) load(cmd *cobra.Command) (*types.Config, io.Closer, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workspace-root") {
		cfg.WorkspaceRoot = o.workspaceRoot
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("log-file") {
		cfg.LogFile = o.logFile
	}
	if o.noLSP {
		cfg.LanguageServers = nil
	}

	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	closer, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, closer, nil
}
