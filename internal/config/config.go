// Package config loads and validates the server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

const (
	// DefaultRequestTimeout bounds every language server request
	DefaultRequestTimeout = 10 * time.Second
	// DefaultLogLevel is used when no level is configured
	DefaultLogLevel = "info"
	// DefaultLogFormat is used when no format is configured
	DefaultLogFormat = "text"
	// DefaultScope is the rename scope used when accept_renames names none
	DefaultScope = "buffer"
)

// Default returns the configuration used when no file is given
func Default() *types.Config {
	return &types.Config{
		WorkspaceRoot:  ".",
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		RequestTimeout: DefaultRequestTimeout,
		DefaultScope:   DefaultScope,
		LanguageServers: map[string]types.LanguageServerConfig{
			"go": {Command: "gopls", Args: []string{"serve"}},
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path yields the defaults.
// A language_servers section replaces the default servers entirely.
func Load(path string) (*types.Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file types.Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	merge(cfg, &file)
	return cfg, nil
}

func merge(dst, src *types.Config) {
	if src.WorkspaceRoot != "" {
		dst.WorkspaceRoot = src.WorkspaceRoot
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogFormat != "" {
		dst.LogFormat = src.LogFormat
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
	if src.RequestTimeout != 0 {
		dst.RequestTimeout = src.RequestTimeout
	}
	if src.ScratchDir != "" {
		dst.ScratchDir = src.ScratchDir
	}
	if src.DefaultScope != "" {
		dst.DefaultScope = src.DefaultScope
	}
	if src.LanguageServers != nil {
		dst.LanguageServers = src.LanguageServers
	}
}

// Validate checks field constraints and resolves the workspace root to an absolute directory
func Validate(cfg *types.Config) error {
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.DefaultScope = strings.ToLower(cfg.DefaultScope)

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	root, err := filepath.Abs(cfg.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if stat, err := os.Stat(root); err != nil || !stat.IsDir() {
		return fmt.Errorf("invalid workspace root: %s", cfg.WorkspaceRoot)
	}
	cfg.WorkspaceRoot = root

	return nil
}
