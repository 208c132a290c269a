package types

import "time"

// Config represents the configuration for the codedoc-mcp server
type Config struct {
	WorkspaceRoot   string                          `json:"workspace_root" yaml:"workspace_root" validate:"required"`
	LogLevel        string                          `json:"log_level,omitempty" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat       string                          `json:"log_format,omitempty" yaml:"log_format" validate:"omitempty,oneof=text json"`
	LogFile         string                          `json:"log_file,omitempty" yaml:"log_file"`
	RequestTimeout  time.Duration                   `json:"request_timeout,omitempty" yaml:"request_timeout" validate:"gte=0"`
	ScratchDir      string                          `json:"scratch_dir,omitempty" yaml:"scratch_dir"`
	DefaultScope    string                          `json:"default_scope,omitempty" yaml:"default_scope" validate:"omitempty,oneof=buffer project"`
	LanguageServers map[string]LanguageServerConfig `json:"language_servers,omitempty" yaml:"language_servers" validate:"dive"`
}

// LanguageServerConfig describes how to launch a language server for one language id
type LanguageServerConfig struct {
	Command string   `json:"command" yaml:"command" validate:"required"`
	Args    []string `json:"args,omitempty" yaml:"args"`
}
