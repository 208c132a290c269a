// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options describes where and how to log
type Options struct {
	Level  string
	Format string
	// File enables a rotating log file instead of stderr
	File string
}

// ParseLevel converts a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// NewHandler builds a text or JSON handler writing to w
func NewHandler(w io.Writer, opts Options) (slog.Handler, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		return slog.NewTextHandler(w, handlerOpts), nil
	case "json":
		return slog.NewJSONHandler(w, handlerOpts), nil
	}
	return nil, fmt.Errorf("unknown log format %q", opts.Format)
}

// Setup installs the default logger. Stdout is never used: it carries the MCP stdio stream.
// The returned closer releases the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		w, closer = file, file
	}

	handler, err := NewHandler(w, opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
