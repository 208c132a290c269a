package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level     string
		expected  slog.Level
		expectErr bool
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "INFO", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
		{level: "warning", expected: slog.LevelWarn},
		{level: "error", expected: slog.LevelError},
		{level: "trace", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := ParseLevel(tt.level)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(&buf, Options{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger := slog.New(handler)
	logger.Info("Dropped")
	logger.Warn("Renaming symbol", "uri", "file:///a.go")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Renaming symbol", entry["msg"])
	assert.Equal(t, "file:///a.go", entry["uri"])
}

func TestNewHandlerText(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(&buf, Options{Level: "debug"})
	require.NoError(t, err)

	slog.New(handler).Debug("Opening document", "version", 2)
	assert.Contains(t, buf.String(), "msg=\"Opening document\" version=2")

	_, err = NewHandler(&buf, Options{Format: "xml"})
	assert.Error(t, err)
}

func TestSetupFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "codedoc.log")
	closer, err := Setup(Options{Level: "info", Format: "text", File: path})
	require.NoError(t, err)

	slog.Info("Server started")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Server started")
}
