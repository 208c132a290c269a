package workspace

import (
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// PathToUri converts a file path to a file URI, resolving relative paths against the workspace root
func PathToUri(filePath string, workspaceRoot string) string {
	if strings.HasPrefix(filePath, fileScheme) {
		return filePath
	}

	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(workspaceRoot, filePath)
	}

	return fileScheme + filepath.ToSlash(filepath.Clean(filePath))
}

// UriToPath converts a file URI to a local file path
func UriToPath(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, fileScheme))
}

// GetRelativePath converts an absolute path to a path relative to the workspace root
func GetRelativePath(absolutePath, workspaceRoot string) string {
	if rel, err := filepath.Rel(workspaceRoot, absolutePath); err == nil {
		return rel
	}
	return absolutePath
}
