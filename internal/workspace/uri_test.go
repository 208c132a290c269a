package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathToUri(t *testing.T) {
	tests := []struct {
		name          string
		filePath      string
		workspaceRoot string
		expected      string
	}{
		{
			name:          "Absolute path",
			filePath:      "/home/user/project/main.go",
			workspaceRoot: "/home/user/project",
			expected:      "file:///home/user/project/main.go",
		},
		{
			name:          "Relative path",
			filePath:      "src/main.go",
			workspaceRoot: "/home/user/project",
			expected:      "file:///home/user/project/src/main.go",
		},
		{
			name:          "Already a URI",
			filePath:      "file:///home/user/project/main.go",
			workspaceRoot: "/home/user/project",
			expected:      "file:///home/user/project/main.go",
		},
		{
			name:          "Current directory relative",
			filePath:      "./main.go",
			workspaceRoot: "/home/user/project",
			expected:      "file:///home/user/project/main.go",
		},
		{
			name:          "Parent directory relative",
			filePath:      "../main.go",
			workspaceRoot: "/home/user/project",
			expected:      "file:///home/user/main.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PathToUri(tt.filePath, tt.workspaceRoot)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestUriToPath(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "Standard file URI",
			uri:      "file:///home/user/project/main.go",
			expected: "/home/user/project/main.go",
		},
		{
			name:     "Already a path",
			uri:      "/home/user/project/main.go",
			expected: "/home/user/project/main.go",
		},
		{
			name:     "Empty URI",
			uri:      "",
			expected: "",
		},
		{
			name:     "Just file scheme",
			uri:      "file://",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := UriToPath(tt.uri)
			assert.Equal(t, filepath.FromSlash(tt.expected), result)
		})
	}
}

func TestGetRelativePath(t *testing.T) {
	tests := []struct {
		name          string
		absolutePath  string
		workspaceRoot string
		expected      string
	}{
		{
			name:          "File in workspace root",
			absolutePath:  "/home/user/project/main.go",
			workspaceRoot: "/home/user/project",
			expected:      "main.go",
		},
		{
			name:          "File in subdirectory",
			absolutePath:  "/home/user/project/src/utils/helper.go",
			workspaceRoot: "/home/user/project",
			expected:      "src/utils/helper.go",
		},
		{
			name:          "Same as workspace root",
			absolutePath:  "/home/user/project",
			workspaceRoot: "/home/user/project",
			expected:      ".",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetRelativePath(tt.absolutePath, tt.workspaceRoot)
			assert.Equal(t, filepath.FromSlash(tt.expected), result)
		})
	}
}

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, LanguageGo, LanguageForPath("main.go"))
	assert.Equal(t, LanguageJavaScript, LanguageForPath("file:///src/app.JS"))
	assert.Equal(t, LanguageTypeScriptReact, LanguageForPath("view.tsx"))
	assert.Equal(t, "", LanguageForPath("README.md"))
}

func TestExtensionForLanguage(t *testing.T) {
	assert.Equal(t, ".py", ExtensionForLanguage(LanguagePython))
	assert.Equal(t, ".txt", ExtensionForLanguage("cobol"))
}
