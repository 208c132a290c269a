package workspace

import (
	"path/filepath"
	"strings"
)

// Language identifiers, matching the identifiers editors send to language servers
const (
	LanguageGo              = "go"
	LanguageJavaScript      = "javascript"
	LanguageJavaScriptReact = "javascriptreact"
	LanguageTypeScript      = "typescript"
	LanguageTypeScriptReact = "typescriptreact"
	LanguagePython          = "python"
	LanguageJava            = "java"
	LanguageC               = "c"
)

var extensionLanguages = map[string]string{
	".go":   LanguageGo,
	".js":   LanguageJavaScript,
	".mjs":  LanguageJavaScript,
	".cjs":  LanguageJavaScript,
	".jsx":  LanguageJavaScriptReact,
	".ts":   LanguageTypeScript,
	".mts":  LanguageTypeScript,
	".cts":  LanguageTypeScript,
	".tsx":  LanguageTypeScriptReact,
	".py":   LanguagePython,
	".java": LanguageJava,
	".c":    LanguageC,
	".h":    LanguageC,
}

var languageExtensions = map[string]string{
	LanguageGo:              ".go",
	LanguageJavaScript:      ".js",
	LanguageJavaScriptReact: ".jsx",
	LanguageTypeScript:      ".ts",
	LanguageTypeScriptReact: ".tsx",
	LanguagePython:          ".py",
	LanguageJava:            ".java",
	LanguageC:               ".c",
}

// LanguageForPath returns the language id for a file path or URI, or "" if unknown
func LanguageForPath(path string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// ExtensionForLanguage returns the canonical file extension for a language id.
// Unknown languages get ".txt" so that scratch files still have a name.
func ExtensionForLanguage(languageID string) string {
	if ext, ok := languageExtensions[languageID]; ok {
		return ext
	}
	return ".txt"
}

// SourceExtensions returns every extension with a known language
func SourceExtensions() []string {
	exts := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		exts = append(exts, ext)
	}
	return exts
}
