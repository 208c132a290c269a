package substitute

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// always skipped, whatever the ignore files say
var skippedDirs = []string{".git", "node_modules", "vendor", ".codedoc"}

// GetIgnoreRules reads .gitignore and .codedoc/ignore under root. It returns nil when neither exists.
func GetIgnoreRules(root string) *ignore.GitIgnore {
	var allRules []string

	if rules, err := readIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		allRules = append(allRules, rules...)
	}
	if rules, err := readIgnoreFile(filepath.Join(root, ".codedoc", "ignore")); err == nil {
		allRules = append(allRules, rules...)
	}

	if len(allRules) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(allRules...)
}

func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// DiscoverFiles returns the source files under root that are not ignored, in walk order
func DiscoverFiles(root string) ([]string, error) {
	rules := GetIgnoreRules(root)
	extensions := workspace.SourceExtensions()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if slices.Contains(skippedDirs, d.Name()) || (rules != nil && rules.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !slices.Contains(extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		if rules != nil && rules.MatchesPath(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover project files: %w", err)
	}
	return files, nil
}

// ProjectResult is the outcome of a project-wide textual rename
type ProjectResult struct {
	Counts   Counts
	Files    []string
	Warnings []Warning
}

// Project applies textual renames to every discovered project file except the owner,
// persisting each changed file individually.
func Project(ctx context.Context, root string, ownerURI string, renames []Rename, persister types.Persister) (*ProjectResult, error) {
	files, err := DiscoverFiles(root)
	if err != nil {
		return nil, err
	}

	ownerPath := filepath.Clean(workspace.UriToPath(ownerURI))
	res := &ProjectResult{}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("project rename cancelled: %w", err)
		}
		if filepath.Clean(file) == ownerPath {
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{File: file, Reason: fmt.Sprintf("failed to read file: %v", err)})
			continue
		}

		updated, counts, err := Textual(string(content), renames)
		if err != nil {
			return nil, err
		}
		if counts.Total() == 0 || updated == string(content) {
			continue
		}

		if err := persister.Persist(ctx, workspace.PathToUri(file, ""), updated); err != nil {
			slog.Warn("Failed to persist renamed file", "file", file, "error", err)
			res.Warnings = append(res.Warnings, Warning{File: file, Reason: fmt.Sprintf("failed to persist: %v", err)})
			continue
		}
		res.Counts = res.Counts.Add(counts)
		res.Files = append(res.Files, file)
	}

	slog.Info("Project rename finished", "files", len(res.Files), "replacements", res.Counts.Total(), "warnings", len(res.Warnings))
	return res, nil
}
