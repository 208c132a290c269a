// Package substitute propagates accepted renames through a buffer or a project.
package substitute

import (
	"fmt"
	"log/slog"

	"github.com/dlclark/regexp2"

	"github.com/averycrespi/codedoc-mcp/internal/match"
)

// Rename is a name-level substitution
type Rename struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// RenamesFromEntries returns the name pairs of rename entries
func RenamesFromEntries(entries []match.RenameEntry) []Rename {
	renames := make([]Rename, 0, len(entries))
	for _, e := range entries {
		renames = append(renames, Rename{Old: e.Old.Name, New: e.New.Name})
	}
	return renames
}

// Reverse returns the renames that undo renames, in reverse order
func Reverse(renames []Rename) []Rename {
	reversed := make([]Rename, 0, len(renames))
	for i := len(renames) - 1; i >= 0; i-- {
		reversed = append(reversed, Rename{Old: renames[i].New, New: renames[i].Old})
	}
	return reversed
}

// Counts are replacements per occurrence class
type Counts struct {
	Tags  int `json:"tags"`
	Bare  int `json:"bare"`
	Calls int `json:"calls"`
}

// Total returns the number of replacements
func (c Counts) Total() int {
	return c.Tags + c.Bare + c.Calls
}

// Add returns the sum of two counts
func (c Counts) Add(o Counts) Counts {
	return Counts{Tags: c.Tags + o.Tags, Bare: c.Bare + o.Bare, Calls: c.Calls + o.Calls}
}

// occurrence classes, applied in this order
const (
	// <old ...>, </old>
	tagPattern = `(?<=</?)%s(?=[\s/>])`
	// old not preceded or followed by an identifier character, not a hyphenated word, not a call
	barePattern = `(?<![\w$])%s(?![\w$-]|\s*\()`
	// old( and old (
	callPattern = `(?<![\w$])%s(?=\s*\()`
)

// Textual replaces every occurrence of each old name with its new name, one rename at a time
// on the progressively updated text. Matching is case-sensitive and ignores scope: a local
// variable that shares a renamed symbol's name is renamed too.
func Textual(text string, renames []Rename) (string, Counts, error) {
	var total Counts
	for _, r := range renames {
		if r.Old == "" || r.New == "" || r.Old == r.New {
			continue
		}

		var counts Counts
		var err error
		quoted := regexp2.Escape(r.Old)

		if text, counts.Tags, err = replaceAll(text, tagPattern, quoted, r.New); err != nil {
			return "", total, err
		}
		if text, counts.Bare, err = replaceAll(text, barePattern, quoted, r.New); err != nil {
			return "", total, err
		}
		if text, counts.Calls, err = replaceAll(text, callPattern, quoted, r.New); err != nil {
			return "", total, err
		}

		slog.Debug("Replaced identifier",
			"old", r.Old,
			"new", r.New,
			"tags", counts.Tags,
			"bare", counts.Bare,
			"calls", counts.Calls)
		total = total.Add(counts)
	}
	return text, total, nil
}

// replaceAll substitutes literally: "$" in the new name is not a group reference
func replaceAll(text, pattern, quoted, replacement string) (string, int, error) {
	re, err := regexp2.Compile(fmt.Sprintf(pattern, quoted), regexp2.None)
	if err != nil {
		return "", 0, fmt.Errorf("failed to compile identifier pattern: %w", err)
	}

	n := 0
	out, err := re.ReplaceFunc(text, func(regexp2.Match) string {
		n++
		return replacement
	}, -1, -1)
	if err != nil {
		return "", 0, fmt.Errorf("failed to replace identifier: %w", err)
	}
	return out, n, nil
}
