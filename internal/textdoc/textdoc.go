// Package textdoc converts between LSP positions and byte offsets and applies
// text edits to in-memory documents.
package textdoc

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// Replacement is a resolved edit expressed in byte offsets of the original text
type Replacement struct {
	Start int
	End   int
	Text  string
}

// Offset converts a position into a byte offset in text.
// Characters past the end of the line are clamped to the line end.
func Offset(text string, pos types.Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("invalid position %d:%d", pos.Line, pos.Character)
	}

	lineStart := 0
	for line := 0; line < pos.Line; line++ {
		next := strings.IndexByte(text[lineStart:], '\n')
		if next < 0 {
			return 0, fmt.Errorf("line %d is out of range (text has %d lines)", pos.Line, line+1)
		}
		lineStart += next + 1
	}

	lineEnd := len(text)
	if next := strings.IndexByte(text[lineStart:], '\n'); next >= 0 {
		lineEnd = lineStart + next
	}
	if lineEnd > lineStart && text[lineEnd-1] == '\r' {
		lineEnd--
	}

	offset := lineStart
	units := 0
	for offset < lineEnd && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[offset:lineEnd])
		units += utf16Len(r)
		offset += size
	}
	return offset, nil
}

// PositionAt converts a byte offset into a position
func PositionAt(text string, offset int) types.Position {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}

	line := strings.Count(text[:offset], "\n")
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return types.Position{Line: line, Character: UTF16Len(text[lineStart:offset])}
}

// UTF16Len returns the length of s in UTF-16 code units
func UTF16Len(s string) int {
	units := 0
	for _, r := range s {
		units += utf16Len(r)
	}
	return units
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// ByteColumnToCharacter converts a byte column within a line to a UTF-16 character offset
func ByteColumnToCharacter(line string, column int) int {
	if column > len(line) {
		column = len(line)
	}
	return UTF16Len(line[:column])
}

// Resolve converts a range into byte offsets
func Resolve(text string, r types.Range) (start int, end int, err error) {
	start, err = Offset(text, r.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to resolve range start: %w", err)
	}
	end, err = Offset(text, r.End)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to resolve range end: %w", err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("range end %d:%d precedes start %d:%d", r.End.Line, r.End.Character, r.Start.Line, r.Start.Character)
	}
	return start, end, nil
}

// FindRange returns the range of the first occurrence of needle in text
func FindRange(text string, needle string) (types.Range, bool) {
	if needle == "" {
		return types.Range{}, false
	}
	idx := strings.Index(text, needle)
	if idx < 0 {
		return types.Range{}, false
	}
	return types.Range{
		Start: PositionAt(text, idx),
		End:   PositionAt(text, idx+len(needle)),
	}, true
}

// FullRange returns the range covering the whole text
func FullRange(text string) types.Range {
	return types.Range{End: PositionAt(text, len(text))}
}

// ApplyEdits applies text edits to text. Either every edit applies or none does:
// an unresolvable or overlapping edit returns an error and the original text is untouched.
// The returned replacements are sorted by start offset.
func ApplyEdits(text string, edits []types.TextEdit) (string, []Replacement, error) {
	replacements := make([]Replacement, 0, len(edits))
	for _, edit := range edits {
		start, end, err := Resolve(text, edit.Range)
		if err != nil {
			return text, nil, err
		}
		replacements = append(replacements, Replacement{Start: start, End: end, Text: edit.NewText})
	}

	sort.SliceStable(replacements, func(i, j int) bool {
		return replacements[i].Start < replacements[j].Start
	})

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, rep := range replacements {
		if rep.Start < cursor {
			return text, nil, fmt.Errorf("overlapping edits at offset %d", rep.Start)
		}
		b.WriteString(text[cursor:rep.Start])
		b.WriteString(rep.Text)
		cursor = rep.End
	}
	b.WriteString(text[cursor:])

	return b.String(), replacements, nil
}

// MapOffset maps a byte offset of the original text to the corresponding offset
// after the replacements were applied. Offsets inside a replaced region are clamped
// into the replacement text.
func MapOffset(offset int, replacements []Replacement) int {
	delta := 0
	for _, rep := range replacements {
		switch {
		case rep.End <= offset:
			delta += len(rep.Text) - (rep.End - rep.Start)
		case rep.Start < offset:
			return rep.Start + delta + min(offset-rep.Start, len(rep.Text))
		default:
			return offset + delta
		}
	}
	return offset + delta
}
