// Package merge reconciles a renamed and a commented variant of the same source span.
package merge

import (
	"strings"
)

// markers are recognized comment openers, longest first so that "/**" is seen as "/*"
// and `"""` is not mistaken for a string quote.
var markers = []string{"<!--", `"""`, "'''", "//", "/*", "*/", "--", "#", "*"}

// Merge combines the renamed and commented variants of original.
//
// When one variant is unchanged the other is returned verbatim. Otherwise the result is a
// line-aligned union: every renamed line is kept, and a comment found on the commented
// line at the same index is carried over when the renamed line does not already hold it.
// A comment that opens its line becomes a new line after the renamed line; a trailing
// comment is appended inline. Trailing whitespace of the union is trimmed.
func Merge(original, renamed, commented string) string {
	if renamed == original {
		return commented
	}
	if commented == original {
		return renamed
	}

	originalLines := strings.Split(original, "\n")
	renamedLines := strings.Split(renamed, "\n")
	commentedLines := strings.Split(commented, "\n")

	n := max(len(renamedLines), len(commentedLines))
	out := make([]string, 0, n)

	for i := range n {
		base, hasBase := at(renamedLines, i)
		line, hasLine := at(commentedLines, i)

		if hasBase {
			out = append(out, base)
		}
		if !hasLine {
			continue
		}
		if orig, ok := at(originalLines, i); ok && orig == line {
			continue
		}

		start, opening, ok := CommentStart(line)
		if !ok {
			continue
		}
		comment := strings.TrimSpace(line[start:])

		switch {
		case !hasBase:
			out = append(out, line)
		case strings.Contains(base, comment):
		case opening:
			out = append(out, line)
		default:
			out[len(out)-1] = strings.TrimRight(base, " \t") + " " + comment
		}
	}

	return strings.TrimRight(strings.Join(out, "\n"), " \t\r\n")
}

func at(lines []string, i int) (string, bool) {
	if i < len(lines) {
		return lines[i], true
	}
	return "", false
}

// CommentStart finds the first comment marker of line outside string literals. It returns the
// byte offset of the marker and whether the marker opens the line (only whitespace before it).
func CommentStart(line string) (start int, opening bool, ok bool) {
	indent := len(line) - len(strings.TrimLeft(line, " \t"))

	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]

		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		if m := markerAt(line, i); m != "" && markerApplies(line, i, m, i == indent) {
			return i, i == indent, true
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		}
	}
	return 0, false, false
}

func markerAt(line string, i int) string {
	for _, m := range markers {
		if strings.HasPrefix(line[i:], m) {
			return m
		}
	}
	return ""
}

// markerApplies filters markers that double as operators
func markerApplies(line string, i int, marker string, opening bool) bool {
	switch marker {
	case "*/":
		return opening
	case "*":
		// block comment continuation, not a dereference
		end := i + 1
		return opening && (end == len(line) || isSpace(line[end]))
	case "--", "#":
		if opening {
			return true
		}
		before := line[i-1]
		after := byte(' ')
		if end := i + len(marker); end < len(line) {
			after = line[end]
		}
		return isSpace(before) && isSpace(after)
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
