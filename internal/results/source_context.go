package results

import "strings"

// SourceContext represents source code context around a symbol
type SourceContext struct {
	Lines []SourceLine `json:"lines"`
}

// SourceLine represents a line of source code
type SourceLine struct {
	Number    int    `json:"number"`
	Content   string `json:"content"`
	Highlight bool   `json:"highlight"`
}

// NewSourceContext returns the lines of text within radius of the 0-indexed line, highlighting it.
// Line numbers are 1-indexed. An out-of-range line yields nil.
func NewSourceContext(text string, line int, radius int) *SourceContext {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if line < 0 || line >= len(lines) {
		return nil
	}

	from := max(line-radius, 0)
	to := min(line+radius, len(lines)-1)

	ctx := &SourceContext{Lines: make([]SourceLine, 0, to-from+1)}
	for i := from; i <= to; i++ {
		ctx.Lines = append(ctx.Lines, SourceLine{
			Number:    i + 1,
			Content:   strings.TrimSuffix(lines[i], "\r"),
			Highlight: i == line,
		})
	}
	return ctx
}
