package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

const contextLines = 3

var _ types.Presenter = &DiffPresenter{}

type comparison struct {
	originalRef string
	original    string
	modified    string
}

// DiffPresenter renders comparisons as unified diffs and keeps them until released
type DiffPresenter struct {
	mu          sync.Mutex
	comparisons map[types.ComparisonRef]comparison
}

// NewDiffPresenter creates a new diff presenter
func NewDiffPresenter() *DiffPresenter {
	return &DiffPresenter{comparisons: make(map[types.ComparisonRef]comparison)}
}

func (p *DiffPresenter) PresentComparison(ctx context.Context, originalRef string, original string, modified string) (types.ComparisonRef, error) {
	ref := types.ComparisonRef("diff:" + uuid.NewString())

	p.mu.Lock()
	p.comparisons[ref] = comparison{originalRef: originalRef, original: original, modified: modified}
	p.mu.Unlock()

	slog.Debug("Presented comparison", "ref", ref, "original_ref", originalRef)
	return ref, nil
}

func (p *DiffPresenter) Release(ctx context.Context, ref types.ComparisonRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.comparisons[ref]; !ok {
		return fmt.Errorf("unknown comparison %q", ref)
	}
	delete(p.comparisons, ref)
	slog.Debug("Released comparison", "ref", ref)
	return nil
}

// Diff returns the unified diff of a presented comparison
func (p *DiffPresenter) Diff(ref types.ComparisonRef) (string, error) {
	p.mu.Lock()
	c, ok := p.comparisons[ref]
	p.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown comparison %q", ref)
	}

	name := workspace.UriToPath(c.originalRef)
	return UnifiedDiff(name, c.original, c.modified)
}

// Open reports how many comparisons have not been released
func (p *DiffPresenter) Open() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.comparisons)
}

type lineOp struct {
	op   diffmatchpatch.Operation
	text string
}

// UnifiedDiff renders a line diff between two texts. Identical texts yield "".
func UnifiedDiff(name string, original string, modified string) (string, error) {
	if original == modified {
		return "", nil
	}

	a, b, lines := lineRunes(original, modified)
	diffs := diffmatchpatch.New().DiffMainRunes(a, b, false)

	var ops []lineOp
	for _, d := range diffs {
		for _, r := range d.Text {
			line := lines[r]
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			ops = append(ops, lineOp{op: d.Type, text: line})
		}
	}

	fileDiff := &diff.FileDiff{
		OrigName: "a/" + strings.TrimPrefix(name, "/"),
		NewName:  "b/" + strings.TrimPrefix(name, "/"),
		Hunks:    buildHunks(ops),
	}
	out, err := diff.PrintFileDiff(fileDiff)
	if err != nil {
		return "", fmt.Errorf("failed to print diff: %w", err)
	}
	return string(out), nil
}

// lineRunes encodes every distinct line of both texts as one rune, so that a rune diff
// is a line diff
func lineRunes(original, modified string) ([]rune, []rune, map[rune]string) {
	index := make(map[string]rune)
	lines := make(map[rune]string)

	encode := func(text string) []rune {
		var out []rune
		for _, line := range splitLines(text) {
			r, ok := index[line]
			if !ok {
				r = lineRune(len(index))
				index[line] = r
				lines[r] = line
			}
			out = append(out, r)
		}
		return out
	}
	return encode(original), encode(modified), lines
}

// lineRune maps a line number to a valid rune, skipping the surrogate range
func lineRune(n int) rune {
	r := rune(n + 1)
	if r >= 0xD800 {
		r += 0x800
	}
	return r
}

// splitLines splits text into lines that each keep their newline. A final line without
// one is returned as is.
func splitLines(text string) []string {
	var lines []string
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

// buildHunks groups changed lines with up to contextLines of context on each side
func buildHunks(ops []lineOp) []*diff.Hunk {
	var hunks []*diff.Hunk

	origLine, newLine := 1, 1
	i := 0
	for i < len(ops) {
		if ops[i].op == diffmatchpatch.DiffEqual {
			origLine++
			newLine++
			i++
			continue
		}

		// back up over leading context
		start := i
		for start > 0 && i-start < contextLines && ops[start-1].op == diffmatchpatch.DiffEqual {
			start--
		}
		hunk := &diff.Hunk{
			OrigStartLine: int32(origLine - (i - start)),
			NewStartLine:  int32(newLine - (i - start)),
		}

		// extend until a run of more than 2*contextLines unchanged lines or the end
		end := i
		for end < len(ops) {
			if ops[end].op != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(ops) && ops[run].op == diffmatchpatch.DiffEqual {
				run++
			}
			if run == len(ops) || run-end > 2*contextLines {
				end = min(end+contextLines, len(ops))
				break
			}
			end = run
		}

		var body strings.Builder
		for _, o := range ops[start:end] {
			switch o.op {
			case diffmatchpatch.DiffEqual:
				body.WriteString(" " + o.text)
				hunk.OrigLines++
				hunk.NewLines++
			case diffmatchpatch.DiffDelete:
				body.WriteString("-" + o.text)
				hunk.OrigLines++
			case diffmatchpatch.DiffInsert:
				body.WriteString("+" + o.text)
				hunk.NewLines++
			}
		}
		hunk.Body = []byte(body.String())
		hunks = append(hunks, hunk)

		for _, o := range ops[i:end] {
			if o.op != diffmatchpatch.DiffInsert {
				origLine++
			}
			if o.op != diffmatchpatch.DiffDelete {
				newLine++
			}
		}
		i = end
	}
	return hunks
}
