package review

import (
	"strings"
	"time"

	"github.com/averycrespi/codedoc-mcp/internal/match"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// State is a step of the review lifecycle
type State int

const (
	StateIdle State = iota
	StateSymbolsExtracted
	StateRenamesComputed
	StateReviewing
	StateApplied
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSymbolsExtracted:
		return "symbols_extracted"
	case StateRenamesComputed:
		return "renames_computed"
	case StateReviewing:
		return "reviewing"
	case StateApplied:
		return "applied"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Buffer is the document a response applies to
type Buffer struct {
	URI        string
	LanguageID string
	Text       string
	// Selection is the region the response replaces
	Selection types.Range
}

// EditSpan holds the variants of the selected region. An empty Renamed or Commented
// variant is absent and counts as unchanged.
type EditSpan struct {
	Original  string
	Renamed   string
	Commented string
}

// normalize trims model output and fills absent variants with the original
func (s EditSpan) normalize() EditSpan {
	out := EditSpan{
		Original:  s.Original,
		Renamed:   strings.TrimSpace(s.Renamed),
		Commented: strings.TrimSpace(s.Commented),
	}
	core := strings.TrimSpace(s.Original)
	if out.Renamed == "" || out.Renamed == core {
		out.Renamed = core
	}
	if out.Commented == "" || out.Commented == core {
		out.Commented = core
	}
	out.Original = core
	return out
}

// Session is the single live review. It is owned by the Orchestrator.
type Session struct {
	ID         string
	Buffer     Buffer
	Span       EditSpan
	Merged     string
	Renames    []match.RenameEntry
	Stats      match.Stats
	Comparison types.ComparisonRef
	State      State
	CreatedAt  time.Time

	// byte offsets of the selection in Buffer.Text
	start int
	end   int
	// whitespace around the selected code, kept when splicing
	lead  string
	trail string
}

// splice returns text with the selection replaced by span, keeping the selection's surrounding whitespace
func (s *Session) splice(text string, start, end int, span string) string {
	return text[:start] + s.lead + span + s.trail + text[end:]
}

// MergedBuffer returns the buffer with the merged span in place of the selection
func (s *Session) MergedBuffer() string {
	return s.splice(s.Buffer.Text, s.start, s.end, s.Merged)
}

func surroundingSpace(selected string) (lead, trail string) {
	core := strings.TrimSpace(selected)
	if core == "" {
		return selected, ""
	}
	i := strings.Index(selected, core)
	return selected[:i], selected[i+len(core):]
}
