// Package match pairs two symbol trees positionally and reports renamed symbols.
package match

import (
	"log/slog"

	"github.com/averycrespi/codedoc-mcp/internal/symbols"
)

// RenameEntry is a symbol whose name changed between the original and modified trees.
// Old and New always have the same kind and different names.
type RenameEntry struct {
	Old symbols.Symbol `json:"old"`
	New symbols.Symbol `json:"new"`
}

// Stats summarizes a match
type Stats struct {
	// Compared is the number of positional pairs inspected
	Compared int `json:"compared"`
	// KindMismatches counts pairs skipped because their kinds differ
	KindMismatches int `json:"kind_mismatches"`
	// Unpaired counts symbols without a counterpart at the same index
	Unpaired int `json:"unpaired"`
}

// Result is the outcome of Match
type Result struct {
	Entries []RenameEntry `json:"entries"`
	Stats   Stats         `json:"stats"`
}

// Match walks both trees in lock-step by index. A pair with the same kind and different
// names is a rename; a pair with different kinds is skipped. Children are compared whenever
// both sides have them. Entries are in pre-order of the original tree.
//
// Pairing is purely positional: an inserted or removed symbol shifts every later sibling
// out of alignment, which surfaces as kind mismatches or spurious renames.
func Match(original, modified []symbols.Symbol) Result {
	var res Result
	matchLevel(original, modified, &res)

	if res.Stats.KindMismatches > 0 || res.Stats.Unpaired > 0 {
		slog.Debug("Symbol trees are not aligned",
			"kind_mismatches", res.Stats.KindMismatches,
			"unpaired", res.Stats.Unpaired)
	}
	return res
}

func matchLevel(original, modified []symbols.Symbol, res *Result) {
	n := min(len(original), len(modified))
	res.Stats.Unpaired += len(original) - n + len(modified) - n

	for i := range n {
		o, m := original[i], modified[i]
		res.Stats.Compared++

		if o.Kind != m.Kind {
			res.Stats.KindMismatches++
		} else if o.Name != m.Name {
			res.Entries = append(res.Entries, RenameEntry{Old: o, New: m})
		}

		if len(o.Children) > 0 && len(m.Children) > 0 {
			matchLevel(o.Children, m.Children, res)
		}
	}
}
