package substitute

import (
	"errors"
	"fmt"
	"strings"
)

// Scope selects how far accepted renames propagate
type Scope string

const (
	// ScopeBuffer renames occurrences in the reviewed document only
	ScopeBuffer Scope = "buffer"
	// ScopeProject renames the symbol across the project
	ScopeProject Scope = "project"
)

// ErrInvalidScope is returned for an unknown scope name
var ErrInvalidScope = errors.New("invalid scope")

// ParseScope parses a scope name; the empty string yields fallback
func ParseScope(s string, fallback Scope) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return fallback, nil
	case ScopeBuffer:
		return ScopeBuffer, nil
	case ScopeProject:
		return ScopeProject, nil
	}
	return "", fmt.Errorf("%w %q: expected %q or %q", ErrInvalidScope, s, ScopeBuffer, ScopeProject)
}
