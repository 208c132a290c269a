// Package review runs the detect, review and apply lifecycle of an AI edit.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/averycrespi/codedoc-mcp/internal/match"
	"github.com/averycrespi/codedoc-mcp/internal/merge"
	"github.com/averycrespi/codedoc-mcp/internal/substitute"
	"github.com/averycrespi/codedoc-mcp/internal/symbols"
	"github.com/averycrespi/codedoc-mcp/internal/textdoc"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

var (
	// ErrSessionActive is returned when a review is already in progress
	ErrSessionActive = errors.New("a review session is already active")
	// ErrNoActiveSession is returned when there is no review to accept or reject
	ErrNoActiveSession = errors.New("no review session is active")
	// ErrInvalidSelection is returned for rename indexes outside the rename map
	ErrInvalidSelection = errors.New("invalid rename selection")
	// ErrSelectionMismatch is returned when the selected text is not the response's original text
	ErrSelectionMismatch = errors.New("selection does not match the original text")
	// ErrEmptySelection is returned when no code is selected
	ErrEmptySelection = errors.New("no code selected")
)

// Extractor produces symbol trees for raw text
type Extractor interface {
	Extract(ctx context.Context, text string, languageID string) []symbols.Symbol
}

// RenameSupport is implemented by rename providers that only serve some languages
type RenameSupport interface {
	Supports(languageID string) bool
}

// Dependencies are the collaborators of an Orchestrator. Renamer is optional: without it
// project scope falls back to textual renames over the workspace files.
type Dependencies struct {
	Extractor     Extractor
	Presenter     types.Presenter
	Persister     types.Persister
	Renamer       types.RenameProvider
	WorkspaceRoot string
}

// ProcessResult describes what happened to a response
type ProcessResult struct {
	SessionID   string              `json:"session_id,omitempty"`
	MergedText  string              `json:"merged_text"`
	RenameCount int                 `json:"rename_count"`
	NoChange    bool                `json:"no_change"`
	Applied     bool                `json:"applied"`
	Comparison  types.ComparisonRef `json:"comparison,omitempty"`
}

// AcceptResult describes an accepted review
type AcceptResult struct {
	Applied  int                  `json:"applied"`
	Skipped  int                  `json:"skipped"`
	Warnings []substitute.Warning `json:"warnings,omitempty"`
	Files    []string             `json:"files"`
	Counts   substitute.Counts    `json:"counts"`
	Text     string               `json:"-"`
}

// Orchestrator owns at most one review session at a time
type Orchestrator struct {
	deps Dependencies

	mu      sync.Mutex
	session *Session
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Dependencies) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// reserve claims the session slot so that concurrent responses are rejected
func (o *Orchestrator) reserve() (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil {
		return nil, fmt.Errorf("%w (session %s is %s)", ErrSessionActive, o.session.ID, o.session.State)
	}
	o.session = &Session{ID: uuid.NewString(), State: StateIdle, CreatedAt: time.Now()}
	return o.session, nil
}

func (o *Orchestrator) release(s *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == s {
		o.session = nil
	}
}

// update mutates the session under the lock so that Current sees whole steps
func (o *Orchestrator) update(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fn()
}

func (o *Orchestrator) setState(s *Session, state State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	slog.Debug("Review state changed", "session_id", s.ID, "from", s.State, "to", state)
	s.State = state
}

// Receive seeds a session from an upstream call. If fetch fails no session is created.
func (o *Orchestrator) Receive(ctx context.Context, buf Buffer, fetch func(ctx context.Context) (EditSpan, error)) (*ProcessResult, error) {
	if _, active := o.Current(); active {
		return nil, ErrSessionActive
	}

	span, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch response: %w", err)
	}
	return o.ProcessResponse(ctx, buf, span)
}

// ProcessResponse merges the response variants, detects renames and either applies the
// result directly (no renames) or opens a review session.
func (o *Orchestrator) ProcessResponse(ctx context.Context, buf Buffer, span EditSpan) (*ProcessResult, error) {
	s, err := o.reserve()
	if err != nil {
		return nil, err
	}
	keep := false
	defer func() {
		if !keep {
			o.release(s)
		}
	}()

	start, end, err := textdoc.Resolve(buf.Text, buf.Selection)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve selection: %w", err)
	}
	if start == end {
		return nil, ErrEmptySelection
	}
	selected := buf.Text[start:end]
	if span.Original == "" {
		span.Original = selected
	}
	if strings.TrimSpace(span.Original) != strings.TrimSpace(selected) {
		return nil, ErrSelectionMismatch
	}
	if buf.LanguageID == "" {
		buf.LanguageID = workspace.LanguageForPath(buf.URI)
	}

	normalized := span.normalize()
	merged := merge.Merge(normalized.Original, normalized.Renamed, normalized.Commented)
	o.update(func() {
		s.Buffer = buf
		s.Span = normalized
		s.start, s.end = start, end
		s.lead, s.trail = surroundingSpace(selected)
		s.Merged = merged
	})

	logger := slog.With("session_id", s.ID, "uri", buf.URI)

	if s.Merged == s.Span.Original {
		logger.Info("No changes detected")
		return &ProcessResult{MergedText: s.Merged, NoChange: true}, nil
	}

	mergedBuffer := s.MergedBuffer()

	// original first, then modified: the providers may share one server
	original := o.deps.Extractor.Extract(ctx, buf.Text, buf.LanguageID)
	modified := o.deps.Extractor.Extract(ctx, mergedBuffer, buf.LanguageID)
	o.setState(s, StateSymbolsExtracted)

	res := match.Match(original, modified)
	o.update(func() {
		s.Renames = res.Entries
		s.Stats = res.Stats
	})
	o.setState(s, StateRenamesComputed)
	logger.Info("Renames computed",
		"renames", len(s.Renames),
		"compared", res.Stats.Compared,
		"kind_mismatches", res.Stats.KindMismatches,
		"unpaired", res.Stats.Unpaired)

	if len(s.Renames) == 0 {
		if err := o.deps.Persister.Persist(ctx, buf.URI, mergedBuffer); err != nil {
			return nil, fmt.Errorf("failed to persist merged buffer: %w", err)
		}
		o.setState(s, StateApplied)
		logger.Info("Applied response without review")
		return &ProcessResult{MergedText: s.Merged, Applied: true}, nil
	}

	ref, err := o.deps.Presenter.PresentComparison(ctx, buf.URI, buf.Text, mergedBuffer)
	if err != nil {
		return nil, fmt.Errorf("failed to present comparison: %w", err)
	}
	o.update(func() {
		s.Comparison = ref
	})
	o.setState(s, StateReviewing)
	keep = true

	return &ProcessResult{
		SessionID:   s.ID,
		MergedText:  s.Merged,
		RenameCount: len(s.Renames),
		Comparison:  ref,
	}, nil
}

// Current returns a copy of the live session
func (o *Orchestrator) Current() (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return Session{}, false
	}
	return *o.session, true
}

// GetRenameMap returns the renames under review, or nil when nothing is under review
func (o *Orchestrator) GetRenameMap() []match.RenameEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil || o.session.State != StateReviewing {
		return nil
	}
	return slices.Clone(o.session.Renames)
}

// claim moves the reviewing session out of review so that a concurrent accept or reject fails
func (o *Orchestrator) claim(to State) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil || o.session.State != StateReviewing {
		return nil, ErrNoActiveSession
	}
	o.session.State = to
	return o.session, nil
}

// AcceptRenames applies the selected renames (nil selects all) in the given scope,
// reverts the unselected ones inside the merged span and persists the buffer.
func (o *Orchestrator) AcceptRenames(ctx context.Context, indexes []int, scope substitute.Scope) (*AcceptResult, error) {
	o.mu.Lock()
	if o.session == nil || o.session.State != StateReviewing {
		o.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	selected, unselected, err := partition(o.session.Renames, indexes)
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s, err := o.claim(StateApplied)
	if err != nil {
		return nil, err
	}

	logger := slog.With("session_id", s.ID, "uri", s.Buffer.URI, "scope", scope)
	logger.Info("Accepting renames", "selected", len(selected), "unselected", len(unselected))

	var result *AcceptResult
	switch {
	case scope == substitute.ScopeProject && o.structuralAvailable(s.Buffer.LanguageID):
		result, err = o.acceptStructural(ctx, s, selected, unselected)
		if err != nil {
			// earlier symbols may already be persisted
			logger.Warn("Structural rename interrupted, closing review", "error", err)
			o.finish(context.WithoutCancel(ctx), s)
			return nil, fmt.Errorf("structural rename interrupted: %w", err)
		}
	case scope == substitute.ScopeProject:
		result, err = o.acceptProjectTextual(ctx, s, selected, unselected)
	default:
		result, err = o.acceptBuffer(ctx, s, selected, unselected)
	}
	if err != nil {
		o.setState(s, StateReviewing)
		return nil, err
	}

	o.finish(ctx, s)
	logger.Info("Renames accepted",
		"applied", result.Applied,
		"skipped", result.Skipped,
		"files", len(result.Files),
		"warnings", len(result.Warnings))
	return result, nil
}

// RejectRenames discards the session without writing anything
func (o *Orchestrator) RejectRenames(ctx context.Context) error {
	s, err := o.claim(StateRejected)
	if err != nil {
		return err
	}
	slog.Info("Renames rejected", "session_id", s.ID, "uri", s.Buffer.URI)
	o.finish(ctx, s)
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, s *Session) {
	if err := o.deps.Presenter.Release(ctx, s.Comparison); err != nil {
		slog.Warn("Failed to release comparison", "session_id", s.ID, "ref", s.Comparison, "error", err)
	}
	o.release(s)
}

func (o *Orchestrator) structuralAvailable(languageID string) bool {
	if o.deps.Renamer == nil {
		return false
	}
	if rs, ok := o.deps.Renamer.(RenameSupport); ok {
		return rs.Supports(languageID)
	}
	return true
}

// revertedSpan returns the merged span with the given renames undone
func revertedSpan(s *Session, undo []match.RenameEntry) (string, error) {
	merged, _, err := substitute.Textual(s.Merged, substitute.Reverse(substitute.RenamesFromEntries(undo)))
	if err != nil {
		return "", fmt.Errorf("failed to revert renames: %w", err)
	}
	return merged, nil
}

func (o *Orchestrator) acceptBuffer(ctx context.Context, s *Session, selected, unselected []match.RenameEntry) (*AcceptResult, error) {
	merged, err := revertedSpan(s, unselected)
	if err != nil {
		return nil, err
	}

	text, counts, err := substitute.Textual(s.splice(s.Buffer.Text, s.start, s.end, merged), substitute.RenamesFromEntries(selected))
	if err != nil {
		return nil, fmt.Errorf("failed to apply renames: %w", err)
	}

	if err := o.deps.Persister.Persist(ctx, s.Buffer.URI, text); err != nil {
		return nil, fmt.Errorf("failed to persist buffer: %w", err)
	}

	return &AcceptResult{
		Applied: len(selected),
		Skipped: len(unselected),
		Files:   []string{workspace.UriToPath(s.Buffer.URI)},
		Counts:  counts,
		Text:    text,
	}, nil
}

func (o *Orchestrator) acceptProjectTextual(ctx context.Context, s *Session, selected, unselected []match.RenameEntry) (*AcceptResult, error) {
	result, err := o.acceptBuffer(ctx, s, selected, unselected)
	if err != nil {
		return nil, err
	}

	project, err := substitute.Project(ctx, o.deps.WorkspaceRoot, s.Buffer.URI, substitute.RenamesFromEntries(selected), o.deps.Persister)
	if err != nil {
		// the buffer is already written, so report instead of failing the accept
		result.Warnings = append(result.Warnings, substitute.Warning{Reason: fmt.Sprintf("project rename failed: %v", err)})
		return result, nil
	}
	result.Counts = result.Counts.Add(project.Counts)
	result.Files = append(result.Files, project.Files...)
	result.Warnings = append(result.Warnings, project.Warnings...)
	return result, nil
}

func (o *Orchestrator) acceptStructural(ctx context.Context, s *Session, selected, unselected []match.RenameEntry) (*AcceptResult, error) {
	structural := substitute.NewStructural(o.deps.Renamer, o.deps.Persister)
	res, err := structural.Apply(ctx, substitute.Owner{
		URI:   s.Buffer.URI,
		Text:  s.Buffer.Text,
		Start: s.start,
		End:   s.end,
	}, selected)
	if err != nil {
		return nil, err
	}

	merged, err := revertedSpan(s, append(slices.Clone(unselected), res.Skipped...))
	if err != nil {
		return nil, err
	}
	text := s.splice(res.Owner.Text, res.Owner.Start, res.Owner.End, merged)

	result := &AcceptResult{
		Applied:  len(res.Applied),
		Skipped:  len(unselected) + len(res.Skipped),
		Warnings: res.Warnings,
		Files:    res.Files,
		Text:     text,
	}

	path := workspace.UriToPath(s.Buffer.URI)
	if err := o.deps.Persister.Persist(ctx, s.Buffer.URI, text); err != nil {
		// other files are already renamed, so the session cannot go back to review
		result.Warnings = append(result.Warnings, substitute.Warning{File: path, Reason: fmt.Sprintf("failed to persist: %v", err)})
		return result, nil
	}
	if !slices.Contains(result.Files, path) {
		result.Files = append(result.Files, path)
	}
	return result, nil
}

// partition splits renames into selected and unselected. Nil indexes select everything.
func partition(renames []match.RenameEntry, indexes []int) (selected, unselected []match.RenameEntry, err error) {
	if indexes == nil {
		return slices.Clone(renames), nil, nil
	}

	chosen := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		if i < 0 || i >= len(renames) {
			return nil, nil, fmt.Errorf("%w: index %d is outside 0..%d", ErrInvalidSelection, i, len(renames)-1)
		}
		chosen[i] = true
	}

	for i, r := range renames {
		if chosen[i] {
			selected = append(selected, r)
		} else {
			unselected = append(unselected, r)
		}
	}
	return selected, unselected, nil
}
