package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averycrespi/codedoc-mcp/internal/substitute"
	"github.com/averycrespi/codedoc-mcp/internal/symbols"
	"github.com/averycrespi/codedoc-mcp/internal/textdoc"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

const twoFunctions = "function add(a,b){return a+b;}\nfunction mul(a,b){return a*b;}\n"

type fakePresenter struct {
	mu       sync.Mutex
	err      error
	open     map[types.ComparisonRef]string
	released []types.ComparisonRef
	next     int
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{open: make(map[types.ComparisonRef]string)}
}

func (p *fakePresenter) PresentComparison(ctx context.Context, originalRef string, original string, modified string) (types.ComparisonRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return "", p.err
	}
	p.next++
	ref := types.ComparisonRef(fmt.Sprintf("cmp-%d", p.next))
	p.open[ref] = modified
	return ref, nil
}

func (p *fakePresenter) Release(ctx context.Context, ref types.ComparisonRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.open, ref)
	p.released = append(p.released, ref)
	return nil
}

// failingPersister fails for the listed paths and writes everything else to disk
type failingPersister struct {
	fail map[string]bool
	file *FilePersister
}

func (p *failingPersister) Persist(ctx context.Context, uri string, text string) error {
	if p.fail[workspace.UriToPath(uri)] {
		return errors.New("disk full")
	}
	return p.file.Persist(ctx, uri, text)
}

// wordRenamer renames the identifier at a position everywhere in the listed files
type wordRenamer struct {
	files     []string
	languages []string
	calls     int
}

func (r *wordRenamer) Supports(languageID string) bool {
	for _, l := range r.languages {
		if l == languageID {
			return true
		}
	}
	return false
}

func (r *wordRenamer) ProvideRenameEdit(ctx context.Context, uri string, position types.Position, newName string) (*types.WorkspaceEdit, error) {
	r.calls++
	content, err := os.ReadFile(workspace.UriToPath(uri))
	if err != nil {
		return nil, err
	}
	offset, err := textdoc.Offset(string(content), position)
	if err != nil {
		return nil, err
	}
	word := regexp.MustCompile(`^\w+`).FindString(string(content)[offset:])
	if word == "" {
		return nil, errors.New("no identifier at position")
	}

	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	edit := &types.WorkspaceEdit{Changes: map[string][]types.TextEdit{}}
	for _, file := range r.files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		text := string(data)
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			fileURI := workspace.PathToUri(file, "")
			edit.Changes[fileURI] = append(edit.Changes[fileURI], types.TextEdit{
				Range:   types.Range{Start: textdoc.PositionAt(text, loc[0]), End: textdoc.PositionAt(text, loc[1])},
				NewText: newName,
			})
		}
	}
	return edit, nil
}

type fixture struct {
	dir       string
	path      string
	presenter *fakePresenter
	persister *failingPersister
	orch      *Orchestrator
}

func newFixture(t *testing.T, files map[string]string, renamer types.RenameProvider) *fixture {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	f := &fixture{
		dir:       dir,
		path:      filepath.Join(dir, "a.js"),
		presenter: newFakePresenter(),
		persister: &failingPersister{fail: map[string]bool{}, file: NewFilePersister()},
	}
	f.orch = NewOrchestrator(Dependencies{
		Extractor:     symbols.NewExtractor(symbols.NewTreeSitterProvider(), symbols.WithScratchDir(t.TempDir())),
		Presenter:     f.presenter,
		Persister:     f.persister,
		Renamer:       renamer,
		WorkspaceRoot: dir,
	})
	return f
}

func (f *fixture) buffer(t *testing.T) Buffer {
	t.Helper()
	text := f.read(t, "a.js")
	return Buffer{URI: workspace.PathToUri(f.path, ""), Text: text, Selection: textdoc.FullRange(text)}
}

func (f *fixture) read(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(f.dir, name))
	require.NoError(t, err)
	return string(content)
}

func TestProcessResponseDetectsRename(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)

	res, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed: "function sum(a,b){return a+b;}",
	})
	require.NoError(t, err)

	assert.Equal(t, "function sum(a,b){return a+b;}", res.MergedText)
	assert.Equal(t, 1, res.RenameCount)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "function sum(a,b){return a+b;}\n", f.presenter.open[res.Comparison])

	renames := f.orch.GetRenameMap()
	require.Len(t, renames, 1)
	assert.Equal(t, "add", renames[0].Old.Name)
	assert.Equal(t, "sum", renames[0].New.Name)
	assert.Equal(t, symbols.KindFunction, renames[0].Old.Kind)

	s, ok := f.orch.Current()
	require.True(t, ok)
	assert.Equal(t, StateReviewing, s.State)
	assert.Equal(t, workspace.LanguageJavaScript, s.Buffer.LanguageID)

	// nothing is written while under review
	assert.Equal(t, "function add(a,b){return a+b;}\n", f.read(t, "a.js"))
}

func TestProcessResponseMergesRenameAndComment(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)

	res, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed:   "function sum(a,b){return a+b;}",
		Commented: "function add(a,b){return a+b;} // adds",
	})
	require.NoError(t, err)
	assert.Equal(t, "function sum(a,b){return a+b;} // adds", res.MergedText)
	assert.Equal(t, 1, res.RenameCount)
}

func TestProcessResponseNoChange(t *testing.T) {
	original := "function add(a,b){return a+b;}\n"
	f := newFixture(t, map[string]string{"a.js": original}, nil)

	res, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed:   "  function add(a,b){return a+b;}\n",
		Commented: "function add(a,b){return a+b;}",
	})
	require.NoError(t, err)
	assert.True(t, res.NoChange)
	assert.Empty(t, res.SessionID)

	_, active := f.orch.Current()
	assert.False(t, active)
	assert.Nil(t, f.orch.GetRenameMap())
	assert.Empty(t, f.presenter.open)
	assert.Equal(t, original, f.read(t, "a.js"))
}

func TestProcessResponseWithoutRenamesApplies(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)

	res, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Commented: "function add(a,b){return a+b;} // adds",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Zero(t, res.RenameCount)

	_, active := f.orch.Current()
	assert.False(t, active)
	assert.Empty(t, f.presenter.open)
	assert.Equal(t, "function add(a,b){return a+b;} // adds\n", f.read(t, "a.js"))
}

func TestProcessResponseRejectsSecondSession(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)
	span := EditSpan{Renamed: "function sum(a,b){return a+b;}"}

	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), span)
	require.NoError(t, err)

	_, err = f.orch.ProcessResponse(context.Background(), f.buffer(t), span)
	assert.ErrorIs(t, err, ErrSessionActive)

	// the first session is untouched
	assert.Len(t, f.orch.GetRenameMap(), 1)
	assert.Len(t, f.presenter.open, 1)
}

func TestProcessResponseSelectionMismatch(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)

	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Original: "function other() {}",
		Renamed:  "function sum(a,b){return a+b;}",
	})
	assert.ErrorIs(t, err, ErrSelectionMismatch)

	_, active := f.orch.Current()
	assert.False(t, active)
}

func TestProcessResponsePresenterFailureLeavesNoSession(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)
	f.presenter.err = errors.New("no editor")

	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{Renamed: "function sum(a,b){return a+b;}"})
	assert.ErrorContains(t, err, "no editor")

	_, active := f.orch.Current()
	assert.False(t, active)
}

func TestProcessResponseEmptySelection(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)

	buf := f.buffer(t)
	buf.Selection = types.Range{Start: types.Position{Line: 0, Character: 4}, End: types.Position{Line: 0, Character: 4}}
	_, err := f.orch.ProcessResponse(context.Background(), buf, EditSpan{Renamed: "function sum(a,b){return a+b;}"})
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, active := f.orch.Current()
	assert.False(t, active)
	assert.Equal(t, "function add(a,b){return a+b;}\n", f.read(t, "a.js"))
}

// gatedExtractor blocks every extraction until gate is closed
type gatedExtractor struct {
	Extractor
	gate chan struct{}
}

func (e gatedExtractor) Extract(ctx context.Context, text string, languageID string) []symbols.Symbol {
	<-e.gate
	return e.Extractor.Extract(ctx, text, languageID)
}

func TestCurrentWhileProcessing(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)
	gate := make(chan struct{})
	f.orch.deps.Extractor = gatedExtractor{Extractor: f.orch.deps.Extractor, gate: gate}

	buf := f.buffer(t)
	done := make(chan error, 1)
	go func() {
		_, err := f.orch.ProcessResponse(context.Background(), buf, EditSpan{Renamed: "function sum(a,b){return a+b;}"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		s, ok := f.orch.Current()
		return ok && s.Merged != ""
	}, 5*time.Second, time.Millisecond)

	s, ok := f.orch.Current()
	require.True(t, ok)
	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, "function sum(a,b){return a+b;}", s.Merged)
	assert.Empty(t, s.Renames)

	close(gate)
	require.NoError(t, <-done)

	s, ok = f.orch.Current()
	require.True(t, ok)
	assert.Equal(t, StateReviewing, s.State)
	assert.Len(t, s.Renames, 1)
	assert.NotEmpty(t, s.Comparison)
}

func TestReceive(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, nil)

	_, err := f.orch.Receive(context.Background(), f.buffer(t), func(ctx context.Context) (EditSpan, error) {
		return EditSpan{}, errors.New("upstream unavailable")
	})
	assert.ErrorContains(t, err, "upstream unavailable")
	_, active := f.orch.Current()
	assert.False(t, active)

	res, err := f.orch.Receive(context.Background(), f.buffer(t), func(ctx context.Context) (EditSpan, error) {
		return EditSpan{Renamed: "function sum(a,b){return a+b;}"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RenameCount)

	fetched := false
	_, err = f.orch.Receive(context.Background(), f.buffer(t), func(ctx context.Context) (EditSpan, error) {
		fetched = true
		return EditSpan{}, nil
	})
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.False(t, fetched)
}

func TestAcceptAndRejectWithoutSession(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": twoFunctions}, nil)

	_, err := f.orch.AcceptRenames(context.Background(), nil, substitute.ScopeBuffer)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.ErrorIs(t, f.orch.RejectRenames(context.Background()), ErrNoActiveSession)
}

func TestAcceptRenamesInvalidSelection(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": twoFunctions}, nil)
	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed: "function sum(a,b){return a+b;}\nfunction times(a,b){return a*b;}",
	})
	require.NoError(t, err)

	for _, indexes := range [][]int{{2}, {-1}, {0, 5}} {
		_, err := f.orch.AcceptRenames(context.Background(), indexes, substitute.ScopeBuffer)
		assert.ErrorIs(t, err, ErrInvalidSelection)
	}

	// still reviewable
	s, ok := f.orch.Current()
	require.True(t, ok)
	assert.Equal(t, StateReviewing, s.State)
	assert.Equal(t, twoFunctions, f.read(t, "a.js"))
}

func TestRejectRenamesLeavesBufferUntouched(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": twoFunctions}, nil)
	res, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed: "function sum(a,b){return a+b;}\nfunction times(a,b){return a*b;}",
	})
	require.NoError(t, err)

	require.NoError(t, f.orch.RejectRenames(context.Background()))

	assert.Equal(t, twoFunctions, f.read(t, "a.js"))
	assert.Equal(t, []types.ComparisonRef{res.Comparison}, f.presenter.released)
	_, active := f.orch.Current()
	assert.False(t, active)
	assert.ErrorIs(t, f.orch.RejectRenames(context.Background()), ErrNoActiveSession)
}

func TestAcceptRenamesBufferScope(t *testing.T) {
	tests := []struct {
		name     string
		indexes  []int
		expected string
		applied  int
		skipped  int
	}{
		{
			name:     "all",
			indexes:  nil,
			expected: "function sum(a,b){return a+b;}\nfunction times(a,b){return a*b;}\n",
			applied:  2,
		},
		{
			name:     "second only",
			indexes:  []int{1},
			expected: "function add(a,b){return a+b;}\nfunction times(a,b){return a*b;}\n",
			applied:  1,
			skipped:  1,
		},
		{
			name:     "duplicates ignored",
			indexes:  []int{0, 0},
			expected: "function sum(a,b){return a+b;}\nfunction mul(a,b){return a*b;}\n",
			applied:  1,
			skipped:  1,
		},
		{
			name:     "none",
			indexes:  []int{},
			expected: twoFunctions,
			skipped:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]string{"a.js": twoFunctions}, nil)
			_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
				Renamed: "function sum(a,b){return a+b;}\nfunction times(a,b){return a*b;}",
			})
			require.NoError(t, err)

			res, err := f.orch.AcceptRenames(context.Background(), tt.indexes, substitute.ScopeBuffer)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, f.read(t, "a.js"))
			assert.Equal(t, tt.expected, res.Text)
			assert.Equal(t, tt.applied, res.Applied)
			assert.Equal(t, tt.skipped, res.Skipped)
			assert.Equal(t, []string{f.path}, res.Files)

			_, active := f.orch.Current()
			assert.False(t, active)
			assert.Empty(t, f.presenter.open)
		})
	}
}

func TestAcceptRenamesBufferScopeRenamesOutsideSelection(t *testing.T) {
	text := "function add(a,b){return a+b;}\nconsole.log(add(1, 2));\n"
	f := newFixture(t, map[string]string{"a.js": text}, nil)

	buf := f.buffer(t)
	selection, ok := textdoc.FindRange(text, "function add(a,b){return a+b;}")
	require.True(t, ok)
	buf.Selection = selection

	_, err := f.orch.ProcessResponse(context.Background(), buf, EditSpan{Renamed: "function sum(a,b){return a+b;}"})
	require.NoError(t, err)

	res, err := f.orch.AcceptRenames(context.Background(), nil, substitute.ScopeBuffer)
	require.NoError(t, err)
	assert.Equal(t, "function sum(a,b){return a+b;}\nconsole.log(sum(1, 2));\n", f.read(t, "a.js"))
	assert.Equal(t, 1, res.Counts.Calls)
}

func TestAcceptRenamesPersistFailureKeepsSession(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": twoFunctions}, nil)
	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed: "function sum(a,b){return a+b;}\nfunction times(a,b){return a*b;}",
	})
	require.NoError(t, err)

	f.persister.fail[f.path] = true
	_, err = f.orch.AcceptRenames(context.Background(), nil, substitute.ScopeBuffer)
	assert.ErrorContains(t, err, "disk full")

	s, ok := f.orch.Current()
	require.True(t, ok)
	assert.Equal(t, StateReviewing, s.State)

	delete(f.persister.fail, f.path)
	_, err = f.orch.AcceptRenames(context.Background(), nil, substitute.ScopeBuffer)
	require.NoError(t, err)
}

func TestAcceptRenamesProjectScopeTextual(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.js":  "function add(a,b){return a+b;}\n",
		"b.js":  "import { add } from './a';\nadd(1, 2);\n",
		"c.txt": "add(1, 2)\n",
	}, nil)
	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{Renamed: "function sum(a,b){return a+b;}"})
	require.NoError(t, err)

	res, err := f.orch.AcceptRenames(context.Background(), nil, substitute.ScopeProject)
	require.NoError(t, err)

	assert.Equal(t, "function sum(a,b){return a+b;}\n", f.read(t, "a.js"))
	assert.Equal(t, "import { sum } from './a';\nsum(1, 2);\n", f.read(t, "b.js"))
	assert.Equal(t, "add(1, 2)\n", f.read(t, "c.txt"))
	assert.ElementsMatch(t, []string{f.path, filepath.Join(f.dir, "b.js")}, res.Files)
	assert.Empty(t, res.Warnings)
}

func TestAcceptRenamesProjectScopeStructural(t *testing.T) {
	files := map[string]string{
		"a.js": twoFunctions,
		"b.js": "add(1, 2);\nmul(3, 4);\n",
	}
	renamer := &wordRenamer{languages: []string{workspace.LanguageJavaScript}}
	f := newFixture(t, files, renamer)
	renamer.files = []string{f.path, filepath.Join(f.dir, "b.js")}

	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed: "function sum(a,b){return a+b;}\nfunction times(a,b){return a*b;}",
	})
	require.NoError(t, err)

	res, err := f.orch.AcceptRenames(context.Background(), []int{1}, substitute.ScopeProject)
	require.NoError(t, err)

	assert.Equal(t, 1, renamer.calls)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "function add(a,b){return a+b;}\nfunction times(a,b){return a*b;}\n", f.read(t, "a.js"))
	assert.Equal(t, "add(1, 2);\ntimes(3, 4);\n", f.read(t, "b.js"))
	assert.ElementsMatch(t, []string{f.path, filepath.Join(f.dir, "b.js")}, res.Files)
}

func TestAcceptRenamesStructuralCancelledClosesReview(t *testing.T) {
	renamer := &wordRenamer{languages: []string{workspace.LanguageJavaScript}}
	f := newFixture(t, map[string]string{"a.js": "function add(a,b){return a+b;}\n"}, renamer)
	renamer.files = []string{f.path}

	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{Renamed: "function sum(a,b){return a+b;}"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.orch.AcceptRenames(ctx, nil, substitute.ScopeProject)
	assert.ErrorIs(t, err, context.Canceled)

	_, active := f.orch.Current()
	assert.False(t, active)
	assert.Empty(t, f.presenter.open)
	assert.Zero(t, renamer.calls)

	_, err = f.orch.AcceptRenames(context.Background(), nil, substitute.ScopeProject)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAcceptRenamesStructuralFallsBackForUnsupportedLanguage(t *testing.T) {
	renamer := &wordRenamer{languages: []string{workspace.LanguageGo}}
	f := newFixture(t, map[string]string{
		"a.js": "function add(a,b){return a+b;}\n",
		"b.js": "add(1, 2);\n",
	}, renamer)

	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{Renamed: "function sum(a,b){return a+b;}"})
	require.NoError(t, err)

	_, err = f.orch.AcceptRenames(context.Background(), nil, substitute.ScopeProject)
	require.NoError(t, err)

	assert.Zero(t, renamer.calls)
	assert.Equal(t, "sum(1, 2);\n", f.read(t, "b.js"))
}

func TestPartition(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": twoFunctions}, nil)
	_, err := f.orch.ProcessResponse(context.Background(), f.buffer(t), EditSpan{
		Renamed: "function sum(a,b){return a+b;}\nfunction times(a,b){return a*b;}",
	})
	require.NoError(t, err)
	renames := f.orch.GetRenameMap()

	selected, unselected, err := partition(renames, nil)
	require.NoError(t, err)
	assert.Len(t, selected, 2)
	assert.Empty(t, unselected)

	selected, unselected, err = partition(renames, []int{1, 1})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "mul", selected[0].Old.Name)
	require.Len(t, unselected, 1)
	assert.Equal(t, "add", unselected[0].Old.Name)
}
