package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// shape is a name/kind tree, ignoring ranges
type shape struct {
	name     string
	kind     Kind
	children []shape
}

func shapeOf(docSymbols []types.DocumentSymbol) []shape {
	var out []shape
	for _, ds := range docSymbols {
		out = append(out, shape{name: ds.Name, kind: KindFromLSP(ds.Kind), children: shapeOf(ds.Children)})
	}
	return out
}

func TestOutline(t *testing.T) {
	tests := []struct {
		name       string
		languageID string
		source     string
		expected   []shape
	}{
		{
			name:       "go declarations",
			languageID: workspace.LanguageGo,
			source: `package calc

type Calculator struct {
	total int
}

type Adder interface {
	Add(n int) int
}

func (c *Calculator) Add(n int) int {
	var local = n
	c.total += local
	return c.total
}

func add(a, b int) int { return a + b }

const limit = 10

var verbose bool
`,
			expected: []shape{
				{name: "Calculator", kind: KindStruct, children: []shape{{name: "total", kind: KindField}}},
				{name: "Adder", kind: KindInterface, children: []shape{{name: "Add", kind: KindMethod}}},
				{name: "Add", kind: KindMethod},
				{name: "add", kind: KindFunction},
				{name: "limit", kind: KindConstant},
				{name: "verbose", kind: KindVariable},
			},
		},
		{
			name:       "javascript function",
			languageID: workspace.LanguageJavaScript,
			source:     `function add(a,b){return a+b;}`,
			expected:   []shape{{name: "add", kind: KindFunction}},
		},
		{
			name:       "typescript class and arrow function",
			languageID: workspace.LanguageTypeScript,
			source: `export class Calc {
  total = 0;
  constructor() {}
  add(n: number) { return n; }
}

interface Shape {
  area(): number;
}

const double = (x: number) => x * 2;
let counter = 0;
`,
			expected: []shape{
				{name: "Calc", kind: KindClass, children: []shape{
					{name: "total", kind: KindProperty},
					{name: "constructor", kind: KindConstructor},
					{name: "add", kind: KindMethod},
				}},
				{name: "Shape", kind: KindInterface, children: []shape{{name: "area", kind: KindMethod}}},
				{name: "double", kind: KindFunction},
				{name: "counter", kind: KindVariable},
			},
		},
		{
			name:       "tsx component",
			languageID: workspace.LanguageTypeScriptReact,
			source: `function Button() {
  return <button>ok</button>;
}
`,
			expected: []shape{{name: "Button", kind: KindFunction}},
		},
		{
			name:       "python class and function",
			languageID: workspace.LanguagePython,
			source: `class Greeter:
    def greet(self):
        pass

def main():
    pass
`,
			expected: []shape{
				{name: "Greeter", kind: KindClass, children: []shape{{name: "greet", kind: KindMethod}}},
				{name: "main", kind: KindFunction},
			},
		},
		{
			name:       "java class members",
			languageID: workspace.LanguageJava,
			source: `class Account {
    private int balance;
    Account() {}
    void deposit(int amount) {}
}
`,
			expected: []shape{
				{name: "Account", kind: KindClass, children: []shape{
					{name: "balance", kind: KindField},
					{name: "Account", kind: KindConstructor},
					{name: "deposit", kind: KindMethod},
				}},
			},
		},
		{
			name:       "c function and struct",
			languageID: workspace.LanguageC,
			source: `struct point { int x; };

int add(int a, int b) { return a + b; }
`,
			expected: []shape{
				{name: "point", kind: KindStruct, children: []shape{{name: "x", kind: KindField}}},
				{name: "add", kind: KindFunction},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Outline([]byte(tt.source), tt.languageID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, shapeOf(got))
		})
	}
}

func TestOutlineSelectionRangeUsesUTF16(t *testing.T) {
	got, err := Outline([]byte(`const s = "é"; function f() {}`), workspace.LanguageJavaScript)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "f", got[1].Name)
	assert.Equal(t, types.Position{Line: 0, Character: 25}, got[1].SelectionRange.Start)
	assert.Equal(t, types.Position{Line: 0, Character: 26}, got[1].SelectionRange.End)
}

func TestOutlineUnsupportedLanguage(t *testing.T) {
	_, err := Outline([]byte("x"), "cobol")
	assert.Error(t, err)
}

func TestTreeSitterProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.py")
	require.NoError(t, os.WriteFile(path, []byte("def add(a, b):\n    return a + b\n"), 0o644))

	p := NewTreeSitterProvider()
	assert.True(t, p.Supports(workspace.LanguagePython))
	assert.False(t, p.Supports("cobol"))

	got, err := p.ProvideSymbols(context.Background(), workspace.PathToUri(path, ""), workspace.LanguagePython)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "add", got[0].Name)
	assert.Equal(t, r(0, 4, 0, 7), got[0].SelectionRange)
}
