package symbols

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/averycrespi/codedoc-mcp/internal/textdoc"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// declaration is what a grammar rule recognizes in a node
type declaration struct {
	name *sitter.Node
	kind Kind
	// descend collects nested declarations as children (class members, struct fields)
	descend bool
}

type declRule func(n *sitter.Node, src []byte) (declaration, bool)

type grammar struct {
	language func() unsafe.Pointer
	rule     declRule
}

var grammars = map[string]grammar{
	workspace.LanguageGo:              {language: tree_sitter_go.Language, rule: goDeclaration},
	workspace.LanguageJavaScript:      {language: tree_sitter_typescript.LanguageTypescript, rule: scriptDeclaration},
	workspace.LanguageTypeScript:      {language: tree_sitter_typescript.LanguageTypescript, rule: scriptDeclaration},
	workspace.LanguageJavaScriptReact: {language: tree_sitter_typescript.LanguageTSX, rule: scriptDeclaration},
	workspace.LanguageTypeScriptReact: {language: tree_sitter_typescript.LanguageTSX, rule: scriptDeclaration},
	workspace.LanguagePython:          {language: tree_sitter_python.Language, rule: pythonDeclaration},
	workspace.LanguageJava:            {language: tree_sitter_java.Language, rule: javaDeclaration},
	workspace.LanguageC:               {language: tree_sitter_c.Language, rule: cDeclaration},
}

var _ types.SymbolProvider = &TreeSitterProvider{}

// TreeSitterProvider builds document outlines in-process from tree-sitter syntax trees
type TreeSitterProvider struct{}

// NewTreeSitterProvider creates a new tree-sitter symbol provider
func NewTreeSitterProvider() *TreeSitterProvider {
	return &TreeSitterProvider{}
}

// Supports reports whether a grammar is available for the language
func (p *TreeSitterProvider) Supports(languageID string) bool {
	_, ok := grammars[languageID]
	return ok
}

func (p *TreeSitterProvider) ProvideSymbols(ctx context.Context, uri string, languageID string) ([]types.DocumentSymbol, error) {
	g, ok := grammars[languageID]
	if !ok {
		return nil, fmt.Errorf("no grammar for language %q", languageID)
	}

	src, err := os.ReadFile(workspace.UriToPath(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return outline(src, g)
}

// Outline parses src with the language's grammar and returns its declarations
func Outline(src []byte, languageID string) ([]types.DocumentSymbol, error) {
	g, ok := grammars[languageID]
	if !ok {
		return nil, fmt.Errorf("no grammar for language %q", languageID)
	}
	return outline(src, g)
}

func outline(src []byte, g grammar) ([]types.DocumentSymbol, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(sitter.NewLanguage(g.language())); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse document: tree-sitter returned nil")
	}
	defer tree.Close()

	o := outliner{src: src, lines: strings.Split(string(src), "\n"), rule: g.rule}
	return o.collect(tree.RootNode()), nil
}

type outliner struct {
	src   []byte
	lines []string
	rule  declRule
}

// collect returns the declarations below n. Nodes that are not declarations are transparent.
func (o *outliner) collect(n *sitter.Node) []types.DocumentSymbol {
	var out []types.DocumentSymbol
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}

		d, ok := o.rule(child, o.src)
		if !ok || d.name == nil {
			out = append(out, o.collect(child)...)
			continue
		}

		name := strings.TrimSpace(d.name.Utf8Text(o.src))
		if name == "" {
			continue
		}

		ds := types.DocumentSymbol{
			Name:           name,
			Kind:           d.kind.LSP(),
			Range:          o.rangeOf(child),
			SelectionRange: o.rangeOf(d.name),
		}
		if d.descend {
			ds.Children = o.collect(child)
		}
		out = append(out, ds)
	}
	return out
}

func (o *outliner) rangeOf(n *sitter.Node) types.Range {
	return types.Range{
		Start: o.position(n.StartPosition()),
		End:   o.position(n.EndPosition()),
	}
}

func (o *outliner) position(p sitter.Point) types.Position {
	row := int(p.Row)
	line := ""
	if row < len(o.lines) {
		line = o.lines[row]
	}
	return types.Position{Line: row, Character: textdoc.ByteColumnToCharacter(line, int(p.Column))}
}

func named(n *sitter.Node, kind Kind, descend bool) (declaration, bool) {
	return declaration{name: n.ChildByFieldName("name"), kind: kind, descend: descend}, true
}

func goDeclaration(n *sitter.Node, src []byte) (declaration, bool) {
	switch n.Kind() {
	case "function_declaration":
		return named(n, KindFunction, false)
	case "method_declaration", "method_elem", "method_spec":
		return named(n, KindMethod, false)
	case "type_spec", "type_alias":
		kind := KindClass
		if t := n.ChildByFieldName("type"); t != nil {
			switch t.Kind() {
			case "struct_type":
				kind = KindStruct
			case "interface_type":
				kind = KindInterface
			}
		}
		return named(n, kind, true)
	case "const_spec":
		return named(n, KindConstant, false)
	case "var_spec":
		return named(n, KindVariable, false)
	case "field_declaration":
		return named(n, KindField, false)
	}
	return declaration{}, false
}

func scriptDeclaration(n *sitter.Node, src []byte) (declaration, bool) {
	switch n.Kind() {
	case "function_declaration", "generator_function_declaration":
		return named(n, KindFunction, false)
	case "class_declaration", "abstract_class_declaration", "class":
		return named(n, KindClass, true)
	case "interface_declaration":
		return named(n, KindInterface, true)
	case "enum_declaration":
		return named(n, KindEnum, true)
	case "type_alias_declaration":
		return named(n, KindClass, false)
	case "method_definition", "method_signature", "abstract_method_signature":
		d, ok := named(n, KindMethod, false)
		if d.name != nil && d.name.Utf8Text(src) == "constructor" {
			d.kind = KindConstructor
		}
		return d, ok
	case "public_field_definition", "property_signature":
		return named(n, KindProperty, false)
	case "field_definition":
		return declaration{name: n.ChildByFieldName("property"), kind: KindProperty}, true
	case "property_identifier":
		if p := n.Parent(); p != nil && p.Kind() == "enum_body" {
			return declaration{name: n, kind: KindEnumMember}, true
		}
	case "enum_assignment":
		return named(n, KindEnumMember, false)
	case "variable_declarator":
		name := n.ChildByFieldName("name")
		if name == nil || name.Kind() != "identifier" {
			return declaration{}, false
		}
		kind := KindVariable
		if p := n.Parent(); p != nil && p.ChildCount() > 0 && p.Child(0).Kind() == "const" {
			kind = KindConstant
		}
		if v := n.ChildByFieldName("value"); v != nil {
			switch v.Kind() {
			case "arrow_function", "function_expression", "function", "generator_function":
				kind = KindFunction
			case "class":
				return declaration{name: name, kind: KindClass, descend: true}, true
			}
		}
		return declaration{name: name, kind: kind}, true
	}
	return declaration{}, false
}

func pythonDeclaration(n *sitter.Node, src []byte) (declaration, bool) {
	switch n.Kind() {
	case "class_definition":
		return named(n, KindClass, true)
	case "function_definition":
		kind := KindFunction
		if insidePythonClass(n) {
			kind = KindMethod
		}
		return named(n, kind, false)
	}
	return declaration{}, false
}

func insidePythonClass(n *sitter.Node) bool {
	p := n.Parent()
	if p != nil && p.Kind() == "decorated_definition" {
		p = p.Parent()
	}
	if p == nil || p.Kind() != "block" {
		return false
	}
	gp := p.Parent()
	return gp != nil && gp.Kind() == "class_definition"
}

func javaDeclaration(n *sitter.Node, src []byte) (declaration, bool) {
	switch n.Kind() {
	case "class_declaration", "record_declaration":
		return named(n, KindClass, true)
	case "interface_declaration":
		return named(n, KindInterface, true)
	case "enum_declaration":
		return named(n, KindEnum, true)
	case "method_declaration":
		return named(n, KindMethod, false)
	case "constructor_declaration":
		return named(n, KindConstructor, false)
	case "enum_constant":
		return named(n, KindEnumMember, false)
	case "field_declaration", "constant_declaration":
		if d := n.ChildByFieldName("declarator"); d != nil {
			kind := KindField
			if n.Kind() == "constant_declaration" {
				kind = KindConstant
			}
			return declaration{name: d.ChildByFieldName("name"), kind: kind}, true
		}
	}
	return declaration{}, false
}

func cDeclaration(n *sitter.Node, src []byte) (declaration, bool) {
	switch n.Kind() {
	case "function_definition":
		name, _ := cDeclaratorName(n.ChildByFieldName("declarator"))
		return declaration{name: name, kind: KindFunction}, true
	case "struct_specifier", "union_specifier":
		if n.ChildByFieldName("body") == nil {
			return declaration{}, false
		}
		return named(n, KindStruct, true)
	case "enum_specifier":
		if n.ChildByFieldName("body") == nil {
			return declaration{}, false
		}
		return named(n, KindEnum, true)
	case "enumerator":
		return named(n, KindEnumMember, false)
	case "field_declaration":
		name, _ := cDeclaratorName(n.ChildByFieldName("declarator"))
		return declaration{name: name, kind: KindField}, true
	case "declaration":
		if p := n.Parent(); p == nil || p.Kind() != "translation_unit" {
			return declaration{}, false
		}
		name, isFunction := cDeclaratorName(n.ChildByFieldName("declarator"))
		if isFunction {
			// prototypes are not declarations of their own
			return declaration{}, false
		}
		return declaration{name: name, kind: KindVariable}, true
	}
	return declaration{}, false
}

// cDeclaratorName follows a declarator chain to its identifier
func cDeclaratorName(d *sitter.Node) (name *sitter.Node, isFunction bool) {
	for d != nil {
		switch d.Kind() {
		case "identifier", "field_identifier", "type_identifier":
			return d, isFunction
		case "function_declarator":
			isFunction = true
		}
		d = d.ChildByFieldName("declarator")
	}
	return nil, isFunction
}
