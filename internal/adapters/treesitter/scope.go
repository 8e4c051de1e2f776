package treesitter

import (
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/jsig/internal/ports"
)

// ScopeExtractor implements ports.ScopeExtractor: a flat binding pass that
// yields the file's free identifiers. It deliberately under-approximates
// full lexical scoping — a name declared anywhere in the file is not a
// global — which matches what the import surface needs.
type ScopeExtractor struct{}

// NewScopeExtractor returns the globals pass.
func NewScopeExtractor() *ScopeExtractor { return &ScopeExtractor{} }

// builtinBindings are names every module scope provides.
var builtinBindings = map[string]bool{
	"module": true, "exports": true, "require": true,
	"__dirname": true, "__filename": true,
	"undefined": true, "this": true, "arguments": true,
}

// Globals returns the sorted free identifiers of the file.
func (ScopeExtractor) Globals(ast ports.AST, enableEnums bool) []string {
	t := ast.(*Tree)
	if t.tree == nil {
		return nil
	}

	declared := make(map[string]bool)
	used := make(map[string]bool)

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "variable_declarator", "function_declaration", "class_declaration",
			"generator_function_declaration", "interface_declaration",
			"type_alias_declaration", "abstract_class_declaration":
			if name := n.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
				declared[t.text(name)] = true
			}
		case "enum_declaration":
			if enableEnums {
				if name := n.ChildByFieldName("name"); name != nil {
					declared[t.text(name)] = true
				}
			}
		case "import_specifier":
			name := n.ChildByFieldName("alias")
			if name == nil {
				name = n.ChildByFieldName("name")
			}
			if name != nil {
				declared[t.text(name)] = true
			}
		case "import_clause", "namespace_import":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if c := n.NamedChild(i); c.Kind() == "identifier" {
					declared[t.text(c)] = true
				}
			}
		case "formal_parameters", "catch_clause":
			collectPatternNames(t, n, declared)
		case "identifier":
			used[t.text(n)] = true
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(t.root())

	var globals []string
	for name := range used {
		if !declared[name] && !builtinBindings[name] {
			globals = append(globals, name)
		}
	}
	sort.Strings(globals)
	return globals
}

// collectPatternNames records every identifier bound by a parameter or
// destructuring pattern.
func collectPatternNames(t *Tree, n *tree_sitter.Node, declared map[string]bool) {
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "identifier", "shorthand_property_identifier_pattern":
			declared[t.text(n)] = true
		case "property_identifier", "type_annotation":
			return
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(n)
}
