// Package treesitter implements the source-parsing collaborators over
// tree-sitter grammars: the error-tolerant source parser, the file-signature
// extractor, the type-signature packer, and the scope/globals pass.
//
// The checked dialect is JavaScript with type annotations. Sources parse
// under the TSX grammar (annotations + JSX) when the options enable type or
// component syntax, and under the JavaScript grammar otherwise; the parse
// pipeline always enables types. Both grammars are error-tolerant: syntax errors
// surface as ERROR/MISSING nodes, never as a failed parse.
package treesitter

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// maxParseErrors caps how many syntax errors are collected per file.
const maxParseErrors = 20

// Tree is the concrete ports.AST: the parsed tree plus the source it was
// parsed from (tree-sitter nodes reference source by offset).
type Tree struct {
	tree   *tree_sitter.Tree
	source []byte
}

// Close releases the underlying tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

func (t *Tree) root() *tree_sitter.Node {
	return t.tree.RootNode()
}

func (t *Tree) text(n *tree_sitter.Node) string {
	return string(t.source[n.StartByte():n.EndByte()])
}

// Parser implements ports.SourceParser.
type Parser struct {
	js  *tree_sitter.Language
	tsx *tree_sitter.Language
}

// NewParser registers the built-in grammars.
func NewParser() *Parser {
	return &Parser{
		js:  langPtr(ts_javascript.Language()),
		tsx: langPtr(ts_typescript.LanguageTSX()),
	}
}

func langPtr(p unsafe.Pointer) *tree_sitter.Language {
	return tree_sitter.NewLanguage(p)
}

// ParseSource parses file bytes. Recoverable syntax errors are returned as a
// list; the tree is always usable.
func (p *Parser) ParseSource(content []byte, key filekey.FileKey, opts ports.SourceOptions) (ports.AST, []ports.ParseError) {
	lang := p.js
	if opts.Types || opts.Components {
		lang = p.tsx
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		// Grammar/runtime ABI mismatch: not a per-file condition.
		return &Tree{source: content}, []ports.ParseError{{Msg: err.Error(), Loc: ports.Loc{Line: 1, Col: 1}}}
	}

	tree := parser.Parse(content, nil)
	t := &Tree{tree: tree, source: content}

	var errs []ports.ParseError
	if tree.RootNode().HasError() {
		errs = collectSyntaxErrors(tree.RootNode(), content)
	}
	return t, errs
}

// collectSyntaxErrors walks the tree for ERROR and MISSING nodes.
func collectSyntaxErrors(root *tree_sitter.Node, source []byte) []ports.ParseError {
	var errs []ports.ParseError
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if len(errs) >= maxParseErrors {
			return
		}
		switch {
		case n.IsError():
			errs = append(errs, ports.ParseError{
				Msg: "Unexpected token",
				Loc: locOf(n),
			})
			return
		case n.IsMissing():
			errs = append(errs, ports.ParseError{
				Msg: "Missing " + n.Kind(),
				Loc: locOf(n),
			})
			return
		}
		if !n.HasError() {
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if len(errs) == 0 {
		// HasError with no ERROR/MISSING node below: attribute to the root.
		errs = append(errs, ports.ParseError{Msg: "Unexpected token", Loc: ports.Loc{Line: 1, Col: 1}})
	}
	return errs
}

// locOf converts a node start position to a 1-based Loc.
func locOf(n *tree_sitter.Node) ports.Loc {
	pos := n.StartPosition()
	return ports.Loc{Line: int(pos.Row) + 1, Col: int(pos.Column) + 1}
}
