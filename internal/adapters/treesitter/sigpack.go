package treesitter

import (
	"encoding/json"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/jsig/internal/ports"
)

// SigPacker implements ports.SigPacker: it derives the compact, serializable
// description of a module's exported type surface from the parsed tree.
type SigPacker struct{}

// NewSigPacker returns the tree-walking packer.
func NewSigPacker() *SigPacker { return &SigPacker{} }

// PackSig collects the exported bindings, their kinds, and their annotations
// into a deterministic packed form. In strict mode, exported functions
// without a return annotation produce Sig-kind errors located through the
// returned Locs table.
func (SigPacker) PackSig(ast ports.AST, strict bool, opts ports.PackOptions) ([]ports.SigError, ports.Locs, *ports.TypeSig) {
	t := ast.(*Tree)
	ts := &ports.TypeSig{}
	if t.tree == nil {
		ts.Bytes = packBytes(ts)
		return nil, nil, ts
	}

	var (
		errs []ports.SigError
		locs ports.Locs
	)
	addErr := func(kind ports.SigErrorKind, msg string, n *tree_sitter.Node) {
		locs = append(locs, locOf(n))
		errs = append(errs, ports.SigError{Kind: kind, Msg: msg, SigLoc: len(locs) - 1})
	}

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n.Kind() == "export_statement" {
			packExport(t, n, strict, opts, ts, addErr)
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(t.root())

	sort.Slice(ts.Exports, func(i, j int) bool { return ts.Exports[i].Name < ts.Exports[j].Name })
	ts.Bytes = packBytes(ts)
	return errs, locs, ts
}

// packExport folds one export statement into the signature.
func packExport(t *Tree, stmt *tree_sitter.Node, strict bool, opts ports.PackOptions,
	ts *ports.TypeSig, addErr func(ports.SigErrorKind, string, *tree_sitter.Node)) {

	if strings.HasPrefix(t.text(stmt), "export default") {
		ts.Exports = append(ts.Exports, ports.SigExport{Name: "default", Kind: "default"})
		return
	}

	decl := stmt.ChildByFieldName("declaration")
	if decl == nil {
		// export { a, b }: re-exported values pack without annotations.
		var walk func(n *tree_sitter.Node)
		walk = func(n *tree_sitter.Node) {
			if n.Kind() == "export_specifier" {
				name := n.ChildByFieldName("alias")
				if name == nil {
					name = n.ChildByFieldName("name")
				}
				if name != nil {
					ts.Exports = append(ts.Exports, ports.SigExport{Name: t.text(name), Kind: "value"})
				}
				return
			}
			for i := uint(0); i < n.NamedChildCount(); i++ {
				walk(n.NamedChild(i))
			}
		}
		walk(stmt)
		return
	}

	switch decl.Kind() {
	case "type_alias_declaration", "interface_declaration":
		if name := decl.ChildByFieldName("name"); name != nil {
			ts.Exports = append(ts.Exports, ports.SigExport{Name: t.text(name), Kind: "type"})
		}

	case "enum_declaration":
		if !opts.EnableEnums {
			return
		}
		if name := decl.ChildByFieldName("name"); name != nil {
			ts.Exports = append(ts.Exports, ports.SigExport{Name: t.text(name), Kind: "enum"})
		}

	case "function_declaration", "generator_function_declaration":
		name := decl.ChildByFieldName("name")
		if name == nil {
			return
		}
		annot := annotText(t, decl.ChildByFieldName("return_type"), opts.MaxLiteralLen)
		if annot == "" && strict {
			addErr(ports.SigKindSig,
				"Missing an annotation on the return of "+t.text(name), decl)
		}
		ts.Exports = append(ts.Exports, ports.SigExport{Name: t.text(name), Kind: "value", Annot: annot})

	case "class_declaration", "abstract_class_declaration":
		if name := decl.ChildByFieldName("name"); name != nil {
			ts.Exports = append(ts.Exports, ports.SigExport{Name: t.text(name), Kind: "value"})
		}

	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			d := decl.NamedChild(i)
			if d.Kind() != "variable_declarator" {
				continue
			}
			name := d.ChildByFieldName("name")
			if name == nil || name.Kind() != "identifier" {
				continue
			}
			annot := annotText(t, d.ChildByFieldName("type"), opts.MaxLiteralLen)
			ts.Exports = append(ts.Exports, ports.SigExport{Name: t.text(name), Kind: "value", Annot: annot})
		}
	}
}

// annotText renders a type-annotation node, trimmed of the leading colon and
// truncated to maxLen (0 = no limit).
func annotText(t *Tree, n *tree_sitter.Node, maxLen int) string {
	if n == nil {
		return ""
	}
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t.text(n)), ":"))
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// packBytes is the deterministic serialized form: exports are sorted by name
// before marshalling, so identical surfaces hash identically.
func packBytes(ts *ports.TypeSig) []byte {
	b, err := json.Marshal(ts.Exports)
	if err != nil {
		return nil
	}
	return b
}
