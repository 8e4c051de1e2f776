package treesitter

import (
	"regexp"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// SigExtractor implements ports.SigExtractor by walking the parsed tree for
// import/export structure.
type SigExtractor struct{}

// NewSigExtractor returns the tree-walking extractor.
func NewSigExtractor() *SigExtractor { return &SigExtractor{} }

// relayOperationRe pulls the operation name out of a graphql tagged template.
var relayOperationRe = regexp.MustCompile(`(?:fragment|query|mutation|subscription)\s+(\w+)`)

// ExtractFileSig walks the tree collecting requires, import bindings, and
// export names. Relay integration adds the generated artifact module for
// each graphql tagged template.
func (SigExtractor) ExtractFileSig(ast ports.AST, _ filekey.FileKey, opts ports.FileSigOptions) (*ports.FileSig, []ports.TolerableError) {
	t := ast.(*Tree)
	fs := &ports.FileSig{Requires: make(map[string]struct{})}
	if t.tree == nil {
		return fs, nil
	}

	var tolerable []ports.TolerableError
	sawESM, sawCJS := false, false

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "import_statement":
			sawESM = true
			if src := n.ChildByFieldName("source"); src != nil {
				spec := stripQuotes(t.text(src))
				fs.Requires[spec] = struct{}{}
				collectImportBindings(t, n, spec, fs)
			}

		case "export_statement":
			sawESM = true
			collectExports(t, n, fs)

		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn == nil {
				break
			}
			switch t.text(fn) {
			case "require":
				if spec, ok := firstStringArg(t, n); ok {
					fs.Requires[spec] = struct{}{}
				}
			case "graphql":
				if !opts.EnableRelayIntegration {
					break
				}
				if args := n.ChildByFieldName("arguments"); args != nil && args.Kind() == "template_string" {
					if m := relayOperationRe.FindStringSubmatch(t.text(args)); m != nil {
						fs.Requires[opts.RelayIntegrationModulePrefix+m[1]+".graphql"] = struct{}{}
					}
				}
			}

		case "assignment_expression":
			// module.exports = ... marks a CommonJS module.
			if lhs := n.ChildByFieldName("left"); lhs != nil && t.text(lhs) == "module.exports" {
				sawCJS = true
			}
		}

		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(t.root())

	if sawESM && sawCJS {
		tolerable = append(tolerable, ports.TolerableError{
			Kind: ports.IndeterminateModuleType,
			Msg:  "Unable to determine module type of a file using both ES and CommonJS exports",
			Loc:  ports.Loc{Line: 1, Col: 1},
		})
	}

	sort.Strings(fs.ExportNames)
	return fs, tolerable
}

// collectImportBindings records the local names an import statement binds.
func collectImportBindings(t *Tree, stmt *tree_sitter.Node, spec string, fs *ports.FileSig) {
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "identifier":
			fs.Imports = append(fs.Imports, ports.ImportBinding{Local: t.text(n), Specifier: spec})
			return
		case "import_specifier":
			// Aliased imports bind the alias, not the source name.
			name := n.ChildByFieldName("alias")
			if name == nil {
				name = n.ChildByFieldName("name")
			}
			if name != nil {
				fs.Imports = append(fs.Imports, ports.ImportBinding{Local: t.text(name), Specifier: spec})
			}
			return
		case "string":
			return
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		c := stmt.NamedChild(i)
		if c.Kind() != "string" {
			walk(c)
		}
	}
}

// collectExports records the names an export statement introduces.
func collectExports(t *Tree, stmt *tree_sitter.Node, fs *ports.FileSig) {
	// export ... from "mod" re-exports count as requires too.
	if src := stmt.ChildByFieldName("source"); src != nil {
		fs.Requires[stripQuotes(t.text(src))] = struct{}{}
	}

	text := t.text(stmt)
	if strings.HasPrefix(text, "export default") {
		fs.HasDefault = true
		return
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		if name := declarationName(t, decl); name != "" {
			fs.ExportNames = append(fs.ExportNames, name)
		}
		// const a = 1, b = 2 exports several names.
		if decl.Kind() == "lexical_declaration" || decl.Kind() == "variable_declaration" {
			for i := uint(0); i < decl.NamedChildCount(); i++ {
				d := decl.NamedChild(i)
				if d.Kind() == "variable_declarator" {
					if name := d.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
						fs.ExportNames = append(fs.ExportNames, t.text(name))
					}
				}
			}
		}
		return
	}

	// export { a, b as c }
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n.Kind() == "export_specifier" {
			name := n.ChildByFieldName("alias")
			if name == nil {
				name = n.ChildByFieldName("name")
			}
			if name != nil {
				fs.ExportNames = append(fs.ExportNames, t.text(name))
			}
			return
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(stmt)
}

// declarationName extracts the introduced name of a declaration node, or "".
func declarationName(t *Tree, decl *tree_sitter.Node) string {
	switch decl.Kind() {
	case "function_declaration", "class_declaration", "generator_function_declaration",
		"type_alias_declaration", "interface_declaration", "enum_declaration",
		"abstract_class_declaration":
		if name := decl.ChildByFieldName("name"); name != nil {
			return t.text(name)
		}
	}
	return ""
}

// firstStringArg returns the unquoted first string argument of a call.
func firstStringArg(t *Tree, call *tree_sitter.Node) (string, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	first := args.NamedChild(0)
	if first.Kind() != "string" {
		return "", false
	}
	return stripQuotes(t.text(first)), true
}

func stripQuotes(s string) string {
	return strings.Trim(s, `"'`+"`")
}
