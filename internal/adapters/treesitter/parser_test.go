package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

func parse(t *testing.T, src string) ports.AST {
	t.Helper()
	ast, errs := NewParser().ParseSource([]byte(src), filekey.Source("test.js"),
		ports.SourceOptions{Types: true})
	require.Empty(t, errs)
	t.Cleanup(ast.Close)
	return ast
}

func TestParseSource_CleanFile(t *testing.T) {
	ast, errs := NewParser().ParseSource(
		[]byte("export const x: number = 1;\n"),
		filekey.Source("a.js"),
		ports.SourceOptions{Types: true},
	)
	defer ast.Close()
	assert.Empty(t, errs)
}

func TestParseSource_SyntaxErrorsRecovered(t *testing.T) {
	ast, errs := NewParser().ParseSource(
		[]byte("const x = ;\nconst y = 2;\n"),
		filekey.Source("bad.js"),
		ports.SourceOptions{Types: true},
	)
	defer ast.Close()
	require.NotEmpty(t, errs)
	assert.GreaterOrEqual(t, errs[0].Loc.Line, 1)
}

func TestParseSource_PlainJSWithoutTypes(t *testing.T) {
	ast, errs := NewParser().ParseSource(
		[]byte("var x = 1;\n"),
		filekey.Source("a.js"),
		ports.SourceOptions{},
	)
	defer ast.Close()
	assert.Empty(t, errs)
}

func TestExtractFileSig_RequiresAndImports(t *testing.T) {
	ast := parse(t, `
import React from 'react';
import {useState as useS} from 'react';
const fs = require('fs');
export const a = 1;
export function b(): number { return 1; }
`)
	sig, tolerable := NewSigExtractor().ExtractFileSig(ast, filekey.Source("a.js"), ports.FileSigOptions{})
	assert.Empty(t, tolerable)

	assert.Contains(t, sig.Requires, "react")
	assert.Contains(t, sig.Requires, "fs")
	assert.Contains(t, sig.ExportNames, "a")
	assert.Contains(t, sig.ExportNames, "b")

	locals := make(map[string]string)
	for _, b := range sig.Imports {
		locals[b.Local] = b.Specifier
	}
	assert.Equal(t, "react", locals["React"])
	assert.Equal(t, "react", locals["useS"])
}

func TestExtractFileSig_DefaultAndReexport(t *testing.T) {
	ast := parse(t, `
export default function main() {}
export {helper} from './helper';
`)
	sig, _ := NewSigExtractor().ExtractFileSig(ast, filekey.Source("a.js"), ports.FileSigOptions{})
	assert.True(t, sig.HasDefault)
	assert.Contains(t, sig.Requires, "./helper")
	assert.Contains(t, sig.ExportNames, "helper")
}

func TestExtractFileSig_MixedModuleTypes(t *testing.T) {
	ast := parse(t, `
import a from 'a';
module.exports = a;
`)
	_, tolerable := NewSigExtractor().ExtractFileSig(ast, filekey.Source("a.js"), ports.FileSigOptions{})
	require.Len(t, tolerable, 1)
	assert.Equal(t, ports.IndeterminateModuleType, tolerable[0].Kind)
}

func TestExtractFileSig_RelayIntegration(t *testing.T) {
	src := "const q = graphql`query AppQuery { viewer }`;\n"
	ast := parse(t, src)

	sig, _ := NewSigExtractor().ExtractFileSig(ast, filekey.Source("a.js"), ports.FileSigOptions{
		EnableRelayIntegration:       true,
		RelayIntegrationModulePrefix: "__generated__/",
	})
	assert.Contains(t, sig.Requires, "__generated__/AppQuery.graphql")

	// Disabled: no artifact require.
	ast2 := parse(t, src)
	sig, _ = NewSigExtractor().ExtractFileSig(ast2, filekey.Source("a.js"), ports.FileSigOptions{})
	assert.NotContains(t, sig.Requires, "__generated__/AppQuery.graphql")
}

func TestPackSig_ExportSurface(t *testing.T) {
	ast := parse(t, `
export type ID = string;
export const count: number = 0;
export default class App {}
`)
	errs, _, sig := NewSigPacker().PackSig(ast, false, ports.PackOptions{})
	assert.Empty(t, errs)
	require.NotNil(t, sig)

	kinds := make(map[string]string)
	for _, e := range sig.Exports {
		kinds[e.Name] = e.Kind
	}
	assert.Equal(t, "type", kinds["ID"])
	assert.Equal(t, "value", kinds["count"])
	assert.Equal(t, "default", kinds["default"])
	assert.NotEmpty(t, sig.Bytes)
}

func TestPackSig_DeterministicBytes(t *testing.T) {
	src := "export const a: number = 1;\nexport const b: string = 's';\n"
	a1 := parse(t, src)
	a2 := parse(t, src)

	_, _, s1 := NewSigPacker().PackSig(a1, false, ports.PackOptions{})
	_, _, s2 := NewSigPacker().PackSig(a2, false, ports.PackOptions{})
	assert.Equal(t, s1.Bytes, s2.Bytes)
}

func TestPackSig_StrictMissingReturnAnnotation(t *testing.T) {
	ast := parse(t, "export function f(x: number) { return x; }\n")
	errs, locs, _ := NewSigPacker().PackSig(ast, true, ports.PackOptions{})
	require.Len(t, errs, 1)
	assert.Equal(t, ports.SigKindSig, errs[0].Kind)
	assert.Contains(t, errs[0].Msg, "f")
	assert.GreaterOrEqual(t, locs.Get(errs[0].SigLoc).Line, 1)

	// Annotated: no error.
	ast2 := parse(t, "export function f(x: number): number { return x; }\n")
	errs, _, sig := NewSigPacker().PackSig(ast2, true, ports.PackOptions{})
	assert.Empty(t, errs)
	require.Len(t, sig.Exports, 1)
	assert.Equal(t, "number", sig.Exports[0].Annot)
}

func TestGlobals_FreeIdentifiersOnly(t *testing.T) {
	ast := parse(t, `
import React from 'react';
const local = 1;
function f(param) { return param + local + window.innerWidth + fetch; }
`)
	globals := NewScopeExtractor().Globals(ast, false)
	assert.Contains(t, globals, "window")
	assert.Contains(t, globals, "fetch")
	assert.NotContains(t, globals, "local")
	assert.NotContains(t, globals, "param")
	assert.NotContains(t, globals, "React")
	assert.NotContains(t, globals, "require")
}
