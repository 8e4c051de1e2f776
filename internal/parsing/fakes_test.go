package parsing

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// fakeAST carries the source bytes so the fake extractors can work from
// text instead of a real tree.
type fakeAST struct {
	content []byte
}

func (fakeAST) Close() {}

// fakeParser produces a fakeAST; content markers drive error behavior.
type fakeParser struct{}

func (fakeParser) ParseSource(content []byte, _ filekey.FileKey, _ ports.SourceOptions) (ports.AST, []ports.ParseError) {
	if strings.Contains(string(content), "%%PANIC%%") {
		panic("fake parser exploded")
	}
	var errs []ports.ParseError
	if strings.Contains(string(content), "%%SYNTAX%%") {
		errs = append(errs, ports.ParseError{Msg: "Unexpected token", Loc: ports.Loc{Line: 1, Col: 1}})
	}
	return fakeAST{content: content}, errs
}

var requireRe = regexp.MustCompile(`require\('([^']+)'\)`)

type fakeSig struct{}

func (fakeSig) ExtractFileSig(ast ports.AST, _ filekey.FileKey, _ ports.FileSigOptions) (*ports.FileSig, []ports.TolerableError) {
	fs := &ports.FileSig{Requires: make(map[string]struct{})}
	for _, m := range requireRe.FindAllStringSubmatch(string(ast.(fakeAST).content), -1) {
		fs.Requires[m[1]] = struct{}{}
	}
	return fs, nil
}

type fakePacker struct{}

func (fakePacker) PackSig(ast ports.AST, _ bool, _ ports.PackOptions) ([]ports.SigError, ports.Locs, *ports.TypeSig) {
	content := string(ast.(fakeAST).content)
	ts := &ports.TypeSig{Bytes: []byte(content)}
	var errs []ports.SigError
	locs := ports.Locs{{Line: 1, Col: 1}}
	if strings.Contains(content, "%%SIGERR%%") {
		errs = append(errs, ports.SigError{Kind: ports.SigKindSig, Msg: "missing annotation", SigLoc: 0})
		errs = append(errs, ports.SigError{Kind: ports.SigKindCheck, Msg: "deferred", SigLoc: 0})
	}
	return errs, locs, ts
}

type fakeScope struct{}

func (fakeScope) Globals(ports.AST, bool) []string { return []string{"console"} }

// mapReader serves file bytes from memory; absent keys fail like a missing
// file.
type mapReader struct {
	files map[filekey.FileKey][]byte
}

func (r *mapReader) ReadKey(key filekey.FileKey) ([]byte, error) {
	b, ok := r.files[key]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", key.Path)
	}
	return b, nil
}

type fakeBlobs struct {
	uploads int
}

func (b *fakeBlobs) UploadBlob(_ context.Context, data []byte) (string, error) {
	b.uploads++
	return fmt.Sprintf("digest-%d", len(data)), nil
}

type alwaysEmit struct{}

func (alwaysEmit) ShouldEmit() bool { return true }
