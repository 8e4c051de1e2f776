// Package parsing is the core of the parsing service: the per-file pipeline,
// the reducer that folds files into result accumulators through the heap
// mutator, and the dispatch driver that fans the work across a worker pool.
package parsing

import (
	"fmt"

	"github.com/corey/jsig/internal/heap"
	"github.com/corey/jsig/internal/ports"
)

// CapturedExn is a panic captured inside the pipeline, with its stack.
type CapturedExn struct {
	Value any
	Stack []byte
}

func (e *CapturedExn) Error() string {
	return fmt.Sprintf("uncaught exception: %v", e.Value)
}

// Outcome is the closed result variant of the per-file pipeline. Dispatch is
// exhaustive by type switch; no new variants outside this package.
type Outcome interface{ isOutcome() }

// OutcomeOk carries the full artifact bundle of a successful parse.
type OutcomeOk struct {
	Artifact *heap.ParsedArtifact
}

// OutcomeRecovered is a parse that produced an AST alongside recoverable
// syntax errors. The file is recorded unparsed; the first error is surfaced.
type OutcomeRecovered struct {
	AST             ports.AST
	Requires        []string
	FileSig         *ports.FileSig
	TolerableErrors []ports.TolerableError
	ParseErrors     []ports.ParseError // at least one
}

// OutcomeExn is a captured pipeline exception.
type OutcomeExn struct {
	Exn *CapturedExn
}

// OutcomeSkip is a file the pipeline declined to parse.
type OutcomeSkip struct {
	Reason SkipReason
}

func (OutcomeOk) isOutcome()        {}
func (OutcomeRecovered) isOutcome() {}
func (OutcomeExn) isOutcome()       {}
func (OutcomeSkip) isOutcome()      {}

// SkipReason is the closed variant of why a file was skipped.
type SkipReason interface{ isSkip() }

// SkipResource marks resource (and non-package JSON) keys.
type SkipResource struct{}

// SkipNonFlow marks files that did not pass the types-checked gate.
type SkipNonFlow struct{}

// SkipPackage carries the package.json sub-pipeline result: Pkg on success,
// Err on a malformed file. Exactly one is non-nil.
type SkipPackage struct {
	Pkg *ports.PackageInfo
	Err *ports.ParseError
}

func (SkipResource) isSkip() {}
func (SkipNonFlow) isSkip()  {}
func (SkipPackage) isSkip()  {}

// Failure is the closed per-file error variant surfaced in Results.
type Failure interface {
	isFailure()
	String() string
}

// FailureUncaught wraps a captured pipeline exception.
type FailureUncaught struct {
	Exn *CapturedExn
}

// FailureDocblock carries the prelude errors that stopped the file before
// the pipeline ran.
type FailureDocblock struct {
	Errors []ports.ParseError
}

// FailureParse carries the first recovered syntax error.
type FailureParse struct {
	Err ports.ParseError
}

func (FailureUncaught) isFailure() {}
func (FailureDocblock) isFailure() {}
func (FailureParse) isFailure()    {}

func (f FailureUncaught) String() string { return f.Exn.Error() }
func (f FailureDocblock) String() string {
	if len(f.Errors) == 0 {
		return "docblock error"
	}
	return f.Errors[0].Msg
}
func (f FailureParse) String() string { return f.Err.Msg }
