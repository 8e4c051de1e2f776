package parsing

import (
	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// Results is the aggregate returned to the caller. Every classified key lands
// in exactly one of the seven outcome buckets; a key skipped by the
// initial-transaction rule lands in none. Failed and PackageJSON are pairs
// of parallel lists so that merging two accumulators is two appends; the
// pairwise alignment is preserved, the global order is not.
type Results struct {
	Parsed    filekey.Set
	Unparsed  filekey.Set
	Changed   filekey.Set
	Unchanged filekey.Set
	NotFound  filekey.Set

	FailedKeys     []filekey.FileKey
	FailureReasons []Failure

	PackageKeys   []filekey.FileKey
	PackageErrors []*ports.ParseError // nil entry = success

	DirtyModules map[string]struct{}
}

// NewResults returns the empty accumulator (the fold's neutral element).
func NewResults() *Results {
	return &Results{
		Parsed:       make(filekey.Set),
		Unparsed:     make(filekey.Set),
		Changed:      make(filekey.Set),
		Unchanged:    make(filekey.Set),
		NotFound:     make(filekey.Set),
		DirtyModules: make(map[string]struct{}),
	}
}

// addDirty unions module identifiers into the dirty set.
func (r *Results) addDirty(modules []string) {
	for _, m := range modules {
		r.DirtyModules[m] = struct{}{}
	}
}

// addFailed appends an aligned (key, reason) pair.
func (r *Results) addFailed(key filekey.FileKey, reason Failure) {
	r.FailedKeys = append(r.FailedKeys, key)
	r.FailureReasons = append(r.FailureReasons, reason)
}

// addPackage appends an aligned (key, error-or-nil) pair.
func (r *Results) addPackage(key filekey.FileKey, perr *ports.ParseError) {
	r.PackageKeys = append(r.PackageKeys, key)
	r.PackageErrors = append(r.PackageErrors, perr)
}

// Merge folds b into a and returns a. Set buckets union; parallel-list pairs
// concatenate in matching order. Associative; commutative up to ordering
// within the parallel lists.
func Merge(a, b *Results) *Results {
	a.Parsed.Union(b.Parsed)
	a.Unparsed.Union(b.Unparsed)
	a.Changed.Union(b.Changed)
	a.Unchanged.Union(b.Unchanged)
	a.NotFound.Union(b.NotFound)

	a.FailedKeys = append(a.FailedKeys, b.FailedKeys...)
	a.FailureReasons = append(a.FailureReasons, b.FailureReasons...)

	a.PackageKeys = append(a.PackageKeys, b.PackageKeys...)
	a.PackageErrors = append(a.PackageErrors, b.PackageErrors...)

	for m := range b.DirtyModules {
		a.DirtyModules[m] = struct{}{}
	}
	return a
}

// Total returns how many keys the accumulator classified.
func (r *Results) Total() int {
	return len(r.Parsed) + len(r.Unparsed) + len(r.Changed) + len(r.Unchanged) +
		len(r.NotFound) + len(r.FailedKeys) + len(r.PackageKeys)
}
