// Package filekey defines the tagged identifiers for parse inputs and the
// set operations the result accumulator is built on. A FileKey is opaque to
// everything downstream of the driver: equality and total ordering only.
package filekey

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Kind discriminates the FileKey variants.
type Kind uint8

const (
	// SourceKind identifies a source file of the checked dialect.
	SourceKind Kind = iota
	// JSONKind identifies a .json input (package.json gets special handling).
	JSONKind
	// ResourceKind identifies an asset reference (css, images, ...) that is
	// resolvable but never parsed.
	ResourceKind
)

func (k Kind) String() string {
	switch k {
	case SourceKind:
		return "source"
	case JSONKind:
		return "json"
	case ResourceKind:
		return "resource"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// FileKey is a tagged identifier for a parse input. Comparable; usable as a
// map key.
type FileKey struct {
	Kind Kind
	Path string
}

// Source returns a FileKey for a source file.
func Source(path string) FileKey { return FileKey{Kind: SourceKind, Path: path} }

// JSON returns a FileKey for a JSON file.
func JSON(path string) FileKey { return FileKey{Kind: JSONKind, Path: path} }

// Resource returns a FileKey for a resource file.
func Resource(path string) FileKey { return FileKey{Kind: ResourceKind, Path: path} }

// IsPackageJSON reports whether the key is a JSON file named package.json.
func (k FileKey) IsPackageJSON() bool {
	return k.Kind == JSONKind && filepath.Base(k.Path) == "package.json"
}

// Less imposes a total order: kind first, then path.
func (k FileKey) Less(o FileKey) bool {
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	return k.Path < o.Path
}

func (k FileKey) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.Path)
}

// Set is an unordered collection of FileKeys.
type Set map[FileKey]struct{}

// NewSet builds a Set from keys.
func NewSet(keys ...FileKey) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts a key.
func (s Set) Add(k FileKey) { s[k] = struct{}{} }

// Has reports membership.
func (s Set) Has(k FileKey) bool {
	_, ok := s[k]
	return ok
}

// Union merges o into s and returns s.
func (s Set) Union(o Set) Set {
	for k := range o {
		s[k] = struct{}{}
	}
	return s
}

// Sorted returns the members in total order.
func (s Set) Sorted() []FileKey {
	out := make([]FileKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
