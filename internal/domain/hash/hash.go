// Package hash provides the 64-bit content digest used for incremental
// skipping. The digest is deterministic across runs and platforms and is
// used only for equality, never for security.
package hash

import "github.com/cespare/xxhash/v2"

// Hasher is a streaming 64-bit digest with seed 0.
type Hasher struct {
	d *xxhash.Digest
}

// New returns a fresh Hasher.
func New() *Hasher {
	return &Hasher{d: xxhash.New()}
}

// Update folds bytes into the digest.
func (h *Hasher) Update(b []byte) {
	// xxhash.Digest.Write never returns an error.
	_, _ = h.d.Write(b)
}

// Digest returns the current 64-bit value. The hasher remains usable.
func (h *Hasher) Digest() uint64 {
	return h.d.Sum64()
}

// Of is the one-shot form: Of(b) == New().Update(b).Digest().
func Of(b []byte) uint64 {
	return xxhash.Sum64(b)
}
