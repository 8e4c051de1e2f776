package ports

import "github.com/corey/jsig/internal/filekey"

// Storage persists the committed heap surface to durable storage so a
// restarted process can reparse incrementally instead of cold.
//
// Crash safety: SaveSnapshot must be transactional. A crash mid-write must
// not corrupt previously committed data.
type Storage interface {
	// SaveSnapshot persists the heap surface for a project.
	// Overwrites any prior snapshot for this projectID.
	SaveSnapshot(projectID string, snap *HeapSnapshot) error

	// LoadSnapshot retrieves the heap surface for a project.
	// Returns nil, nil if no snapshot exists (fresh project).
	LoadSnapshot(projectID string) (*HeapSnapshot, error)

	// DeleteProject removes all data for a project.
	// Idempotent: deleting a nonexistent project is not an error.
	DeleteProject(projectID string) error
}

// SnapshotKind mirrors the heap entry kinds across process restarts.
type SnapshotKind uint8

const (
	SnapParsed SnapshotKind = iota
	SnapUnparsed
	SnapPackage
	SnapNotFound
)

// SnapshotEntry is the durable surface of one heap entry: enough to drive
// incremental skipping after a restart, not enough to reconstruct an AST.
type SnapshotEntry struct {
	Kind      SnapshotKind `json:"kind"`
	Hash      uint64       `json:"hash"`
	Module    string       `json:"module"`
	Requires  []string     `json:"requires,omitempty"`
	CASDigest string       `json:"cas_digest,omitempty"`
	Package   *PackageInfo `json:"package,omitempty"`
}

// HeapSnapshot is the persisted form of the committed heap.
type HeapSnapshot struct {
	Entries map[filekey.FileKey]SnapshotEntry
}
