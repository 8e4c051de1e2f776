// Package bbolt implements the ports.Storage interface using bbolt (embedded
// B+ tree). Each project gets its own top-level bucket; a "heap" sub-bucket
// holds the JSON-serialized committed surface. Writes are transactional — a
// crash mid-write cannot corrupt previously committed data.
package bbolt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// Bucket keys
var (
	bucketHeap = []byte("heap")
	keyEntries = []byte("entries")
)

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// entryKey encodes a FileKey as a string key for JSON map serialization.
func entryKey(key filekey.FileKey) string {
	return fmt.Sprintf("%d:%s", key.Kind, key.Path)
}

// parseEntryKey is the inverse of entryKey.
func parseEntryKey(s string) (filekey.FileKey, error) {
	kind, path, ok := strings.Cut(s, ":")
	if !ok {
		return filekey.FileKey{}, fmt.Errorf("malformed entry key %q", s)
	}
	var k int
	if _, err := fmt.Sscanf(kind, "%d", &k); err != nil {
		return filekey.FileKey{}, fmt.Errorf("parse entry key %q: %w", s, err)
	}
	return filekey.FileKey{Kind: filekey.Kind(k), Path: path}, nil
}

// SaveSnapshot persists the heap surface for a project.
func (s *Store) SaveSnapshot(projectID string, snap *ports.HeapSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	// Map keys must be strings in JSON, so FileKeys are encoded as "kind:path".
	raw := make(map[string]ports.SnapshotEntry, len(snap.Entries))
	for key, se := range snap.Entries {
		raw[entryKey(key)] = se
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		proj, err := tx.CreateBucketIfNotExists([]byte(projectID))
		if err != nil {
			return err
		}
		hb, err := proj.CreateBucketIfNotExists(bucketHeap)
		if err != nil {
			return err
		}
		return hb.Put(keyEntries, data)
	})
}

// LoadSnapshot retrieves the heap surface for a project.
// Returns nil, nil if no snapshot exists (fresh project).
func (s *Store) LoadSnapshot(projectID string) (*ports.HeapSnapshot, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		proj := tx.Bucket([]byte(projectID))
		if proj == nil {
			return nil
		}
		hb := proj.Bucket(bucketHeap)
		if hb == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := hb.Get(keyEntries); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, nil
	}

	var raw map[string]ports.SnapshotEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	snap := &ports.HeapSnapshot{Entries: make(map[filekey.FileKey]ports.SnapshotEntry, len(raw))}
	for k, se := range raw {
		key, err := parseEntryKey(k)
		if err != nil {
			return nil, err
		}
		snap.Entries[key] = se
	}
	return snap, nil
}

// DeleteProject removes all data for a project.
// Idempotent: deleting a nonexistent project is not an error.
func (s *Store) DeleteProject(projectID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(projectID)); err == bolt.ErrBucketNotFound {
			return nil // idempotent
		} else {
			return err
		}
	})
}
