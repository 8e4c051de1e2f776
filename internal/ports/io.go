package ports

import (
	"context"
	"os"

	"github.com/corey/jsig/internal/filekey"
)

// FileReader reads the current on-disk bytes for a key. The production
// implementation is the OS filesystem; tests substitute an in-memory map.
type FileReader interface {
	ReadKey(key filekey.FileKey) ([]byte, error)
}

// OSReader is the filesystem-backed FileReader.
type OSReader struct{}

// ReadKey reads the file at the key's path.
func (OSReader) ReadKey(key filekey.FileKey) ([]byte, error) {
	return os.ReadFile(key.Path)
}

// BlobStore uploads a content-addressed blob and returns its digest.
// Invoked only when the distributed option is on.
type BlobStore interface {
	UploadBlob(ctx context.Context, data []byte) (digest string, err error)
}

// Watcher monitors a directory tree and reports changed inputs as batches
// of FileKeys, one batch per debounce window.
type Watcher interface {
	// Watch starts monitoring root recursively. onBatch is called with each
	// non-empty set of changed keys; unclassifiable paths are filtered out
	// before delivery.
	Watch(root string, onBatch func(batch filekey.Set)) error
	// Stop ends monitoring and releases resources. Safe to call twice.
	Stop() error
}
