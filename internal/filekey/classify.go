package filekey

import (
	"path/filepath"
	"strings"
)

// sourceExtensions are the dialect's source files.
var sourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true, ".flow": true,
}

// resourceExtensions are resolvable but never parsed.
var resourceExtensions = map[string]bool{
	".css": true, ".svg": true, ".png": true, ".jpg": true, ".gif": true,
	".woff": true, ".woff2": true, ".webp": true,
}

// FromPath maps a path to its FileKey, or false when the path is not an
// input the checker reads.
func FromPath(path string) (FileKey, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case sourceExtensions[ext]:
		return Source(path), true
	case ext == ".json":
		return JSON(path), true
	case resourceExtensions[ext]:
		return Resource(path), true
	}
	return FileKey{}, false
}
