package parsing

import "github.com/corey/jsig/internal/domain/options"

// Options configures one driver run.
type Options struct {
	// Parsing is the resolved per-run option bundle.
	Parsing options.ParsingOptions
	// Initial marks a cold-start scan: the fold runs inside an initial
	// transaction and already-parsed keys are no-ops.
	Initial bool
	// SkipChanged defers files whose on-disk hash no longer matches the
	// heap. Set internally by EnsureParsed.
	SkipChanged bool
}
