// Package mirror replicates finished archive files to a secondary
// location. Archives on the local disk remain the source of truth; a
// mirror is write-only from this tool's point of view and never read
// back, so every backend only needs Put plus a setup check.
package mirror

import (
	"context"
	"io"
)

// Mirror stores copies of archive files under their file name.
type Mirror interface {
	// Put stores the file contents under name. Putting the same name
	// again overwrites the previous copy.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// ValidateSetup verifies that the mirror destination is reachable
	// and writable enough to accept archives.
	ValidateSetup(ctx context.Context) error
}
