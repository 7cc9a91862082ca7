package git

import "context"

// Opener probes filesystem paths for working copies.
type Opener interface {
	// Open returns a Handle for the working copy at path. It fails with
	// ErrNotARepository when path does not hold one.
	Open(ctx context.Context, path string) (Handle, error)
}

// Handle is an open working copy. Implementations are not required to be
// safe for concurrent use; callers serialize access per handle.
type Handle interface {
	// Status reads the current branch, upstream divergence and change counts.
	Status(ctx context.Context) (Status, error)

	// Fetch downloads objects and refs from the configured remote.
	Fetch(ctx context.Context) error

	// Close releases resources held by the handle.
	Close() error
}
