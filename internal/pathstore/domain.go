// Package pathstore persists the ordered list of tracked repository paths.
package pathstore

import "context"

// Store loads and saves the tracked paths.
type Store interface {
	// Load returns the saved paths, or an empty list if nothing was saved yet.
	Load(ctx context.Context) ([]string, error)
	// Save replaces the saved paths.
	Save(ctx context.Context, paths []string) error
}
