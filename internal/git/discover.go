package git

import (
	"fmt"
	"os"
	"path/filepath"
)

// IsRepository reports whether dir contains the metadata marker.
func IsRepository(dir, marker string) bool {
	if marker == "" {
		marker = DefaultMarker
	}

	_, err := os.Stat(filepath.Join(dir, marker))
	return err == nil
}

// Discover lists the immediate subdirectories of dir that contain the
// metadata marker, in directory enumeration order.
func Discover(dir, marker string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var found []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		candidate := filepath.Join(dir, entry.Name())
		if IsRepository(candidate, marker) {
			found = append(found, candidate)
		}
	}

	return found, nil
}
