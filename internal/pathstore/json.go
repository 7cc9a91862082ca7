package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// document is the on-disk layout of the JSON store.
type document struct {
	Repos []string `json:"repos"`
}

// JSONStore keeps the paths in a JSON document.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load implements Store.
func (s *JSONStore) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, s.path, err)
	}

	if doc.Repos == nil {
		doc.Repos = []string{}
	}
	return doc.Repos, nil
}

// Save implements Store. The document is replaced atomically.
func (s *JSONStore) Save(_ context.Context, paths []string) error {
	if paths == nil {
		paths = []string{}
	}

	data, err := json.MarshalIndent(document{Repos: paths}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	return nil
}

var _ Store = (*JSONStore)(nil)
