package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const pathsKey = "repos:paths"

// BadgerStore keeps the paths as a single JSON value in BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context) ([]string, error) {
	paths := []string{}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pathsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get paths: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &paths)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return paths, nil
}

// Save implements Store.
func (s *BadgerStore) Save(_ context.Context, paths []string) error {
	if paths == nil {
		paths = []string{}
	}

	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pathsKey), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	return nil
}

var _ Store = (*BadgerStore)(nil)
