package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"shieldswap/internal/storage"
)

var ErrDBClosed = errors.New("database is closed")

// Store is a KeyValueStore on an embedded pebble database.
type Store struct {
	db *pebble.DB
}

// Open opens or creates a pebble database in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store path is required")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if s.db == nil {
		return nil, ErrDBClosed
	}
	val, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if s.db == nil {
		return ErrDBClosed
	}
	return s.db.Set([]byte(key), value, pebble.Sync)
}

// SetBatch commits all entries in one synced pebble batch.
func (s *Store) SetBatch(_ context.Context, entries map[string][]byte) error {
	if s.db == nil {
		return ErrDBClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for key, value := range entries {
		if err := batch.Set([]byte(key), value, nil); err != nil {
			return fmt.Errorf("batch set %s: %w", key, err)
		}
	}
	return batch.Commit(pebble.Sync)
}

func (s *Store) Delete(_ context.Context, key string) error {
	if s.db == nil {
		return ErrDBClosed
	}
	return s.db.Delete([]byte(key), pebble.Sync)
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	if s.db == nil {
		return nil, ErrDBClosed
	}
	opts := &pebble.IterOptions{LowerBound: []byte(prefix), UpperBound: prefixUpperBound([]byte(prefix))}
	iter, err := s.db.NewIter(opts)
	if err != nil {
		return nil, fmt.Errorf("new iterator: %w", err)
	}
	defer iter.Close()

	keys := make([]string, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return keys, nil
}

// prefixUpperBound returns the smallest key greater than every key with
// prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
