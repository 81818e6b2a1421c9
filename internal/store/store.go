// Package store is the ordered key-value layer under the index. Each key kind lives
// in its own bbolt bucket; keys keep their "<kind>/<value>" form inside the bucket.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/standardbeagle/memex-index/internal/debug"
	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/keys"
)

type Options struct {
	// Timeout bounds the wait for the file lock. Zero waits forever.
	Timeout  time.Duration
	ReadOnly bool
}

// Store wraps a bbolt database. Read-write transactions are serialized by bbolt;
// any number of read transactions run alongside them on a consistent snapshot.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens or creates the database at path and ensures every kind has a bucket.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, memexerrors.NewStoreError("open", err).WithPath(path)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.Timeout, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, memexerrors.NewStoreError("open", err).WithPath(path)
	}

	s := &Store{db: db, path: path}
	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			for _, kind := range keys.All {
				if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
					return fmt.Errorf("bucket %s: %w", kind, err)
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, memexerrors.NewStoreError("init", err).WithPath(path)
		}
	}

	debug.LogStore("opened %s\n", path)
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	debug.LogStore("closing %s\n", s.path)
	return s.db.Close()
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(*Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Update runs fn in a read-write transaction. Returning an error rolls back every
// write fn made.
func (s *Store) Update(fn func(*Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Stats returns the number of keys stored per kind.
func (s *Store) Stats() (map[keys.Kind]int, error) {
	out := make(map[keys.Kind]int, len(keys.All))
	err := s.View(func(tx *Tx) error {
		for _, kind := range keys.All {
			n, err := tx.Count(kind)
			if err != nil {
				return err
			}
			out[kind] = n
		}
		return nil
	})
	return out, err
}
