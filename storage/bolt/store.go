// Package bolt provides a BoltDB-backed blob store.
package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Seednode/reach100/storage"
	"go.etcd.io/bbolt"
)

const blobBucket = "blobs"

// Store keeps blobs in a single BoltDB bucket.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get fetches a blob by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	key, err := storage.ValidateKey(key)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(blobBucket))
		if bucket == nil {
			return fmt.Errorf("blob bucket is missing")
		}
		payload := bucket.Get([]byte(key))
		if payload == nil {
			return storage.ErrNotFound
		}
		// payload is only valid for the life of the transaction.
		data = append([]byte(nil), payload...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// Put stores a blob under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	key, err := storage.ValidateKey(key)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(blobBucket))
		if bucket == nil {
			return fmt.Errorf("blob bucket is missing")
		}
		return bucket.Put([]byte(key), value)
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(blobBucket))
		if err != nil {
			return fmt.Errorf("create blob bucket: %w", err)
		}
		return nil
	})
}
