// Package storage holds the blob stores that keep game rosters and
// leaderboards between sessions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("record not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is a key-value blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// ValidateKey trims key and rejects empty keys.
func ValidateKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("storage key is required")
	}
	return key, nil
}

// Memory keeps blobs in a map. Nothing survives a restart.
type Memory struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string][]byte),
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := ValidateKey(key)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := ValidateKey(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Scoped prefixes every key with a namespace, so several games can share one
// backing store.
type Scoped struct {
	store  Store
	prefix string
}

// Scope returns a view of store whose keys live under prefix.
func Scope(store Store, prefix string) *Scoped {
	return &Scoped{store: store, prefix: strings.TrimSuffix(prefix, "/") + "/"}
}

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *Scoped) Put(ctx context.Context, key string, value []byte) error {
	return s.store.Put(ctx, s.prefix+key, value)
}

// Close is a no-op; the backing store is owned by whoever opened it.
func (s *Scoped) Close() error {
	return nil
}
