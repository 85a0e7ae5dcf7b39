// Package database implements the key/value backing stores the cache can
// spill to, and the factory that lays them out on disk.
//
// The engine consumes backings through the Store interface: byte-string
// keys mapping to byte-string values. Two concrete backings are provided:
// an in-process map for ephemeral runs and a sqlite-backed store for runs
// whose results should survive the process. Values crossing into a durable
// store are serialized through the registered-type dispatch in anyfield.
package database

import (
	"sort"
	"sync"

	"github.com/vk/pluginrig/internal/fault"
)

// Store is the abstract key/value map a cache spills to.
type Store interface {
	// Count reports whether the key is present.
	Count(key string) (bool, error)

	// Insert stores value under key, replacing any previous value.
	Insert(key string, value []byte) error

	// At returns the value under key, or a not-found error.
	At(key string) ([]byte, error)

	// Free removes the key if present.
	Free(key string) error

	// Keys lists the stored keys in lexical order.
	Keys() ([]string, error)

	// Backup flushes any buffered writes to durable media. A no-op for
	// stores that are already durable or have no durable media.
	Backup() error

	// Dump evicts everything not yet backed up. A no-op for durable
	// stores.
	Dump() error

	// Close releases the store's resources (file handles mostly).
	Close() error
}

// MemoryStore is the ephemeral in-process backing. It holds everything in
// a plain map; Backup and Dump are no-ops because there is no second tier
// below it.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

// Count implements Store.
func (s *MemoryStore) Count(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[key]
	return ok, nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.m[key] = cp
	return nil
}

// At implements Store.
func (s *MemoryStore) At(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, fault.New(fault.NotFound, "no value stored under %q", key)
	}
	return v, nil
}

// Free implements Store.
func (s *MemoryStore) Free(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Backup implements Store as a no-op.
func (s *MemoryStore) Backup() error { return nil }

// Dump implements Store as a no-op.
func (s *MemoryStore) Dump() error { return nil }

// Close implements Store as a no-op.
func (s *MemoryStore) Close() error { return nil }
