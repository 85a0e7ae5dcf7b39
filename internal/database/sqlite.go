package database

import (
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vk/pluginrig/internal/fault"
)

// SQLiteStore is the persistent backing: a single-table key/value store in
// a sqlite file. It stands where a heavier embedded store would in a larger
// deployment; the Store interface hides the difference from the cache.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "opening value store %s", path)
	}
	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fault.Wrap(fault.BackendIO, err, "initializing value store %s", path)
	}
	return &SQLiteStore{db: db}, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(key string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM kv WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fault.Wrap(fault.BackendIO, err, "counting key %q", key)
	}
	return true, nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fault.Wrap(fault.BackendIO, err, "inserting key %q", key)
	}
	return nil
}

// At implements Store.
func (s *SQLiteStore) At(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, "no value stored under %q", key)
	}
	if err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "reading key %q", key)
	}
	return value, nil
}

// Free implements Store.
func (s *SQLiteStore) Free(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fault.Wrap(fault.BackendIO, err, "deleting key %q", key)
	}
	return nil
}

// Keys implements Store.
func (s *SQLiteStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "listing keys")
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fault.Wrap(fault.BackendIO, err, "listing keys")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "listing keys")
	}
	return keys, nil
}

// Backup implements Store. Writes are durable as soon as they commit, so
// there is nothing to flush.
func (s *SQLiteStore) Backup() error { return nil }

// Dump implements Store. A durable store has no unbacked tier to evict.
func (s *SQLiteStore) Dump() error { return nil }

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fault.Wrap(fault.BackendIO, err, "closing value store")
	}
	return nil
}
