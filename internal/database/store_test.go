package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pluginrig/internal/fault"
)

// storeContract exercises the Store interface against any implementation.
func storeContract(t *testing.T, s Store) {
	t.Helper()

	ok, err := s.Count("k1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.At("k1")
	assert.True(t, fault.IsKind(err, fault.NotFound))

	require.NoError(t, s.Insert("k1", []byte("v1")))
	require.NoError(t, s.Insert("k0", []byte("v0")))

	ok, err = s.Count("k1")
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := s.At("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	// Replacement.
	require.NoError(t, s.Insert("k1", []byte("v2")))
	v, err = s.At("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"k0", "k1"}, keys)

	require.NoError(t, s.Free("k1"))
	ok, err = s.Count("k1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Free("k1")) // absent: silent

	require.NoError(t, s.Backup())
	require.NoError(t, s.Dump())
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	storeContract(t, s)
	require.NoError(t, s.Close())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Insert("k", buf))
	buf[0] = 'z'
	v, err := s.At("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), v)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	storeContract(t, s)
	require.NoError(t, s.Close())
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert("k", []byte("v")))
	require.NoError(t, s.Close())

	s2, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	v, err := s2.At("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestUUIDMapper(t *testing.T) {
	dir := t.TempDir()
	m, err := NewUUIDMapper(dir)
	require.NoError(t, err)

	id1, err := m.FingerprintFor("example.com/pkg.Type")
	require.NoError(t, err)
	id2, err := m.FingerprintFor("example.com/pkg.Type")
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "fingerprints are stable within a process")

	// And across reopens.
	m2, err := NewUUIDMapper(dir)
	require.NoError(t, err)
	id3, err := m2.FingerprintFor("example.com/pkg.Type")
	require.NoError(t, err)
	assert.Equal(t, id1, id3, "fingerprints survive a restart")

	other, err := m2.FingerprintFor("example.com/pkg.Other")
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)
}

func TestFactoryLayout(t *testing.T) {
	root := t.TempDir()
	f := NewFactory(root)
	s, err := f.OpenValueStore()
	require.NoError(t, err)
	defer s.Close()

	assert.DirExists(t, filepath.Join(root, "cache"))
	assert.DirExists(t, filepath.Join(root, "uuid"))
	assert.FileExists(t, filepath.Join(root, "cache", "values.db"))

	m, err := f.OpenUUIDMapper()
	require.NoError(t, err)
	assert.NotEmpty(t, m.Known(), "registered types got fingerprints")
}
