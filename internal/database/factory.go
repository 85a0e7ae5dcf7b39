package database

import (
	"os"
	"path/filepath"

	"github.com/vk/pluginrig/internal/anyfield"
	"github.com/vk/pluginrig/internal/fault"
)

// Factory wires the on-disk layout for persistent caching: two sibling
// directories under a caller-provided root,
//
//	<root>/cache/   the serialized value store
//	<root>/uuid/    type fingerprints for the codec registry
//
// both created on first use.
type Factory struct {
	root string
}

// NewFactory creates a factory rooted at path. Nothing touches the disk
// until a store is opened.
func NewFactory(root string) *Factory {
	return &Factory{root: root}
}

// OpenValueStore opens the persistent value store, creating the layout and
// registering fingerprints for every currently registered type.
func (f *Factory) OpenValueStore() (Store, error) {
	cacheDir := filepath.Join(f.root, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "creating cache directory %s", cacheDir)
	}
	mapper, err := f.OpenUUIDMapper()
	if err != nil {
		return nil, err
	}
	for _, name := range anyfield.RegisteredTypeNames() {
		if _, err := mapper.FingerprintFor(name); err != nil {
			return nil, err
		}
	}
	return OpenSQLiteStore(filepath.Join(cacheDir, "values.db"))
}

// OpenUUIDMapper opens the fingerprint directory.
func (f *Factory) OpenUUIDMapper() (*UUIDMapper, error) {
	return NewUUIDMapper(filepath.Join(f.root, "uuid"))
}
