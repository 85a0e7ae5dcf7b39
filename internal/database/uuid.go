package database

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/pluginrig/internal/fault"
)

// UUIDMapper assigns each registered type a stable fingerprint and
// persists the assignment so that serialized values written by one process
// can be attributed to the same codec entry by the next. Fingerprints live
// one file per type under the mapper's directory, named after a sanitized
// form of the type name.
type UUIDMapper struct {
	dir string
	ids map[string]uuid.UUID
}

// NewUUIDMapper opens (creating if needed) the fingerprint directory.
func NewUUIDMapper(dir string) (*UUIDMapper, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "creating fingerprint directory %s", dir)
	}
	m := &UUIDMapper{dir: dir, ids: make(map[string]uuid.UUID)}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "reading fingerprint directory %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fault.Wrap(fault.BackendIO, err, "reading fingerprint %s", e.Name())
		}
		lines := strings.SplitN(strings.TrimSpace(string(raw)), "\n", 2)
		if len(lines) != 2 {
			continue
		}
		id, err := uuid.Parse(lines[1])
		if err != nil {
			continue
		}
		m.ids[lines[0]] = id
	}
	return m, nil
}

// FingerprintFor returns the fingerprint for a type name, minting and
// persisting a fresh one on first sight.
func (m *UUIDMapper) FingerprintFor(typeName string) (uuid.UUID, error) {
	if id, ok := m.ids[typeName]; ok {
		return id, nil
	}
	id := uuid.New()
	body := typeName + "\n" + id.String() + "\n"
	path := filepath.Join(m.dir, sanitizeFilename(typeName))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return uuid.Nil, fault.Wrap(fault.BackendIO, err, "persisting fingerprint for %s", typeName)
	}
	m.ids[typeName] = id
	return id, nil
}

// Known returns the currently known type-name -> fingerprint pairs.
func (m *UUIDMapper) Known() map[string]uuid.UUID {
	out := make(map[string]uuid.UUID, len(m.ids))
	for k, v := range m.ids {
		out[k] = v
	}
	return out
}

// sanitizeFilename maps a package-qualified type name onto something every
// filesystem accepts.
func sanitizeFilename(name string) string {
	repl := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "[", "_", "]", "_")
	return repl.Replace(name)
}
