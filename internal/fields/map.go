// Package fields implements the engine's typed field descriptors and the
// ordered, case-insensitively keyed maps that hold them.
//
// A descriptor is a named slot carrying a declared type, metadata and at
// most one type-erased value. Inputs additionally carry domain checks and
// the optional/transparent flags; results are the stripped-down output
// counterpart.
package fields

import (
	"strings"

	"github.com/vk/pluginrig/internal/fault"
)

// Map is an insertion-ordered collection keyed case-insensitively. Key
// lookup ignores case but the map remembers and reports the spelling used
// at first insertion. Iteration order is insertion order, which is what
// makes field maps hashable deterministically.
type Map[V any] struct {
	keys []string
	vals map[string]V
}

// NewMap creates an empty map.
func NewMap[V any]() *Map[V] {
	return &Map[V]{vals: make(map[string]V)}
}

func canonical(key string) string { return strings.ToLower(key) }

// Len returns the number of entries.
func (m *Map[V]) Len() int { return len(m.keys) }

// Has reports whether the key is present, ignoring case.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.vals[canonical(key)]
	return ok
}

// Get returns the value for key, ignoring case.
func (m *Map[V]) Get(key string) (V, bool) {
	v, ok := m.vals[canonical(key)]
	return v, ok
}

// At returns the value for key or an unknown-key error naming it.
func (m *Map[V]) At(key string) (V, error) {
	v, ok := m.vals[canonical(key)]
	if !ok {
		var zero V
		return zero, fault.New(fault.UnknownKey, "no field named %q", key).WithField("Fields", key)
	}
	return v, nil
}

// Set inserts or replaces the value for key. A replacement keeps the
// original spelling and position.
func (m *Map[V]) Set(key string, v V) {
	c := canonical(key)
	if _, ok := m.vals[c]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[c] = v
}

// Delete removes the key if present.
func (m *Map[V]) Delete(key string) {
	c := canonical(key)
	if _, ok := m.vals[c]; !ok {
		return
	}
	delete(m.vals, c)
	for i, k := range m.keys {
		if canonical(k) == c {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order, original spelling.
func (m *Map[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each visits entries in insertion order until fn returns false.
func (m *Map[V]) Each(fn func(key string, v V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.vals[canonical(k)]) {
			return
		}
	}
}

// Clone returns a map with every value passed through clone. Passing the
// identity gives a shallow copy.
func (m *Map[V]) Clone(clone func(V) V) *Map[V] {
	out := NewMap[V]()
	for _, k := range m.keys {
		out.Set(k, clone(m.vals[canonical(k)]))
	}
	return out
}

// Equal compares two maps entry-wise with eq. Key order does not
// participate; equality is set-of-entries equality.
func (m *Map[V]) Equal(other *Map[V], eq func(a, b V) bool) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, k := range m.keys {
		ov, ok := other.Get(k)
		if !ok || !eq(m.vals[canonical(k)], ov) {
			return false
		}
	}
	return true
}

// InputMap and ResultMap are the field-map shapes the engine passes around.
type (
	InputMap  = *Map[*Input]
	ResultMap = *Map[*Result]
)

// NewInputMap creates an empty input map.
func NewInputMap() InputMap { return NewMap[*Input]() }

// NewResultMap creates an empty result map.
func NewResultMap() ResultMap { return NewMap[*Result]() }

// CloneInputs deep-copies an input map.
func CloneInputs(m InputMap) InputMap {
	return m.Clone(func(i *Input) *Input { return i.Clone() })
}

// CloneResults deep-copies a result map.
func CloneResults(m ResultMap) ResultMap {
	return m.Clone(func(r *Result) *Result { return r.Clone() })
}
