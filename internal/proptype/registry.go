package proptype

import "sync"

// The named registry lets configuration refer to property types by a
// string alias ("area", "prism volume") where compile-time identities are
// out of reach. Module packs register their property types at load time.

var (
	namedMu sync.RWMutex
	named   = map[string]PropertyType{}
)

// RegisterNamed associates an alias with a property type. Re-registering
// the same property type under the same alias is a no-op; claiming an
// alias for a different property type panics.
func RegisterNamed(alias string, pt PropertyType) {
	namedMu.Lock()
	defer namedMu.Unlock()
	if existing, ok := named[alias]; ok {
		if IDFor(existing) != IDFor(pt) {
			panic("proptype: alias " + alias + " already names " + Name(IDFor(existing)))
		}
		return
	}
	named[alias] = pt
}

// LookupNamed resolves an alias registered with RegisterNamed.
func LookupNamed(alias string) (PropertyType, bool) {
	namedMu.RLock()
	defer namedMu.RUnlock()
	pt, ok := named[alias]
	return pt, ok
}
