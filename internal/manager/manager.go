// Package manager implements the registry that owns module instances,
// their shared per-implementation caches, and default-module resolution.
//
// A Manager is the embedding application's entry point: load module packs
// into it, set options, wire or rely on defaults, and run. Modules with
// the same implementation type share one result cache, so equal work done
// through different keys is still done once.
package manager

import (
	"context"

	"github.com/vk/pluginrig/internal/cache"
	"github.com/vk/pluginrig/internal/database"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/module"
	"github.com/vk/pluginrig/internal/proptype"
)

// Manager is the registry of named module instances.
type Manager struct {
	modules *fields.Map[*module.Module]

	// caches and userCaches are keyed by implementation identity; one
	// result cache and one scratch cache per implementation type.
	caches     map[string]*cache.Cache
	userCaches map[string]*cache.Cache

	defaults      map[proptype.ID]string
	defaultInputs map[proptype.ID]fields.InputMap

	// backing, when set, gives newly created result caches a durable
	// second tier.
	backing func() database.Store
}

// New creates an empty manager with purely in-memory caches.
func New() *Manager {
	return &Manager{
		modules:       fields.NewMap[*module.Module](),
		caches:        make(map[string]*cache.Cache),
		userCaches:    make(map[string]*cache.Cache),
		defaults:      make(map[proptype.ID]string),
		defaultInputs: make(map[proptype.ID]fields.InputMap),
	}
}

// NewPersistent creates a manager whose result caches spill to stores
// opened by the given factory. Each implementation type gets its own cache
// but they share the one backing store.
func NewPersistent(f *database.Factory) (*Manager, error) {
	store, err := f.OpenValueStore()
	if err != nil {
		return nil, err
	}
	m := New()
	m.backing = func() database.Store { return store }
	return m, nil
}

// Count reports whether a module is registered under the key.
func (mm *Manager) Count(key string) bool { return mm.modules.Has(key) }

// Len returns the number of registered modules.
func (mm *Manager) Len() int { return mm.modules.Len() }

// Keys returns the registered module keys in registration order.
func (mm *Manager) Keys() []string { return mm.modules.Keys() }

// Each visits registered modules in registration order.
func (mm *Manager) Each(fn func(key string, m *module.Module) bool) {
	mm.modules.Each(fn)
}

// AddModule registers an implementation under a fresh key, wiring it to
// the per-implementation-type result cache (created on first use) and the
// per-implementation-type scratch cache.
func (mm *Manager) AddModule(key string, impl module.Impl) error {
	if impl == nil {
		panic("manager: cannot register a nil implementation")
	}
	if mm.modules.Has(key) {
		return fault.New(fault.AlreadyExists, "a module is already registered under %q", key)
	}
	identity := module.Identity(impl)
	if _, ok := mm.caches[identity]; !ok {
		if mm.backing != nil {
			mm.caches[identity] = cache.NewBacked(mm.backing())
		} else {
			mm.caches[identity] = cache.New()
		}
	}
	if _, ok := mm.userCaches[identity]; !ok {
		mm.userCaches[identity] = cache.New()
	}
	module.AttachUserCache(impl, mm.userCaches[identity])
	mm.modules.Set(key, module.NewWithCache(impl, mm.caches[identity]))
	return nil
}

// At returns the module registered under the key, first auto-binding any
// unready submodule slot whose property type has a ready default.
func (mm *Manager) At(key string) (*module.Module, error) {
	mod, err := mm.modules.At(key)
	if err != nil {
		return nil, fault.New(fault.NotFound, "no module registered under %q", key)
	}
	var bindErr error
	mod.Submods().Each(func(slot string, req *module.SubmoduleRequest) bool {
		if req.Ready() {
			return true
		}
		defKey, ok := mm.defaults[req.PT()]
		if !ok {
			return true
		}
		def, err := mm.At(defKey) // recursive so the default's own slots fill in
		if err != nil {
			bindErr = err
			return false
		}
		if def.Ready(mm.defaultInputs[req.PT()]) {
			bindErr = mod.BindSubmod(slot, def)
			return bindErr == nil
		}
		return true
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return mod, nil
}

// CopyModule deep-copies the module under oldKey to newKey. The copy keeps
// the inputs and submodule bindings but is unlocked.
func (mm *Manager) CopyModule(oldKey, newKey string) error {
	if mm.modules.Has(newKey) {
		return fault.New(fault.AlreadyExists, "a module is already registered under %q", newKey)
	}
	mod, err := mm.modules.At(oldKey)
	if err != nil {
		return fault.New(fault.NotFound, "no module registered under %q", oldKey)
	}
	mm.modules.Set(newKey, mod.UnlockedCopy())
	return nil
}

// Erase removes the module under the key. Absent keys are a silent no-op;
// cached results are not touched.
func (mm *Manager) Erase(key string) {
	mm.modules.Delete(key)
}

// ChangeSubmod binds the module registered under submodKey into the named
// slot of the module registered under modKey.
func (mm *Manager) ChangeSubmod(modKey, slotKey, submodKey string) error {
	mod, err := mm.modules.At(modKey)
	if err != nil {
		return fault.New(fault.NotFound, "no module registered under %q", modKey)
	}
	sub, err := mm.modules.At(submodKey)
	if err != nil {
		return fault.New(fault.NotFound, "no module registered under %q", submodKey)
	}
	return mod.BindSubmod(slotKey, sub)
}

// ChangeInput stores a value for a declared input of the module under key.
func (mm *Manager) ChangeInput(key, inputKey string, v any) error {
	mod, err := mm.modules.At(key)
	if err != nil {
		return fault.New(fault.NotFound, "no module registered under %q", key)
	}
	return mod.ChangeInput(inputKey, v)
}

// SetDefaultFor declares the module under key as the default
// implementation of the property type. Newly resolved modules with unbound
// slots of that property type get it auto-bound, with inputs (nil for
// none) applied when judging the default's readiness.
func (mm *Manager) SetDefaultFor(pt proptype.ID, inputs fields.InputMap, key string) error {
	if !mm.modules.Has(key) {
		return fault.New(fault.NotFound, "no module registered under %q", key)
	}
	mod, _ := mm.modules.At(key)
	if !mod.Satisfies(pt) {
		return fault.New(fault.PTUnsatisfied, "module %q does not satisfy %s", key, proptype.Name(pt))
	}
	mm.defaults[pt] = key
	mm.defaultInputs[pt] = inputs
	return nil
}

// SetDefault is the compile-time-typed form of SetDefaultFor. The
// property type's own input schema is recorded so the default's readiness
// is judged modulo the inputs the property type supplies at call time.
func SetDefault[PT proptype.PropertyType](mm *Manager, key string) error {
	var pt PT
	return mm.SetDefaultFor(proptype.IDOf[PT](), pt.Inputs(), key)
}

// SetDefaultWithInputs sets a default along with input overrides used when
// judging its readiness.
func SetDefaultWithInputs[PT proptype.PropertyType](mm *Manager, inputs fields.InputMap, key string) error {
	return mm.SetDefaultFor(proptype.IDOf[PT](), inputs, key)
}

// CacheFor exposes the shared result cache of the implementation behind
// the given module key, mainly for persistence plumbing and tests.
func (mm *Manager) CacheFor(key string) (*cache.Cache, error) {
	mod, err := mm.modules.At(key)
	if err != nil {
		return nil, fault.New(fault.NotFound, "no module registered under %q", key)
	}
	if !mod.HasImpl() {
		return nil, fault.New(fault.NotReady, "module %q has no implementation", key)
	}
	c, ok := mm.caches[module.Identity(mod.Impl())]
	if !ok {
		return nil, fault.New(fault.NotFound, "module %q has no cache", key)
	}
	return c, nil
}

// BackupCaches flushes every per-type cache to its backing store.
func (mm *Manager) BackupCaches() error {
	for _, c := range mm.caches {
		if err := c.Backup(); err != nil {
			return err
		}
	}
	return nil
}

// RunAs resolves the module under key (defaults included) and runs it
// through the property type PT.
func RunAs[PT proptype.PropertyType](ctx context.Context, mm *Manager, key string, args ...any) ([]any, error) {
	mod, err := mm.At(key)
	if err != nil {
		return nil, err
	}
	return module.RunAs[PT](ctx, mod, args...)
}
