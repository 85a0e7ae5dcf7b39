package module

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vk/pluginrig/internal/cache"
	"github.com/vk/pluginrig/internal/ctxlog"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/hashing"
	"github.com/vk/pluginrig/internal/proptype"
)

// Module is the runtime wrapper around an implementation: the unit users
// configure, wire and run. All state lives behind an implementation
// pointer so that copies of the wrapper share one identity.
type Module struct {
	p *pimpl
}

// pimpl composes the implementation with its mutable per-instance state.
type pimpl struct {
	impl    Impl
	inputs  fields.InputMap
	submods SubmodMap
	cache   *cache.Cache

	locked  bool
	memoize bool

	runCount int
	profile  []runRecord
}

// profileRing bounds how many run records a module retains.
const profileRing = 32

type runRecord struct {
	at   time.Time
	took time.Duration
	hit  bool
}

// New wraps an implementation in a runtime module with no result cache.
// Inputs and submodule slots are initialized from the implementation's
// declarations.
func New(impl Impl) *Module {
	return NewWithCache(impl, nil)
}

// NewWithCache wraps an implementation bound to a shared result cache.
func NewWithCache(impl Impl, c *cache.Cache) *Module {
	p := &pimpl{memoize: true, cache: c}
	if impl != nil {
		p.impl = impl
		b := impl.moduleBase()
		p.inputs = b.Inputs()
		p.submods = b.Submods()
	} else {
		p.inputs = fields.NewInputMap()
		p.submods = fields.NewMap[*SubmoduleRequest]()
	}
	return &Module{p: p}
}

func (m *Module) assertImpl() error {
	if m.p.impl == nil {
		return fault.New(fault.NotReady, "module has no implementation")
	}
	return nil
}

// HasImpl reports whether an implementation has been attached.
func (m *Module) HasImpl() bool { return m.p.impl != nil }

// Impl returns the wrapped implementation, or nil.
func (m *Module) Impl() Impl { return m.p.impl }

// Inputs returns the module's bound input map. The map is live; use
// ChangeInput to mutate values so the lock is honored.
func (m *Module) Inputs() fields.InputMap { return m.p.inputs }

// Submods returns the module's submodule slots. The map is live; use
// BindSubmod to change bindings so the lock is honored.
func (m *Module) Submods() SubmodMap { return m.p.submods }

// Results returns a copy of the declared result fields.
func (m *Module) Results() (fields.ResultMap, error) {
	if err := m.assertImpl(); err != nil {
		return nil, err
	}
	return m.p.impl.moduleBase().Results(), nil
}

// Description returns the implementation's description.
func (m *Module) Description() string {
	if m.p.impl == nil {
		return ""
	}
	return m.p.impl.moduleBase().Description()
}

// Citations returns the implementation's recorded references.
func (m *Module) Citations() []string {
	if m.p.impl == nil {
		return nil
	}
	return m.p.impl.moduleBase().Citations()
}

// PropertyTypes returns the identities of the property types the
// implementation satisfies.
func (m *Module) PropertyTypes() []proptype.ID {
	if m.p.impl == nil {
		return nil
	}
	return m.p.impl.moduleBase().PropertyTypes()
}

// Satisfies reports whether the implementation satisfies the property type.
func (m *Module) Satisfies(id proptype.ID) bool {
	return m.p.impl != nil && m.p.impl.moduleBase().SatisfiesPT(id)
}

// ChangeInput stores a new value for a declared input.
func (m *Module) ChangeInput(key string, v any) error {
	if m.p.locked {
		return fault.New(fault.Locked, "cannot change input %q on a locked module", key)
	}
	in, err := m.p.inputs.At(key)
	if err != nil {
		return err
	}
	return in.Change(v)
}

// BindSubmod binds a module into a named submodule slot.
func (m *Module) BindSubmod(key string, sub *Module) error {
	if m.p.locked {
		return fault.New(fault.Locked, "cannot bind submodule %q on a locked module", key)
	}
	req, err := m.p.submods.At(key)
	if err != nil {
		return err
	}
	return req.Bind(sub)
}

// Locked reports whether the module is frozen against mutation.
func (m *Module) Locked() bool { return m.p.locked }

// Lock freezes the module and, recursively, every bound submodule.
func (m *Module) Lock() {
	m.lock(make(map[*pimpl]bool))
}

func (m *Module) lock(visited map[*pimpl]bool) {
	if visited[m.p] {
		return
	}
	visited[m.p] = true
	m.p.submods.Each(func(_ string, req *SubmoduleRequest) bool {
		req.lock(visited)
		return true
	})
	m.p.locked = true
}

// Unlock unfreezes this module only. Submodules stay locked; they may be
// referenced by other locked parents, so each is unlocked by whoever owns
// the decision for it.
func (m *Module) Unlock() { m.p.locked = false }

// IsMemoizable reports whether results may be served from the cache: the
// module's own flag and, recursively, every bound submodule's.
func (m *Module) IsMemoizable() bool {
	return m.memoizable(make(map[*pimpl]bool))
}

func (m *Module) memoizable(visited map[*pimpl]bool) bool {
	if visited[m.p] {
		return true
	}
	visited[m.p] = true
	if !m.p.memoize {
		return false
	}
	ok := true
	m.p.submods.Each(func(_ string, req *SubmoduleRequest) bool {
		ok = req.memoizable(visited)
		return ok
	})
	return ok
}

// TurnOnMemoization enables result caching for this module.
func (m *Module) TurnOnMemoization() error {
	if m.p.locked {
		return fault.New(fault.Locked, "cannot change memoization on a locked module")
	}
	m.p.memoize = true
	return nil
}

// TurnOffMemoization disables result caching for this module and,
// transitively, for anything it participates in.
func (m *Module) TurnOffMemoization() error {
	if m.p.locked {
		return fault.New(fault.Locked, "cannot change memoization on a locked module")
	}
	m.p.memoize = false
	return nil
}

// ResetCache detaches the module from its result cache.
func (m *Module) ResetCache() { m.p.cache = nil }

// NotSet reports what blocks readiness, grouped by category: "Inputs"
// lists required inputs with no value, "Submodules" lists slots that are
// unbound or not ready. A key merely present in the call map counts as
// covered: property types hand over their input schema before values
// exist, and the values arrive when the run is wrapped.
func (m *Module) NotSet(call fields.InputMap) map[string][]string {
	probs := make(map[string][]string)

	if missing := m.notSetInputs(call); len(missing) > 0 {
		probs["Inputs"] = missing
	}

	var unready []string
	visited := make(map[*pimpl]bool)
	visited[m.p] = true
	m.p.submods.Each(func(key string, req *SubmoduleRequest) bool {
		if !req.ready(visited) {
			unready = append(unready, key)
		}
		return true
	})
	if len(unready) > 0 {
		probs["Submodules"] = unready
	}
	return probs
}

// Ready reports whether the module could run right now given the extra
// call inputs (nil for none).
func (m *Module) Ready(call fields.InputMap) bool {
	if m.p.impl == nil {
		return false
	}
	return len(m.NotSet(call)) == 0
}

func (m *Module) ready(call fields.InputMap, visited map[*pimpl]bool) bool {
	if m.p.impl == nil {
		return false
	}
	if visited[m.p] {
		// Already being checked further up the stack; assume it resolves
		// there rather than recursing forever.
		return true
	}
	visited[m.p] = true
	defer delete(visited, m.p)
	if len(m.notSetInputs(call)) > 0 {
		return false
	}
	ok := true
	m.p.submods.Each(func(_ string, req *SubmoduleRequest) bool {
		ok = req.ready(visited)
		return ok
	})
	return ok
}

func (m *Module) notSetInputs(call fields.InputMap) []string {
	var missing []string
	m.p.inputs.Each(func(key string, in *fields.Input) bool {
		if !in.Ready() {
			if call != nil && call.Has(key) {
				return true
			}
			missing = append(missing, key)
		}
		return true
	})
	return missing
}

// merge combines the call map with the stored inputs: stored values are
// the defaults, call values override.
func (m *Module) merge(call fields.InputMap) fields.InputMap {
	merged := fields.CloneInputs(m.p.inputs)
	if call != nil {
		call.Each(func(key string, in *fields.Input) bool {
			merged.Set(key, in.Clone())
			return true
		})
	}
	return merged
}

// checkCallKeys rejects call inputs that the module never declared.
func (m *Module) checkCallKeys(call fields.InputMap) error {
	if call == nil {
		return nil
	}
	var unknown []string
	call.Each(func(key string, _ *fields.Input) bool {
		if !m.p.inputs.Has(key) {
			unknown = append(unknown, key)
		}
		return true
	})
	if len(unknown) == 0 {
		return nil
	}
	err := fault.New(fault.UnknownKey, "call provided inputs the module does not declare")
	for _, k := range unknown {
		err.WithField("Inputs", k)
	}
	return err
}

// ContextHash computes the memoization key for running with the given call
// inputs: implementation identity, opaque merged inputs in declared order,
// and the bound submodules' context hashes in declared key order.
func (m *Module) ContextHash(call fields.InputMap) (string, error) {
	if err := m.assertImpl(); err != nil {
		return "", err
	}
	h := hashing.New()
	visited := make(map[*pimpl]bool)
	m.hashWith(h, m.merge(call), visited)
	return h.Finalize(), nil
}

func (m *Module) hashInto(h *hashing.Hasher, call fields.InputMap, visited map[*pimpl]bool) {
	if m.p.impl == nil {
		h.WriteZero()
		return
	}
	if visited[m.p] {
		h.WriteString("\x00cycle")
		return
	}
	m.hashWith(h, m.merge(call), visited)
}

func (m *Module) hashWith(h *hashing.Hasher, merged fields.InputMap, visited map[*pimpl]bool) {
	visited[m.p] = true
	defer delete(visited, m.p)

	hashIdentity(h, m.p.impl)
	merged.Each(func(key string, in *fields.Input) bool {
		h.WriteString(key)
		in.HashContent(h)
		return true
	})
	m.p.submods.Each(func(key string, req *SubmoduleRequest) bool {
		h.WriteString(key)
		req.hashInto(h, visited)
		return true
	})
}

// IsCached reports whether a run with the given call inputs would be
// served from the cache.
func (m *Module) IsCached(call fields.InputMap) bool {
	if m.p.cache == nil || m.p.impl == nil {
		return false
	}
	hv, err := m.ContextHash(call)
	if err != nil {
		return false
	}
	return m.p.cache.Count(hv)
}

// Run executes the module with the given call inputs (nil for none).
//
// The call map is validated against the declared inputs, merged with the
// stored defaults, and the merged state is checked for readiness; any
// failure up to that point surfaces as a typed error and leaves the module
// unlocked. Past validation the module (and its subtree) locks, the
// context hash is computed, and with memoization on a cached result is
// returned without invoking the implementation. The module stays locked
// after a run; the caller decides when to Unlock.
//
// A backing-store failure while recording a fresh result returns the
// result map together with the backend-io error; the in-memory cache tier
// already reflects the write.
func (m *Module) Run(ctx context.Context, call fields.InputMap) (fields.ResultMap, error) {
	started := time.Now()
	logger := ctxlog.FromContext(ctx)

	if err := m.assertImpl(); err != nil {
		return nil, err
	}
	if err := m.checkCallKeys(call); err != nil {
		return nil, err
	}

	// Inputs handed to this call must themselves be usable.
	var badCall error
	if call != nil {
		call.Each(func(key string, in *fields.Input) bool {
			if !in.Ready() {
				badCall = fault.New(fault.NotReady, "call input %q has no value", key).
					WithField("Inputs", key)
				return false
			}
			return true
		})
	}
	if badCall != nil {
		return nil, badCall
	}

	if probs := m.NotSet(call); len(probs) > 0 {
		err := fault.New(fault.NotReady, "module is not ready to run")
		for cat, keys := range probs {
			for _, k := range keys {
				err.WithField(cat, k)
			}
		}
		return nil, err
	}

	m.Lock()

	merged := m.merge(call)
	h := hashing.New()
	m.hashWith(h, merged, make(map[*pimpl]bool))
	hv := h.Finalize()

	if m.IsMemoizable() && m.p.cache != nil && m.p.cache.Count(hv) {
		logger.Debug("Serving module run from cache.", "impl", implIdentity(m.p.impl), "hash", hv)
		rm, err := m.p.cache.At(hv)
		if err == nil {
			m.record(started, true)
			return rm, nil
		}
		// A backing read can fail after Count saw the key; fall through
		// and recompute rather than surface a stale-read error.
		logger.Warn("Cache read failed; recomputing.", "error", err)
	}

	logger.Debug("Running module.", "impl", implIdentity(m.p.impl), "hash", hv)
	m.p.runCount++
	rm, err := m.p.impl.Run(ctx, merged, m.p.submods)
	if err != nil {
		m.record(started, false)
		return nil, fmt.Errorf("running %s: %w", implIdentity(m.p.impl), err)
	}

	var cacheErr error
	if m.p.cache != nil && m.IsMemoizable() {
		cacheErr = m.p.cache.Insert(hv, rm)
	}
	m.record(started, false)
	return rm, cacheErr
}

func (m *Module) record(started time.Time, hit bool) {
	rec := runRecord{at: started, took: time.Since(started), hit: hit}
	m.p.profile = append(m.p.profile, rec)
	if len(m.p.profile) > profileRing {
		m.p.profile = m.p.profile[len(m.p.profile)-profileRing:]
	}
}

// RunCount returns how many times the implementation's Run was invoked
// (cache hits excluded).
func (m *Module) RunCount() int { return m.p.runCount }

// ProfileInfo renders the retained run timings, submodules indented
// beneath their slot keys.
func (m *Module) ProfileInfo() string {
	var b strings.Builder
	var total time.Duration
	hits := 0
	for _, rec := range m.p.profile {
		total += rec.took
		if rec.hit {
			hits++
		}
	}
	fmt.Fprintf(&b, "runs: %d (cached: %d), time: %s\n", len(m.p.profile), hits, total)
	m.p.submods.Each(func(key string, req *SubmoduleRequest) bool {
		fmt.Fprintf(&b, "  %s\n", key)
		if req.Module() != nil {
			for _, line := range strings.Split(strings.TrimRight(req.Module().ProfileInfo(), "\n"), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
		return true
	})
	return b.String()
}

// UnlockedCopy deep-copies the module. The copy shares the implementation
// and the cache but owns its inputs and submodule bindings, and it is
// unlocked regardless of the original's state.
func (m *Module) UnlockedCopy() *Module {
	p := &pimpl{
		impl:    m.p.impl,
		inputs:  fields.CloneInputs(m.p.inputs),
		submods: m.p.submods.Clone(func(r *SubmoduleRequest) *SubmoduleRequest { return r.Clone() }),
		cache:   m.p.cache,
		memoize: m.p.memoize,
	}
	return &Module{p: p}
}

// Equal compares modules structurally: implementation identity, lock
// state, inputs and submodule bindings.
func (m *Module) Equal(other *Module) bool {
	if m.p == other.p {
		return true
	}
	if m.p.locked != other.p.locked {
		return false
	}
	if !ImplsEqual(m.p.impl, other.p.impl) {
		return false
	}
	if !m.p.inputs.Equal(other.p.inputs, func(a, b *fields.Input) bool { return a.Equal(b) }) {
		return false
	}
	return m.p.submods.Equal(other.p.submods,
		func(a, b *SubmoduleRequest) bool { return a.Equal(b) })
}

// RunAs runs the module through the property type PT: positional args are
// packed into PT's named inputs, the module runs, and PT's named results
// come back positionally.
func RunAs[PT proptype.PropertyType](ctx context.Context, m *Module, args ...any) ([]any, error) {
	if err := m.assertImpl(); err != nil {
		return nil, err
	}
	if !m.Satisfies(proptype.IDOf[PT]()) {
		return nil, fault.New(fault.PTUnsatisfied, "module %s does not satisfy %s",
			implIdentity(m.p.impl), proptype.Name(proptype.IDOf[PT]()))
	}
	var pt PT
	call, err := proptype.WrapInputs[PT](pt.Inputs(), args...)
	if err != nil {
		return nil, err
	}
	rm, err := m.Run(ctx, call)
	if err != nil {
		return nil, err
	}
	return proptype.UnwrapResults[PT](rm)
}
