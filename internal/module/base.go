// Package module implements the engine's execution plane: the contract
// module authors implement, the runtime wrapper around it, submodule
// wiring, the readiness state machine and the memoized run path.
//
// An implementation is an ordinary struct embedding Base. Its constructor
// declares what the module is: the property types it satisfies, extra
// inputs and results, submodule slots, metadata. Its Run method does
// the work. The runtime Module wraps an implementation with the mutable
// per-instance state: bound input values, bound submodules, the lock flag
// and the per-implementation-type result cache.
package module

import (
	"context"
	"reflect"

	"github.com/vk/pluginrig/internal/cache"
	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/hashing"
	"github.com/vk/pluginrig/internal/proptype"
)

// SubmodMap is the keyed collection of submodule slots.
type SubmodMap = *fields.Map[*SubmoduleRequest]

// Impl is the contract a module implementation fulfills. The unexported
// accessor is provided by embedding Base, so implementations cannot forget
// it; Run is the module's algorithm and must be pure with respect to the
// engine: results flow out through the returned map only.
type Impl interface {
	moduleBase() *Base
	Run(ctx context.Context, inputs fields.InputMap, submods SubmodMap) (fields.ResultMap, error)
}

// Base carries an implementation's declarations. Embed it and populate it
// in the implementation's constructor.
type Base struct {
	pts     []proptype.PropertyType
	inputs  fields.InputMap
	results fields.ResultMap
	submods SubmodMap

	desc      string
	citations []string

	// identityTag distinguishes implementations that share a Go type,
	// lambda modules mostly. Empty for ordinary implementations.
	identityTag string

	userCache *cache.Cache
}

func (b *Base) moduleBase() *Base { return b }

func (b *Base) ensure() {
	if b.inputs == nil {
		b.inputs = fields.NewInputMap()
		b.results = fields.NewResultMap()
		b.submods = fields.NewMap[*SubmoduleRequest]()
	}
}

// Satisfies declares that the implementation fulfills the property type PT
// and merges PT's fields into the declared input/result maps. Declaring a
// field twice with conflicting types is a bug in the implementation and
// panics.
func Satisfies[PT proptype.PropertyType](b *Base) {
	b.ensure()
	var pt PT
	b.pts = append(b.pts, pt)

	pt.Inputs().Each(func(key string, in *fields.Input) bool {
		if existing, ok := b.inputs.Get(key); ok {
			if existing.Type() != in.Type() {
				panic("module: input " + key + " redeclared with a different type")
			}
			return true
		}
		b.inputs.Set(key, in)
		return true
	})
	pt.Results().Each(func(key string, r *fields.Result) bool {
		if existing, ok := b.results.Get(key); ok {
			if existing.Type() != r.Type() {
				panic("module: result " + key + " redeclared with a different type")
			}
			return true
		}
		b.results.Set(key, r)
		return true
	})
}

// AddInput declares an extra by-value input beyond what the satisfied
// property types require. The returned descriptor is live for metadata
// chaining.
func AddInput[T any](b *Base, key string) *fields.Input {
	b.ensure()
	in := fields.DeclareType[T](fields.NewInput())
	b.inputs.Set(key, in)
	return in
}

// AddRefInput declares an extra by-reference input.
func AddRefInput[T any](b *Base, key string) *fields.Input {
	b.ensure()
	in := fields.DeclareRefType[T](fields.NewInput())
	b.inputs.Set(key, in)
	return in
}

// AddResult declares an extra result field.
func AddResult[T any](b *Base, key string) *fields.Result {
	b.ensure()
	r := fields.DeclareResultType[T](fields.NewResult())
	b.results.Set(key, r)
	return r
}

// AddSubmodule declares a submodule slot requiring a module that satisfies
// PT.
func AddSubmodule[PT proptype.PropertyType](b *Base, key string) *SubmoduleRequest {
	b.ensure()
	var pt PT
	req := newSubmoduleRequest(pt)
	b.submods.Set(key, req)
	return req
}

// SetDescription attaches the implementation's description.
func (b *Base) SetDescription(d string) { b.desc = d }

// Description returns the attached description.
func (b *Base) Description() string { return b.desc }

// AddCitation records a literature reference for the implementation.
func (b *Base) AddCitation(c string) { b.citations = append(b.citations, c) }

// Citations returns the recorded references.
func (b *Base) Citations() []string {
	return append([]string(nil), b.citations...)
}

// PropertyTypes returns the identities of the satisfied property types in
// declaration order.
func (b *Base) PropertyTypes() []proptype.ID {
	ids := make([]proptype.ID, len(b.pts))
	for n, pt := range b.pts {
		ids[n] = proptype.IDFor(pt)
	}
	return ids
}

// SatisfiesPT reports whether the implementation declared satisfaction of
// the given property type.
func (b *Base) SatisfiesPT(id proptype.ID) bool {
	for _, pt := range b.pts {
		if proptype.IDFor(pt) == id {
			return true
		}
	}
	return false
}

// Inputs returns a deep copy of the declared inputs, defaults included.
func (b *Base) Inputs() fields.InputMap {
	b.ensure()
	return fields.CloneInputs(b.inputs)
}

// Results returns a deep copy of the declared results.
func (b *Base) Results() fields.ResultMap {
	b.ensure()
	return fields.CloneResults(b.results)
}

// Submods returns a deep copy of the declared submodule slots.
func (b *Base) Submods() SubmodMap {
	b.ensure()
	return b.submods.Clone(func(r *SubmoduleRequest) *SubmoduleRequest { return r.Clone() })
}

// DeclaredInputs exposes the live declared input map so a constructor can
// refine metadata on fields a property type introduced.
func (b *Base) DeclaredInputs() fields.InputMap {
	b.ensure()
	return b.inputs
}

// DeclaredResults is the result-side counterpart of DeclaredInputs.
func (b *Base) DeclaredResults() fields.ResultMap {
	b.ensure()
	return b.results
}

// SetUserCache hands the implementation its scratch cache. The manager
// calls this at registration, giving every implementation of the same type
// the same scratch cache; implementations read it back with
// UserCache during Run to memoize their own intermediates.
func (b *Base) SetUserCache(c *cache.Cache) { b.userCache = c }

// UserCache returns the implementation's scratch cache, or nil when the
// module was built outside a manager.
func (b *Base) UserCache() *cache.Cache { return b.userCache }

// implIdentity names the most-derived implementation type, plus the
// identity tag for type-sharing implementations. It is what makes two
// modules "the same implementation" for equality, per-type caches and the
// context hash.
func implIdentity(impl Impl) string {
	t := reflect.TypeOf(impl)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.String()
	if pkg := t.PkgPath(); pkg != "" {
		name = pkg + "." + t.Name()
	}
	if tag := impl.moduleBase().identityTag; tag != "" {
		name += "#" + tag
	}
	return name
}

// Identity names an implementation for registries, caches and logs.
func Identity(i Impl) string { return implIdentity(i) }

// AttachUserCache hands an implementation its scratch cache.
func AttachUserCache(i Impl, c *cache.Cache) { i.moduleBase().SetUserCache(c) }

// ImplsEqual compares two implementations by most-derived identity.
func ImplsEqual(a, b Impl) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return implIdentity(a) == implIdentity(b)
}

// hashIdentity feeds the implementation identity into a context hash.
func hashIdentity(h *hashing.Hasher, impl Impl) {
	h.WriteString(implIdentity(impl))
}
