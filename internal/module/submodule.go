package module

import (
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/hashing"
	"github.com/vk/pluginrig/internal/proptype"
)

// SubmoduleRequest is a named hole in a module's definition: it records
// the property type a bound module must satisfy, a description of what the
// slot is for, and the currently bound module, if any.
type SubmoduleRequest struct {
	pt proptype.ID

	// ptInst instantiates the property type's input schema; readiness of
	// the bound module is judged modulo the inputs the property type will
	// supply at call time.
	ptInst proptype.PropertyType

	desc string
	mod  *Module
}

func newSubmoduleRequest(pt proptype.PropertyType) *SubmoduleRequest {
	return &SubmoduleRequest{pt: proptype.IDFor(pt), ptInst: pt}
}

// SetDescription attaches the slot's purpose.
func (r *SubmoduleRequest) SetDescription(d string) *SubmoduleRequest {
	r.desc = d
	return r
}

// Description returns the slot's purpose.
func (r *SubmoduleRequest) Description() string { return r.desc }

// PT returns the property type a bound module must satisfy.
func (r *SubmoduleRequest) PT() proptype.ID { return r.pt }

// HasModule reports whether a module is bound.
func (r *SubmoduleRequest) HasModule() bool { return r.mod != nil }

// Module returns the bound module, or nil.
func (r *SubmoduleRequest) Module() *Module { return r.mod }

// Bind attaches a module to the slot. The module must satisfy the slot's
// property type.
func (r *SubmoduleRequest) Bind(m *Module) error {
	if m == nil || m.p.impl == nil {
		return fault.New(fault.NotReady, "cannot bind an empty module")
	}
	if !m.p.impl.moduleBase().SatisfiesPT(r.pt) {
		return fault.New(fault.PTUnsatisfied, "bound module does not satisfy %s", proptype.Name(r.pt))
	}
	r.mod = m
	return nil
}

// Ready reports whether the slot blocks its owner's readiness: a slot is
// ready when it is bound and the bound module is itself ready. The visited
// set breaks cycles in self-referencing graphs.
func (r *SubmoduleRequest) Ready() bool {
	return r.ready(make(map[*pimpl]bool))
}

func (r *SubmoduleRequest) ready(visited map[*pimpl]bool) bool {
	if r.mod == nil {
		return false
	}
	return r.mod.ready(r.ptInst.Inputs(), visited)
}

// lock recursively locks the bound module.
func (r *SubmoduleRequest) lock(visited map[*pimpl]bool) {
	if r.mod != nil {
		r.mod.lock(visited)
	}
}

// hashInto contributes the bound module's context hash to a parent's hash.
// An unbound slot contributes the zero digest.
func (r *SubmoduleRequest) hashInto(h *hashing.Hasher, visited map[*pimpl]bool) {
	if r.mod == nil {
		h.WriteZero()
		return
	}
	r.mod.hashInto(h, nil, visited)
}

// memoizable reports whether the bound subtree permits memoization.
func (r *SubmoduleRequest) memoizable(visited map[*pimpl]bool) bool {
	if r.mod == nil {
		return true
	}
	return r.mod.memoizable(visited)
}

// Clone copies the request. The bound module is shared, not copied: a
// binding is a reference to a managed module, not ownership of it.
func (r *SubmoduleRequest) Clone() *SubmoduleRequest {
	c := *r
	return &c
}

// Equal compares slots structurally: required property type, description,
// and the bound modules (both unbound, or bound to equal modules).
func (r *SubmoduleRequest) Equal(other *SubmoduleRequest) bool {
	if r.pt != other.pt || r.desc != other.desc {
		return false
	}
	if (r.mod == nil) != (other.mod == nil) {
		return false
	}
	if r.mod == nil {
		return true
	}
	return r.mod.Equal(other.mod)
}
