package geometry

import (
	"context"

	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/module"
)

// Prism computes the volume of a prism as base area times height. It does
// not know how to compute an area itself: that is delegated to whatever
// Area module is bound into its "area" slot, which is the pack's worked
// example of submodule wiring.
type Prism struct{ module.Base }

// NewPrism declares the module.
func NewPrism() *Prism {
	m := &Prism{}
	module.Satisfies[PrismVolume](&m.Base)
	m.SetDescription("Computes the volume of a prism")
	m.AddCitation("Euclid. The Elements. 300 BCE")

	if dims, ok := m.DeclaredInputs().Get("Dimensions"); ok {
		dims.SetDescription("First 2 dimensions are for the base, the 3rd is the height")
	}
	module.AddSubmodule[Area](&m.Base, "area").
		SetDescription("Computes the area of the prism's base")
	return m
}

// Run implements module.Impl.
func (m *Prism) Run(ctx context.Context, inputs fields.InputMap, submods module.SubmodMap) (fields.ResultMap, error) {
	dims, err := inputValue[[]float64](inputs, "Dimensions")
	if err != nil {
		return nil, err
	}
	if len(dims) != 3 {
		return nil, fault.New(fault.OutOfDomain, "a prism needs 3 dimensions, got %d", len(dims))
	}

	req, err := submods.At("area")
	if err != nil {
		return nil, err
	}
	vals, err := module.RunAs[Area](ctx, req.Module(), dims[0], dims[1])
	if err != nil {
		return nil, err
	}
	area := vals[0].(float64)
	volume := area * dims[2]

	out := m.Results()
	baseArea, err := out.At("Base area")
	if err != nil {
		return nil, err
	}
	if err := baseArea.Change(area); err != nil {
		return nil, err
	}
	vol, err := out.At("Volume")
	if err != nil {
		return nil, err
	}
	if err := vol.Change(volume); err != nil {
		return nil, err
	}
	return out, nil
}
