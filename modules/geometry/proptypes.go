// Package geometry is the example module pack shipped with the engine: a
// handful of property types for plane and solid measures and two modules
// implementing them. It doubles as the reference for writing a pack: a
// property type per contract, a module per algorithm, and a Load function
// that registers everything into a manager with sensible defaults.
package geometry

import (
	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/proptype"
)

// Area is the contract for computing the area of a two-dimensional shape:
// two dimension lengths in, one area out. What the dimensions mean (base
// and height, length and width) is the implementing module's business.
type Area struct{}

func (Area) Inputs() fields.InputMap {
	m := proptype.DeclareInputs()
	proptype.AddInputField[float64](m, "Dimension 1").SetDescription("The length of the 1st dimension")
	proptype.AddInputField[float64](m, "Dimension 2").SetDescription("The length of the 2nd dimension")
	return m
}

func (Area) Results() fields.ResultMap {
	m := proptype.DeclareResults()
	proptype.AddResultField[float64](m, "Area").SetDescription("The area of the shape")
	return m
}

// Perimeter is the two-dimensional perimeter contract with the same input
// shape as Area.
type Perimeter struct{}

func (Perimeter) Inputs() fields.InputMap {
	m := proptype.DeclareInputs()
	proptype.AddInputField[float64](m, "Dimension 1").SetDescription("The length of the 1st dimension")
	proptype.AddInputField[float64](m, "Dimension 2").SetDescription("The length of the 2nd dimension")
	return m
}

func (Perimeter) Results() fields.ResultMap {
	m := proptype.DeclareResults()
	proptype.AddResultField[float64](m, "Perimeter").SetDescription("The perimeter of the shape")
	return m
}

// PrismVolume is the contract for the volume of a prism. The dimensions
// arrive as a slice, by reference, since there may be many of them; the
// results are the base's area and the volume.
type PrismVolume struct{}

func (PrismVolume) Inputs() fields.InputMap {
	m := proptype.DeclareInputs()
	proptype.AddRefInputField[[]float64](m, "Dimensions").SetDescription("The length of each dimension")
	return m
}

func (PrismVolume) Results() fields.ResultMap {
	m := proptype.DeclareResults()
	proptype.AddResultField[float64](m, "Base area").SetDescription("The area of the base")
	proptype.AddResultField[float64](m, "Volume").SetDescription("The volume of the prism")
	return m
}
