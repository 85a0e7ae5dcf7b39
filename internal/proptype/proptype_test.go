package proptype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
)

// area mirrors the classic two-dimension shape contract used throughout
// the engine's examples.
type area struct{}

func (area) Inputs() fields.InputMap {
	m := DeclareInputs()
	AddInputField[float64](m, "Dimension 1").SetDescription("The length of the 1st dimension")
	AddInputField[float64](m, "Dimension 2").SetDescription("The length of the 2nd dimension")
	return m
}

func (area) Results() fields.ResultMap {
	m := DeclareResults()
	AddResultField[float64](m, "Area").SetDescription("The area of the shape")
	return m
}

// boundedArea derives from area, appending a field.
type boundedArea struct{}

func (boundedArea) Inputs() fields.InputMap {
	m := ExtendInputs[area]()
	AddInputField[float64](m, "Max area")
	return m
}

func (boundedArea) Results() fields.ResultMap {
	return ExtendResults[area]()
}

func TestDeclaredFields(t *testing.T) {
	var pt area
	in := pt.Inputs()
	require.Equal(t, []string{"Dimension 1", "Dimension 2"}, in.Keys())
	d1, err := in.At("Dimension 1")
	require.NoError(t, err)
	assert.Equal(t, "The length of the 1st dimension", d1.Description())

	out := pt.Results()
	require.Equal(t, []string{"Area"}, out.Keys())
}

func TestDerivedPrependsParentFields(t *testing.T) {
	var pt boundedArea
	assert.Equal(t, []string{"Dimension 1", "Dimension 2", "Max area"}, pt.Inputs().Keys())
	assert.Equal(t, []string{"Area"}, pt.Results().Keys())
}

func TestDuplicateKeyPanics(t *testing.T) {
	m := DeclareInputs()
	AddInputField[int](m, "Option 1")
	assert.Panics(t, func() { AddInputField[int](m, "option 1") }, "keys are unique case-insensitively")
}

func TestWrapUnwrapInputs(t *testing.T) {
	var pt area
	m, err := WrapInputs[area](pt.Inputs(), 1.23, 4.56)
	require.NoError(t, err)

	d1, _ := m.At("Dimension 1")
	v, err := fields.InputValue[float64](d1)
	require.NoError(t, err)
	assert.Equal(t, 1.23, v)

	vals, err := UnwrapInputs[area](m)
	require.NoError(t, err)
	assert.Equal(t, []any{1.23, 4.56}, vals)
}

func TestWrapInputsArity(t *testing.T) {
	var pt area
	_, err := WrapInputs[area](pt.Inputs(), 1.23)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.BadType))
}

func TestWrapInputsBadType(t *testing.T) {
	var pt area
	_, err := WrapInputs[area](pt.Inputs(), 1.23, "wide")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.BadType))
}

func TestWrapUnwrapResults(t *testing.T) {
	var pt area
	m, err := WrapResults[area](pt.Results(), 5.6088)
	require.NoError(t, err)
	vals, err := UnwrapResults[area](m)
	require.NoError(t, err)
	assert.Equal(t, []any{5.6088}, vals)
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, IDOf[area](), IDFor(area{}))
	assert.NotEqual(t, IDOf[area](), IDOf[boundedArea]())
	assert.Equal(t, "proptype.area", Name(IDOf[area]()))
}
