package geometry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/module"
)

// Rectangle computes the area and perimeter of a rectangle. Beyond the
// Area and Perimeter contracts it takes a name for the rectangle and
// returns a one-line summary mentioning it.
type Rectangle struct{ module.Base }

// NewRectangle declares the module.
func NewRectangle() *Rectangle {
	m := &Rectangle{}
	module.Satisfies[Area](&m.Base)
	module.Satisfies[Perimeter](&m.Base)
	m.SetDescription("Computes the area and perimeter of a rectangle")
	m.AddCitation("Euclid. The Elements. 300 BCE")

	module.AddInput[string](&m.Base, "Name").
		SetDescription("The name of the rectangle").
		MakeTransparent().
		MakeOptional()
	module.AddResult[string](&m.Base, "Summary").
		SetDescription("A human-readable summary of the computed values")

	if d1, ok := m.DeclaredInputs().Get("Dimension 1"); ok {
		d1.SetDescription("The height of the rectangle")
	}
	if d2, ok := m.DeclaredInputs().Get("Dimension 2"); ok {
		d2.SetDescription("The width of the rectangle")
	}
	return m
}

// Run implements module.Impl.
func (m *Rectangle) Run(_ context.Context, inputs fields.InputMap, _ module.SubmodMap) (fields.ResultMap, error) {
	dim1, err := inputValue[float64](inputs, "Dimension 1")
	if err != nil {
		return nil, err
	}
	dim2, err := inputValue[float64](inputs, "Dimension 2")
	if err != nil {
		return nil, err
	}

	name := "Rectangle"
	if in, ok := inputs.Get("Name"); ok && in.HasValue() {
		if n, err := fields.InputValue[string](in); err == nil {
			name = n
		}
	}

	area := dim1 * dim2
	perimeter := 2 * (dim1 + dim2)
	summary := fmt.Sprintf("%s has an area of %f and a perimeter of %f", name, area, perimeter)

	out := m.Results()
	for key, v := range map[string]any{
		"Area":      area,
		"Perimeter": perimeter,
		"Summary":   summary,
	} {
		r, err := out.At(key)
		if err != nil {
			return nil, err
		}
		if err := r.Change(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Picture renders a crude ASCII rectangle in one of three fixed shapes:
// 10x10 when the dimensions are equal, 10 rows by 5 columns when dim1 is
// larger, and 5 rows by 10 columns otherwise. It is not part of any
// contract; display code can use it for show.
func Picture(dim1, dim2 float64) string {
	rows, cols := 5, 10
	if dim1 == dim2 {
		rows, cols = 10, 10
	} else if dim1 > dim2 {
		rows, cols = 10, 5
	}
	var b strings.Builder
	b.WriteString(strings.Repeat("*", cols) + "\n")
	for i := 0; i < rows-2; i++ {
		b.WriteString("*" + strings.Repeat(" ", cols-2) + "*\n")
	}
	b.WriteString(strings.Repeat("*", cols) + "\n")
	return b.String()
}

func inputValue[T any](m fields.InputMap, key string) (T, error) {
	var zero T
	in, err := m.At(key)
	if err != nil {
		return zero, err
	}
	return fields.InputValue[T](in)
}
