// Package testutil provides the property types and module implementations
// shared by the engine's package tests. Nothing here is part of the public
// surface; the fixtures are deliberately minimal so a failing assertion
// points at the engine, not at the fixture.
package testutil

import (
	"context"
	"errors"

	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/module"
	"github.com/vk/pluginrig/internal/proptype"
)

// NullPT is the simplest property type possible: no inputs, no results.
type NullPT struct{}

func (NullPT) Inputs() fields.InputMap   { return proptype.DeclareInputs() }
func (NullPT) Results() fields.ResultMap { return proptype.DeclareResults() }

// OneInPT declares a single int input, "Option 1".
type OneInPT struct{}

func (OneInPT) Inputs() fields.InputMap {
	m := proptype.DeclareInputs()
	proptype.AddInputField[int](m, "Option 1")
	return m
}

func (OneInPT) Results() fields.ResultMap { return proptype.DeclareResults() }

// OneInOneOutPT declares the int input "Option 1" and the int result
// "Result 1".
type OneInOneOutPT struct{}

func (OneInOneOutPT) Inputs() fields.InputMap {
	m := proptype.DeclareInputs()
	proptype.AddInputField[int](m, "Option 1")
	return m
}

func (OneInOneOutPT) Results() fields.ResultMap {
	m := proptype.DeclareResults()
	proptype.AddResultField[int](m, "Result 1")
	return m
}

// NullModule satisfies NullPT and does nothing.
type NullModule struct{ module.Base }

// NewNullModule builds a wrapped NullModule.
func NewNullModule() *module.Module { return module.New(NewNullImpl()) }

// NewNullImpl builds the bare implementation.
func NewNullImpl() *NullModule {
	m := &NullModule{}
	module.Satisfies[NullPT](&m.Base)
	return m
}

func (m *NullModule) Run(context.Context, fields.InputMap, module.SubmodMap) (fields.ResultMap, error) {
	return m.Results(), nil
}

// NotReadyModule satisfies OneInPT but never sets a default for
// "Option 1", so it is not ready until a caller provides one.
type NotReadyModule struct{ module.Base }

// NewNotReadyModule builds a wrapped NotReadyModule.
func NewNotReadyModule() *module.Module {
	m := &NotReadyModule{}
	module.Satisfies[OneInPT](&m.Base)
	return module.New(m)
}

func (m *NotReadyModule) Run(context.Context, fields.InputMap, module.SubmodMap) (fields.ResultMap, error) {
	return m.Results(), nil
}

// FourModule satisfies OneInOneOutPT and returns 4 without reading its
// input. It is the fixture for memoization and hashing scenarios where
// the interesting behavior is in the engine, not the computation.
type FourModule struct{ module.Base }

// NewFourModule builds a wrapped FourModule.
func NewFourModule() *module.Module {
	m := &FourModule{}
	module.Satisfies[OneInOneOutPT](&m.Base)
	m.SetDescription("Returns 4, regardless of its input")
	return module.New(m)
}

func (m *FourModule) Run(_ context.Context, _ fields.InputMap, _ module.SubmodMap) (fields.ResultMap, error) {
	out := m.Results()
	r, err := out.At("Result 1")
	if err != nil {
		return nil, err
	}
	if err := r.Change(4); err != nil {
		return nil, err
	}
	return out, nil
}

// SubModModule satisfies NullPT and declares one NullPT submodule slot,
// "Submodule 1", which it invokes on every run.
type SubModModule struct{ module.Base }

// NewSubModModule builds a wrapped SubModModule with the slot unbound.
func NewSubModModule() *module.Module {
	m := &SubModModule{}
	module.Satisfies[NullPT](&m.Base)
	module.AddSubmodule[NullPT](&m.Base, "Submodule 1")
	return module.New(m)
}

func (m *SubModModule) Run(ctx context.Context, _ fields.InputMap, submods module.SubmodMap) (fields.ResultMap, error) {
	req, err := submods.At("Submodule 1")
	if err != nil {
		return nil, err
	}
	if _, err := module.RunAs[NullPT](ctx, req.Module()); err != nil {
		return nil, err
	}
	return m.Results(), nil
}

// ErrRun is what FailModule fails with.
var ErrRun = errors.New("module run failed deliberately")

// FailModule satisfies NullPT and always fails.
type FailModule struct{ module.Base }

// NewFailModule builds a wrapped FailModule.
func NewFailModule() *module.Module {
	m := &FailModule{}
	module.Satisfies[NullPT](&m.Base)
	return module.New(m)
}

func (m *FailModule) Run(context.Context, fields.InputMap, module.SubmodMap) (fields.ResultMap, error) {
	return nil, ErrRun
}

// TransparentModule satisfies OneInOneOutPT, adds a transparent
// "Verbosity" input, and echoes 4 like FourModule. It exists for
// transparency scenarios: runs differing only in "Verbosity" must share a
// context hash.
type TransparentModule struct{ module.Base }

// NewTransparentModule builds a wrapped TransparentModule.
func NewTransparentModule() *module.Module {
	m := &TransparentModule{}
	module.Satisfies[OneInOneOutPT](&m.Base)
	module.AddInput[int](&m.Base, "Verbosity").MakeTransparent().MakeOptional()
	return module.New(m)
}

func (m *TransparentModule) Run(_ context.Context, _ fields.InputMap, _ module.SubmodMap) (fields.ResultMap, error) {
	out := m.Results()
	r, err := out.At("Result 1")
	if err != nil {
		return nil, err
	}
	if err := r.Change(4); err != nil {
		return nil, err
	}
	return out, nil
}
