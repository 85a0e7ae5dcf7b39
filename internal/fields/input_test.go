package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pluginrig/internal/bounds"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/hashing"
)

func TestInputChangeBeforeTypeDeclared(t *testing.T) {
	i := NewInput()
	err := i.Change(3)
	assert.True(t, fault.IsKind(err, fault.NotReady))
}

func TestInputChange(t *testing.T) {
	i := DeclareType[int](NewInput())

	t.Run("declared type", func(t *testing.T) {
		require.NoError(t, i.Change(3))
		v, err := InputValue[int](i)
		require.NoError(t, err)
		assert.Equal(t, 3, v)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := i.Change("three")
		assert.True(t, fault.IsKind(err, fault.BadType))
	})

	t.Run("pointer to declared type is dereferenced", func(t *testing.T) {
		v := 5
		require.NoError(t, i.Change(&v))
		got, _ := InputValue[int](i)
		assert.Equal(t, 5, got)
		v = 6
		got, _ = InputValue[int](i)
		assert.Equal(t, 5, got, "by-value inputs copy")
	})
}

func TestInputByReference(t *testing.T) {
	i := DeclareRefType[[]float64](NewInput())
	dims := []float64{1.23, 4.56, 7.89}
	require.NoError(t, i.Change(&dims))
	got, err := InputValue[[]float64](i)
	require.NoError(t, err)
	assert.Equal(t, dims, got)
	assert.False(t, i.Field().Mutable())
}

func TestInputChecks(t *testing.T) {
	t.Run("rejecting change", func(t *testing.T) {
		i := DeclareType[int](NewInput())
		require.NoError(t, i.AddCheck(bounds.NotEqual(4)))
		err := i.Change(4)
		require.True(t, fault.IsKind(err, fault.OutOfDomain))
		assert.Contains(t, err.Error(), "!= 4")
		assert.False(t, i.HasValue())
		require.NoError(t, i.Change(5))
	})

	t.Run("check added after value must pass", func(t *testing.T) {
		i := DeclareType[int](NewInput())
		require.NoError(t, i.Change(4))
		err := i.AddCheck(bounds.NotEqual(4))
		require.True(t, fault.IsKind(err, fault.OutOfDomain))
		// The failed check was not kept.
		require.NoError(t, i.Change(4))
	})

	t.Run("labels include implicit type check", func(t *testing.T) {
		i := DeclareType[float64](NewInput())
		require.NoError(t, i.AddCheck(bounds.InRange(0.0, 1.0)))
		assert.Equal(t, []string{"Type == float64", "in [0, 1)"}, i.CheckLabels())
	})
}

func TestInputReadiness(t *testing.T) {
	i := DeclareType[int](NewInput())
	assert.False(t, i.Ready())
	i.MakeOptional()
	assert.True(t, i.Ready())
	i.MakeRequired()
	require.NoError(t, i.Change(1))
	assert.True(t, i.Ready())
}

func TestInputHashing(t *testing.T) {
	digest := func(i *Input) string {
		h := hashing.New()
		i.HashContent(h)
		return h.Finalize()
	}

	opaque := DeclareType[int](NewInput())
	require.NoError(t, opaque.Change(3))

	transparent := DeclareType[int](NewInput())
	transparent.MakeTransparent()
	require.NoError(t, transparent.Change(3))

	t.Run("opaque vs transparent differ for same value", func(t *testing.T) {
		assert.NotEqual(t, digest(opaque), digest(transparent))
	})

	t.Run("any two transparent values agree", func(t *testing.T) {
		other := DeclareType[string](NewInput())
		other.MakeTransparent()
		require.NoError(t, other.Change("whatever"))
		assert.Equal(t, digest(transparent), digest(other))
	})

	t.Run("empty contributes the zero digest", func(t *testing.T) {
		empty := DeclareType[int](NewInput())
		assert.Equal(t, digest(transparent), digest(empty))
	})
}

func TestInputEquality(t *testing.T) {
	mk := func() *Input {
		i := DeclareType[int](NewInput()).SetDescription("an option")
		require.NoError(t, i.AddCheck(bounds.GreaterThan(0)))
		require.NoError(t, i.Change(3))
		return i
	}
	a, b := mk(), mk()
	assert.True(t, a.Equal(b))

	b.MakeTransparent()
	assert.False(t, a.Equal(b))

	c := mk()
	require.NoError(t, c.Change(4))
	assert.False(t, a.Equal(c))
}

func TestInputClone(t *testing.T) {
	i := DeclareType[int](NewInput()).SetDescription("d")
	require.NoError(t, i.Change(3))
	c := i.Clone()
	require.True(t, i.Equal(c))
	require.NoError(t, c.Change(4))
	v, _ := InputValue[int](i)
	assert.Equal(t, 3, v, "clone must not share the stored value")
}
