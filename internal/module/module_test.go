package module_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pluginrig/internal/cache"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/module"
	"github.com/vk/pluginrig/internal/proptype"
	"github.com/vk/pluginrig/internal/testutil"
)

func TestEmptyModule(t *testing.T) {
	m := module.New(nil)
	assert.False(t, m.HasImpl())
	assert.False(t, m.Ready(nil))
	_, err := m.Run(context.Background(), nil)
	assert.True(t, fault.IsKind(err, fault.NotReady))
}

func TestReadiness(t *testing.T) {
	t.Run("no inputs means ready", func(t *testing.T) {
		assert.True(t, testutil.NewNullModule().Ready(nil))
	})

	t.Run("unset required input blocks", func(t *testing.T) {
		m := testutil.NewNotReadyModule()
		assert.False(t, m.Ready(nil))
		probs := m.NotSet(nil)
		assert.Equal(t, []string{"Option 1"}, probs["Inputs"])
	})

	t.Run("bound value unblocks", func(t *testing.T) {
		m := testutil.NewNotReadyModule()
		require.NoError(t, m.ChangeInput("Option 1", 3))
		assert.True(t, m.Ready(nil))
	})

	t.Run("call-provided value unblocks", func(t *testing.T) {
		m := testutil.NewNotReadyModule()
		var pt testutil.OneInPT
		call, err := proptype.WrapInputs[testutil.OneInPT](pt.Inputs(), 3)
		require.NoError(t, err)
		assert.True(t, m.Ready(call))
	})

	t.Run("unbound submodule blocks", func(t *testing.T) {
		m := testutil.NewSubModModule()
		assert.False(t, m.Ready(nil))
		probs := m.NotSet(nil)
		assert.Equal(t, []string{"Submodule 1"}, probs["Submodules"])

		require.NoError(t, m.BindSubmod("Submodule 1", testutil.NewNullModule()))
		assert.True(t, m.Ready(nil))
	})
}

func TestNotReadyReportListsEverything(t *testing.T) {
	// An unset required input and an unready submodule are each reported
	// by name, on two separate modules; neither failure locks or computes.
	parent := testutil.NewSubModModule()
	require.NoError(t, parent.BindSubmod("Submodule 1", testutil.NewNullModule()))

	m := testutil.NewNotReadyModule()
	_, err := m.Run(context.Background(), nil)
	require.True(t, fault.IsKind(err, fault.NotReady))
	assert.Contains(t, err.Error(), "Option 1")

	sub := testutil.NewSubModModule() // unbound slot, so not ready
	require.NoError(t, parent.BindSubmod("Submodule 1", sub))
	_, err = parent.Run(context.Background(), nil)
	require.True(t, fault.IsKind(err, fault.NotReady))
	assert.Contains(t, err.Error(), "Submodule 1")
	assert.False(t, parent.Locked(), "validation failures must not lock")
	assert.Zero(t, sub.RunCount(), "no partial compute")
}

func TestUnknownCallInput(t *testing.T) {
	m := testutil.NewNullModule()
	call := fields.NewInputMap()
	in := fields.DeclareType[int](fields.NewInput())
	require.NoError(t, in.Change(1))
	call.Set("No such option", in)

	_, err := m.Run(context.Background(), call)
	require.True(t, fault.IsKind(err, fault.UnknownKey))
	assert.Contains(t, err.Error(), "No such option")
}

func TestRunLocksRecursively(t *testing.T) {
	parent := testutil.NewSubModModule()
	child := testutil.NewNullModule()
	require.NoError(t, parent.BindSubmod("Submodule 1", child))

	_, err := parent.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, parent.Locked())
	assert.True(t, child.Locked())

	err = parent.ChangeInput("anything", 1)
	assert.True(t, fault.IsKind(err, fault.Locked))
	err = parent.BindSubmod("Submodule 1", testutil.NewNullModule())
	assert.True(t, fault.IsKind(err, fault.Locked))
	err = parent.TurnOffMemoization()
	assert.True(t, fault.IsKind(err, fault.Locked))
}

func TestLockUnlockRestoresReadiness(t *testing.T) {
	m := testutil.NewNotReadyModule()
	require.NoError(t, m.ChangeInput("Option 1", 3))
	wasReady := m.Ready(nil)

	m.Lock()
	assert.True(t, m.Locked())
	m.Unlock()
	assert.False(t, m.Locked())
	assert.Equal(t, wasReady, m.Ready(nil))
}

func TestMemoization(t *testing.T) {
	ctx := context.Background()

	t.Run("identical runs invoke the implementation once", func(t *testing.T) {
		m := module.NewWithCache(mustImpl(testutil.NewFourModule()), cache.New())
		r1, err := module.RunAs[testutil.OneInOneOutPT](ctx, m, 3)
		require.NoError(t, err)
		r2, err := module.RunAs[testutil.OneInOneOutPT](ctx, m, 3)
		require.NoError(t, err)
		assert.Equal(t, r1, r2)
		assert.Equal(t, []any{4}, r1)
		assert.Equal(t, 1, m.RunCount())

		var pt testutil.OneInOneOutPT
		call, err := proptype.WrapInputs[testutil.OneInOneOutPT](pt.Inputs(), 3)
		require.NoError(t, err)
		assert.True(t, m.IsCached(call))

		m.ResetCache()
		assert.False(t, m.IsCached(call))
	})

	t.Run("different inputs recompute", func(t *testing.T) {
		m := module.NewWithCache(mustImpl(testutil.NewFourModule()), cache.New())
		_, err := module.RunAs[testutil.OneInOneOutPT](ctx, m, 3)
		require.NoError(t, err)
		_, err = module.RunAs[testutil.OneInOneOutPT](ctx, m, 5)
		require.NoError(t, err)
		assert.Equal(t, 2, m.RunCount())
	})

	t.Run("memoization off recomputes", func(t *testing.T) {
		m := module.NewWithCache(mustImpl(testutil.NewFourModule()), cache.New())
		require.NoError(t, m.TurnOffMemoization())
		assert.False(t, m.IsMemoizable())
		_, err := module.RunAs[testutil.OneInOneOutPT](ctx, m, 3)
		require.NoError(t, err)
		m.Unlock()
		_, err = module.RunAs[testutil.OneInOneOutPT](ctx, m, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, m.RunCount())
	})

	t.Run("non-memoizable submodule disables the parent", func(t *testing.T) {
		parent := testutil.NewSubModModule()
		child := testutil.NewNullModule()
		require.NoError(t, child.TurnOffMemoization())
		require.NoError(t, parent.BindSubmod("Submodule 1", child))
		assert.False(t, parent.IsMemoizable())
	})
}

func TestTransparencySharesContextHash(t *testing.T) {
	ctx := context.Background()
	m := module.NewWithCache(mustImpl(testutil.NewTransparentModule()), cache.New())

	var pt testutil.OneInOneOutPT
	call1, err := proptype.WrapInputs[testutil.OneInOneOutPT](pt.Inputs(), 3)
	require.NoError(t, err)
	require.NoError(t, m.ChangeInput("Verbosity", 1))
	h1, err := m.ContextHash(call1)
	require.NoError(t, err)
	_, err = m.Run(ctx, call1)
	require.NoError(t, err)

	m.Unlock()
	require.NoError(t, m.ChangeInput("Verbosity", 99))
	call2, err := proptype.WrapInputs[testutil.OneInOneOutPT](pt.Inputs(), 3)
	require.NoError(t, err)
	h2, err := m.ContextHash(call2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "transparent inputs must not move the context hash")

	_, err = m.Run(ctx, call2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.RunCount(), "second run must hit the cache")

	// An opaque change does move the hash.
	call3, err := proptype.WrapInputs[testutil.OneInOneOutPT](pt.Inputs(), 8)
	require.NoError(t, err)
	h3, err := m.ContextHash(call3)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestRunFailurePropagatesUncached(t *testing.T) {
	m := module.NewWithCache(mustImpl(testutil.NewFailModule()), cache.New())
	_, err := m.Run(context.Background(), nil)
	require.ErrorIs(t, err, testutil.ErrRun)
	assert.True(t, m.Locked(), "a failed run leaves the module locked for inspection")

	m.Unlock()
	_, err = m.Run(context.Background(), nil)
	require.ErrorIs(t, err, testutil.ErrRun)
	assert.Equal(t, 2, m.RunCount(), "failures are never cached")
}

func TestRunAsRequiresSatisfiedPT(t *testing.T) {
	m := testutil.NewNullModule()
	_, err := module.RunAs[testutil.OneInOneOutPT](context.Background(), m, 3)
	assert.True(t, fault.IsKind(err, fault.PTUnsatisfied))
}

func TestBindRejectsUnsatisfiedPT(t *testing.T) {
	parent := testutil.NewSubModModule()
	err := parent.BindSubmod("Submodule 1", testutil.NewNotReadyModule())
	assert.True(t, fault.IsKind(err, fault.PTUnsatisfied))
}

func TestModuleEquality(t *testing.T) {
	a := testutil.NewFourModule()
	b := testutil.NewFourModule()

	assert.True(t, a.Equal(a), "reflexive")
	assert.True(t, a.Equal(b) && b.Equal(a), "symmetric")

	c := testutil.NewFourModule()
	require.True(t, b.Equal(c))
	assert.True(t, a.Equal(c), "transitive")

	require.NoError(t, b.ChangeInput("Option 1", 3))
	assert.False(t, a.Equal(b), "bound inputs participate")

	assert.False(t, a.Equal(testutil.NewNullModule()), "implementation identity participates")

	cp := a.UnlockedCopy()
	assert.True(t, a.Equal(cp), "stable under copy")
}

func TestUnlockedCopyIsIndependent(t *testing.T) {
	a := testutil.NewFourModule()
	require.NoError(t, a.ChangeInput("Option 1", 3))
	a.Lock()

	cp := a.UnlockedCopy()
	assert.False(t, cp.Locked())
	require.NoError(t, cp.ChangeInput("Option 1", 7))

	v, err := fieldsInputValue(a, "Option 1")
	require.NoError(t, err)
	assert.Equal(t, 3, v, "copy must not write through to the original")
}

func TestSelfReferencingModuleTerminates(t *testing.T) {
	m := testutil.NewSubModModule()
	require.NoError(t, m.BindSubmod("Submodule 1", m))

	// None of these may recurse forever.
	assert.True(t, m.Ready(nil))
	m.Lock()
	assert.True(t, m.Locked())
	_, err := m.ContextHash(nil)
	assert.NoError(t, err)
	assert.True(t, m.IsMemoizable())
}

func TestLambdaModules(t *testing.T) {
	ctx := context.Background()
	double := func(_ context.Context, args []any) ([]any, error) {
		return []any{args[0].(int) * 2}, nil
	}
	triple := func(_ context.Context, args []any) ([]any, error) {
		return []any{args[0].(int) * 3}, nil
	}

	m1 := module.Lambda[testutil.OneInOneOutPT]("double", double)
	m2 := module.Lambda[testutil.OneInOneOutPT]("triple", triple)

	out, err := module.RunAs[testutil.OneInOneOutPT](ctx, m1, 5)
	require.NoError(t, err)
	assert.Equal(t, []any{10}, out)

	out, err = module.RunAs[testutil.OneInOneOutPT](ctx, m2, 5)
	require.NoError(t, err)
	assert.Equal(t, []any{15}, out)

	t.Run("tokens separate context hashes", func(t *testing.T) {
		var pt testutil.OneInOneOutPT
		call, err := proptype.WrapInputs[testutil.OneInOneOutPT](pt.Inputs(), 5)
		require.NoError(t, err)
		h1, err := m1.ContextHash(call)
		require.NoError(t, err)
		call2, err := proptype.WrapInputs[testutil.OneInOneOutPT](pt.Inputs(), 5)
		require.NoError(t, err)
		h2, err := m2.ContextHash(call2)
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2, "lambdas with the same property type must not collide")
	})
}

func TestProfileInfo(t *testing.T) {
	m := testutil.NewFourModule()
	_, err := module.RunAs[testutil.OneInOneOutPT](context.Background(), m, 3)
	require.NoError(t, err)
	info := m.ProfileInfo()
	assert.Contains(t, info, "runs: 1")
}

// mustImpl extracts the implementation from a fixture wrapper so tests can
// rewrap it with a cache.
func mustImpl(m *module.Module) module.Impl { return m.Impl() }

func fieldsInputValue(m *module.Module, key string) (int, error) {
	in, err := m.Inputs().At(key)
	if err != nil {
		return 0, err
	}
	return fields.InputValue[int](in)
}
