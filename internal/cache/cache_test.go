package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pluginrig/internal/database"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
)

func resultsFixture(t *testing.T, area float64) fields.ResultMap {
	t.Helper()
	rm := fields.NewResultMap()
	r := fields.DeclareResultType[float64](fields.NewResult()).SetDescription("The area of the shape")
	require.NoError(t, r.Change(area))
	rm.Set("Area", r)
	return rm
}

func TestInMemoryRoundTrip(t *testing.T) {
	c := New()
	assert.False(t, c.Count("h1"))
	_, err := c.At("h1")
	assert.True(t, fault.IsKind(err, fault.NotFound))

	rm := resultsFixture(t, 5.6088)
	require.NoError(t, c.Insert("h1", rm))
	assert.True(t, c.Count("h1"))

	got, err := c.At("h1")
	require.NoError(t, err)
	r, err := got.At("Area")
	require.NoError(t, err)
	v, err := fields.ResultValue[float64](r)
	require.NoError(t, err)
	assert.Equal(t, 5.6088, v)
}

func TestFree(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("h1", resultsFixture(t, 1)))
	require.NoError(t, c.Free("h1"))
	assert.False(t, c.Count("h1"))
	require.NoError(t, c.Free("h1")) // absent: silent
}

func TestBackupThenDump(t *testing.T) {
	// Scenario: every key present before the dump must still be visible
	// through the combined cache afterwards.
	store := database.NewMemoryStore()
	c := NewBacked(store)
	require.NoError(t, c.Insert("h1", resultsFixture(t, 1.5)))
	require.NoError(t, c.Insert("h2", resultsFixture(t, 2.5)))

	require.NoError(t, c.Backup())
	require.NoError(t, c.Dump())

	for _, k := range []string{"h1", "h2"} {
		assert.True(t, c.Count(k), "key %s must survive the dump via the backing store", k)
	}

	got, err := c.At("h1")
	require.NoError(t, err)
	r, err := got.At("Area")
	require.NoError(t, err)
	v, err := fields.ResultValue[float64](r)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
	assert.Equal(t, "The area of the shape", r.Description(), "metadata survives the round-trip")
}

func TestDumpAfterWriteThroughKeepsKeys(t *testing.T) {
	c := NewBacked(database.NewMemoryStore())
	require.NoError(t, c.Insert("h1", resultsFixture(t, 1)))
	require.NoError(t, c.Backup())
	require.NoError(t, c.Insert("h2", resultsFixture(t, 2)))

	// h2 was inserted after the backup, but Insert writes through to the
	// backing store, so the dump loses neither key.
	require.NoError(t, c.Dump())
	assert.True(t, c.Count("h1"))
	assert.True(t, c.Count("h2"))
}

func TestUnbackedDumpLoses(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("h1", resultsFixture(t, 1)))
	require.NoError(t, c.Dump())
	assert.False(t, c.Count("h1"))
}

func TestSynchronize(t *testing.T) {
	a := New()
	require.NoError(t, a.Insert("h1", resultsFixture(t, 1)))
	b := New()
	require.NoError(t, b.Insert("h2", resultsFixture(t, 2)))

	a.Synchronize(b)
	if diff := cmp.Diff([]string{"h1", "h2"}, a.Keys()); diff != "" {
		t.Errorf("key set mismatch after synchronize (-want +got):\n%s", diff)
	}

	// Idempotent, and prior keys preserved.
	a.Synchronize(b)
	if diff := cmp.Diff([]string{"h1", "h2"}, a.Keys()); diff != "" {
		t.Errorf("key set mismatch after second synchronize (-want +got):\n%s", diff)
	}
	assert.True(t, a.Count("h1"))
}

func TestEqualIsKeySetEquality(t *testing.T) {
	a, b := New(), New()
	require.NoError(t, a.Insert("h1", resultsFixture(t, 1)))
	require.NoError(t, b.Insert("h1", resultsFixture(t, 99)))
	assert.True(t, a.Equal(b), "values do not participate in cache equality")

	require.NoError(t, b.Insert("h2", resultsFixture(t, 2)))
	assert.False(t, a.Equal(b))
}
