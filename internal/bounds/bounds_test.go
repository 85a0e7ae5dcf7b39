package bounds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparisons(t *testing.T) {
	cases := []struct {
		check Check
		label string
		pass  any
		fail  any
	}{
		{Equal(4), "== 4", 4, 5},
		{NotEqual(4), "!= 4", 5, 4},
		{GreaterThan(3.5), "> 3.5", 3.6, 3.5},
		{GreaterThanEqual(3.5), ">= 3.5", 3.5, 3.4},
		{LessThan("m"), "< m", "a", "z"},
		{LessThanEqual(10), "<= 10", 10, 11},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.label, tc.check.Label())
			assert.True(t, tc.check.OK(tc.pass))
			assert.False(t, tc.check.OK(tc.fail))
		})
	}
}

func TestRanges(t *testing.T) {
	t.Run("half open", func(t *testing.T) {
		c := InRange(0.0, 1.0)
		assert.Equal(t, "in [0, 1)", c.Label())
		assert.True(t, c.OK(0.0))
		assert.True(t, c.OK(0.999))
		assert.False(t, c.OK(1.0))
		assert.False(t, c.OK(-0.1))
	})
	t.Run("closed", func(t *testing.T) {
		c := InClosedRange(1, 5)
		assert.True(t, c.OK(1))
		assert.True(t, c.OK(5))
		assert.False(t, c.OK(6))
	})
	t.Run("open", func(t *testing.T) {
		c := InOpenRange(1, 5)
		assert.False(t, c.OK(1))
		assert.True(t, c.OK(3))
		assert.False(t, c.OK(5))
	})
}

func TestTypedRejectsForeignType(t *testing.T) {
	c := GreaterThan(3)
	assert.False(t, c.OK("not an int"))
}

func TestRawPredicate(t *testing.T) {
	c := New("even", func(v any) bool {
		n, ok := v.(int)
		return ok && n%2 == 0
	})
	assert.Equal(t, "even", c.Label())
	assert.True(t, c.OK(2))
	assert.False(t, c.OK(3))
}
