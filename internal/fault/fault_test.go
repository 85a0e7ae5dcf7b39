package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorRendering(t *testing.T) {
	err := New(NotReady, "module is not ready to run").
		WithField("Inputs", "Option 1").
		WithField("Submodules", "area")
	msg := err.Error()
	assert.Contains(t, msg, "not-ready: module is not ready to run")
	assert.Contains(t, msg, "[Inputs: Option 1]")
	assert.Contains(t, msg, "[Submodules: area]")
}

func TestIsKind(t *testing.T) {
	err := New(BadCast, "nope")
	assert.True(t, IsKind(err, BadCast))
	assert.False(t, IsKind(err, BadType))
	assert.False(t, IsKind(errors.New("plain"), BadCast))

	t.Run("through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("outer context: %w", err)
		assert.True(t, IsKind(wrapped, BadCast))
	})
}

func TestWrapExposesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(BackendIO, cause, "writing key %q", "abc")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Contains(t, err.Error(), `writing key "abc"`)
}
