package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestModeMachine(t *testing.T) {
	t.Run("should start in natural mode", func(t *testing.T) {
		m := NewModeMachine(0)
		assert.Equal(t, ModeNatural, m.Current())
	})

	t.Run("should transition on a parsed mode switch", func(t *testing.T) {
		m := NewModeMachine(0)

		applied := m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: ModeFunction, Reason: "tool call"})
		assert.True(t, applied)
		assert.Equal(t, ModeFunction, m.Current())

		m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: ModeRequirement, Reason: "spec work"})
		assert.Equal(t, ModeRequirement, m.Current())
	})

	t.Run("should ignore unrecognized modes", func(t *testing.T) {
		m := NewModeMachine(0)
		applied := m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: "TURBO"})
		assert.False(t, applied)
		assert.Equal(t, ModeNatural, m.Current())
	})

	t.Run("should not revert automatically by default", func(t *testing.T) {
		m := NewModeMachine(0)
		m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: ModeFunction})

		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, ModeFunction, m.Current())
	})

	t.Run("should revert function mode when configured", func(t *testing.T) {
		m := NewModeMachine(10 * time.Millisecond)
		m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: ModeFunction})
		assert.Equal(t, ModeFunction, m.Current())

		assert.Eventually(t, func() bool {
			return m.Current() == ModeNatural
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("should cancel a pending revert on explicit switch", func(t *testing.T) {
		m := NewModeMachine(10 * time.Millisecond)
		m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: ModeFunction})
		m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: ModeRequirement})

		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, ModeRequirement, m.Current())
	})

	t.Run("should reset to natural", func(t *testing.T) {
		m := NewModeMachine(0)
		m.Apply(ModeSwitch{Type: "MODE_SWITCH", Mode: ModeFunction})
		m.Reset()
		assert.Equal(t, ModeNatural, m.Current())
	})
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeNatural.Valid())
	assert.True(t, ModeRequirement.Valid())
	assert.True(t, ModeFunction.Valid())
	assert.False(t, Mode("").Valid())
	assert.False(t, Mode("natural").Valid())
}
