package chat

import (
	"sync"
	"time"
)

// Mode labels the conversation input mode. It affects how the client
// presents the input affordance, never the transport.
type Mode string

const (
	ModeNatural     Mode = "NATURAL"
	ModeRequirement Mode = "REQUIREMENT"
	ModeFunction    Mode = "FUNCTION"
)

// Valid reports whether m is a recognized conversation mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeNatural, ModeRequirement, ModeFunction:
		return true
	}
	return false
}

// ModeMachine holds the current conversation mode. Transitions happen
// only through Apply with a parsed ModeSwitch signal; there is no
// automatic reversion unless revertAfter is configured.
type ModeMachine struct {
	mu          sync.Mutex
	current     Mode
	revertAfter time.Duration
	timer       *time.Timer
}

// NewModeMachine creates a machine starting in NATURAL. A non-zero
// revertAfter re-arms NATURAL that long after a switch to FUNCTION;
// zero (the default configuration) disables the timer entirely.
func NewModeMachine(revertAfter time.Duration) *ModeMachine {
	return &ModeMachine{
		current:     ModeNatural,
		revertAfter: revertAfter,
	}
}

// Current returns the active mode.
func (m *ModeMachine) Current() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Apply transitions to the mode named by a parsed ModeSwitch signal.
// Unrecognized mode values are ignored and Apply reports false.
func (m *ModeMachine) Apply(sw ModeSwitch) bool {
	if !sw.Mode.Valid() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.current = sw.Mode

	if sw.Mode == ModeFunction && m.revertAfter > 0 {
		m.timer = time.AfterFunc(m.revertAfter, m.revert)
	}
	return true
}

// Reset returns the machine to NATURAL. Called at the start of a new
// conversation, not per message.
func (m *ModeMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.current = ModeNatural
}

func (m *ModeMachine) revert() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == ModeFunction {
		m.current = ModeNatural
	}
}

func (m *ModeMachine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
