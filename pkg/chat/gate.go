package chat

import (
	"errors"
	"sync"
)

// GateState tracks whether the start-task action is currently permitted.
type GateState int

const (
	GateNotReady GateState = iota
	GateReady
	GateTaskRunning
)

// String returns the string representation of the gate state.
func (s GateState) String() string {
	switch s {
	case GateNotReady:
		return "NOT_READY"
	case GateReady:
		return "READY"
	case GateTaskRunning:
		return "TASK_RUNNING"
	default:
		return "UNKNOWN"
	}
}

// ErrGateNotReady is returned when Start is called outside the READY state.
var ErrGateNotReady = errors.New("task gate is not ready")

// Gate is the state machine governing the start-task affordance.
// It cycles NOT_READY -> READY -> TASK_RUNNING -> NOT_READY. The state
// is derivable from conversation history: a still-present READY_TO_START
// payload in the last assistant message restores READY on reload.
type Gate struct {
	mu      sync.Mutex
	state   GateState
	summary string
}

// NewGate creates a gate in the NOT_READY state.
func NewGate() *Gate {
	return &Gate{state: GateNotReady}
}

// State returns the current gate state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Summary returns the final summary attached to the pending go-ahead.
func (g *Gate) Summary() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.summary
}

// Arm moves the gate to READY with the signal's final summary. Arming
// while a task is running is ignored.
func (g *Gate) Arm(summary string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == GateTaskRunning {
		return
	}
	g.state = GateReady
	g.summary = summary
}

// Start confirms the go-ahead, moving READY to TASK_RUNNING. The caller
// is expected to issue the workflow-start request on success.
func (g *Gate) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateReady {
		return ErrGateNotReady
	}
	g.state = GateTaskRunning
	return nil
}

// Clear unconditionally returns the gate to NOT_READY. Called when the
// orchestrator reports the workflow finished or failed, regardless of
// which outcome occurred.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = GateNotReady
	g.summary = ""
}

// Reset invalidates a stale go-ahead. A new outbound user message while
// READY or TASK_RUNNING returns the gate to NOT_READY.
func (g *Gate) Reset() {
	g.Clear()
}

// RestoreFromMessage re-derives the gate state from a persisted
// assistant message. If the message still carries a parseable
// READY_TO_START payload the gate returns to READY.
func (g *Gate) RestoreFromMessage(content string) {
	res := ScanReadyToStart(FilterMarkers(content), true)
	if res.Outcome != OutcomeFound {
		return
	}
	if ready, ok := res.Signal.(ReadyToStart); ok {
		g.Arm(ready.FinalSummary)
	}
}
