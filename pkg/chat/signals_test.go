package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanReadyToStart(t *testing.T) {
	t.Run("should report pending when no candidate exists", func(t *testing.T) {
		res := ScanReadyToStart("just some prose", false)
		assert.Equal(t, OutcomePending, res.Outcome)
	})

	t.Run("should report absent at stream end without a candidate", func(t *testing.T) {
		res := ScanReadyToStart("just some prose", true)
		assert.Equal(t, OutcomeAbsent, res.Outcome)
	})

	t.Run("should find a complete payload", func(t *testing.T) {
		text := `Plan done. {"status": "READY_TO_START", "final_summary": "Build the pipeline"} Anything else?`
		res := ScanReadyToStart(text, false)
		require.Equal(t, OutcomeFound, res.Outcome)

		ready, ok := res.Signal.(ReadyToStart)
		require.True(t, ok)
		assert.Equal(t, "READY_TO_START", ready.Status)
		assert.Equal(t, "Build the pipeline", ready.FinalSummary)
		assert.Equal(t, `{"status": "READY_TO_START", "final_summary": "Build the pipeline"}`, text[res.Start:res.End])
	})

	t.Run("should find a fenced payload including the fence in the span", func(t *testing.T) {
		text := "Summary below.\n```json\n{\"status\": \"READY_TO_START\", \"final_summary\": \"ok\"}\n```\ndone"
		res := ScanReadyToStart(text, false)
		require.Equal(t, OutcomeFound, res.Outcome)
		assert.Contains(t, text[res.Start:res.End], "```json")

		ready := res.Signal.(ReadyToStart)
		assert.Equal(t, "ok", ready.FinalSummary)
	})

	t.Run("should defer a truncated payload", func(t *testing.T) {
		res := ScanReadyToStart(`working... {"status": "READY_TO_START", "final_su`, false)
		assert.Equal(t, OutcomePending, res.Outcome)
	})

	t.Run("should defer a candidate that fails strict parsing", func(t *testing.T) {
		// Single-quoted values satisfy the candidate search but not the
		// strict parse. Mid-stream that stays pending; at stream end it
		// is absent and the raw text remains visible.
		text := `{'status': 'READY_TO_START', 'final_summary': 'x'}`
		assert.Equal(t, OutcomePending, ScanReadyToStart(text, false).Outcome)
		assert.Equal(t, OutcomeAbsent, ScanReadyToStart(text, true).Outcome)
	})

	t.Run("should tolerate arbitrary whitespace around the discriminator", func(t *testing.T) {
		text := "{ \"status\"  :\n  \"READY_TO_START\", \"final_summary\": \"y\" }"
		res := ScanReadyToStart(text, false)
		require.Equal(t, OutcomeFound, res.Outcome)
		assert.Equal(t, "y", res.Signal.(ReadyToStart).FinalSummary)
	})

	t.Run("should not match an object without the discriminator", func(t *testing.T) {
		res := ScanReadyToStart(`{"status": "PENDING", "final_summary": "no"}`, true)
		assert.Equal(t, OutcomeAbsent, res.Outcome)
	})
}

func TestScanModeSwitch(t *testing.T) {
	t.Run("should find a mode switch payload", func(t *testing.T) {
		text := `Switching now {"type":"MODE_SWITCH","mode":"FUNCTION","reason":"tool call"} ok`
		res := ScanModeSwitch(text, false)
		require.Equal(t, OutcomeFound, res.Outcome)

		sw, ok := res.Signal.(ModeSwitch)
		require.True(t, ok)
		assert.Equal(t, ModeFunction, sw.Mode)
		assert.Equal(t, "tool call", sw.Reason)
	})

	t.Run("should not treat a ready payload as a mode switch", func(t *testing.T) {
		res := ScanModeSwitch(`{"status": "READY_TO_START", "final_summary": "x"}`, true)
		assert.Equal(t, OutcomeAbsent, res.Outcome)
	})

	t.Run("should find each signal type independently in one text", func(t *testing.T) {
		text := `{"type":"MODE_SWITCH","mode":"REQUIREMENT","reason":"spec"} and later {"status":"READY_TO_START","final_summary":"go"}`

		mode := ScanModeSwitch(text, false)
		ready := ScanReadyToStart(text, false)
		require.Equal(t, OutcomeFound, mode.Outcome)
		require.Equal(t, OutcomeFound, ready.Outcome)
		assert.True(t, mode.End <= ready.Start)
	})

	t.Run("should carry unrecognized mode values through", func(t *testing.T) {
		text := `{"type":"MODE_SWITCH","mode":"TURBO","reason":"?"}`
		res := ScanModeSwitch(text, false)
		require.Equal(t, OutcomeFound, res.Outcome)
		assert.Equal(t, Mode("TURBO"), res.Signal.(ModeSwitch).Mode)
	})
}
