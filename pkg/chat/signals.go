package chat

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Signal is a control payload the assistant embeds inside otherwise
// free-form streamed text.
type Signal interface {
	signal()
}

// ReadyToStart tells the client the conversation has produced a complete,
// confirmable task plan. FinalSummary is shown on the start affordance.
type ReadyToStart struct {
	Status       string `json:"status"`
	FinalSummary string `json:"final_summary"`
}

func (ReadyToStart) signal() {}

// ModeSwitch tells the client to change the conversation input mode.
type ModeSwitch struct {
	Type   string `json:"type"`
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason"`
}

func (ModeSwitch) signal() {}

// Outcome classifies a scan of accumulated text for one signal type.
type Outcome int

const (
	// OutcomePending means no complete payload was found yet. More chunks
	// may still complete it; this is not an error.
	OutcomePending Outcome = iota
	// OutcomeFound means a payload parsed successfully.
	OutcomeFound
	// OutcomeAbsent means the stream ended without a parseable payload.
	OutcomeAbsent
)

// ScanResult is the outcome of scanning accumulated text for one signal
// type. Start and End delimit the matched span when Outcome is
// OutcomeFound; the span is what gets elided from display text.
type ScanResult struct {
	Outcome Outcome
	Signal  Signal
	Start   int
	End     int
}

// Candidate patterns are tolerant of whitespace and either quote style
// around the discriminator, and of the fenced ```json form the backend
// sometimes emits. The strict JSON parse below decides validity; the
// pattern only locates a brace-delimited span worth attempting.
var (
	readyCandidate = regexp.MustCompile(
		"(?s)(?:```json\\s*)?\\{[^{}]*[\"']status[\"']\\s*:\\s*[\"']READY_TO_START[\"'][^{}]*\\}(?:\\s*```)?")
	modeCandidate = regexp.MustCompile(
		"(?s)(?:```json\\s*)?\\{[^{}]*[\"']type[\"']\\s*:\\s*[\"']MODE_SWITCH[\"'][^{}]*\\}(?:\\s*```)?")
)

// ScanReadyToStart searches text for a READY_TO_START payload. Pass
// final=true once the stream has closed so a payload that never parsed
// is reported absent instead of pending.
func ScanReadyToStart(text string, final bool) ScanResult {
	return scan(text, readyCandidate, decodeReadyToStart, final)
}

// ScanModeSwitch searches text for a MODE_SWITCH payload.
func ScanModeSwitch(text string, final bool) ScanResult {
	return scan(text, modeCandidate, decodeModeSwitch, final)
}

func scan(text string, candidate *regexp.Regexp, decode func(string) (Signal, bool), final bool) ScanResult {
	loc := candidate.FindStringIndex(text)
	if loc == nil {
		if final {
			return ScanResult{Outcome: OutcomeAbsent}
		}
		return ScanResult{Outcome: OutcomePending}
	}

	sig, ok := decode(braceSpan(text[loc[0]:loc[1]]))
	if !ok {
		// A span that looks complete but does not parse is
		// indistinguishable mid-stream from a still-arriving payload.
		// Defer rather than error; if the stream ends first the raw
		// text stays visible as ordinary content.
		if final {
			return ScanResult{Outcome: OutcomeAbsent}
		}
		return ScanResult{Outcome: OutcomePending}
	}

	return ScanResult{Outcome: OutcomeFound, Signal: sig, Start: loc[0], End: loc[1]}
}

// braceSpan strips an optional code fence, leaving the bare JSON object.
func braceSpan(span string) string {
	start := strings.Index(span, "{")
	end := strings.LastIndex(span, "}")
	if start < 0 || end < start {
		return span
	}
	return span[start : end+1]
}

func decodeReadyToStart(body string) (Signal, bool) {
	var r ReadyToStart
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, false
	}
	if r.Status != "READY_TO_START" {
		return nil, false
	}
	return r, true
}

func decodeModeSwitch(body string) (Signal, bool) {
	var m ModeSwitch
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, false
	}
	if m.Type != "MODE_SWITCH" {
		return nil, false
	}
	return m, true
}
