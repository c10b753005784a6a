package chat

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Handler receives callbacks from a ParseSession as chunks are processed.
type Handler interface {
	// OnDisplay is called after each processed chunk with the current
	// display text snapshot.
	OnDisplay(snapshot string)

	// OnSignal is called when a control signal is newly detected.
	OnSignal(sig Signal)

	// OnComplete is called when the stream ends normally, with the final
	// display text.
	OnComplete(final string)

	// OnError is called when the stream terminates with a transport error.
	OnError(err error)
}

// HandlerFunc is a function adapter for the Handler interface.
type HandlerFunc struct {
	DisplayFunc  func(snapshot string)
	SignalFunc   func(sig Signal)
	CompleteFunc func(final string)
	ErrorFunc    func(err error)
}

func (h HandlerFunc) OnDisplay(snapshot string) {
	if h.DisplayFunc != nil {
		h.DisplayFunc(snapshot)
	}
}

func (h HandlerFunc) OnSignal(sig Signal) {
	if h.SignalFunc != nil {
		h.SignalFunc(sig)
	}
}

func (h HandlerFunc) OnComplete(final string) {
	if h.CompleteFunc != nil {
		h.CompleteFunc(final)
	}
}

func (h HandlerFunc) OnError(err error) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(err)
	}
}

var _ Handler = HandlerFunc{}

type span struct {
	start, end int
}

// ParseSession incrementally parses one streamed response. Chunks are
// marker-filtered, accumulated, and rescanned for control signals on
// every arrival. Each signal type is emitted at most once per session,
// and its matched span is elided from the display text from that point
// on. A session is owned by a single goroutine; chunks must be fed in
// arrival order.
type ParseSession struct {
	id      string
	raw     strings.Builder
	elided  []span
	handler Handler

	readyFound bool
	modeFound  bool
	done       bool
}

// NewParseSession creates a session delivering events to handler.
func NewParseSession(handler Handler) *ParseSession {
	if handler == nil {
		handler = HandlerFunc{}
	}
	return &ParseSession{
		id:      uuid.NewString(),
		handler: handler,
	}
}

// ID returns the session's unique identifier.
func (s *ParseSession) ID() string {
	return s.id
}

// Feed processes one incoming chunk. It filters transport markers,
// appends to the accumulated text, rescans for signals, and emits a
// fresh display snapshot. Feeding after termination is a no-op.
func (s *ParseSession) Feed(chunk string) {
	if s.done {
		return
	}
	s.raw.WriteString(FilterMarkers(chunk))
	s.rescan(false)
	s.handler.OnDisplay(s.DisplayText())
}

// rescan looks for not-yet-found signals in the accumulated text.
// Re-running on grown text is safe: found signals are latched and the
// scanner never reconsiders them.
func (s *ParseSession) rescan(final bool) {
	text := s.raw.String()

	if !s.readyFound {
		if res := ScanReadyToStart(text, final); res.Outcome == OutcomeFound {
			s.readyFound = true
			s.elided = append(s.elided, span{res.Start, res.End})
			s.handler.OnSignal(res.Signal)
		}
	}

	if !s.modeFound {
		if res := ScanModeSwitch(text, final); res.Outcome == OutcomeFound {
			s.modeFound = true
			s.elided = append(s.elided, span{res.Start, res.End})
			s.handler.OnSignal(res.Signal)
		}
	}
}

// DisplayText returns the accumulated text with all recognized signal
// spans removed and surrounding whitespace trimmed.
func (s *ParseSession) DisplayText() string {
	text := s.raw.String()
	if len(s.elided) == 0 {
		return strings.TrimSpace(sanitize(text))
	}

	spans := make([]span, len(s.elided))
	copy(spans, s.elided)
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		if sp.start > pos {
			b.WriteString(text[pos:sp.start])
		}
		if sp.end > pos {
			pos = sp.end
		}
	}
	if pos < len(text) {
		b.WriteString(text[pos:])
	}
	return strings.TrimSpace(sanitize(b.String()))
}

// Accumulated returns the full marker-filtered text, signal spans
// included. This is what gets persisted to history so that gate and
// mode state can be re-derived on reload.
func (s *ParseSession) Accumulated() string {
	return sanitize(s.raw.String())
}

// Complete runs a final scan, marks the session terminal, and reports
// the final display text. Returns that text for convenience.
func (s *ParseSession) Complete() string {
	if s.done {
		return s.DisplayText()
	}
	s.rescan(true)
	s.done = true
	final := s.DisplayText()
	s.handler.OnComplete(final)
	return final
}

// Fail marks the session terminal with a transport error. Partial
// results are never merged anywhere after this.
func (s *ParseSession) Fail(err error) {
	if s.done {
		return
	}
	s.done = true
	s.handler.OnError(err)
}

// Done reports whether the session has reached a terminal state.
func (s *ParseSession) Done() bool {
	return s.done
}

// sanitize repairs invalid UTF-8 that can result from a multibyte rune
// split across chunk boundaries.
func sanitize(content string) string {
	return strings.ToValidUTF8(content, "")
}
