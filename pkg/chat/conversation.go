package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mrgbiryu-cyber/maestro/pkg/logger"
)

// Conversation coordinates one conversation thread: it owns the mode
// machine, the task gate, the local transcript, and at most one
// in-flight parse session. Sending a new message cancels the previous
// session's pending reads; no partial results from an abandoned session
// are merged into the new one.
type Conversation struct {
	streamer  *StreamingClient
	history   *History
	gate      *Gate
	mode      *ModeMachine
	projectID string
	threadID  string

	mu      sync.Mutex
	cancel  context.CancelFunc
	current *ParseSession
}

// ConversationOptions configures a Conversation.
type ConversationOptions struct {
	ProjectID       string
	ThreadID        string
	ModeRevertAfter time.Duration
}

// NewConversation creates a conversation over the given streaming
// client and transcript.
func NewConversation(streamer *StreamingClient, history *History, opts ConversationOptions) *Conversation {
	return &Conversation{
		streamer:  streamer,
		history:   history,
		gate:      NewGate(),
		mode:      NewModeMachine(opts.ModeRevertAfter),
		projectID: opts.ProjectID,
		threadID:  opts.ThreadID,
	}
}

// Gate returns the conversation's task gate.
func (c *Conversation) Gate() *Gate {
	return c.gate
}

// Mode returns the active conversation mode.
func (c *Conversation) Mode() Mode {
	return c.mode.Current()
}

// History returns the conversation's transcript.
func (c *Conversation) History() *History {
	return c.history
}

// Restore re-derives gate and mode state by replaying the latest
// assistant message in the transcript. Transient state is never the
// source of truth across reloads.
func (c *Conversation) Restore() {
	last, ok := LastAssistant(c.history.GetMessages())
	if !ok {
		return
	}

	content := FilterMarkers(last.Content)
	c.gate.RestoreFromMessage(content)

	if res := ScanModeSwitch(content, true); res.Outcome == OutcomeFound {
		if sw, ok := res.Signal.(ModeSwitch); ok {
			c.mode.Apply(sw)
		}
	}
}

// Send issues a user message and starts a fresh parse session streaming
// the assistant's reply into handler. Any previous in-flight session is
// cancelled first, and a stale go-ahead on the gate is invalidated
// before the request goes out.
func (c *Conversation) Send(ctx context.Context, text string, handler Handler) (*ParseSession, error) {
	c.gate.Reset()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	req := StreamRequest{
		Message:   text,
		History:   historyPayload(c.history.GetMessages()),
		ProjectID: c.projectID,
		ThreadID:  c.threadID,
		Mode:      string(c.mode.Current()),
	}

	chunks, err := c.streamer.StreamMessage(streamCtx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := c.history.Add(NewUserMessage(text).WithThread(c.threadID)); err != nil {
		logger.Warn("failed to persist user message: %v", err)
	}

	session := NewParseSession(c.wireSignals(handler))

	c.mu.Lock()
	c.current = session
	c.mu.Unlock()

	go c.consume(session, chunks)
	return session, nil
}

// Close cancels any in-flight session and releases the transport.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// wireSignals routes parsed signals into the gate and mode machine
// before forwarding them to the caller's handler.
func (c *Conversation) wireSignals(handler Handler) Handler {
	if handler == nil {
		handler = HandlerFunc{}
	}
	return HandlerFunc{
		DisplayFunc: handler.OnDisplay,
		SignalFunc: func(sig Signal) {
			switch s := sig.(type) {
			case ReadyToStart:
				c.gate.Arm(s.FinalSummary)
				logger.Debug("ready gate armed: %s", s.FinalSummary)
			case ModeSwitch:
				if c.mode.Apply(s) {
					logger.Debug("mode switched to %s: %s", s.Mode, s.Reason)
				}
			}
			handler.OnSignal(sig)
		},
		CompleteFunc: handler.OnComplete,
		ErrorFunc:    handler.OnError,
	}
}

// consume drains one session's chunk channel in arrival order.
func (c *Conversation) consume(session *ParseSession, chunks <-chan MessageChunk) {
	for chunk := range chunks {
		if chunk.Error != nil {
			// An abandoned session ends quietly; a real transport error
			// becomes a visible conversation entry.
			if !errors.Is(chunk.Error, context.Canceled) {
				if err := c.history.Add(NewErrorMessage("Error: " + chunk.Error.Error()).WithThread(c.threadID)); err != nil {
					logger.Warn("failed to persist error message: %v", err)
				}
			}
			session.Fail(chunk.Error)
			return
		}

		session.Feed(chunk.Content)

		if chunk.Done {
			break
		}
	}

	// Persist the raw accumulated content, signal payloads included, so
	// gate and mode state survive reloads. This happens before the
	// completion callback so callers observing completion see a settled
	// transcript.
	if accumulated := session.Accumulated(); accumulated != "" {
		if err := c.history.Add(NewAssistantMessage(accumulated).WithThread(c.threadID)); err != nil {
			logger.Warn("failed to persist assistant message: %v", err)
		}
	}

	session.Complete()
}

// historyPayload converts transcript messages into the wire shape,
// dropping local error entries the backend should never see.
func historyPayload(messages []Message) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		if m.IsError() {
			continue
		}
		entries = append(entries, HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return entries
}
