package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrgbiryu-cyber/maestro/pkg/logger"
)

// EventStatus labels an execution log event.
type EventStatus string

const (
	StatusRunning  EventStatus = "running"
	StatusFinished EventStatus = "finished"
	StatusFailed   EventStatus = "failed"
)

// LogEvent is one record from an execution's live log stream.
type LogEvent struct {
	ExecutionID string      `json:"execution_id,omitempty"`
	Level       string      `json:"level,omitempty"`
	Message     string      `json:"message"`
	Status      EventStatus `json:"status,omitempty"`
	Timestamp   time.Time   `json:"timestamp,omitempty"`
}

// Terminal reports whether this event ends the stream. Both outcomes
// clear the caller's task gate; the distinction only affects display.
func (e LogEvent) Terminal() bool {
	return e.Status == StatusFinished || e.Status == StatusFailed
}

// FollowLogs opens the execution's WebSocket log stream and returns a
// channel of events. The channel closes when a terminal event arrives,
// the connection drops, or ctx is cancelled. The terminal event, when
// one was received, is the last value delivered.
func (c *Client) FollowLogs(ctx context.Context, executionID string) (<-chan LogEvent, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	wsURL, err := websocketURL(c.baseURL, executionID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("log stream connect failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("log stream connect failed: %w", err)
	}

	events := make(chan LogEvent, 64)

	// Closing the connection unblocks the reader when ctx is cancelled.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()

		for {
			var ev LogEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					logger.Warn("log stream closed: %v", err)
				}
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}

			if ev.Terminal() {
				return
			}
		}
	}()

	return events, nil
}

// websocketURL converts the HTTP base URL to the ws scheme and appends
// the execution log path.
func websocketURL(baseURL, executionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/executions/" + url.PathEscape(executionID) + "/logs"
	return u.String(), nil
}
