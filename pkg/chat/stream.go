package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is the role/content pair the backend accepts as context.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamRequest is the payload for the streaming chat endpoint.
type StreamRequest struct {
	Message   string         `json:"message"`
	History   []HistoryEntry `json:"history"`
	ProjectID string         `json:"project_id"`
	ThreadID  string         `json:"thread_id,omitempty"`
	Mode      string         `json:"mode,omitempty"`
}

// MessageChunk is a single fragment from a streaming response.
type MessageChunk struct {
	ID        string    // Unique chunk identifier
	StreamID  string    // Which stream this belongs to
	Content   string    // Incremental text content
	Done      bool      // Stream completion indicator
	Timestamp time.Time // When chunk was received
	Error     error     // Error if chunk processing failed
}

// StreamingClient extends the basic client with streaming chat support.
type StreamingClient struct {
	*Client
}

// NewStreamingClient creates a new streaming client.
func NewStreamingClient(baseURL, token string) *StreamingClient {
	return &StreamingClient{
		Client: NewClient(baseURL, token),
	}
}

// NewStreamingClientWithTimeout creates a streaming client with a custom timeout.
func NewStreamingClientWithTimeout(baseURL, token string, timeout time.Duration) *StreamingClient {
	return &StreamingClient{
		Client: NewClientWithTimeout(baseURL, token, timeout),
	}
}

// StreamMessage sends a chat request and returns a channel of chunks.
// The response body is free-form text delivered by chunked transfer;
// fragments are forwarded as they arrive, in order. The channel closes
// after the terminal chunk (Done or Error set).
func (sc *StreamingClient) StreamMessage(ctx context.Context, req StreamRequest) (<-chan MessageChunk, error) {
	if sc.token == "" {
		// Fail fast before any network call.
		return nil, ErrMissingToken
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/master/chat", sc.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	sc.authorize(httpReq)

	resp, err := sc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeErrorResponse(resp)
	}

	chunks := make(chan MessageChunk, 100) // Buffered for performance
	streamID := generateStreamID()

	go sc.readStream(ctx, resp.Body, chunks, streamID)

	return chunks, nil
}

// readStream forwards response body fragments until EOF, error, or
// context cancellation.
func (sc *StreamingClient) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- MessageChunk, streamID string) {
	defer close(chunks)
	defer body.Close()

	reader := bufio.NewReader(body)
	buf := make([]byte, 4096)
	chunkIndex := 0

	for {
		select {
		case <-ctx.Done():
			chunks <- MessageChunk{
				ID:        fmt.Sprintf("%s-cancelled", streamID),
				StreamID:  streamID,
				Timestamp: time.Now(),
				Error:     ctx.Err(),
			}
			return
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			chunks <- MessageChunk{
				ID:        fmt.Sprintf("%s-%d", streamID, chunkIndex),
				StreamID:  streamID,
				Content:   string(buf[:n]),
				Timestamp: time.Now(),
			}
			chunkIndex++
		}

		if err == io.EOF {
			chunks <- MessageChunk{
				ID:        fmt.Sprintf("%s-done", streamID),
				StreamID:  streamID,
				Done:      true,
				Timestamp: time.Now(),
			}
			return
		}
		if err != nil {
			chunks <- MessageChunk{
				ID:        fmt.Sprintf("%s-error", streamID),
				StreamID:  streamID,
				Timestamp: time.Now(),
				Error:     fmt.Errorf("stream reading error: %w", err),
			}
			return
		}
	}
}

// generateStreamID creates a unique identifier for this stream.
func generateStreamID() string {
	return "stream-" + uuid.NewString()
}
