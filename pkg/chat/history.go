package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// History is the local transcript for one project thread. The assistant
// entries keep their raw accumulated content, signal payloads included,
// so gate and mode state can be re-derived after a reload.
type History struct {
	Messages []Message `json:"messages"`
	mu       sync.RWMutex
	filePath string
}

// NewHistory opens (or creates) the transcript file for a project
// thread under dir. An empty threadID maps to the project's default
// thread file.
func NewHistory(dir, projectID, threadID string) (*History, error) {
	name := projectID
	if threadID != "" {
		name = projectID + "-" + threadID
	}

	h := &History{
		Messages: make([]Message, 0),
		filePath: filepath.Join(dir, name+".json"),
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	if _, err := os.Stat(h.filePath); err == nil {
		if err := h.Load(); err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	return h, nil
}

// Add appends a message and persists the transcript.
func (h *History) Add(msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Messages = append(h.Messages, msg)
	return h.save()
}

// GetMessages returns a copy of all messages in the transcript.
func (h *History) GetMessages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msgs := make([]Message, len(h.Messages))
	copy(msgs, h.Messages)
	return msgs
}

// Replace swaps the transcript contents, used when syncing from the
// backend's chat-history endpoint.
func (h *History) Replace(msgs []Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Messages = make([]Message, len(msgs))
	copy(h.Messages, msgs)
	return h.save()
}

// Clear empties the transcript.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Messages = make([]Message, 0)
	return h.save()
}

// Load reads the transcript from disk.
func (h *History) Load() error {
	data, err := os.ReadFile(h.filePath)
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}

	if err := json.Unmarshal(data, h); err != nil {
		return fmt.Errorf("failed to parse history file: %w", err)
	}
	return nil
}

func (h *History) save() error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(h.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
