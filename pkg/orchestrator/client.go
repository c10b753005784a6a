// Package orchestrator is the client for the external workflow
// orchestration engine: it starts executions and follows their live
// log stream until a terminal event arrives.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMissingToken is returned before any network call when no auth
// credential is configured.
var ErrMissingToken = errors.New("no auth token configured")

// Client talks to the orchestration engine's HTTP and WebSocket endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Execution identifies a started workflow run.
type Execution struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status,omitempty"`
}

func NewClient(baseURL, token string) *Client {
	return NewClientWithTimeout(baseURL, token, 60*time.Second)
}

func NewClientWithTimeout(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StartWorkflow asks the engine to execute the project's configured
// agent workflow and returns the new execution's identity.
func (c *Client) StartWorkflow(ctx context.Context, projectID string) (Execution, error) {
	if c.token == "" {
		return Execution{}, ErrMissingToken
	}

	endpoint := fmt.Sprintf("%s/projects/%s/execute", c.baseURL, url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	if err != nil {
		return Execution{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Execution{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		var errorResp struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Detail != "" {
			return Execution{}, fmt.Errorf("workflow start failed with status %d: %s", resp.StatusCode, errorResp.Detail)
		}
		return Execution{}, fmt.Errorf("workflow start failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var exec Execution
	if err := json.NewDecoder(resp.Body).Decode(&exec); err != nil {
		return Execution{}, fmt.Errorf("failed to decode execution: %w", err)
	}
	if exec.ExecutionID == "" {
		return Execution{}, fmt.Errorf("backend returned no execution id")
	}
	return exec, nil
}
