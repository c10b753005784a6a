// Package projects is a thin client for the backend's project CRUD
// endpoints, used for context selection and name lookup.
package projects

import (
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

// AgentDefinition describes one agent in a project's workflow.
type AgentDefinition struct {
	AgentID      string   `json:"agent_id"`
	Role         string   `json:"role"`
	Model        string   `json:"model"`
	Provider     string   `json:"provider"`
	SystemPrompt string   `json:"system_prompt"`
	NextAgents   []string `json:"next_agents"`
}

// AgentConfig is a project's multi-agent workflow configuration.
type AgentConfig struct {
	WorkflowType string            `json:"workflow_type"`
	Agents       []AgentDefinition `json:"agents"`
	EntryAgentID string            `json:"entry_agent_id"`
}

// Project mirrors the backend's project record.
type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	ProjectType string       `json:"project_type"`
	RepoPath    string       `json:"repo_path,omitempty"`
	TenantID    string       `json:"tenant_id"`
	UserID      string       `json:"user_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	AgentConfig *AgentConfig `json:"agent_config,omitempty"`
}

// Client talks to the backend's project endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// List fetches every project visible to the caller.
func (c *Client) List(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, c.baseURL+"/projects/", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Get fetches one project by ID.
func (c *Client) Get(ctx context.Context, id string) (Project, error) {
	var project Project
	endpoint := c.baseURL + "/projects/" + url.PathEscape(id)
	if err := c.get(ctx, endpoint, &project); err != nil {
		return Project{}, err
	}
	return project, nil
}

// FindByName resolves a project by case-insensitive name, the same
// lookup used for @-mentions in the chat input.
func (c *Client) FindByName(ctx context.Context, name string) (Project, bool, error) {
	projects, err := c.List(ctx)
	if err != nil {
		return Project{}, false, err
	}

	needle := strings.ToLower(name)
	for _, p := range projects {
		if strings.ToLower(p.Name) == needle {
			return p, true, nil
		}
	}
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return p, true, nil
		}
	}
	return Project{}, false, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if c.token == "" {
		return ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errorResp struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Detail != "" {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errorResp.Detail)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
