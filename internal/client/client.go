// Package client is a typed HTTP client for the tasklane REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/domain/user"
	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the REST API. The token and organization set on it are sent
// with every request.
type Client struct {
	BaseURL string

	httpClient *http.Client
	token      string
	orgID      string
}

// New creates a client for baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// SetToken sets the bearer token.
func (c *Client) SetToken(token string) *Client {
	c.token = token
	return c
}

// SetOrg sets the organization sent as X-Org-Id.
func (c *Client) SetOrg(orgID string) *Client {
	c.orgID = orgID
	return c
}

// RegisterInput is the body of a registration.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Register creates an account and keeps the issued token.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*user.AuthResult, error) {
	var out user.AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Login authenticates and keeps the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (*user.AuthResult, error) {
	var out user.AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// CreateOrganization creates an organization owned by the caller.
func (c *Client) CreateOrganization(ctx context.Context, name string, description *string) (*organization.Organization, error) {
	var out organization.Organization
	body := map[string]any{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPost, "/api/organizations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Hierarchy fetches the workspace tree of the current organization.
func (c *Client) Hierarchy(ctx context.Context) (*hierarchy.Tree, error) {
	var out hierarchy.Tree
	if err := c.do(ctx, http.MethodGet, "/api/hierarchy", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateList adds a list to a project.
func (c *Client) CreateList(ctx context.Context, projectID, name string) (*hierarchy.List, error) {
	var out hierarchy.List
	path := "/api/projects/" + url.PathEscape(projectID) + "/lists"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTaskInput is the body of a task creation.
type CreateTaskInput struct {
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	ListID      string        `json:"listId"`
	Status      task.Status   `json:"status,omitempty"`
	Priority    task.Priority `json:"priority,omitempty"`
}

// CreateTask appends a task to a list.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns the tasks of a list in position order.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]task.Task, error) {
	var out []task.Task
	if err := c.do(ctx, http.MethodGet, "/api/lists/"+url.PathEscape(listID)+"/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MoveInput is the body of a move.
type MoveInput struct {
	TargetListID    string          `json:"targetListId"`
	Position        decimal.Decimal `json:"position"`
	ExpectedVersion *int64          `json:"expectedVersion,omitempty"`
}

// MoveResult is a moved task plus its placement outcome.
type MoveResult struct {
	task.Task
	Collided   bool `json:"collided"`
	Renumbered int  `json:"renumbered"`
	Unchanged  bool `json:"unchanged"`
}

// MoveTask moves a task to a list at a desired position.
func (c *Client) MoveTask(ctx context.Context, taskID string, in MoveInput) (*MoveResult, error) {
	var out MoveResult
	path := "/api/tasks/" + url.PathEscape(taskID) + "/move"
	if err := c.do(ctx, http.MethodPatch, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTaskInput is the body of a task edit. Nil fields stay unchanged.
type UpdateTaskInput struct {
	Title           *string        `json:"title,omitempty"`
	Description     *string        `json:"description,omitempty"`
	Status          *task.Status   `json:"status,omitempty"`
	Priority        *task.Priority `json:"priority,omitempty"`
	ExpectedVersion *int64         `json:"expectedVersion,omitempty"`
}

// UpdateTask edits a task. With ExpectedVersion set it uses PUT and fails on
// a version mismatch; otherwise it sends a PATCH.
func (c *Client) UpdateTask(ctx context.Context, taskID string, in UpdateTaskInput) (*task.Task, error) {
	method := http.MethodPatch
	if in.ExpectedVersion != nil {
		method = http.MethodPut
	}
	var out task.Task
	if err := c.do(ctx, method, "/api/tasks/"+url.PathEscape(taskID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkMove is one entry of MoveTasks.
type BulkMove struct {
	TaskID   string          `json:"taskId"`
	Position decimal.Decimal `json:"newPosition"`
}

// MoveTasksInput is the body of a bulk move.
type MoveTasksInput struct {
	Moves        []BulkMove   `json:"moves"`
	TargetListID string       `json:"targetListId,omitempty"`
	TargetStatus *task.Status `json:"targetStatus,omitempty"`
}

// MoveTasks moves several tasks in one transaction.
func (c *Client) MoveTasks(ctx context.Context, in MoveTasksInput) ([]MoveResult, error) {
	var out []MoveResult
	if err := c.do(ctx, http.MethodPost, "/api/tasks/move-multiple", in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(taskID), nil, nil)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.orgID != "" {
		req.Header.Set("X-Org-Id", c.orgID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making HTTP request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: "BAD_RESPONSE", Message: err.Error()}
	}
	if !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN"}
		if env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
