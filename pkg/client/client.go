package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fasttq/fasttq/pkg/types"
)

// APIError is a non-2xx response from the manager, carrying the status code
// and the plain-text error body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the manager.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the fasttq manager HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the manager at addr, e.g. "http://localhost:3000".
// Requests time out after 10 seconds.
func NewClient(addr string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(addr, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type submitTaskRequest struct {
	TaskKindName string          `json:"task_kind_name"`
	InputData    json.RawMessage `json:"input_data,omitempty"`
}

type uploadResultRequest struct {
	Data    json.RawMessage `json:"data"`
	IsError bool            `json:"is_error"`
}

type registerWorkerRequest struct {
	Name      string   `json:"name"`
	TaskKinds []string `json:"task_kinds"`
}

// Health checks that the manager is alive
func (c *Client) Health() error {
	return c.do(http.MethodGet, "/health", nil, nil)
}

// SubmitTask submits a task of the named kind and returns the queued task
func (c *Client) SubmitTask(kindName string, input json.RawMessage) (*types.TaskInstance, error) {
	var task types.TaskInstance
	err := c.do(http.MethodPost, "/tasks", submitTaskRequest{TaskKindName: kindName, InputData: input}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask fetches a task with its latest result
func (c *Client) GetTask(id uuid.UUID) (*types.TaskInstance, error) {
	var task types.TaskInstance
	if err := c.do(http.MethodGet, "/tasks/"+id.String(), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTaskStatus reports a new status for a task
func (c *Client) UpdateTaskStatus(id uuid.UUID, status types.TaskStatus) error {
	return c.do(http.MethodPut, "/tasks/"+id.String()+"/status", status, nil)
}

// SubmitTaskResult reports the outcome of a task; isError marks a failure
func (c *Client) SubmitTaskResult(id uuid.UUID, data json.RawMessage, isError bool) error {
	return c.do(http.MethodPut, "/tasks/"+id.String()+"/result", uploadResultRequest{Data: data, IsError: isError}, nil)
}

// RegisterWorker registers a worker able to handle the named kinds and
// returns its assigned identity
func (c *Client) RegisterWorker(name string, kinds []string) (*types.Worker, error) {
	var worker types.Worker
	err := c.do(http.MethodPost, "/workers", registerWorkerRequest{Name: name, TaskKinds: kinds}, &worker)
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

// UnregisterWorker removes a worker from dispatch
func (c *Client) UnregisterWorker(id uuid.UUID) error {
	return c.do(http.MethodDelete, "/workers/"+id.String(), nil, nil)
}

// Heartbeat records a liveness report for a worker
func (c *Client) Heartbeat(id uuid.UUID) error {
	return c.do(http.MethodPut, "/workers/"+id.String()+"/heartbeat", nil, nil)
}

// GetWorker fetches one worker
func (c *Client) GetWorker(id uuid.UUID) (*types.Worker, error) {
	var worker types.Worker
	if err := c.do(http.MethodGet, "/workers/"+id.String(), nil, &worker); err != nil {
		return nil, err
	}
	return &worker, nil
}

// ListWorkers lists every known worker, active and inactive
func (c *Client) ListWorkers() ([]*types.Worker, error) {
	var workers []*types.Worker
	if err := c.do(http.MethodGet, "/workers", nil, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

// ListTaskKinds lists the kind catalog
func (c *Client) ListTaskKinds() ([]*types.TaskKind, error) {
	var kinds []*types.TaskKind
	if err := c.do(http.MethodGet, "/task-kinds", nil, &kinds); err != nil {
		return nil, err
	}
	return kinds, nil
}

// do runs one request. A nil body sends no payload; a nil out discards the
// response body. Non-2xx responses come back as *APIError.
func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %v", err)
		}
	}
	return nil
}
