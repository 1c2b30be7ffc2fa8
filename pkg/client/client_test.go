package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttq/fasttq/pkg/api"
	"github.com/fasttq/fasttq/pkg/broker"
	"github.com/fasttq/fasttq/pkg/manager"
	"github.com/fasttq/fasttq/pkg/storage"
	"github.com/fasttq/fasttq/pkg/types"
)

// newTestClient runs the real API server over in-memory infrastructure and
// returns a client pointed at it.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	core := broker.NewMockCore()
	coordinator, err := broker.NewCoordinator(context.Background(), core)
	require.NoError(t, err)

	mgr, err := manager.NewManager(&manager.Config{
		Store:       storage.NewMemoryStore(),
		Coordinator: coordinator,
	})
	require.NoError(t, err)

	server := httptest.NewServer(api.NewServer(mgr).GetHandler())
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestClientHealth(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.Health())
}

func TestClientTaskLifecycle(t *testing.T) {
	c := newTestClient(t)

	worker, err := c.RegisterWorker("builder-1", []string{"build"})
	require.NoError(t, err)
	assert.True(t, worker.Active)

	task, err := c.SubmitTask("build", json.RawMessage(`{"target":"app"}`))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusQueued, task.Status)
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, worker.ID, *task.AssignedTo)

	require.NoError(t, c.UpdateTaskStatus(task.ID, types.TaskStatusRunning))

	got, err := c.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusRunning, got.Status)

	require.NoError(t, c.SubmitTaskResult(task.ID, json.RawMessage(`{"artifacts":3}`), false))

	got, err = c.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.JSONEq(t, `{"artifacts":3}`, string(got.Result.OutputData))
}

func TestClientSubmitTaskNoWorker(t *testing.T) {
	c := newTestClient(t)

	_, err := c.SubmitTask("build", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "no available worker")
}

func TestClientNotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetTask(uuid.New())
	assert.True(t, IsNotFound(err), "expected 404, got %v", err)

	err = c.Heartbeat(uuid.New())
	assert.True(t, IsNotFound(err), "expected 404, got %v", err)
}

func TestClientInvalidStatus(t *testing.T) {
	c := newTestClient(t)

	_, err := c.RegisterWorker("builder-1", []string{"build"})
	require.NoError(t, err)
	task, err := c.SubmitTask("build", nil)
	require.NoError(t, err)

	err = c.UpdateTaskStatus(task.ID, types.TaskStatus("sideways"))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "valid statuses are")
}

func TestClientWorkerLifecycle(t *testing.T) {
	c := newTestClient(t)

	worker, err := c.RegisterWorker("builder-1", []string{"build", "test"})
	require.NoError(t, err)

	require.NoError(t, c.Heartbeat(worker.ID))
	require.NoError(t, c.UnregisterWorker(worker.ID))

	got, err := c.GetWorker(worker.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	workers, err := c.ListWorkers()
	require.NoError(t, err)
	require.Len(t, workers, 1)

	kinds, err := c.ListTaskKinds()
	require.NoError(t, err)
	assert.Len(t, kinds, 2)
}
