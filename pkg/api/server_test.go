package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttq/fasttq/pkg/broker"
	"github.com/fasttq/fasttq/pkg/manager"
	"github.com/fasttq/fasttq/pkg/storage"
	"github.com/fasttq/fasttq/pkg/types"
)

type apiFixture struct {
	handler http.Handler
	store   *storage.MemoryStore
	core    *broker.MockCore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	core := broker.NewMockCore()
	coordinator, err := broker.NewCoordinator(context.Background(), core)
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	mgr, err := manager.NewManager(&manager.Config{Store: store, Coordinator: coordinator})
	require.NoError(t, err)

	return &apiFixture{
		handler: NewServer(mgr).GetHandler(),
		store:   store,
		core:    core,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) doRaw(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) registerWorker(t *testing.T, name string, kinds ...string) types.Worker {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/workers", map[string]any{"name": name, "task_kinds": kinds})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var worker types.Worker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &worker))
	return worker
}

func (f *apiFixture) submitTask(t *testing.T, kind string, input any) types.TaskInstance {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/tasks", map[string]any{"task_kind_name": kind, "input_data": input})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var task types.TaskInstance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	return task
}

func TestSubmitTaskEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	worker := f.registerWorker(t, "builder-1", "build")

	task := f.submitTask(t, "build", map[string]any{"target": "app"})
	assert.Equal(t, types.TaskStatusQueued, task.Status)
	assert.Equal(t, "build", task.TaskKind.Name)
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, worker.ID, *task.AssignedTo)
	assert.JSONEq(t, `{"target":"app"}`, string(task.InputData))

	publishes := f.core.Publishes()
	require.Len(t, publishes, 1)
	assert.Equal(t, worker.ID.String(), publishes[0].RoutingKey)
}

func TestSubmitTaskEndpointNoWorker(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/tasks", map[string]any{"task_kind_name": "build"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no available worker")
}

func TestSubmitTaskEndpointMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doRaw(t, http.MethodPost, "/tasks", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTaskEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerWorker(t, "builder-1", "build")
	task := f.submitTask(t, "build", nil)

	rec := f.do(t, http.MethodGet, "/tasks/"+task.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.TaskInstance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, types.TaskStatusQueued, got.Status)
}

func TestGetTaskEndpointNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/tasks/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTaskEndpointInvalidID(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTaskStatusEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerWorker(t, "builder-1", "build")
	task := f.submitTask(t, "build", nil)

	rec := f.do(t, http.MethodPut, "/tasks/"+task.ID.String()+"/status", "running")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.store.GetTask(context.Background(), task.ID, false)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusRunning, stored.Status)
}

func TestUpdateTaskStatusEndpointInvalidStatus(t *testing.T) {
	f := newAPIFixture(t)
	f.registerWorker(t, "builder-1", "build")
	task := f.submitTask(t, "build", nil)

	rec := f.do(t, http.MethodPut, "/tasks/"+task.ID.String()+"/status", "sideways")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid statuses are")
	assert.Contains(t, rec.Body.String(), "running")
}

func TestUpdateTaskStatusEndpointInvalidStatusBeforeLookup(t *testing.T) {
	f := newAPIFixture(t)

	// A bad status on a task that doesn't exist is still a 400: the status
	// is validated before the task is loaded.
	rec := f.do(t, http.MethodPut, "/tasks/"+uuid.NewString()+"/status", "sideways")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTaskStatusEndpointNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, "/tasks/"+uuid.NewString()+"/status", "running")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadTaskResultEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	worker := f.registerWorker(t, "builder-1", "build")
	task := f.submitTask(t, "build", nil)

	rec := f.do(t, http.MethodPut, "/tasks/"+task.ID.String()+"/result",
		map[string]any{"data": map[string]any{"artifacts": 3}, "is_error": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/tasks/"+task.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.TaskInstance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, types.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, worker.ID, got.Result.WorkerID)
	assert.JSONEq(t, `{"artifacts":3}`, string(got.Result.OutputData))
}

func TestUploadTaskResultEndpointError(t *testing.T) {
	f := newAPIFixture(t)
	f.registerWorker(t, "builder-1", "build")
	task := f.submitTask(t, "build", nil)

	rec := f.do(t, http.MethodPut, "/tasks/"+task.ID.String()+"/result",
		map[string]any{"data": map[string]any{"reason": "oom"}, "is_error": true})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.store.GetTask(context.Background(), task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusFailed, stored.Status)
	require.NotNil(t, stored.Result)
	assert.True(t, stored.Result.IsError())
}

func TestUploadTaskResultEndpointNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, "/tasks/"+uuid.NewString()+"/result",
		map[string]any{"data": map[string]any{}, "is_error": false})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterWorkerEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	worker := f.registerWorker(t, "builder-1", "build", "test")
	assert.NotEqual(t, uuid.Nil, worker.ID)
	assert.Equal(t, "builder-1", worker.Name)
	assert.True(t, worker.Active)
	assert.Len(t, worker.TaskKinds, 2)
}

func TestRegisterWorkerEndpointMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doRaw(t, http.MethodPost, "/workers", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnregisterWorkerEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	worker := f.registerWorker(t, "builder-1", "build")

	rec := f.do(t, http.MethodDelete, "/workers/"+worker.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/workers/"+worker.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.Worker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Active)
}

func TestUnregisterWorkerEndpointNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/workers/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnregisterWorkerEndpointInvalidID(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/workers/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkerHeartbeatEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	worker := f.registerWorker(t, "builder-1", "build")

	rec := f.do(t, http.MethodPut, "/workers/"+worker.ID.String()+"/heartbeat", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/workers/"+uuid.NewString()+"/heartbeat", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListWorkersEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	first := f.registerWorker(t, "builder-1", "build")
	f.registerWorker(t, "builder-2", "test")

	rec := f.do(t, http.MethodDelete, "/workers/"+first.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/workers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var workers []types.Worker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workers))
	assert.Len(t, workers, 2)
}

func TestListTaskKindsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerWorker(t, "builder-1", "build", "test")

	rec := f.do(t, http.MethodGet, "/task-kinds", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var kinds []types.TaskKind
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kinds))
	assert.Len(t, kinds, 2)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fasttq_")
}
