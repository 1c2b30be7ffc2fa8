package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttq/fasttq/pkg/types"
)

func TestMemoryGetOrCreateIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)
	second, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "image-resize", second.Name)

	kinds, err := store.ListTaskKinds(ctx)
	require.NoError(t, err)
	assert.Len(t, kinds, 1)
}

func TestMemoryRegisterAndGetWorker(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)

	id := uuid.New()
	registered, err := store.RegisterWorker(ctx, id, "worker-1", []types.TaskKind{*kind})
	require.NoError(t, err)
	assert.Equal(t, id, registered.ID)
	assert.True(t, registered.Active)
	assert.False(t, registered.RegisteredAt.IsZero())

	fetched, err := store.GetWorker(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "worker-1", fetched.Name)
	require.Len(t, fetched.TaskKinds, 1)
	assert.Equal(t, kind.ID, fetched.TaskKinds[0].ID)
}

func TestMemoryReRegisterReplacesKindSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	resize, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)
	encode, err := store.GetOrCreate(ctx, "video-encode")
	require.NoError(t, err)

	id := uuid.New()
	_, err = store.RegisterWorker(ctx, id, "worker-1", []types.TaskKind{*resize})
	require.NoError(t, err)

	first, err := store.GetWorker(ctx, id)
	require.NoError(t, err)

	// Re-register with a different set and name; the set is replaced, not
	// merged, and registered_at is preserved.
	_, err = store.RegisterWorker(ctx, id, "worker-1-renamed", []types.TaskKind{*encode})
	require.NoError(t, err)

	second, err := store.GetWorker(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "worker-1-renamed", second.Name)
	require.Len(t, second.TaskKinds, 1)
	assert.Equal(t, encode.ID, second.TaskKinds[0].ID)
	assert.True(t, second.RegisteredAt.Equal(first.RegisteredAt))
}

func TestMemoryReRegisterPreservesActive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)

	id := uuid.New()
	_, err = store.RegisterWorker(ctx, id, "worker-1", []types.TaskKind{*kind})
	require.NoError(t, err)
	require.NoError(t, store.SetWorkerActive(ctx, id, false))

	// The upsert only touches the name; a deactivated worker stays inactive
	// until explicitly reactivated.
	again, err := store.RegisterWorker(ctx, id, "worker-1", []types.TaskKind{*kind})
	require.NoError(t, err)
	assert.False(t, again.Active)
}

func TestMemorySetWorkerActive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)

	id := uuid.New()
	_, err = store.RegisterWorker(ctx, id, "worker-1", []types.TaskKind{*kind})
	require.NoError(t, err)

	require.NoError(t, store.SetWorkerActive(ctx, id, false))
	worker, err := store.GetWorker(ctx, id)
	require.NoError(t, err)
	assert.False(t, worker.Active)

	// Deactivation keeps the row.
	workers, err := store.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Len(t, workers, 1)

	err = store.SetWorkerActive(ctx, uuid.New(), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHeartbeats(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)

	id := uuid.New()
	_, err = store.RegisterWorker(ctx, id, "worker-1", []types.TaskKind{*kind})
	require.NoError(t, err)

	_, err = store.LatestHeartbeat(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.RecordHeartbeat(ctx, id))
	first, err := store.LatestHeartbeat(ctx, id)
	require.NoError(t, err)

	require.NoError(t, store.RecordHeartbeat(ctx, id))
	latest, err := store.LatestHeartbeat(ctx, id)
	require.NoError(t, err)
	assert.False(t, latest.Time.Before(first.Time))

	err = store.RecordHeartbeat(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCreateAndGetTask(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)

	input := json.RawMessage(`{"width":800}`)
	task, err := store.CreateTask(ctx, kind.ID, input)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusPending, task.Status)
	assert.Nil(t, task.AssignedTo)
	assert.Equal(t, kind.Name, task.TaskKind.Name)

	fetched, err := store.GetTask(ctx, task.ID, false)
	require.NoError(t, err)
	assert.Equal(t, task.ID, fetched.ID)
	assert.JSONEq(t, `{"width":800}`, string(fetched.InputData))
	assert.Nil(t, fetched.Result)

	_, err = store.GetTask(ctx, uuid.New(), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAssignTask(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)
	workerID := uuid.New()
	_, err = store.RegisterWorker(ctx, workerID, "worker-1", []types.TaskKind{*kind})
	require.NoError(t, err)

	task, err := store.CreateTask(ctx, kind.ID, nil)
	require.NoError(t, err)

	require.NoError(t, store.AssignTask(ctx, workerID, task.ID))

	assigned, err := store.GetTask(ctx, task.ID, false)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusQueued, assigned.Status)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, workerID, *assigned.AssignedTo)
}

func TestMemoryUpdateTaskStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)
	task, err := store.CreateTask(ctx, kind.ID, nil)
	require.NoError(t, err)

	for _, status := range []types.TaskStatus{
		types.TaskStatusRunning,
		types.TaskStatusPaused,
		types.TaskStatusCancelled,
	} {
		require.NoError(t, store.UpdateTaskStatus(ctx, task.ID, status))
		got, err := store.GetTask(ctx, task.ID, false)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}

	err = store.UpdateTaskStatus(ctx, uuid.New(), types.TaskStatusRunning)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUploadTaskResult(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)
	workerID := uuid.New()
	_, err = store.RegisterWorker(ctx, workerID, "worker-1", []types.TaskKind{*kind})
	require.NoError(t, err)
	task, err := store.CreateTask(ctx, kind.ID, nil)
	require.NoError(t, err)

	result, err := store.UploadTaskResult(ctx, task.ID, workerID, json.RawMessage(`{"ok":true}`))
	require.NoError(t, err)
	assert.False(t, result.IsError())
	assert.Equal(t, workerID, result.WorkerID)

	completed, err := store.GetTask(ctx, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.Result)
	assert.JSONEq(t, `{"ok":true}`, string(completed.Result.OutputData))
	assert.Nil(t, completed.Result.ErrorData)
}

func TestMemoryUploadTaskError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)
	workerID := uuid.New()
	task, err := store.CreateTask(ctx, kind.ID, nil)
	require.NoError(t, err)

	result, err := store.UploadTaskError(ctx, task.ID, workerID, json.RawMessage(`"disk full"`))
	require.NoError(t, err)
	assert.True(t, result.IsError())

	failed, err := store.GetTask(ctx, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusFailed, failed.Status)
	require.NotNil(t, failed.Result)
	assert.JSONEq(t, `"disk full"`, string(failed.Result.ErrorData))
	assert.Nil(t, failed.Result.OutputData)
}

func TestMemoryLatestResultWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)
	workerID := uuid.New()
	task, err := store.CreateTask(ctx, kind.ID, nil)
	require.NoError(t, err)

	_, err = store.UploadTaskError(ctx, task.ID, workerID, json.RawMessage(`"first try failed"`))
	require.NoError(t, err)
	_, err = store.UploadTaskResult(ctx, task.ID, workerID, json.RawMessage(`{"attempt":2}`))
	require.NoError(t, err)

	got, err := store.GetTask(ctx, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.False(t, got.Result.IsError())
	assert.JSONEq(t, `{"attempt":2}`, string(got.Result.OutputData))
}

func TestMemoryUploadResultUnknownTask(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.UploadTaskResult(ctx, uuid.New(), uuid.New(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTaskStatusCounts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	kind, err := store.GetOrCreate(ctx, "image-resize")
	require.NoError(t, err)

	first, err := store.CreateTask(ctx, kind.ID, nil)
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, kind.ID, nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateTaskStatus(ctx, first.ID, types.TaskStatusRunning))

	counts, err := store.TaskStatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[types.TaskStatusPending])
	assert.Equal(t, 1, counts[types.TaskStatusRunning])
	assert.Equal(t, 0, counts[types.TaskStatusCompleted])
}
