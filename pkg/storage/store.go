package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fasttq/fasttq/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TaskKindStore manages the catalog of task kinds.
type TaskKindStore interface {
	// GetOrCreate returns the kind with the given name, creating it when
	// missing. The call is idempotent: repeated calls with the same name
	// return the same id.
	GetOrCreate(ctx context.Context, name string) (*types.TaskKind, error)
	// ListTaskKinds returns every known kind.
	ListTaskKinds(ctx context.Context) ([]*types.TaskKind, error)
}

// WorkerStore manages worker registrations, capabilities and heartbeats.
type WorkerStore interface {
	// RegisterWorker upserts the worker row and replaces its capability set
	// with exactly the provided kinds, all in one transaction.
	RegisterWorker(ctx context.Context, id uuid.UUID, name string, kinds []types.TaskKind) (*types.Worker, error)
	// GetWorker returns the worker with its kinds joined.
	GetWorker(ctx context.Context, id uuid.UUID) (*types.Worker, error)
	// ListWorkers returns all workers with their kinds joined.
	ListWorkers(ctx context.Context) ([]*types.Worker, error)
	// SetWorkerActive flips the active flag. The row is kept either way.
	SetWorkerActive(ctx context.Context, id uuid.UUID, active bool) error
	// RecordHeartbeat appends a heartbeat row stamped with server time.
	RecordHeartbeat(ctx context.Context, id uuid.UUID) error
	// LatestHeartbeat returns the most recent heartbeat time for the worker.
	LatestHeartbeat(ctx context.Context, id uuid.UUID) (types.Time, error)
}

// TaskStore manages task instances and their results.
type TaskStore interface {
	// CreateTask inserts a new pending, unassigned task.
	CreateTask(ctx context.Context, kindID uuid.UUID, input []byte) (*types.TaskInstance, error)
	// GetTask returns the task, optionally joined with its latest result.
	GetTask(ctx context.Context, id uuid.UUID, includeResult bool) (*types.TaskInstance, error)
	// AssignTask records the selected worker and moves the task to queued.
	AssignTask(ctx context.Context, workerID, taskID uuid.UUID) error
	// UpdateTaskStatus persists the status verbatim.
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status types.TaskStatus) error
	// UploadTaskResult marks the task completed and appends an output row.
	UploadTaskResult(ctx context.Context, taskID, workerID uuid.UUID, output []byte) (*types.TaskResult, error)
	// UploadTaskError marks the task failed and appends an error row.
	UploadTaskError(ctx context.Context, taskID, workerID uuid.UUID, errData []byte) (*types.TaskResult, error)
	// TaskStatusCounts returns the number of tasks in each status. Statuses
	// with no tasks are absent from the map.
	TaskStatusCounts(ctx context.Context) (map[types.TaskStatus]int, error)
}

// Store bundles the three stores behind one implementation.
type Store interface {
	TaskKindStore
	WorkerStore
	TaskStore
}
