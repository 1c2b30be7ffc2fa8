package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fasttq/fasttq/pkg/types"
)

// CreateTask inserts a new task with status pending and no assignment.
func (s *Postgres) CreateTask(ctx context.Context, kindID uuid.UUID, input []byte) (*types.TaskInstance, error) {
	id := uuid.New()
	var createdAt time.Time
	err := s.pools.Writer.QueryRow(ctx,
		`INSERT INTO tasks (id, task_kind_id, input_data, status, assigned_to)
		 VALUES ($1, $2, $3, $4, NULL)
		 RETURNING created_at`,
		id, kindID, input, types.TaskStatusPending,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}

	var kind types.TaskKind
	err = s.pools.Writer.QueryRow(ctx,
		`SELECT id, name FROM task_kinds WHERE id = $1`, kindID,
	).Scan(&kind.ID, &kind.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load task kind: %v", err)
	}

	return &types.TaskInstance{
		ID:        id,
		TaskKind:  kind,
		InputData: input,
		Status:    types.TaskStatusPending,
		CreatedAt: types.NewTime(createdAt),
	}, nil
}

// GetTask returns the task, optionally joined with its newest result.
func (s *Postgres) GetTask(ctx context.Context, id uuid.UUID, includeResult bool) (*types.TaskInstance, error) {
	var (
		task       types.TaskInstance
		input      []byte
		status     string
		createdAt  time.Time
		assignedTo *uuid.UUID
	)
	err := s.pools.Reader.QueryRow(ctx,
		`SELECT t.id, tk.id, tk.name, t.input_data, t.status, t.created_at, t.assigned_to
		 FROM tasks t
		 JOIN task_kinds tk ON tk.id = t.task_kind_id
		 WHERE t.id = $1`, id,
	).Scan(&task.ID, &task.TaskKind.ID, &task.TaskKind.Name, &input, &status, &createdAt, &assignedTo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %v", err)
	}

	task.InputData = input
	task.Status = types.TaskStatus(status)
	task.CreatedAt = types.NewTime(createdAt)
	task.AssignedTo = assignedTo

	if includeResult {
		result, err := s.latestResult(ctx, id)
		if err != nil {
			return nil, err
		}
		task.Result = result
	}
	return &task, nil
}

// latestResult returns the newest result row for the task, or nil when the
// task has none.
func (s *Postgres) latestResult(ctx context.Context, taskID uuid.UUID) (*types.TaskResult, error) {
	var (
		result    types.TaskResult
		output    []byte
		errData   []byte
		createdAt time.Time
	)
	err := s.pools.Reader.QueryRow(ctx,
		`SELECT task_id, worker_id, output_data, error_data, created_at
		 FROM task_results
		 WHERE task_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, taskID,
	).Scan(&result.TaskID, &result.WorkerID, &output, &errData, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task result: %v", err)
	}

	result.OutputData = output
	result.ErrorData = errData
	result.CreatedAt = types.NewTime(createdAt)
	return &result, nil
}

// AssignTask records the selected worker and moves the task to queued.
func (s *Postgres) AssignTask(ctx context.Context, workerID, taskID uuid.UUID) error {
	tag, err := s.pools.Writer.Exec(ctx,
		`UPDATE tasks SET assigned_to = $1, status = $2 WHERE id = $3`,
		workerID, types.TaskStatusQueued, taskID)
	if err != nil {
		return fmt.Errorf("failed to assign task: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTaskStatus persists the status verbatim. Transition validation is
// deliberately absent; workers own the lifecycle they report.
func (s *Postgres) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status types.TaskStatus) error {
	tag, err := s.pools.Writer.Exec(ctx,
		`UPDATE tasks SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UploadTaskResult marks the task completed and appends an output row in one
// transaction.
func (s *Postgres) UploadTaskResult(ctx context.Context, taskID, workerID uuid.UUID, output []byte) (*types.TaskResult, error) {
	return s.uploadResult(ctx, taskID, workerID, output, nil, types.TaskStatusCompleted)
}

// UploadTaskError marks the task failed and appends an error row in one
// transaction.
func (s *Postgres) UploadTaskError(ctx context.Context, taskID, workerID uuid.UUID, errData []byte) (*types.TaskResult, error) {
	return s.uploadResult(ctx, taskID, workerID, nil, errData, types.TaskStatusFailed)
}

// TaskStatusCounts tallies tasks per status for the metrics sweep.
func (s *Postgres) TaskStatusCounts(ctx context.Context) (map[types.TaskStatus]int, error) {
	rows, err := s.pools.Reader.Query(ctx,
		`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %v", err)
	}
	defer rows.Close()

	counts := make(map[types.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %v", err)
		}
		counts[types.TaskStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %v", err)
	}
	return counts, nil
}

func (s *Postgres) uploadResult(ctx context.Context, taskID, workerID uuid.UUID, output, errData []byte, status types.TaskStatus) (*types.TaskResult, error) {
	tx, err := s.pools.Writer.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET status = $1 WHERE id = $2`, status, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	var (
		result       types.TaskResult
		outputStored []byte
		errStored    []byte
		createdAt    time.Time
	)
	err = tx.QueryRow(ctx,
		`INSERT INTO task_results (task_id, worker_id, output_data, error_data)
		 VALUES ($1, $2, $3, $4)
		 RETURNING task_id, worker_id, output_data, error_data, created_at`,
		taskID, workerID, output, errData,
	).Scan(&result.TaskID, &result.WorkerID, &outputStored, &errStored, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task result: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit task result: %v", err)
	}

	result.OutputData = outputStored
	result.ErrorData = errStored
	result.CreatedAt = types.NewTime(createdAt)
	return &result, nil
}
