package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TaskKind is a named category of work. Kinds are created on demand the
// first time a task or worker references their name and are never deleted.
type TaskKind struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// NewTaskKind builds a kind with a fresh id. The storage layer may discard
// the proposed id in favor of an existing row with the same name.
func NewTaskKind(name string) TaskKind {
	return TaskKind{ID: uuid.New(), Name: name}
}

// Worker represents a registered task consumer and its capability set.
type Worker struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	RegisteredAt Time       `json:"registered_at"`
	TaskKinds    []TaskKind `json:"task_kinds"`
	Active       bool       `json:"active"`
}

// CanHandle reports whether the worker is eligible for the task. Eligibility
// compares kind names, not ids: a worker whose kind set contains a kind with
// the task's kind name can handle it even if the ids differ.
func (w *Worker) CanHandle(task *TaskInstance) bool {
	for _, k := range w.TaskKinds {
		if k.Name == task.TaskKind.Name {
			return true
		}
	}
	return false
}

// TaskInstance is one submitted unit of work.
type TaskInstance struct {
	ID         uuid.UUID       `json:"id"`
	TaskKind   TaskKind        `json:"task_kind"`
	InputData  json.RawMessage `json:"input_data"`
	Status     TaskStatus      `json:"status"`
	CreatedAt  Time            `json:"created_at"`
	AssignedTo *uuid.UUID      `json:"assigned_to"`
	Result     *TaskResult     `json:"result"`
}

// TaskResult is the recorded outcome of a task execution. Exactly one of
// OutputData and ErrorData is set. Result rows are immutable; a task may
// accumulate several and the newest one wins.
type TaskResult struct {
	TaskID     uuid.UUID       `json:"task_id"`
	WorkerID   uuid.UUID       `json:"worker_id"`
	OutputData json.RawMessage `json:"output_data"`
	ErrorData  json.RawMessage `json:"error_data"`
	CreatedAt  Time            `json:"created_at"`
}

// IsError reports whether the result records a failure.
func (r *TaskResult) IsError() bool {
	return r.OutputData == nil
}
