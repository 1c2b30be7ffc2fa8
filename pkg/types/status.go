package types

import (
	"fmt"
	"strings"
)

// TaskStatus represents the current lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"

	// Extended states reported by workers with a finer-grained lifecycle.
	TaskStatusAccepted TaskStatus = "accepted"
	TaskStatusPaused   TaskStatus = "paused"
	TaskStatusRetrying TaskStatus = "retrying"
	TaskStatusTimeout  TaskStatus = "timeout"
	TaskStatusRejected TaskStatus = "rejected"
	TaskStatusBlocked  TaskStatus = "blocked"
)

// taskStatuses holds every recognized status in presentation order.
var taskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusQueued,
	TaskStatusRunning,
	TaskStatusCompleted,
	TaskStatusFailed,
	TaskStatusCancelled,
	TaskStatusAccepted,
	TaskStatusPaused,
	TaskStatusRetrying,
	TaskStatusTimeout,
	TaskStatusRejected,
	TaskStatusBlocked,
}

// TaskStatuses returns every recognized status in presentation order.
func TaskStatuses() []TaskStatus {
	return append([]TaskStatus(nil), taskStatuses...)
}

// ParseTaskStatus converts a status name to a TaskStatus. Matching is
// case-insensitive; the stored and serialized form is always lowercase.
func ParseTaskStatus(s string) (TaskStatus, error) {
	candidate := TaskStatus(strings.ToLower(s))
	for _, status := range taskStatuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid task status %q, valid statuses are: %s", s, validStatusNames())
}

func validStatusNames() string {
	names := make([]string, len(taskStatuses))
	for i, status := range taskStatuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}

// IsTerminal reports whether the status ends the task lifecycle.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

func (s TaskStatus) String() string {
	return string(s)
}
