package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TaskStatus
		wantErr bool
	}{
		{name: "lowercase pending", input: "pending", want: TaskStatusPending},
		{name: "lowercase queued", input: "queued", want: TaskStatusQueued},
		{name: "lowercase running", input: "running", want: TaskStatusRunning},
		{name: "lowercase completed", input: "completed", want: TaskStatusCompleted},
		{name: "lowercase failed", input: "failed", want: TaskStatusFailed},
		{name: "lowercase cancelled", input: "cancelled", want: TaskStatusCancelled},
		{name: "uppercase", input: "RUNNING", want: TaskStatusRunning},
		{name: "mixed case", input: "CoMpLeTeD", want: TaskStatusCompleted},
		{name: "extended accepted", input: "accepted", want: TaskStatusAccepted},
		{name: "extended paused", input: "paused", want: TaskStatusPaused},
		{name: "extended retrying", input: "retrying", want: TaskStatusRetrying},
		{name: "extended timeout", input: "timeout", want: TaskStatusTimeout},
		{name: "extended rejected", input: "rejected", want: TaskStatusRejected},
		{name: "extended blocked", input: "blocked", want: TaskStatusBlocked},
		{name: "unknown status", input: "exploded", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "whitespace padding rejected", input: " pending ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "valid statuses")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	terminal := []TaskStatus{TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), "%s should be terminal", status)
	}

	nonTerminal := []TaskStatus{
		TaskStatusPending, TaskStatusQueued, TaskStatusRunning,
		TaskStatusAccepted, TaskStatusPaused, TaskStatusRetrying,
		TaskStatusTimeout, TaskStatusRejected, TaskStatusBlocked,
	}
	for _, status := range nonTerminal {
		assert.False(t, status.IsTerminal(), "%s should not be terminal", status)
	}
}

func TestTaskStatusSerializesLowercase(t *testing.T) {
	status, err := ParseTaskStatus("QUEUED")
	require.NoError(t, err)
	assert.Equal(t, "queued", status.String())
}
