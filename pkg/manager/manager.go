package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fasttq/fasttq/pkg/broker"
	"github.com/fasttq/fasttq/pkg/events"
	"github.com/fasttq/fasttq/pkg/log"
	"github.com/fasttq/fasttq/pkg/metrics"
	"github.com/fasttq/fasttq/pkg/storage"
	"github.com/fasttq/fasttq/pkg/types"
)

// Manager orchestrates the dispatch pipeline: it owns the store, the broker
// coordinator and the event bus, and implements every operation the HTTP
// API exposes.
type Manager struct {
	store       storage.Store
	coordinator *broker.Coordinator
	events      *events.Bus
	logger      zerolog.Logger
}

// Config holds configuration for creating a Manager
type Config struct {
	Store       storage.Store
	Coordinator *broker.Coordinator
	Events      *events.Bus
}

// NewManager creates a new Manager instance
func NewManager(cfg *Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}

	return &Manager{
		store:       cfg.Store,
		coordinator: cfg.Coordinator,
		events:      cfg.Events,
		logger:      log.WithComponent("manager"),
	}, nil
}

// SubmitTask accepts a new task: the kind is created on first use, the task
// row is inserted as pending, the broker routes it to a capable worker, and
// the assignment is persisted. The returned task reflects the assignment.
//
// When no worker can take the task, the pending row is kept so the
// submission is visible and retriable; nothing is published.
func (m *Manager) SubmitTask(ctx context.Context, kindName string, input json.RawMessage) (*types.TaskInstance, error) {
	timer := metrics.NewTimer()

	kind, err := m.store.GetOrCreate(ctx, kindName)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create task kind: %v", err)
	}

	task, err := m.store.CreateTask(ctx, kind.ID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}
	metrics.TasksSubmitted.WithLabelValues(kind.Name).Inc()
	m.publishEvent(events.NewEvent(events.EventTaskCreated, "task accepted", map[string]string{
		"task_id":   task.ID.String(),
		"task_kind": kind.Name,
	}))

	workerID, err := m.coordinator.Publish(ctx, task)
	if err != nil {
		reason := "publish_error"
		if errors.Is(err, broker.ErrNoAvailableWorker) {
			reason = "no_worker"
		}
		metrics.DispatchFailures.WithLabelValues(reason).Inc()
		return nil, fmt.Errorf("failed to publish task to broker: %v", err)
	}

	if err := m.store.AssignTask(ctx, workerID, task.ID); err != nil {
		metrics.DispatchFailures.WithLabelValues("assign_error").Inc()
		return nil, fmt.Errorf("failed to assign task to worker: %v", err)
	}

	task.Status = types.TaskStatusQueued
	task.AssignedTo = &workerID

	metrics.TasksDispatched.Inc()
	timer.ObserveDuration(metrics.DispatchLatency)
	m.publishEvent(events.NewEvent(events.EventTaskQueued, "task dispatched", map[string]string{
		"task_id":   task.ID.String(),
		"task_kind": kind.Name,
		"worker_id": workerID.String(),
	}))
	m.logger.Info().
		Str("task_id", task.ID.String()).
		Str("task_kind", kind.Name).
		Str("worker_id", workerID.String()).
		Msg("Task submitted")
	return task, nil
}

// GetTask returns the task with its latest result embedded.
func (m *Manager) GetTask(ctx context.Context, id uuid.UUID) (*types.TaskInstance, error) {
	return m.store.GetTask(ctx, id, true)
}

// UpdateTaskStatus persists a worker-reported status. The task is loaded
// first so a missing id surfaces as ErrNotFound before anything is written.
// Transitions are not validated; workers own the lifecycle they report.
func (m *Manager) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status types.TaskStatus) error {
	task, err := m.store.GetTask(ctx, id, false)
	if err != nil {
		return err
	}

	if err := m.store.UpdateTaskStatus(ctx, task.ID, status); err != nil {
		return fmt.Errorf("failed to update task status: %v", err)
	}

	m.publishEvent(events.NewEvent(events.EventTaskStatusChanged, "task status updated", map[string]string{
		"task_id": task.ID.String(),
		"status":  status.String(),
	}))
	m.logger.Debug().
		Str("task_id", task.ID.String()).
		Str("status", status.String()).
		Msg("Task status updated")
	return nil
}

// SubmitTaskResult records a worker-reported outcome. The credited worker is
// the task's assignee; is_error selects between a success upload (task
// moves to completed) and an error upload (task moves to failed).
func (m *Manager) SubmitTaskResult(ctx context.Context, id uuid.UUID, data json.RawMessage, isError bool) (*types.TaskResult, error) {
	task, err := m.store.GetTask(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo == nil {
		return nil, fmt.Errorf("task %s has no assigned worker", id)
	}

	var result *types.TaskResult
	if isError {
		result, err = m.store.UploadTaskError(ctx, task.ID, *task.AssignedTo, data)
	} else {
		result, err = m.store.UploadTaskResult(ctx, task.ID, *task.AssignedTo, data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upload task result: %v", err)
	}

	outcome, eventType, message := "success", events.EventTaskCompleted, "task completed"
	if isError {
		outcome, eventType, message = "error", events.EventTaskFailed, "task failed"
	}
	metrics.ResultsUploaded.WithLabelValues(outcome).Inc()
	m.publishEvent(events.NewEvent(eventType, message, map[string]string{
		"task_id":   task.ID.String(),
		"worker_id": task.AssignedTo.String(),
	}))
	m.logger.Info().
		Str("task_id", task.ID.String()).
		Str("worker_id", task.AssignedTo.String()).
		Bool("is_error", isError).
		Msg("Task result recorded")
	return result, nil
}

// RegisterWorker creates any missing kinds, persists the worker under a
// fresh id, and binds its queue with the coordinator. A worker is only
// dispatchable once both the store and the coordinator know it.
func (m *Manager) RegisterWorker(ctx context.Context, name string, kindNames []string) (*types.Worker, error) {
	kinds := make([]types.TaskKind, 0, len(kindNames))
	for _, kindName := range kindNames {
		kind, err := m.store.GetOrCreate(ctx, kindName)
		if err != nil {
			return nil, fmt.Errorf("failed to get or create task kind: %v", err)
		}
		kinds = append(kinds, *kind)
	}

	id := uuid.New()
	worker, err := m.store.RegisterWorker(ctx, id, name, kinds)
	if err != nil {
		return nil, fmt.Errorf("failed to register worker: %v", err)
	}

	if err := m.coordinator.AddWorker(ctx, worker); err != nil {
		return nil, fmt.Errorf("failed to register worker with broker: %v", err)
	}

	m.publishEvent(events.NewEvent(events.EventWorkerRegistered, "worker registered", map[string]string{
		"worker_id":   worker.ID.String(),
		"worker_name": worker.Name,
	}))
	m.logger.Info().
		Str("worker_id", worker.ID.String()).
		Str("worker_name", worker.Name).
		Int("task_kinds", len(worker.TaskKinds)).
		Msg("Worker registered")
	return worker, nil
}

// UnregisterWorker deactivates the worker and removes it from dispatch. The
// row is kept for attribution of results the worker already produced.
func (m *Manager) UnregisterWorker(ctx context.Context, id uuid.UUID) error {
	if err := m.store.SetWorkerActive(ctx, id, false); err != nil {
		return err
	}

	if err := m.coordinator.RemoveWorker(ctx, id); err != nil {
		return fmt.Errorf("failed to unregister worker from broker: %v", err)
	}

	m.publishEvent(events.NewEvent(events.EventWorkerUnregistered, "worker unregistered", map[string]string{
		"worker_id": id.String(),
	}))
	m.logger.Info().Str("worker_id", id.String()).Msg("Worker unregistered")
	return nil
}

// GetWorker returns the worker with its capability set.
func (m *Manager) GetWorker(ctx context.Context, id uuid.UUID) (*types.Worker, error) {
	return m.store.GetWorker(ctx, id)
}

// ListWorkers returns every known worker, active or not.
func (m *Manager) ListWorkers(ctx context.Context) ([]*types.Worker, error) {
	return m.store.ListWorkers(ctx)
}

// ListTaskKinds returns the kind catalog.
func (m *Manager) ListTaskKinds(ctx context.Context) ([]*types.TaskKind, error) {
	return m.store.ListTaskKinds(ctx)
}

// RecordHeartbeat appends a liveness report for the worker.
func (m *Manager) RecordHeartbeat(ctx context.Context, id uuid.UUID) error {
	if err := m.store.RecordHeartbeat(ctx, id); err != nil {
		return err
	}

	metrics.HeartbeatsTotal.Inc()
	m.publishEvent(events.NewEvent(events.EventWorkerHeartbeat, "worker heartbeat", map[string]string{
		"worker_id": id.String(),
	}))
	return nil
}

// RestoreWorkers re-registers every active worker with the coordinator.
// Called at startup so a manager restart does not stop dispatch to workers
// that are still consuming their queues.
func (m *Manager) RestoreWorkers(ctx context.Context) (int, error) {
	workers, err := m.store.ListWorkers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list workers: %v", err)
	}

	restored := 0
	for _, worker := range workers {
		if !worker.Active {
			continue
		}
		if err := m.coordinator.AddWorker(ctx, worker); err != nil {
			return restored, fmt.Errorf("failed to restore worker %s: %v", worker.ID, err)
		}
		restored++
	}

	if restored > 0 {
		m.logger.Info().Int("workers", restored).Msg("Restored worker registry")
	}
	return restored, nil
}

// PublishEvent publishes an event to all subscribers
func (m *Manager) PublishEvent(event *events.Event) {
	m.publishEvent(event)
}

func (m *Manager) publishEvent(event *events.Event) {
	if m.events != nil {
		m.events.Publish(event)
	}
}
