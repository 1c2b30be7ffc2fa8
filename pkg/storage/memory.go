package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fasttq/fasttq/pkg/types"
)

// MemoryStore is an in-process Store used by tests and local development.
// It reproduces the Postgres store's observable behavior: idempotent kind
// upserts, full kind-set replacement on registration, preserved
// registered_at/active on re-registration, and newest-wins results.
type MemoryStore struct {
	mu         sync.RWMutex
	kindsByID  map[uuid.UUID]*types.TaskKind
	kindNames  map[string]uuid.UUID
	workers    map[uuid.UUID]*memoryWorker
	tasks      map[uuid.UUID]*memoryTask
	heartbeats map[uuid.UUID][]time.Time
}

type memoryWorker struct {
	id           uuid.UUID
	name         string
	registeredAt time.Time
	active       bool
	kinds        []types.TaskKind
}

type memoryTask struct {
	id         uuid.UUID
	kindID     uuid.UUID
	input      []byte
	status     types.TaskStatus
	createdAt  time.Time
	assignedTo *uuid.UUID
	results    []types.TaskResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kindsByID:  make(map[uuid.UUID]*types.TaskKind),
		kindNames:  make(map[string]uuid.UUID),
		workers:    make(map[uuid.UUID]*memoryWorker),
		tasks:      make(map[uuid.UUID]*memoryTask),
		heartbeats: make(map[uuid.UUID][]time.Time),
	}
}

// GetOrCreate returns the kind with the given name, creating it when missing.
func (s *MemoryStore) GetOrCreate(ctx context.Context, name string) (*types.TaskKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.kindNames[name]; ok {
		kind := *s.kindsByID[id]
		return &kind, nil
	}

	kind := types.NewTaskKind(name)
	s.kindsByID[kind.ID] = &kind
	s.kindNames[name] = kind.ID
	out := kind
	return &out, nil
}

// ListTaskKinds returns every known kind.
func (s *MemoryStore) ListTaskKinds(ctx context.Context) ([]*types.TaskKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]*types.TaskKind, 0, len(s.kindsByID))
	for _, kind := range s.kindsByID {
		k := *kind
		kinds = append(kinds, &k)
	}
	return kinds, nil
}

// RegisterWorker upserts the worker and replaces its kind set.
func (s *MemoryStore) RegisterWorker(ctx context.Context, id uuid.UUID, name string, kinds []types.TaskKind) (*types.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	worker, ok := s.workers[id]
	if !ok {
		worker = &memoryWorker{id: id, registeredAt: time.Now().UTC(), active: true}
		s.workers[id] = worker
	}
	worker.name = name
	worker.kinds = nil
	seen := make(map[uuid.UUID]bool)
	for _, kind := range kinds {
		if seen[kind.ID] {
			continue
		}
		seen[kind.ID] = true
		if _, exists := s.kindsByID[kind.ID]; !exists {
			k := kind
			s.kindsByID[kind.ID] = &k
			if _, taken := s.kindNames[kind.Name]; !taken {
				s.kindNames[kind.Name] = kind.ID
			}
		}
		worker.kinds = append(worker.kinds, kind)
	}

	return workerRecord(worker), nil
}

// GetWorker returns the worker with its kind set.
func (s *MemoryStore) GetWorker(ctx context.Context, id uuid.UUID) (*types.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	worker, ok := s.workers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return workerRecord(worker), nil
}

// ListWorkers returns all workers ordered by registration time.
func (s *MemoryStore) ListWorkers(ctx context.Context) ([]*types.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]*types.Worker, 0, len(s.workers))
	for _, worker := range s.workers {
		workers = append(workers, workerRecord(worker))
	}
	sort.Slice(workers, func(i, j int) bool {
		return workers[i].RegisteredAt.Time.Before(workers[j].RegisteredAt.Time)
	})
	return workers, nil
}

// SetWorkerActive flips the active flag.
func (s *MemoryStore) SetWorkerActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	worker, ok := s.workers[id]
	if !ok {
		return ErrNotFound
	}
	worker.active = active
	return nil
}

// RecordHeartbeat appends a heartbeat for the worker.
func (s *MemoryStore) RecordHeartbeat(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workers[id]; !ok {
		return ErrNotFound
	}
	s.heartbeats[id] = append(s.heartbeats[id], time.Now().UTC())
	return nil
}

// LatestHeartbeat returns the most recent heartbeat for the worker.
func (s *MemoryStore) LatestHeartbeat(ctx context.Context, id uuid.UUID) (types.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	beats := s.heartbeats[id]
	if len(beats) == 0 {
		return types.Time{}, ErrNotFound
	}
	return types.NewTime(beats[len(beats)-1]), nil
}

// CreateTask inserts a pending, unassigned task.
func (s *MemoryStore) CreateTask(ctx context.Context, kindID uuid.UUID, input []byte) (*types.TaskInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kindsByID[kindID]; !ok {
		return nil, fmt.Errorf("unknown task kind id %s", kindID)
	}

	task := &memoryTask{
		id:        uuid.New(),
		kindID:    kindID,
		input:     input,
		status:    types.TaskStatusPending,
		createdAt: time.Now().UTC(),
	}
	s.tasks[task.id] = task
	return s.taskRecord(task, false), nil
}

// GetTask returns the task, optionally with its newest result.
func (s *MemoryStore) GetTask(ctx context.Context, id uuid.UUID, includeResult bool) (*types.TaskInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.taskRecord(task, includeResult), nil
}

// AssignTask records the worker and moves the task to queued.
func (s *MemoryStore) AssignTask(ctx context.Context, workerID, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	w := workerID
	task.assignedTo = &w
	task.status = types.TaskStatusQueued
	return nil
}

// UpdateTaskStatus persists the status verbatim.
func (s *MemoryStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status types.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.status = status
	return nil
}

// UploadTaskResult marks the task completed and appends an output row.
func (s *MemoryStore) UploadTaskResult(ctx context.Context, taskID, workerID uuid.UUID, output []byte) (*types.TaskResult, error) {
	return s.uploadResult(taskID, workerID, output, nil, types.TaskStatusCompleted)
}

// UploadTaskError marks the task failed and appends an error row.
func (s *MemoryStore) UploadTaskError(ctx context.Context, taskID, workerID uuid.UUID, errData []byte) (*types.TaskResult, error) {
	return s.uploadResult(taskID, workerID, nil, errData, types.TaskStatusFailed)
}

// TaskStatusCounts tallies tasks per status.
func (s *MemoryStore) TaskStatusCounts(ctx context.Context) (map[types.TaskStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[types.TaskStatus]int)
	for _, task := range s.tasks {
		counts[task.status]++
	}
	return counts, nil
}

func (s *MemoryStore) uploadResult(taskID, workerID uuid.UUID, output, errData []byte, status types.TaskStatus) (*types.TaskResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}

	task.status = status
	result := types.TaskResult{
		TaskID:     taskID,
		WorkerID:   workerID,
		OutputData: output,
		ErrorData:  errData,
		CreatedAt:  types.NewTime(time.Now().UTC()),
	}
	task.results = append(task.results, result)
	out := result
	return &out, nil
}

func workerRecord(w *memoryWorker) *types.Worker {
	kinds := make([]types.TaskKind, len(w.kinds))
	copy(kinds, w.kinds)
	return &types.Worker{
		ID:           w.id,
		Name:         w.name,
		RegisteredAt: types.NewTime(w.registeredAt),
		TaskKinds:    kinds,
		Active:       w.active,
	}
}

func (s *MemoryStore) taskRecord(t *memoryTask, includeResult bool) *types.TaskInstance {
	kind := *s.kindsByID[t.kindID]
	task := &types.TaskInstance{
		ID:        t.id,
		TaskKind:  kind,
		InputData: t.input,
		Status:    t.status,
		CreatedAt: types.NewTime(t.createdAt),
	}
	if t.assignedTo != nil {
		w := *t.assignedTo
		task.AssignedTo = &w
	}
	if includeResult && len(t.results) > 0 {
		result := t.results[len(t.results)-1]
		task.Result = &result
	}
	return task
}
