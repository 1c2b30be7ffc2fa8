package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fasttq/fasttq/pkg/log"
	"github.com/fasttq/fasttq/pkg/types"
)

// Coordinator owns the worker registry and routes each task to exactly one
// capable worker. Every worker gets a private durable queue, named by its
// id and bound to the shared submission exchange with the same id as the
// routing key, so publishing to the worker's id reaches only that worker.
//
// A single mutex guards the registry, the round-robin cursor, and the
// publish itself. Holding it across the broker call means a selected worker
// cannot be removed between selection and delivery.
type Coordinator struct {
	core     Core
	exchange string
	logger   zerolog.Logger

	mu      sync.Mutex
	workers []*types.Worker
	cursor  int
}

// NewCoordinator declares the submission exchange and returns a coordinator
// with an empty registry.
func NewCoordinator(ctx context.Context, core Core) (*Coordinator, error) {
	c := &Coordinator{
		core:     core,
		exchange: SubmissionExchange,
		logger:   log.WithComponent("broker"),
	}
	if err := core.RegisterExchange(ctx, c.exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %v", c.exchange, err)
	}
	return c, nil
}

// AddWorker declares the worker's queue and adds the worker to the registry.
// Re-adding a known id replaces the stored worker in place, so a worker can
// refresh its capabilities without losing its registry slot.
func (c *Coordinator) AddWorker(ctx context.Context, worker *types.Worker) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := worker.ID.String()
	if err := c.core.RegisterQueue(ctx, c.exchange, queue, queue); err != nil {
		return fmt.Errorf("failed to declare queue for worker %s: %v", worker.ID, err)
	}

	for i, existing := range c.workers {
		if existing.ID == worker.ID {
			c.workers[i] = worker
			c.logger.Debug().Str("worker_id", queue).Msg("Replaced registered worker")
			return nil
		}
	}
	c.workers = append(c.workers, worker)
	c.logger.Debug().Str("worker_id", queue).Int("registry_size", len(c.workers)).Msg("Registered worker")
	return nil
}

// RemoveWorker deletes the worker's queue and drops it from the registry.
// Returns ErrWorkerNotRegistered when the id is unknown.
func (c *Coordinator) RemoveWorker(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, worker := range c.workers {
		if worker.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrWorkerNotRegistered
	}

	if err := c.core.DeleteQueue(ctx, id.String()); err != nil {
		return fmt.Errorf("failed to delete queue for worker %s: %v", id, err)
	}

	c.workers = append(c.workers[:idx], c.workers[idx+1:]...)
	if idx < c.cursor {
		c.cursor--
	}
	if len(c.workers) == 0 {
		c.cursor = 0
	} else {
		c.cursor %= len(c.workers)
	}
	c.logger.Debug().Str("worker_id", id.String()).Int("registry_size", len(c.workers)).Msg("Unregistered worker")
	return nil
}

// Publish routes the task to the next capable worker after the cursor and
// returns that worker's id. The cursor advances past every probed worker,
// capable or not, so load spreads across the registry instead of pinning
// each kind to the first worker that handles it.
func (c *Coordinator) Publish(ctx context.Context, task *types.TaskInstance) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.workers)
	if n == 0 {
		return uuid.Nil, ErrNoAvailableWorker
	}
	if c.cursor >= n {
		c.cursor = 0
	}

	var selected *types.Worker
	for i := 0; i < n; i++ {
		worker := c.workers[c.cursor]
		c.cursor = (c.cursor + 1) % n
		if worker.CanHandle(task) {
			selected = worker
			break
		}
	}
	if selected == nil {
		return uuid.Nil, ErrNoAvailableWorker
	}

	payload := []byte(task.InputData)
	if payload == nil {
		payload = []byte("null")
	}

	taskID := task.ID.String()
	if err := c.core.Publish(ctx, c.exchange, selected.ID.String(), payload, taskID, taskID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish task %s: %v", taskID, err)
	}
	c.logger.Debug().
		Str("task_id", taskID).
		Str("task_kind", task.TaskKind.Name).
		Str("worker_id", selected.ID.String()).
		Msg("Dispatched task")
	return selected.ID, nil
}

// WorkerCount reports the registry size.
func (c *Coordinator) WorkerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workers)
}

// Close tears down the underlying broker connection.
func (c *Coordinator) Close() error {
	return c.core.Close()
}
