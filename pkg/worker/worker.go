package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/fasttq/fasttq/pkg/broker"
	"github.com/fasttq/fasttq/pkg/client"
	"github.com/fasttq/fasttq/pkg/log"
	"github.com/fasttq/fasttq/pkg/types"
)

// Handler processes one task. The input is the task's input document as
// delivered on the wire (JSON, possibly null). The returned document is
// uploaded as the task's output; a non-nil error uploads an error result
// instead.
type Handler func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Config holds worker application configuration
type Config struct {
	Name              string
	ManagerAddr       string
	BrokerAddr        string
	Prefetch          int           // unacked deliveries in flight, default 1
	HeartbeatInterval time.Duration // default 30s
}

// Application consumes tasks from the worker's queue and runs registered
// handlers against them.
type Application struct {
	name              string
	brokerAddr        string
	prefetch          int
	heartbeatInterval time.Duration
	client            *client.Client
	handlers          map[string]Handler
	logger            zerolog.Logger

	mu       sync.Mutex
	workerID uuid.UUID
}

// NewApplication creates a new worker application
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("worker name is required")
	}
	if cfg.ManagerAddr == "" {
		return nil, fmt.Errorf("manager address is required")
	}
	if cfg.BrokerAddr == "" {
		return nil, fmt.Errorf("broker address is required")
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	heartbeatInterval := cfg.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}

	return &Application{
		name:              cfg.Name,
		brokerAddr:        cfg.BrokerAddr,
		prefetch:          prefetch,
		heartbeatInterval: heartbeatInterval,
		client:            client.NewClient(cfg.ManagerAddr),
		handlers:          make(map[string]Handler),
		logger:            log.WithComponent("worker"),
	}, nil
}

// RegisterHandler registers fn for tasks of the named kind. The set of
// registered kinds becomes the worker's capability set at registration.
func (a *Application) RegisterHandler(kind string, fn Handler) {
	a.handlers[kind] = fn
}

// Handle is a convenience alias for RegisterHandler
func (a *Application) Handle(kind string, fn Handler) {
	a.RegisterHandler(kind, fn)
}

// WorkerID returns the identity assigned by the manager, or uuid.Nil before
// registration completes.
func (a *Application) WorkerID() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workerID
}

func (a *Application) setWorkerID(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.workerID = id
}

// Run registers the worker, consumes its queue and dispatches deliveries to
// handlers until ctx is cancelled. On a clean cancel the worker unregisters
// and Run returns nil; a dropped broker connection unregisters too and
// returns an error.
func (a *Application) Run(ctx context.Context) error {
	if len(a.handlers) == 0 {
		return fmt.Errorf("no task handlers registered")
	}

	kinds := make([]string, 0, len(a.handlers))
	for kind := range a.handlers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	worker, err := a.client.RegisterWorker(a.name, kinds)
	if err != nil {
		return fmt.Errorf("failed to register worker: %v", err)
	}
	a.setWorkerID(worker.ID)
	a.logger.Info().
		Str("worker_id", worker.ID.String()).
		Strs("task_kinds", kinds).
		Msg("Worker registered")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	core, err := broker.DialAMQP(a.brokerAddr)
	if err != nil {
		a.unregister(worker.ID)
		return fmt.Errorf("failed to connect to broker: %v", err)
	}
	defer core.Close()

	deliveries, err := core.Consume(runCtx, worker.ID.String(), a.name, a.prefetch)
	if err != nil {
		a.unregister(worker.ID)
		return fmt.Errorf("failed to consume from queue: %v", err)
	}

	go a.heartbeatLoop(runCtx, worker.ID)

	for delivery := range deliveries {
		a.handleDelivery(runCtx, delivery)
	}

	a.unregister(worker.ID)
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("broker connection closed")
}

func (a *Application) unregister(id uuid.UUID) {
	if err := a.client.UnregisterWorker(id); err != nil {
		a.logger.Warn().Err(err).Str("worker_id", id.String()).Msg("Failed to unregister worker")
		return
	}
	a.logger.Info().Str("worker_id", id.String()).Msg("Worker unregistered")
}

// heartbeatLoop sends periodic liveness reports to the manager
func (a *Application) heartbeatLoop(ctx context.Context, id uuid.UUID) {
	ticker := time.NewTicker(a.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.client.Heartbeat(id); err != nil {
				a.logger.Warn().Err(err).Msg("Heartbeat failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleDelivery runs one delivery through its handler and reports the
// outcome. The message id carries the task id; the task is loaded from the
// manager to learn its kind, since the wire header labeled task_kind
// carries the task id as well.
func (a *Application) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	taskID, err := uuid.Parse(delivery.MessageId)
	if err != nil {
		a.logger.Error().
			Str("message_id", delivery.MessageId).
			Msg("Discarding delivery without a task id")
		_ = delivery.Nack(false, false)
		return
	}

	task, err := a.client.GetTask(taskID)
	if err != nil {
		a.logger.Error().Err(err).
			Str("task_id", taskID.String()).
			Msg("Failed to load task")
		_ = delivery.Nack(false, false)
		return
	}

	handler, ok := a.handlers[task.TaskKind.Name]
	if !ok {
		a.logger.Error().
			Str("task_id", taskID.String()).
			Str("task_kind", task.TaskKind.Name).
			Msg("No handler for task kind")
		a.reportError(taskID, fmt.Sprintf("no handler registered for kind %q", task.TaskKind.Name))
		_ = delivery.Ack(false)
		return
	}

	if err := a.client.UpdateTaskStatus(taskID, types.TaskStatusRunning); err != nil {
		a.logger.Warn().Err(err).Str("task_id", taskID.String()).Msg("Failed to mark task running")
	}

	output, err := handler(ctx, delivery.Body)
	if err != nil {
		a.logger.Info().
			Str("task_id", taskID.String()).
			Str("task_kind", task.TaskKind.Name).
			Err(err).
			Msg("Task failed")
		a.reportError(taskID, err.Error())
		_ = delivery.Ack(false)
		return
	}

	if err := a.client.SubmitTaskResult(taskID, output, false); err != nil {
		a.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("Failed to upload task result")
	} else {
		a.logger.Info().
			Str("task_id", taskID.String()).
			Str("task_kind", task.TaskKind.Name).
			Msg("Task completed")
	}
	_ = delivery.Ack(false)
}

// reportError uploads an error result. The message is serialized as a JSON
// string, matching what consumers of error_data already parse.
func (a *Application) reportError(taskID uuid.UUID, message string) {
	errData, err := json.Marshal(message)
	if err != nil {
		return
	}
	if err := a.client.SubmitTaskResult(taskID, errData, true); err != nil {
		a.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("Failed to report task error")
	}
}
