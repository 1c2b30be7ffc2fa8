package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SubmissionExchange is the direct exchange every task dispatch goes through.
const SubmissionExchange = "task_submission"

// HeaderTaskKind is the message header consumers read to identify a
// dispatched task. It carries the task id in canonical string form.
const HeaderTaskKind = "task_kind"

var (
	// ErrNoAvailableWorker is returned when no registered worker can handle
	// the task's kind.
	ErrNoAvailableWorker = errors.New("no available worker")
	// ErrWorkerNotRegistered is returned when an operation references a
	// worker the coordinator does not know.
	ErrWorkerNotRegistered = errors.New("worker not registered")
)

// Core is the low-level broker driver: exchange and queue lifecycle plus
// message publication. Implementations carry no dispatch policy; routing
// decisions live in the Coordinator.
type Core interface {
	// RegisterExchange declares a durable direct exchange. Idempotent.
	RegisterExchange(ctx context.Context, name string) error
	// RegisterQueue declares a durable queue and binds it to the exchange
	// with the given routing key. Idempotent.
	RegisterQueue(ctx context.Context, exchange, queue, routingKey string) error
	// DeleteQueue removes the queue. Deleting a missing queue is not an
	// error.
	DeleteQueue(ctx context.Context, queue string) error
	// DeleteExchange removes the exchange. Deleting a missing exchange is
	// not an error.
	DeleteExchange(ctx context.Context, name string) error
	// Publish sends one persistent message. messageID lands in the message
	// metadata, taskID in the HeaderTaskKind header.
	Publish(ctx context.Context, exchange, routingKey string, payload []byte, messageID, taskID string) error
	// Close releases the underlying connection.
	Close() error
}

// Dial connects a Core for the given broker address. The scheme selects the
// driver; only AMQP is implemented.
func Dial(addr string) (Core, error) {
	switch {
	case strings.HasPrefix(addr, "amqp://"), strings.HasPrefix(addr, "amqps://"):
		return DialAMQP(addr)
	case strings.HasPrefix(addr, "redis://"):
		return nil, fmt.Errorf("redis broker not supported")
	default:
		return nil, fmt.Errorf("invalid broker address %q", addr)
	}
}
