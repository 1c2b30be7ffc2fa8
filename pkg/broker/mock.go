package broker

import (
	"context"
	"sync"
)

// BoundQueue records a RegisterQueue call.
type BoundQueue struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// PublishedMessage records a Publish call.
type PublishedMessage struct {
	Exchange   string
	RoutingKey string
	Payload    []byte
	MessageID  string
	TaskID     string
}

// MockCore is an in-memory Core that records every call. Tests can point
// the error fields at a failure to exercise broker error paths.
type MockCore struct {
	mu sync.Mutex

	ExchangeErr error
	QueueErr    error
	DeleteErr   error
	PublishErr  error

	exchanges        []string
	queues           []BoundQueue
	deletedQueues    []string
	deletedExchanges []string
	publishes        []PublishedMessage
}

// NewMockCore returns an empty recording core.
func NewMockCore() *MockCore {
	return &MockCore{}
}

func (m *MockCore) RegisterExchange(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExchangeErr != nil {
		return m.ExchangeErr
	}
	m.exchanges = append(m.exchanges, name)
	return nil
}

func (m *MockCore) RegisterQueue(ctx context.Context, exchange, queue, routingKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueueErr != nil {
		return m.QueueErr
	}
	m.queues = append(m.queues, BoundQueue{Exchange: exchange, Queue: queue, RoutingKey: routingKey})
	return nil
}

func (m *MockCore) DeleteQueue(ctx context.Context, queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.deletedQueues = append(m.deletedQueues, queue)
	return nil
}

func (m *MockCore) DeleteExchange(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.deletedExchanges = append(m.deletedExchanges, name)
	return nil
}

func (m *MockCore) Publish(ctx context.Context, exchange, routingKey string, payload []byte, messageID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	m.publishes = append(m.publishes, PublishedMessage{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Payload:    body,
		MessageID:  messageID,
		TaskID:     taskID,
	})
	return nil
}

func (m *MockCore) Close() error {
	return nil
}

// Exchanges returns the declared exchange names in call order.
func (m *MockCore) Exchanges() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.exchanges...)
}

// Queues returns the declared queue bindings in call order.
func (m *MockCore) Queues() []BoundQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BoundQueue(nil), m.queues...)
}

// DeletedQueues returns the deleted queue names in call order.
func (m *MockCore) DeletedQueues() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedQueues...)
}

// DeletedExchanges returns the deleted exchange names in call order.
func (m *MockCore) DeletedExchanges() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedExchanges...)
}

// Publishes returns the published messages in call order.
func (m *MockCore) Publishes() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.publishes...)
}
