package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/fasttq/fasttq/pkg/log"
)

// AMQPCore implements Core on top of a single AMQP connection. Channels are
// cheap; each operation opens its own and closes it when done, so a channel
// exception (for example a declare conflict) never poisons later calls.
type AMQPCore struct {
	conn *amqp.Connection
}

// DialAMQP connects to the broker at addr (amqp:// or amqps://).
func DialAMQP(addr string) (*AMQPCore, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %v", err)
	}
	logger := log.WithComponent("broker")
	logger.Debug().Msg("Connected to AMQP broker")
	return &AMQPCore{conn: conn}, nil
}

// RegisterExchange declares a durable direct exchange.
func (c *AMQPCore) RegisterExchange(ctx context.Context, name string) error {
	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %v", err)
	}
	defer channel.Close()

	if err := channel.ExchangeDeclare(
		name,     // exchange name
		"direct", // exchange type
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %v", name, err)
	}
	return nil
}

// RegisterQueue declares a durable queue and binds it to the exchange with
// the given routing key.
func (c *AMQPCore) RegisterQueue(ctx context.Context, exchange, queue, routingKey string) error {
	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %v", err)
	}
	defer channel.Close()

	if _, err := channel.QueueDeclare(
		queue, // queue name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %v", queue, err)
	}

	if err := channel.QueueBind(
		queue,      // queue name
		routingKey, // routing key
		exchange,   // exchange name
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("failed to bind queue %s to exchange %s: %v", queue, exchange, err)
	}
	return nil
}

// DeleteQueue removes the queue. A missing queue is treated as already
// deleted.
func (c *AMQPCore) DeleteQueue(ctx context.Context, queue string) error {
	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %v", err)
	}
	defer channel.Close()

	if _, err := channel.QueueDelete(
		queue, // queue name
		false, // if-unused
		false, // if-empty
		false, // no-wait
	); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete queue %s: %v", queue, err)
	}
	return nil
}

// DeleteExchange removes the exchange. A missing exchange is treated as
// already deleted.
func (c *AMQPCore) DeleteExchange(ctx context.Context, name string) error {
	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %v", err)
	}
	defer channel.Close()

	if err := channel.ExchangeDelete(
		name,  // exchange name
		false, // if-unused
		false, // no-wait
	); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete exchange %s: %v", name, err)
	}
	return nil
}

// Publish sends one persistent JSON message and waits for the broker to
// confirm it took ownership.
func (c *AMQPCore) Publish(ctx context.Context, exchange, routingKey string, payload []byte, messageID, taskID string) error {
	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %v", err)
	}
	defer channel.Close()

	if err := channel.Confirm(false); err != nil {
		return fmt.Errorf("failed to put channel in confirm mode: %v", err)
	}
	confirms := channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	if err := channel.Publish(
		exchange,   // exchange name
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			Headers:      amqp.Table{HeaderTaskKind: taskID},
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
		},
	); err != nil {
		return fmt.Errorf("failed to publish message %s: %v", messageID, err)
	}

	select {
	case confirmed := <-confirms:
		if !confirmed.Ack {
			return fmt.Errorf("broker rejected message %s, delivery tag %d", messageID, confirmed.DeliveryTag)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Close shuts down the underlying connection and every channel opened from
// it.
func (c *AMQPCore) Close() error {
	return c.conn.Close()
}

// Consume opens a dedicated channel and starts delivering messages from the
// queue. Deliveries require explicit acknowledgement. The channel is closed
// when ctx is cancelled.
func (c *AMQPCore) Consume(ctx context.Context, queue, consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	channel, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %v", err)
	}

	if err := channel.Qos(
		prefetch, // prefetch count
		0,        // prefetch size
		false,    // global
	); err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to set channel QoS: %v", err)
	}

	deliveries, err := channel.Consume(
		queue,       // queue name
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to consume from queue %s: %v", queue, err)
	}

	go func() {
		<-ctx.Done()
		channel.Close()
	}()
	return deliveries, nil
}

func isNotFound(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) && amqpErr.Code == amqp.NotFound
}
