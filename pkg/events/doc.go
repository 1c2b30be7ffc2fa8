/*
Package events provides an in-memory event bus for FastTQ's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting task
and worker lifecycle events to interested subscribers. It supports
asynchronous event delivery with per-subscriber buffering, enabling loose
coupling between the dispatch pipeline and observers such as metrics or
audit logging.

# Architecture

The bus provides non-blocking pub/sub messaging with buffered channels:

	Publisher → Event Channel (buffer: 100)
	     ↓
	Broadcast Loop
	     ↓
	Subscriber Channels (buffer: 50 each)

Publishing never blocks the dispatch path: events land in a buffered channel
and a single broadcast loop fans them out. A subscriber whose buffer is full
misses the event rather than stalling everyone else.

# Event Types

Task events:
  - task.created: a submission was accepted and persisted
  - task.queued: the task was published to a worker's queue
  - task.status_changed: a status update was recorded
  - task.completed: a success result was uploaded
  - task.failed: an error result was uploaded

Worker events:
  - worker.registered: a worker joined and its queue was bound
  - worker.unregistered: a worker was deactivated and its queue deleted
  - worker.heartbeat: a liveness report was recorded

# Usage

Creating and starting the bus:

	bus := events.NewBus()
	bus.Start()
	defer bus.Stop()

Subscribing:

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("%s: %s\n", event.Type, event.Message)
		}
	}()

Publishing:

	bus.Publish(events.NewEvent(events.EventTaskCreated,
		"task accepted",
		map[string]string{"task_id": id, "task_kind": kind}))

# Delivery Semantics

Delivery is best effort and fire-and-forget: there is no acknowledgment, no
replay, and no ordering guarantee across subscribers. State changes that
matter are persisted by pkg/storage before any event is published; the bus
exists for observation, never for correctness.
*/
package events
