// Package broker routes tasks to workers over AMQP.
//
// The package splits into two layers. Core is the wire driver: it declares
// exchanges and queues, publishes messages, and knows nothing about workers
// or capabilities. Coordinator sits on top and owns the dispatch policy:
// which worker receives which task.
//
// # Topology
//
// All dispatch flows through one durable direct exchange. Each worker gets
// a private durable queue named by its id, bound with its id as the routing
// key:
//
//	                    task_submission (direct)
//	                   /         |          \
//	       key=uuid-A /  key=uuid-B          \ key=uuid-C
//	                 /           |            \
//	        queue uuid-A   queue uuid-B   queue uuid-C
//	             |               |             |
//	         worker A        worker B      worker C
//
// Publishing with a worker's id as the routing key therefore delivers to
// exactly that worker. Queues and the exchange are durable and messages are
// published persistent, so accepted work survives a broker restart.
//
// # Selection
//
// The coordinator keeps registered workers in insertion order and walks
// them round-robin. A task is offered to the first capable worker at or
// after the cursor; the cursor moves past every probed worker either way.
// If no registered worker handles the task's kind, Publish fails with
// ErrNoAvailableWorker and nothing is sent.
//
// Registry mutation and publishing share one mutex. The lock is held
// across the broker call so a worker selected for a task cannot be
// unregistered before the message is on the wire.
package broker
