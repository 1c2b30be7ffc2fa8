// Package manager implements the orchestration core of fasttq. It sits
// between the HTTP API and the infrastructure layers, and is the only
// place where the store, the broker coordinator and the event bus are
// composed into complete operations.
//
// # Submission pipeline
//
// SubmitTask runs the full dispatch sequence for one task:
//
//	client                manager                 store            broker
//	  |                      |                      |                 |
//	  |--- submit(kind) ---->|                      |                 |
//	  |                      |-- get/create kind -->|                 |
//	  |                      |-- create (pending) ->|                 |
//	  |                      |------------- publish(task) ---------->|
//	  |                      |                      |    routed to    |
//	  |                      |                      |   one worker    |
//	  |                      |-- assign (queued) -->|                 |
//	  |<-- task (queued) ----|                      |                 |
//
// The order matters. The task row exists before publication, so a broker
// failure leaves a visible pending task rather than losing the submission.
// Assignment is persisted only after the broker has accepted the message,
// so a queued task always names the worker whose queue holds it.
//
// # Worker lifecycle
//
// RegisterWorker persists the worker before binding its queue; a worker
// that exists in the store but not in the broker receives nothing, which
// is the safe direction. UnregisterWorker deactivates the row and drops
// the queue but keeps the record so past results stay attributable.
// RestoreWorkers rebuilds the broker registry from active rows after a
// restart.
//
// Every state change emits an event on the bus and updates the Prometheus
// instruments in pkg/metrics; both are observational and never affect the
// outcome of an operation.
package manager
