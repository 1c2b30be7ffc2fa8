// Package api serves the HTTP surface of fasttq. Every route delegates to
// the manager; the package holds no state of its own beyond the mux.
//
// # Routes
//
//	POST   /tasks                    submit a task, 201 with the queued task
//	GET    /tasks/{id}               fetch a task with its latest result
//	PUT    /tasks/{id}/status        record a worker-reported status
//	PUT    /tasks/{id}/result        record a worker-reported outcome
//	POST   /workers                  register a worker, 201 with its identity
//	GET    /workers                  list workers, active and inactive
//	GET    /workers/{id}             fetch one worker
//	DELETE /workers/{id}             unregister a worker
//	PUT    /workers/{id}/heartbeat   record a liveness report
//	GET    /task-kinds               list the kind catalog
//	GET    /health                   liveness, always 200
//	GET    /ready                    readiness, 503 until critical components are up
//	GET    /healthz                  per-component health detail
//	GET    /metrics                  prometheus exposition
//
// Success bodies are JSON; error bodies are plain text. A missing resource
// is 404, a malformed id or body is 400, an unrecognized status name is 400
// with the message listing every accepted status, and anything else is 500
// carrying the error text.
package api
