/*
Package storage provides Postgres-backed persistence for FastTQ's dispatch state.

The storage package implements the TaskKindStore, WorkerStore, and TaskStore
interfaces on top of jackc/pgx connection pools, covering the full relational
model: the task kind catalog, worker registrations with their capability
associations, heartbeats, task instances, and immutable task results. An
in-memory implementation with identical observable behavior backs unit tests.

# Architecture

The service separates reads from writes at the pool level:

	┌──────────────────── STORAGE LAYER ───────────────────────┐
	│                                                           │
	│  ┌──────────────┐              ┌──────────────┐           │
	│  │ Reader pool  │              │ Writer pool  │           │
	│  │ (replica ok) │              │ (primary)    │           │
	│  └──────┬───────┘              └──────┬───────┘           │
	│         │                             │                   │
	│   standalone reads         mutations + read-after-write   │
	│   GetTask, GetWorker,      GetOrCreate, RegisterWorker,   │
	│   ListWorkers, List...     CreateTask, Assign, Upload...  │
	│                                                           │
	└───────────────────────────────────────────────────────────┘

Both pools may point at the same database; the split exists so reads can be
offloaded to a replica without touching call sites.

# Tables

	task_kinds         id (pk), name (unique)
	workers            id (pk), name, registered_at, active
	worker_task_kinds  worker_id, task_kind_id (composite pk)
	worker_heartbeats  worker_id, heartbeat_time
	tasks              id (pk), task_kind_id, input_data, status,
	                   assigned_to, created_at
	task_results       task_id, worker_id, output_data, error_data,
	                   created_at

Schema migrations are embedded in the binary and applied with golang-migrate
(see Migrate).

# Behavioral Notes

  - Task kind get-or-create upserts on the unique name and RETURNs the row,
    so the existing id always wins; results are memoized in-process since
    kinds are never deleted.
  - Worker registration runs in a transaction: upsert the worker row, wipe
    its kind associations, re-insert the new set. Re-registration preserves
    registered_at and active; only the name and kind set change.
  - Task results are append-only. Reads take the newest row by created_at.
  - Workers and task kinds are never hard-deleted; unregistration merely
    clears the active flag.
*/
package storage
