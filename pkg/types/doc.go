/*
Package types defines the core data structures used throughout FastTQ.

This package contains the fundamental types of the dispatch domain: task
kinds, workers, task instances, task results, and the task status state
machine. These types are shared by the storage, broker, manager, API, and
SDK packages.

# Core Types

  - TaskKind: A named category of work; workers declare the kinds they
    can handle and every task instance references exactly one kind.
  - Worker: A registered consumer with its capability set (task kinds)
    and activity flag.
  - TaskInstance: One submitted unit of work with input payload, status,
    assignment, and (optionally) its latest result.
  - TaskResult: The immutable outcome of a task execution, either output
    data or error data, credited to the executing worker.
  - TaskStatus: Typed string enum for the task lifecycle.
  - Time: UTC timestamp with the wire format shared by the HTTP API and
    persisted rows.

# Status State Machine

Tasks move through the following states:

	Pending → Queued → Running → Completed
	                      ↓
	                   Failed / Cancelled

Pending is assigned at creation, Queued after the broker accepted the
dispatch, Running and the terminal states are reported by workers. The
core records status updates verbatim and performs no transition
validation; additional states (accepted, paused, retrying, timeout,
rejected, blocked) are recognized on parse for workers that report a
finer-grained lifecycle.

# Serialization

All types carry JSON tags matching the HTTP API field names. Optional
document payloads (task input, result output, result error) are held as
json.RawMessage so arbitrary JSON passes through untouched; a nil
RawMessage serializes as JSON null and maps to SQL NULL in storage.
*/
package types
