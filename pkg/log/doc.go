/*
Package log provides structured logging for FastTQ using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Usage

Initialize once at process start, then derive component loggers:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

	logger := log.WithComponent("manager")
	logger.Info().
		Str("task_id", task.ID.String()).
		Str("kind", task.TaskKind.Name).
		Msg("Task submitted")

Console output (JSONOutput: false) renders human-readable lines for local
development; JSON output is intended for production log collection.

# Component Loggers

Every package logs through a child logger tagged with its component name:
api, manager, broker, storage, events, client, worker. Entity-scoped
helpers (WithTaskID, WithWorkerID) add correlation fields for tracing a
single task or worker across components.

# Log Levels

  - debug: Per-message broker traffic, cache hits, selection probes
  - info: Lifecycle events (task submitted, worker registered, server start)
  - warn: Recoverable anomalies (queue delete on missing queue, slow queries)
  - error: Failed operations surfaced to callers

The default level is info.
*/
package log
