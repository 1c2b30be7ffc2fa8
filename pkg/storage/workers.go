package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fasttq/fasttq/pkg/types"
)

const workerJoinQuery = `
	SELECT w.id, w.name, w.registered_at, w.active, tk.id, tk.name
	FROM workers w
	LEFT JOIN worker_task_kinds wtk ON wtk.worker_id = w.id
	LEFT JOIN task_kinds tk ON tk.id = wtk.task_kind_id`

// RegisterWorker upserts the worker row and replaces its capability set with
// exactly the provided kinds. The upsert, the association wipe, and the
// re-inserts run in one transaction so a failed registration leaves the
// previous capability set intact.
func (s *Postgres) RegisterWorker(ctx context.Context, id uuid.UUID, name string, kinds []types.TaskKind) (*types.Worker, error) {
	tx, err := s.pools.Writer.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO workers (id, name, registered_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET name = $2`,
		id, name); err != nil {
		return nil, fmt.Errorf("failed to upsert worker: %v", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM worker_task_kinds WHERE worker_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear worker task kinds: %v", err)
	}

	for _, kind := range kinds {
		if _, err := tx.Exec(ctx,
			`INSERT INTO task_kinds (id, name)
			 VALUES ($1, $2)
			 ON CONFLICT (id) DO NOTHING`,
			kind.ID, kind.Name); err != nil {
			return nil, fmt.Errorf("failed to ensure task kind %q: %v", kind.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO worker_task_kinds (worker_id, task_kind_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			id, kind.ID); err != nil {
			return nil, fmt.Errorf("failed to associate task kind %q: %v", kind.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit worker registration: %v", err)
	}

	// Read back the DB-assigned fields.
	var registeredAt time.Time
	var active bool
	err = s.pools.Writer.QueryRow(ctx,
		`SELECT registered_at, active FROM workers WHERE id = $1`, id,
	).Scan(&registeredAt, &active)
	if err != nil {
		return nil, fmt.Errorf("failed to read back worker: %v", err)
	}

	return &types.Worker{
		ID:           id,
		Name:         name,
		RegisteredAt: types.NewTime(registeredAt),
		TaskKinds:    kinds,
		Active:       active,
	}, nil
}

// GetWorker returns the worker with its kinds joined.
func (s *Postgres) GetWorker(ctx context.Context, id uuid.UUID) (*types.Worker, error) {
	rows, err := s.pools.Reader.Query(ctx, workerJoinQuery+` WHERE w.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query worker: %v", err)
	}
	defer rows.Close()

	workers, err := scanWorkers(rows)
	if err != nil {
		return nil, err
	}
	if len(workers) == 0 {
		return nil, ErrNotFound
	}
	return workers[0], nil
}

// ListWorkers returns all workers with their kinds joined.
func (s *Postgres) ListWorkers(ctx context.Context) ([]*types.Worker, error) {
	rows, err := s.pools.Reader.Query(ctx, workerJoinQuery+` ORDER BY w.registered_at, w.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %v", err)
	}
	defer rows.Close()

	return scanWorkers(rows)
}

// SetWorkerActive flips the active flag; the row itself is never deleted.
func (s *Postgres) SetWorkerActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pools.Writer.Exec(ctx,
		`UPDATE workers SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update worker active flag: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordHeartbeat appends a heartbeat row stamped with server time.
func (s *Postgres) RecordHeartbeat(ctx context.Context, id uuid.UUID) error {
	_, err := s.pools.Writer.Exec(ctx,
		`INSERT INTO worker_heartbeats (worker_id, heartbeat_time)
		 VALUES ($1, NOW())`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to record heartbeat: %v", err)
	}
	return nil
}

// LatestHeartbeat returns the most recent heartbeat time for the worker.
func (s *Postgres) LatestHeartbeat(ctx context.Context, id uuid.UUID) (types.Time, error) {
	var ts time.Time
	err := s.pools.Reader.QueryRow(ctx,
		`SELECT heartbeat_time FROM worker_heartbeats
		 WHERE worker_id = $1
		 ORDER BY heartbeat_time DESC
		 LIMIT 1`, id,
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Time{}, ErrNotFound
	}
	if err != nil {
		return types.Time{}, fmt.Errorf("failed to query latest heartbeat: %v", err)
	}
	return types.NewTime(ts), nil
}

// scanWorkers folds joined worker/kind rows into Worker records, preserving
// first-seen order.
func scanWorkers(rows pgx.Rows) ([]*types.Worker, error) {
	byID := make(map[uuid.UUID]*types.Worker)
	var order []uuid.UUID

	for rows.Next() {
		var (
			id           uuid.UUID
			name         string
			registeredAt time.Time
			active       bool
			kindID       *uuid.UUID
			kindName     *string
		)
		if err := rows.Scan(&id, &name, &registeredAt, &active, &kindID, &kindName); err != nil {
			return nil, fmt.Errorf("failed to scan worker row: %v", err)
		}

		worker, ok := byID[id]
		if !ok {
			worker = &types.Worker{
				ID:           id,
				Name:         name,
				RegisteredAt: types.NewTime(registeredAt),
				Active:       active,
			}
			byID[id] = worker
			order = append(order, id)
		}
		if kindID != nil && kindName != nil {
			worker.TaskKinds = append(worker.TaskKinds, types.TaskKind{ID: *kindID, Name: *kindName})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read worker rows: %v", err)
	}

	workers := make([]*types.Worker, 0, len(order))
	for _, id := range order {
		workers = append(workers, byID[id])
	}
	return workers, nil
}
