package storage

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"github.com/fasttq/fasttq/pkg/types"
)

// GetOrCreate returns the task kind with the given name, inserting it when
// missing. The upsert keeps the existing id on conflict, so concurrent calls
// with the same name all converge on one row. Known kinds are memoized;
// kinds are never deleted, which makes positive caching safe.
func (s *Postgres) GetOrCreate(ctx context.Context, name string) (*types.TaskKind, error) {
	if cached, ok := s.kindCache.Get(name); ok {
		if kind, ok := cached.(*types.TaskKind); ok {
			s.logger.Debug().Str("kind", name).Msg("Task kind cache hit")
			return kind, nil
		}
	}

	proposed := types.NewTaskKind(name)
	var kind types.TaskKind
	err := s.pools.Writer.QueryRow(ctx,
		`INSERT INTO task_kinds (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = $2
		 RETURNING id, name`,
		proposed.ID, name,
	).Scan(&kind.ID, &kind.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create task kind %q: %v", name, err)
	}

	s.kindCache.Set(name, &kind, gocache.DefaultExpiration)
	return &kind, nil
}

// ListTaskKinds returns every known kind.
func (s *Postgres) ListTaskKinds(ctx context.Context) ([]*types.TaskKind, error) {
	rows, err := s.pools.Reader.Query(ctx,
		`SELECT id, name FROM task_kinds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list task kinds: %v", err)
	}
	defer rows.Close()

	var kinds []*types.TaskKind
	for rows.Next() {
		var kind types.TaskKind
		if err := rows.Scan(&kind.ID, &kind.Name); err != nil {
			return nil, fmt.Errorf("failed to scan task kind: %v", err)
		}
		kinds = append(kinds, &kind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task kinds: %v", err)
	}
	return kinds, nil
}
