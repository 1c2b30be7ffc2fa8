package storage

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/fasttq/fasttq/pkg/log"
)

const (
	kindCacheExpiration = 10 * time.Minute
	kindCacheCleanup    = 30 * time.Minute
)

// Postgres implements Store on top of a reader/writer pool pair. Mutations
// and read-after-write lookups go to the writer pool; standalone reads go to
// the reader pool so they can be served by a replica.
type Postgres struct {
	pools     *Pools
	kindCache *gocache.Cache
	logger    zerolog.Logger
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pools *Pools) *Postgres {
	return &Postgres{
		pools:     pools,
		kindCache: gocache.New(kindCacheExpiration, kindCacheCleanup),
		logger:    log.WithComponent("storage"),
	}
}

// Postgres error code for foreign key violations.
const fkViolationCode = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == fkViolationCode
}
