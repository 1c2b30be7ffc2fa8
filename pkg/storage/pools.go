package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fasttq/fasttq/pkg/log"
)

// Pools holds the reader and writer connection pools. Deployments with a
// single database point both at the same DSN; the split lets reads go to a
// replica.
type Pools struct {
	Reader *pgxpool.Pool
	Writer *pgxpool.Pool
}

// NewPools connects both pools and verifies connectivity with a ping.
func NewPools(ctx context.Context, readerURL, writerURL string) (*Pools, error) {
	reader, err := newPool(ctx, readerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect reader pool: %v", err)
	}

	writer, err := newPool(ctx, writerURL)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to connect writer pool: %v", err)
	}

	logger := log.WithComponent("storage")
	logger.Info().
		Int32("reader_max_conns", reader.Config().MaxConns).
		Int32("writer_max_conns", writer.Config().MaxConns).
		Msg("Database pools established")

	return &Pools{Reader: reader, Writer: writer}, nil
}

func newPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %v", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %v", err)
	}

	// Test the connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	return pool, nil
}

// Ping verifies both pools are reachable.
func (p *Pools) Ping(ctx context.Context) error {
	if err := p.Reader.Ping(ctx); err != nil {
		return fmt.Errorf("reader pool unreachable: %v", err)
	}
	if err := p.Writer.Ping(ctx); err != nil {
		return fmt.Errorf("writer pool unreachable: %v", err)
	}
	return nil
}

// Close closes both pools.
func (p *Pools) Close() {
	if p.Reader != nil {
		p.Reader.Close()
	}
	if p.Writer != nil && p.Writer != p.Reader {
		p.Writer.Close()
	}
}
