package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CharlieJ515/lol-collector/internal/riot"
)

// Store bundles the pool with its query set. It is the concrete
// implementation behind the collector's store interfaces.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

// InsertMatch normalizes and persists one match in a transaction.
func (s *Store) InsertMatch(ctx context.Context, m riot.Match) error {
	return InsertMatch(ctx, s.pool, m)
}

// Pool exposes the underlying pool for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
