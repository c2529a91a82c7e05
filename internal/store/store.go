// Package store implements the reminder engine's Source and Ledger
// interfaces on Postgres via pgxpool.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/76ahmad/DRVN/internal/reminder"
)

// Store holds the shared connection pool for all queries.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface checks.
var (
	_ reminder.Source = (*Store)(nil)
	_ reminder.Ledger = (*Store)(nil)
)
