// internal/database/db.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRows is returned by single-row lookups that match nothing, by every Store implementation.
var ErrNoRows = pgx.ErrNoRows

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// Store is a Querier that can also run a function inside a transaction.
type Store interface {
	Querier
	// InTx runs fn in a transaction, committing when fn returns nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(Querier) error) error
}

// PgStore is the PostgreSQL Store.
type PgStore struct {
	*Queries
	pool *pgxpool.Pool
}

var _ Store = (*PgStore)(nil)

func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{Queries: New(pool), pool: pool}
}

func (s *PgStore) InTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
