package store

import (
	"context"
	"database/sql"

	"github.com/ezasdf/users-api/internal/db"
)

// Store vends repositories bound to the connection pool or to a scoped
// transaction.
type Store struct {
	db *sql.DB
}

func New(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// Users returns a repository running each statement on its own connection.
func (s *Store) Users() UserStore {
	return NewUserRepository(s.db)
}

// InTx runs fn with a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, users UserStore) error) error {
	return db.WithTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, NewUserRepository(tx))
	})
}
