package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var dialect = goqu.Dialect("mysql")

// SQLStore is the MySQL implementation of Store.
type SQLStore struct {
	db   *sql.DB
	q    querier
	inTx bool
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

func (s *SQLStore) Companies() CompanyStore { return &CompanyRepo{q: s.q} }
func (s *SQLStore) Bookings() BookingStore  { return &BookingRepo{q: s.q} }
func (s *SQLStore) Users() UserStore        { return &UserRepo{q: s.q} }
func (s *SQLStore) Tokens() TokenStore      { return &TokenRepo{q: s.q} }

// WithinTx begins a transaction unless one is already open, in which case
// fn joins it.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&SQLStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
