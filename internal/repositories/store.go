package repositories

import (
	"context"
	"database/sql"

	"github.com/evn/pos_backend/db"
	"github.com/evn/pos_backend/internal/store"
)

// Store is the Postgres backend: the three repositories sharing one pool.
type Store struct {
	*BranchRepository
	*SaleRepository
	*ShiftRepository

	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(conn *sql.DB) *Store {
	return &Store{
		BranchRepository: NewBranchRepository(conn),
		SaleRepository:   NewSaleRepository(conn),
		ShiftRepository:  NewShiftRepository(conn),
		db:               conn,
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, s.db)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
