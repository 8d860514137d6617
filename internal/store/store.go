// Package store defines the storage contract shared by the Postgres, Mongo and
// in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateOpenShift is returned when inserting a second open shift
	// for a branch violates the open-shift uniqueness constraint.
	ErrDuplicateOpenShift = errors.New("store: branch already has an open shift")
	// ErrShiftNotOpen is returned by CloseShift when the shift is no longer open.
	ErrShiftNotOpen = errors.New("store: shift is not open")
)

// Store is the unified storage interface.
type Store interface {
	// Branch methods
	CreateBranch(ctx context.Context, b *models.Branch) error
	GetBranch(ctx context.Context, branchID string) (*models.Branch, error)
	ListBranches(ctx context.Context, ownerID string) ([]*models.Branch, error)

	// Sale methods
	InsertSales(ctx context.Context, sales []*models.Sale) error
	// SumCashSales totals closed cash sales of a branch with closed_at in [from, to].
	SumCashSales(ctx context.Context, branchID string, from, to time.Time) (money.Cents, error)

	// Shift methods
	GetShift(ctx context.Context, shiftID string) (*models.Shift, error)
	FindOpenShift(ctx context.Context, branchID string) (*models.Shift, error)
	InsertShift(ctx context.Context, s *models.Shift) error
	// CloseShift applies the closing patch only if the shift is still open.
	CloseShift(ctx context.Context, shiftID string, c models.ShiftClosing) error
	// ListShifts returns a branch's shifts, newest opened first.
	ListShifts(ctx context.Context, branchID string, limit int) ([]*models.Shift, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
