// Package memory is an in-process Store used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
	"github.com/evn/pos_backend/internal/store"
)

type Store struct {
	mu sync.RWMutex

	branches map[string]*models.Branch
	sales    []*models.Sale
	shifts   map[string]*models.Shift
	// branch id -> id of its open shift
	openByBranch map[string]string
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		branches:     make(map[string]*models.Branch),
		sales:        make([]*models.Sale, 0),
		shifts:       make(map[string]*models.Shift),
		openByBranch: make(map[string]string),
	}
}

// Branch Store implementation
func (s *Store) CreateBranch(_ context.Context, b *models.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *b
	s.branches[b.ID] = &cp
	return nil
}

func (s *Store) GetBranch(_ context.Context, branchID string) (*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.branches[branchID]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListBranches(_ context.Context, ownerID string) ([]*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Branch, 0)
	for _, b := range s.branches {
		if b.OwnerID == ownerID {
			cp := *b
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// Sale Store implementation
func (s *Store) InsertSales(_ context.Context, sales []*models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sale := range sales {
		cp := *sale
		s.sales = append(s.sales, &cp)
	}
	return nil
}

func (s *Store) SumCashSales(_ context.Context, branchID string, from, to time.Time) (money.Cents, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total money.Cents
	for _, sale := range s.sales {
		if sale.BranchID != branchID || sale.PaymentMethod != models.PaymentCash || sale.Status != models.SaleClosed {
			continue
		}
		if sale.ClosedAt == nil || sale.ClosedAt.Before(from) || sale.ClosedAt.After(to) {
			continue
		}
		total += sale.Total
	}
	return total, nil
}

// Shift Store implementation
func (s *Store) GetShift(_ context.Context, shiftID string) (*models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sh, ok := s.shifts[shiftID]; ok {
		return copyShift(sh), nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindOpenShift(_ context.Context, branchID string) (*models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.openByBranch[branchID]; ok {
		return copyShift(s.shifts[id]), nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) InsertShift(_ context.Context, sh *models.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sh.IsOpen() {
		if _, exists := s.openByBranch[sh.BranchID]; exists {
			return store.ErrDuplicateOpenShift
		}
		s.openByBranch[sh.BranchID] = sh.ID
	}
	s.shifts[sh.ID] = copyShift(sh)
	return nil
}

func (s *Store) CloseShift(_ context.Context, shiftID string, c models.ShiftClosing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shifts[shiftID]
	if !ok {
		return store.ErrNotFound
	}
	if !sh.IsOpen() {
		return store.ErrShiftNotOpen
	}

	closedAt := c.ClosedAt
	actual, expected, diff := c.ActualCash, c.ExpectedCash, c.Diff
	sh.Status = models.ShiftClosed
	sh.ClosedAt = &closedAt
	sh.ClosingActualCash = &actual
	sh.ClosingExpectedCash = &expected
	sh.ClosingDiff = &diff
	sh.Notes = c.Notes
	sh.UpdatedAt = closedAt
	delete(s.openByBranch, sh.BranchID)
	return nil
}

func (s *Store) ListShifts(_ context.Context, branchID string, limit int) ([]*models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Shift, 0)
	for _, sh := range s.shifts {
		if sh.BranchID == branchID {
			result = append(result, copyShift(sh))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OpenedAt.After(result[j].OpenedAt) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Core methods
func (s *Store) Migrate(context.Context) error { return nil }
func (s *Store) Ping(context.Context) error    { return nil }
func (s *Store) Close() error                  { return nil }

func copyShift(sh *models.Shift) *models.Shift {
	cp := *sh
	return &cp
}
