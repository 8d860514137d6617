// Package ledger implements the cash-shift lifecycle of a branch: opening a
// shift with a starting float, looking up the active shift, closing it with a
// counted amount, and listing past shifts.
//
// A branch has at most one open shift. The storage layer enforces this with a
// uniqueness constraint on open shifts per branch; the optional Locker only
// narrows the window in which two opens race.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
	"github.com/evn/pos_backend/internal/store"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

// Locker serializes opens of the same branch across instances.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ErrLockBusy is returned by a Locker when another holder owns the key.
var ErrLockBusy = errors.New("ledger: lock busy")

// Publisher receives shift events after a successful open or close.
type Publisher interface {
	Publish(ctx context.Context, ev models.ShiftEvent) error
}

type Service struct {
	store        store.Store
	locker       Locker
	publisher    Publisher
	log          *logrus.Logger
	now          func() time.Time
	historyLimit int
}

type Option func(*Service)

func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l *logrus.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:        st,
		log:          config.GetLogger(),
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type OpenInput struct {
	BranchID    string
	StaffID     *string
	OpeningCash money.Cents
}

// Open starts a new shift for a branch owned by the caller.
func (s *Service) Open(ctx context.Context, in OpenInput) (*models.Shift, error) {
	accountID, ok := config.AccountIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if _, err := s.ownedBranch(ctx, accountID, in.BranchID); err != nil {
		return nil, err
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "shift:open:"+in.BranchID)
		if errors.Is(err, ErrLockBusy) {
			return nil, errShiftAlreadyOpen
		}
		if err != nil {
			// The store's uniqueness constraint still guards the open.
			config.LogError(s.log, "ledger", "Open", "acquire open lock", in.BranchID, err)
		} else {
			defer unlock()
		}
	}

	if _, err := s.store.FindOpenShift(ctx, in.BranchID); err == nil {
		return nil, errShiftAlreadyOpen
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find open shift: %w", err)
	}

	if in.OpeningCash.IsNegative() {
		return nil, errNegativeOpening
	}

	now := s.now()
	shift := &models.Shift{
		ID:          uuid.NewString(),
		BranchID:    in.BranchID,
		StaffID:     normalizeOptional(in.StaffID),
		OpenedAt:    now,
		OpeningCash: in.OpeningCash,
		Status:      models.ShiftOpen,
		UpdatedAt:   now,
	}
	if err := s.store.InsertShift(ctx, shift); err != nil {
		if errors.Is(err, store.ErrDuplicateOpenShift) {
			return nil, errShiftAlreadyOpen
		}
		return nil, fmt.Errorf("insert shift: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"module":   "ledger",
		"branch":   shift.BranchID,
		"shift":    shift.ID,
		"opening":  shift.OpeningCash.String(),
		"operator": accountID,
	}).Info("shift opened")
	s.publish(ctx, models.ShiftEvent{
		Type:     models.EventShiftOpened,
		BranchID: shift.BranchID,
		ShiftID:  shift.ID,
		At:       now,
		Shift:    shift,
	})
	return shift, nil
}

// Active returns the open shift of a branch with its running cash totals, or
// nil when the branch is unknown, not the caller's, or has no open shift.
func (s *Service) Active(ctx context.Context, branchID string) (*models.ActiveShift, error) {
	accountID, ok := config.AccountIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if _, err := s.ownedBranch(ctx, accountID, branchID); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPermissionDenied) {
			return nil, nil
		}
		return nil, err
	}

	shift, err := s.store.FindOpenShift(ctx, branchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open shift: %w", err)
	}

	total, err := s.store.SumCashSales(ctx, branchID, shift.OpenedAt, s.now())
	if err != nil {
		return nil, fmt.Errorf("sum cash sales: %w", err)
	}
	return &models.ActiveShift{
		Shift:          shift,
		CashSalesTotal: total,
		ExpectedCash:   shift.OpeningCash + total,
	}, nil
}

type CloseInput struct {
	ShiftID    string
	ActualCash money.Cents
	Notes      *string
}

// Close reconciles and closes an open shift.
func (s *Service) Close(ctx context.Context, in CloseInput) (*models.CloseResult, error) {
	accountID, ok := config.AccountIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	shift, err := s.store.GetShift(ctx, in.ShiftID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shift: %w", err)
	}
	if _, err := s.ownedBranch(ctx, accountID, shift.BranchID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errBranchForbidden
		}
		return nil, err
	}
	if !shift.IsOpen() {
		return nil, errShiftClosed
	}
	if in.ActualCash.IsNegative() {
		return nil, errNegativeActual
	}

	now := s.now()
	total, err := s.store.SumCashSales(ctx, shift.BranchID, shift.OpenedAt, now)
	if err != nil {
		return nil, fmt.Errorf("sum cash sales: %w", err)
	}
	expected := shift.OpeningCash + total
	diff := in.ActualCash - expected

	closing := models.ShiftClosing{
		ClosedAt:     now,
		ActualCash:   in.ActualCash,
		ExpectedCash: expected,
		Diff:         diff,
		Notes:        normalizeOptional(in.Notes),
	}
	if err := s.store.CloseShift(ctx, shift.ID, closing); err != nil {
		if errors.Is(err, store.ErrShiftNotOpen) {
			return nil, errShiftClosed
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, errShiftNotFound
		}
		return nil, fmt.Errorf("close shift: %w", err)
	}

	result := &models.CloseResult{
		ExpectedCash:   expected,
		CashSalesTotal: total,
		ClosingDiff:    diff,
	}
	s.log.WithFields(logrus.Fields{
		"module":   "ledger",
		"branch":   shift.BranchID,
		"shift":    shift.ID,
		"expected": expected.String(),
		"actual":   in.ActualCash.String(),
		"diff":     diff.String(),
	}).Info("shift closed")
	s.publish(ctx, models.ShiftEvent{
		Type:     models.EventShiftClosed,
		BranchID: shift.BranchID,
		ShiftID:  shift.ID,
		At:       now,
		Result:   result,
	})
	return result, nil
}

// History lists a branch's shifts, newest opened first. limit <= 0 means the
// configured default.
func (s *Service) History(ctx context.Context, branchID string, limit int) ([]*models.HistoryEntry, error) {
	accountID, ok := config.AccountIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if _, err := s.ownedBranch(ctx, accountID, branchID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	shifts, err := s.store.ListShifts(ctx, branchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}

	entries := make([]*models.HistoryEntry, 0, len(shifts))
	for _, sh := range shifts {
		entry := &models.HistoryEntry{Shift: sh}
		if !sh.IsOpen() && sh.ClosingExpectedCash != nil {
			total := *sh.ClosingExpectedCash - sh.OpeningCash
			entry.CashSalesTotal = &total
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// OwnedBranch loads a branch and checks it belongs to the caller.
func (s *Service) OwnedBranch(ctx context.Context, branchID string) (*models.Branch, error) {
	accountID, ok := config.AccountIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.ownedBranch(ctx, accountID, branchID)
}

func (s *Service) ownedBranch(ctx context.Context, accountID, branchID string) (*models.Branch, error) {
	branch, err := s.store.GetBranch(ctx, branchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBranchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}
	if branch.OwnerID != accountID {
		return nil, errBranchForbidden
	}
	return branch, nil
}

func (s *Service) publish(ctx context.Context, ev models.ShiftEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		config.LogError(s.log, "ledger", "publish", string(ev.Type), ev.ShiftID, err)
	}
}

// normalizeOptional trims v and turns blank values into nil.
func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
