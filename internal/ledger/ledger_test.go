package ledger

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
	"github.com/evn/pos_backend/internal/store"
	"github.com/evn/pos_backend/internal/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	events []models.ShiftEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.ShiftEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	svc   *Service
	store *memory.Store
	clock *fakeClock
	pub   *recordingPublisher
	ctx   context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st := memory.New()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	base := []Option{WithClock(clock.Now), WithPublisher(pub), WithLogger(quietLogger())}
	svc := NewService(st, append(base, opts...)...)

	for _, b := range []*models.Branch{
		{ID: "B", OwnerID: "owner-1", Name: "Centro", CreatedAt: clock.Now()},
		{ID: "X", OwnerID: "owner-2", Name: "Otra", CreatedAt: clock.Now()},
	} {
		if err := st.CreateBranch(context.Background(), b); err != nil {
			t.Fatalf("create branch: %v", err)
		}
	}

	return &fixture{
		svc:   svc,
		store: st,
		clock: clock,
		pub:   pub,
		ctx:   config.WithAccountID(context.Background(), "owner-1"),
	}
}

func (f *fixture) recordCashSale(t *testing.T, branchID string, total money.Cents) {
	t.Helper()
	closedAt := f.clock.Now()
	err := f.store.InsertSales(context.Background(), []*models.Sale{{
		ID:            closedAt.String() + branchID,
		BranchID:      branchID,
		PaymentMethod: models.PaymentCash,
		Status:        models.SaleClosed,
		Total:         total,
		ClosedAt:      &closedAt,
		CreatedAt:     closedAt,
	}})
	if err != nil {
		t.Fatalf("insert sale: %v", err)
	}
}

func TestShiftLifecycleScenario(t *testing.T) {
	f := newFixture(t)

	active, err := f.svc.Active(f.ctx, "B")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active shift, got %+v", active)
	}

	shift, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 5000})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if shift.Status != models.ShiftOpen || !shift.OpenedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected shift: %+v", shift)
	}

	active, err = f.svc.Active(f.ctx, "B")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active == nil || active.Shift.ID != shift.ID || active.CashSalesTotal != 0 || active.ExpectedCash != 5000 {
		t.Fatalf("unexpected active: %+v", active)
	}

	f.clock.Advance(time.Minute)
	f.recordCashSale(t, "B", 3000)

	active, err = f.svc.Active(f.ctx, "B")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ExpectedCash != 8000 || active.CashSalesTotal != 3000 {
		t.Fatalf("expected 80.00 expected cash, got %+v", active)
	}

	f.clock.Advance(time.Hour)
	result, err := f.svc.Close(f.ctx, CloseInput{ShiftID: shift.ID, ActualCash: 7500})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.ExpectedCash != 8000 || result.CashSalesTotal != 3000 || result.ClosingDiff != -500 {
		t.Fatalf("unexpected close result: %+v", result)
	}

	stored, err := f.store.GetShift(context.Background(), shift.ID)
	if err != nil {
		t.Fatalf("GetShift: %v", err)
	}
	if stored.Status != models.ShiftClosed || stored.ClosedAt == nil || !stored.ClosedAt.Equal(f.clock.Now()) {
		t.Fatalf("shift not closed: %+v", stored)
	}
	if *stored.ClosingActualCash != 7500 || *stored.ClosingExpectedCash != 8000 || *stored.ClosingDiff != -500 {
		t.Fatalf("closing fields not persisted: %+v", stored)
	}

	if len(f.pub.events) != 2 || f.pub.events[0].Type != models.EventShiftOpened || f.pub.events[1].Type != models.EventShiftClosed {
		t.Fatalf("unexpected events: %+v", f.pub.events)
	}
}

func TestOpenRejectsSecondOpenShift(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 100}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 100})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		ctx  context.Context
		in   OpenInput
		want error
	}{
		{"unauthenticated", context.Background(), OpenInput{BranchID: "B"}, ErrUnauthenticated},
		{"missing branch", f.ctx, OpenInput{BranchID: "nope"}, ErrNotFound},
		{"foreign branch", f.ctx, OpenInput{BranchID: "X"}, ErrPermissionDenied},
		{"negative cash", f.ctx, OpenInput{BranchID: "B", OpeningCash: -1}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Open(tc.ctx, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want kind %v", err, KindOf(tc.want))
			}
		})
	}
}

func TestOpenFloorsOpeningCash(t *testing.T) {
	f := newFixture(t)

	opening, err := money.FromFloat(100.999)
	if err != nil {
		t.Fatalf("FromFloat: %v", err)
	}
	shift, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: opening})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if shift.OpeningCash != 10099 {
		t.Fatalf("opening cash = %s, want 100.99", shift.OpeningCash)
	}
}

func TestOpenTrimsStaffID(t *testing.T) {
	f := newFixture(t)

	blank := "   "
	shift, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", StaffID: &blank})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if shift.StaffID != nil {
		t.Fatalf("expected blank staff id to be dropped, got %q", *shift.StaffID)
	}
}

// racyStore hides the open shift from the pre-check so the storage
// constraint is what rejects the insert.
type racyStore struct {
	*memory.Store
}

func (r racyStore) FindOpenShift(context.Context, string) (*models.Shift, error) {
	return nil, store.ErrNotFound
}

func TestOpenMapsStorageUniquenessToConflict(t *testing.T) {
	mem := memory.New()
	ctx := config.WithAccountID(context.Background(), "owner-1")
	if err := mem.CreateBranch(ctx, &models.Branch{ID: "B", OwnerID: "owner-1"}); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	svc := NewService(racyStore{mem}, WithLogger(quietLogger()))

	if _, err := svc.Open(ctx, OpenInput{BranchID: "B"}); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := svc.Open(ctx, OpenInput{BranchID: "B"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict from storage constraint, got %v", err)
	}
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) {
	return nil, ErrLockBusy
}

type countingLocker struct {
	locked, unlocked int
	keys             []string
}

func (l *countingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.locked++
	l.keys = append(l.keys, key)
	return func() { l.unlocked++ }, nil
}

func TestOpenUsesLocker(t *testing.T) {
	locker := &countingLocker{}
	f := newFixture(t, WithLocker(locker))

	if _, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B"}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if locker.locked != 1 || locker.unlocked != 1 || locker.keys[0] != "shift:open:B" {
		t.Fatalf("unexpected locker usage: %+v", locker)
	}

	busy := newFixture(t, WithLocker(busyLocker{}))
	if _, err := busy.svc.Open(busy.ctx, OpenInput{BranchID: "B"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict when lock is busy, got %v", err)
	}
}

func TestActiveIsPermissive(t *testing.T) {
	f := newFixture(t)
	other := config.WithAccountID(context.Background(), "owner-2")
	if _, err := f.svc.Open(other, OpenInput{BranchID: "X", OpeningCash: 100}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, branchID := range []string{"missing", "X"} {
		active, err := f.svc.Active(f.ctx, branchID)
		if err != nil {
			t.Fatalf("Active(%s) error: %v", branchID, err)
		}
		if active != nil {
			t.Fatalf("Active(%s) = %+v, want nil", branchID, active)
		}
	}

	if _, err := f.svc.Active(context.Background(), "B"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestCloseTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	shift, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 1000})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := f.svc.Close(f.ctx, CloseInput{ShiftID: shift.ID, ActualCash: 1000}); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if _, err := f.svc.Close(f.ctx, CloseInput{ShiftID: shift.ID, ActualCash: 1000}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on second close, got %v", err)
	}
}

func TestCloseErrors(t *testing.T) {
	f := newFixture(t)
	shift, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 1000})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	stranger := config.WithAccountID(context.Background(), "owner-2")

	cases := []struct {
		name string
		ctx  context.Context
		in   CloseInput
		want error
	}{
		{"unauthenticated", context.Background(), CloseInput{ShiftID: shift.ID}, ErrUnauthenticated},
		{"missing shift", f.ctx, CloseInput{ShiftID: "nope"}, ErrNotFound},
		{"foreign shift", stranger, CloseInput{ShiftID: shift.ID}, ErrPermissionDenied},
		{"negative cash", f.ctx, CloseInput{ShiftID: shift.ID, ActualCash: -100}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Close(tc.ctx, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want kind %v", err, KindOf(tc.want))
			}
		})
	}
}

func TestCloseComputesSurplusAndTrimsNotes(t *testing.T) {
	f := newFixture(t)
	shift, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 2000})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.clock.Advance(time.Minute)
	f.recordCashSale(t, "B", 1050)
	f.recordCashSale(t, "X", 99999)

	notes := "  sobró cambio  "
	result, err := f.svc.Close(f.ctx, CloseInput{ShiftID: shift.ID, ActualCash: 3100, Notes: &notes})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.ExpectedCash != 3050 || result.ClosingDiff != 50 {
		t.Fatalf("unexpected result: %+v", result)
	}

	stored, _ := f.store.GetShift(context.Background(), shift.ID)
	if stored.Notes == nil || *stored.Notes != "sobró cambio" {
		t.Fatalf("notes not trimmed: %v", stored.Notes)
	}

	second, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B"})
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	empty := "   "
	if _, err := f.svc.Close(f.ctx, CloseInput{ShiftID: second.ID, Notes: &empty}); err != nil {
		t.Fatalf("Close: %v", err)
	}
	stored, _ = f.store.GetShift(context.Background(), second.ID)
	if stored.Notes != nil {
		t.Fatalf("expected empty notes to be cleared, got %q", *stored.Notes)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)

	var ids []string
	for i := 0; i < 2; i++ {
		shift, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 1000})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		f.clock.Advance(time.Minute)
		f.recordCashSale(t, "B", 500)
		if _, err := f.svc.Close(f.ctx, CloseInput{ShiftID: shift.ID, ActualCash: 1500}); err != nil {
			t.Fatalf("Close: %v", err)
		}
		f.clock.Advance(time.Hour)
		ids = append(ids, shift.ID)
	}

	entries, err := f.svc.History(f.ctx, "B", 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != ids[1] {
		t.Fatalf("expected most recent shift only, got %+v", entries)
	}
	if entries[0].CashSalesTotal == nil || *entries[0].CashSalesTotal != 500 {
		t.Fatalf("expected derived cash total 5.00, got %v", entries[0].CashSalesTotal)
	}

	open, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B", OpeningCash: 1000})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entries, err = f.svc.History(f.ctx, "B", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != open.ID || entries[0].CashSalesTotal != nil {
		t.Fatalf("open shift must come first without cash total: %+v", entries[0])
	}
}

func TestHistoryIsStrict(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.History(f.ctx, "missing", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.History(f.ctx, "X", 0); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(errShiftClosed) != KindConflict {
		t.Fatalf("unexpected kind")
	}
	if KindOf(errors.New("boom")) != "" {
		t.Fatalf("plain errors have no kind")
	}
}

type brokenLocker struct{}

func (brokenLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestOpenProceedsWhenLockerFails(t *testing.T) {
	f := newFixture(t, WithLocker(brokenLocker{}))

	if _, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B"}); err != nil {
		t.Fatalf("Open with failing locker: %v", err)
	}
	if _, err := f.svc.Open(f.ctx, OpenInput{BranchID: "B"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("second open err = %v, want conflict", err)
	}
}
