package mongo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests")
	}
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI is not set")
	}

	ctx := context.Background()
	st, err := Connect(ctx, uri, "pos_test_"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = st.db.Drop(context.Background())
		st.Close()
	})
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return st
}

func TestMongoShiftLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	opened := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	open := &models.Shift{
		ID:          uuid.NewString(),
		BranchID:    "branch-1",
		OpenedAt:    opened,
		OpeningCash: 5000,
		Status:      models.ShiftOpen,
		UpdatedAt:   opened,
	}
	if err := st.InsertShift(ctx, open); err != nil {
		t.Fatalf("InsertShift: %v", err)
	}

	second := *open
	second.ID = uuid.NewString()
	second.OpenedAt = opened.Add(30 * time.Minute)
	if err := st.InsertShift(ctx, &second); !errors.Is(err, store.ErrDuplicateOpenShift) {
		t.Fatalf("second open err = %v, want ErrDuplicateOpenShift", err)
	}

	inside := opened.Add(5 * time.Minute)
	sales := []*models.Sale{
		{ID: uuid.NewString(), BranchID: "branch-1", PaymentMethod: models.PaymentCash, Status: models.SaleClosed, Total: 3000, ClosedAt: &inside, CreatedAt: inside},
		{ID: uuid.NewString(), BranchID: "branch-1", PaymentMethod: models.PaymentWallet, Status: models.SaleClosed, Total: 1200, ClosedAt: &inside, CreatedAt: inside},
		{ID: uuid.NewString(), BranchID: "branch-2", PaymentMethod: models.PaymentCash, Status: models.SaleClosed, Total: 800, ClosedAt: &inside, CreatedAt: inside},
	}
	if err := st.InsertSales(ctx, sales); err != nil {
		t.Fatalf("InsertSales: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	total, err := st.SumCashSales(ctx, "branch-1", opened, now)
	if err != nil {
		t.Fatalf("SumCashSales: %v", err)
	}
	if total != 3000 {
		t.Fatalf("SumCashSales = %d, want 3000", total)
	}

	closing := models.ShiftClosing{ClosedAt: now, ActualCash: 7500, ExpectedCash: 8000, Diff: -500}
	if err := st.CloseShift(ctx, open.ID, closing); err != nil {
		t.Fatalf("CloseShift: %v", err)
	}
	if err := st.CloseShift(ctx, open.ID, closing); !errors.Is(err, store.ErrShiftNotOpen) {
		t.Fatalf("second close err = %v, want ErrShiftNotOpen", err)
	}

	// Closing frees the branch for the next open.
	if err := st.InsertShift(ctx, &second); err != nil {
		t.Fatalf("InsertShift after close: %v", err)
	}

	list, err := st.ListShifts(ctx, "branch-1", 1)
	if err != nil {
		t.Fatalf("ListShifts: %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("ListShifts(limit 1) = %+v, want newest shift", list)
	}
}
