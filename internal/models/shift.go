// models/shift.go
package models

import (
	"time"

	"github.com/evn/pos_backend/internal/money"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// Shift is one cash-register session of a branch.
type Shift struct {
	ID          string      `json:"id" bson:"_id"`
	BranchID    string      `json:"branchId" bson:"branch_id"`
	StaffID     *string     `json:"staffId,omitempty" bson:"staff_id,omitempty"`
	OpenedAt    time.Time   `json:"openedAt" bson:"opened_at"`
	OpeningCash money.Cents `json:"openingCash" bson:"opening_cash_cents"`
	Status      ShiftStatus `json:"status" bson:"status"`

	ClosedAt            *time.Time   `json:"closedAt,omitempty" bson:"closed_at,omitempty"`
	ClosingActualCash   *money.Cents `json:"closingActualCash,omitempty" bson:"closing_actual_cents,omitempty"`
	ClosingExpectedCash *money.Cents `json:"closingExpectedCash,omitempty" bson:"closing_expected_cents,omitempty"`
	ClosingDiff         *money.Cents `json:"closingDiff,omitempty" bson:"closing_diff_cents,omitempty"`
	Notes               *string      `json:"notes,omitempty" bson:"notes,omitempty"`

	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (s *Shift) IsOpen() bool { return s.Status == ShiftOpen }

// ShiftClosing is the patch written when a shift closes.
type ShiftClosing struct {
	ClosedAt     time.Time
	ActualCash   money.Cents
	ExpectedCash money.Cents
	Diff         money.Cents
	Notes        *string
}

// ActiveShift is the active-lookup result.
type ActiveShift struct {
	Shift          *Shift      `json:"shift"`
	CashSalesTotal money.Cents `json:"cashSalesTotal"`
	ExpectedCash   money.Cents `json:"expectedCash"`
}

// CloseResult is returned by close so the caller can show the reconciliation.
type CloseResult struct {
	ExpectedCash   money.Cents `json:"expectedCash"`
	CashSalesTotal money.Cents `json:"cashSalesTotal"`
	ClosingDiff    money.Cents `json:"closingDiff"`
}

// HistoryEntry is a shift plus its derived cash sales total (closed shifts only).
type HistoryEntry struct {
	*Shift
	CashSalesTotal *money.Cents `json:"cashSalesTotal,omitempty"`
}
