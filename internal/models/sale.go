package models

import (
	"time"

	"github.com/evn/pos_backend/internal/money"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentWallet   PaymentMethod = "wallet"
)

type SaleStatus string

const (
	SaleOpen      SaleStatus = "open"
	SaleClosed    SaleStatus = "closed"
	SaleCancelled SaleStatus = "cancelled"
)

// Sale is read-only for the shift ledger; only the sales module writes it.
type Sale struct {
	ID            string        `json:"id" bson:"_id"`
	BranchID      string        `json:"branchId" bson:"branch_id"`
	PaymentMethod PaymentMethod `json:"paymentMethod" bson:"payment_method"`
	Status        SaleStatus    `json:"status" bson:"status"`
	Total         money.Cents   `json:"total" bson:"total_cents"`
	ClosedAt      *time.Time    `json:"closedAt,omitempty" bson:"closed_at,omitempty"`
	CreatedAt     time.Time     `json:"createdAt" bson:"created_at"`
}

type NewSale struct {
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash card transfer wallet"`
	Status        SaleStatus    `json:"status" validate:"omitempty,oneof=open closed cancelled"`
	Total         money.Cents   `json:"total" validate:"gte=0"`
	ClosedAt      *time.Time    `json:"closedAt,omitempty"`
}

// Build turns a validated payload into a sale. A missing status means closed,
// and a closed sale without closedAt is stamped with now.
func (n NewSale) Build(id, branchID string, now time.Time) *Sale {
	s := &Sale{
		ID:            id,
		BranchID:      branchID,
		PaymentMethod: n.PaymentMethod,
		Status:        n.Status,
		Total:         n.Total,
		ClosedAt:      n.ClosedAt,
		CreatedAt:     now,
	}
	if s.Status == "" {
		s.Status = SaleClosed
	}
	if s.Status == SaleClosed && s.ClosedAt == nil {
		t := now
		s.ClosedAt = &t
	}
	return s
}
