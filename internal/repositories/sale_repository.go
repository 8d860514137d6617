package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
)

type SaleRepository struct {
	db *sql.DB
}

func NewSaleRepository(db *sql.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// InsertSales writes all sales in one transaction; a bad row rolls back the batch.
func (r *SaleRepository) InsertSales(ctx context.Context, sales []*models.Sale) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales (id, branch_id, payment_method, status, total_cents, closed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sale insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sales {
		_, err := stmt.ExecContext(ctx,
			s.ID,
			s.BranchID,
			string(s.PaymentMethod),
			string(s.Status),
			int64(s.Total),
			nullTime(s.ClosedAt),
			s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sales: %w", err)
	}
	return nil
}

func (r *SaleRepository) SumCashSales(ctx context.Context, branchID string, from, to time.Time) (money.Cents, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE branch_id = $1
		  AND payment_method = 'cash'
		  AND status = 'closed'
		  AND closed_at BETWEEN $2 AND $3
	`, branchID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cash sales: %w", err)
	}
	return money.Cents(total), nil
}
