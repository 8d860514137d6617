package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/store"
)

type BranchRepository struct {
	db *sql.DB
}

func NewBranchRepository(db *sql.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

func (r *BranchRepository) CreateBranch(ctx context.Context, b *models.Branch) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO branches (id, owner_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, b.ID, b.OwnerID, b.Name, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

func (r *BranchRepository) GetBranch(ctx context.Context, branchID string) (*models.Branch, error) {
	var b models.Branch
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at FROM branches WHERE id = $1
	`, branchID).Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &b, nil
}

func (r *BranchRepository) ListBranches(ctx context.Context, ownerID string) ([]*models.Branch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at
		FROM branches
		WHERE owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	defer rows.Close()

	branches := make([]*models.Branch, 0)
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, &b)
	}
	return branches, rows.Err()
}
