// repositories/shift_repository.go

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
	"github.com/evn/pos_backend/internal/store"
)

const (
	uniqueViolation     = "23505"
	openShiftConstraint = "shifts_one_open_per_branch"
)

const shiftColumns = `
	id, branch_id, staff_id, opened_at, opening_cash_cents, status,
	closed_at, closing_actual_cents, closing_expected_cents, closing_diff_cents,
	notes, updated_at`

type ShiftRepository struct {
	db *sql.DB
}

func NewShiftRepository(db *sql.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*models.Shift, error) {
	var (
		s                      models.Shift
		staffID, notes         sql.NullString
		closedAt               sql.NullTime
		actual, expected, diff sql.NullInt64
		opening                int64
		status                 string
	)
	err := row.Scan(
		&s.ID,
		&s.BranchID,
		&staffID,
		&s.OpenedAt,
		&opening,
		&status,
		&closedAt,
		&actual,
		&expected,
		&diff,
		&notes,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.OpeningCash = money.Cents(opening)
	s.Status = models.ShiftStatus(status)
	if staffID.Valid {
		s.StaffID = &staffID.String
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	if closedAt.Valid {
		t := closedAt.Time
		s.ClosedAt = &t
	}
	s.ClosingActualCash = centsPtr(actual)
	s.ClosingExpectedCash = centsPtr(expected)
	s.ClosingDiff = centsPtr(diff)
	return &s, nil
}

func centsPtr(v sql.NullInt64) *money.Cents {
	if !v.Valid {
		return nil
	}
	c := money.Cents(v.Int64)
	return &c
}

func (r *ShiftRepository) GetShift(ctx context.Context, shiftID string) (*models.Shift, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, shiftID)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return s, nil
}

func (r *ShiftRepository) FindOpenShift(ctx context.Context, branchID string) (*models.Shift, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE branch_id = $1 AND status = 'open'
	`, branchID)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open shift: %w", err)
	}
	return s, nil
}

func (r *ShiftRepository) InsertShift(ctx context.Context, s *models.Shift) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shifts (id, branch_id, staff_id, opened_at, opening_cash_cents, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.BranchID, nullString(s.StaffID), s.OpenedAt, int64(s.OpeningCash), string(s.Status), s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == openShiftConstraint {
			return store.ErrDuplicateOpenShift
		}
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

// CloseShift is a single conditional update, so two concurrent closes cannot
// both succeed.
func (r *ShiftRepository) CloseShift(ctx context.Context, shiftID string, c models.ShiftClosing) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shifts
		SET status = 'closed',
		    closed_at = $2,
		    closing_actual_cents = $3,
		    closing_expected_cents = $4,
		    closing_diff_cents = $5,
		    notes = $6,
		    updated_at = $2
		WHERE id = $1 AND status = 'open'
	`, shiftID, c.ClosedAt, int64(c.ActualCash), int64(c.ExpectedCash), int64(c.Diff), nullString(c.Notes))
	if err != nil {
		return fmt.Errorf("failed to close shift: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM shifts WHERE id = $1)`, shiftID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check shift: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrShiftNotOpen
}

func (r *ShiftRepository) ListShifts(ctx context.Context, branchID string, limit int) ([]*models.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE branch_id = $1 ORDER BY opened_at DESC`
	args := []any{branchID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	shifts := make([]*models.Shift, 0)
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
