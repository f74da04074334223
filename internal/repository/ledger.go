package repository

import (
	"context"

	"ceseminars/internal/database"
	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
)

type LedgerRepository struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, user_id, entry_type, amount, seminar_id, event_id, attendance_id, reason, awarded_at, created_at`

func appendLedger(ctx context.Context, q querier, e *models.LedgerEntry) error {
	query := `
		INSERT INTO ce_credit_ledger (user_id, entry_type, amount, seminar_id, event_id, attendance_id, reason, awarded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		RETURNING id, created_at`

	var createdAt any
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt
	}

	return q.QueryRowContext(ctx, query,
		e.UserID, e.EntryType, e.Amount, e.SeminarID, e.EventID, e.AttendanceID, e.Reason, e.AwardedAt, createdAt,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *LedgerRepository) Append(ctx context.Context, e *models.LedgerEntry) error {
	return appendLedger(ctx, r.db, e)
}

// SumForUser is the signed total of every ledger entry of the user.
func (r *LedgerRepository) SumForUser(ctx context.Context, userID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'revoked' THEN -amount ELSE amount END), 0)
		FROM ce_credit_ledger
		WHERE user_id = $1`

	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&total)
	return total, err
}

func (r *LedgerRepository) ListForUser(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ce_credit_ledger WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.EntryType,
			&e.Amount,
			&e.SeminarID,
			&e.EventID,
			&e.AttendanceID,
			&e.Reason,
			&e.AwardedAt,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
