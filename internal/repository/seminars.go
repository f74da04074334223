package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ceseminars/internal/database"
	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type SeminarRepository struct {
	db *database.DB
}

func NewSeminarRepository(db *database.DB) *SeminarRepository {
	return &SeminarRepository{db: db}
}

const seminarColumns = `id, title, year, description, total_sessions, credits_per_session,
	total_credits, credits_overridden, status, created_at, updated_at`

func scanSeminar(row scanner) (*models.Seminar, error) {
	s := &models.Seminar{}
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Year,
		&s.Description,
		&s.TotalSessions,
		&s.CreditsPerSession,
		&s.TotalCredits,
		&s.CreditsOverridden,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func (r *SeminarRepository) Create(ctx context.Context, s *models.Seminar) error {
	query := `
		INSERT INTO seminars (title, year, description, total_sessions, credits_per_session,
			total_credits, credits_overridden, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		s.Title, s.Year, s.Description, s.TotalSessions, s.CreditsPerSession,
		s.TotalCredits, s.CreditsOverridden, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *SeminarRepository) GetByID(ctx context.Context, id int64) (*models.Seminar, error) {
	query := `SELECT ` + seminarColumns + ` FROM seminars WHERE id = $1`

	s, err := scanSeminar(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *SeminarRepository) List(ctx context.Context, status *models.SeminarStatus) ([]models.Seminar, error) {
	query := `SELECT ` + seminarColumns + ` FROM seminars`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY year DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seminars []models.Seminar
	for rows.Next() {
		s, err := scanSeminar(rows)
		if err != nil {
			return nil, err
		}
		seminars = append(seminars, *s)
	}
	return seminars, rows.Err()
}

// Activate makes the seminar the only active one. Any other active seminar
// is demoted to completed in the same transaction.
func (r *SeminarRepository) Activate(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	demote := `UPDATE seminars SET status = 'completed', updated_at = NOW() WHERE status = 'active' AND id <> $1`
	if _, err := tx.ExecContext(ctx, demote, id); err != nil {
		return fmt.Errorf("failed to demote active seminars: %w", err)
	}

	activate := `
		UPDATE seminars SET status = 'active', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'completed', 'active')`
	res, err := tx.ExecContext(ctx, activate, id)
	if err != nil {
		return fmt.Errorf("failed to activate seminar: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperrors.NotFound("seminar", id)
		}
		return apperrors.InvalidTransition("activate", string(current.Status))
	}

	return tx.Commit()
}

// UpdateStatus moves the seminar from one status to another. It reports
// false when the seminar was not in the expected status.
func (r *SeminarRepository) UpdateStatus(ctx context.Context, id int64, from, to models.SeminarStatus) (bool, error) {
	query := `UPDATE seminars SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
