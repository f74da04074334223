package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ceseminars/internal/database"
	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type MakeupRepository struct {
	db *database.DB
}

func NewMakeupRepository(db *database.DB) *MakeupRepository {
	return &MakeupRepository{db: db}
}

const makeupColumns = `id, registration_id, missed_session_id, requested_session_id, status, reason, notes,
	denial_reason, reviewed_by, reviewed_at, expires_at, completed_at, created_at, updated_at`

func scanMakeup(row scanner) (*models.MakeupRequest, error) {
	m := &models.MakeupRequest{}
	err := row.Scan(
		&m.ID,
		&m.RegistrationID,
		&m.MissedSessionID,
		&m.RequestedSessionID,
		&m.Status,
		&m.Reason,
		&m.Notes,
		&m.DenialReason,
		&m.ReviewedBy,
		&m.ReviewedAt,
		&m.ExpiresAt,
		&m.CompletedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *MakeupRepository) queryMakeups(ctx context.Context, query string, args ...any) ([]models.MakeupRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.MakeupRequest
	for rows.Next() {
		m, err := scanMakeup(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *m)
	}
	return requests, rows.Err()
}

// Create inserts a pending request. The partial unique index on outstanding
// requests turns a concurrent second submission into DuplicateRequest.
func (r *MakeupRepository) Create(ctx context.Context, m *models.MakeupRequest) error {
	query := `
		INSERT INTO makeup_requests (registration_id, missed_session_id, requested_session_id, status, reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		m.RegistrationID, m.MissedSessionID, m.RequestedSessionID, m.Status, m.Reason, m.Notes, m.CreatedAt,
	).Scan(&m.ID)
	if _, ok := violation(err, pqUniqueViolation); ok {
		existing, findErr := r.FindOutstanding(ctx, m.RegistrationID)
		if findErr != nil || existing == nil {
			return apperrors.Duplicate(apperrors.CodeDuplicateRequest, "an outstanding makeup request already exists for this registration")
		}
		return apperrors.DuplicateRequest(existing.ID)
	}
	m.UpdatedAt = m.CreatedAt
	return err
}

func (r *MakeupRepository) GetByID(ctx context.Context, id int64) (*models.MakeupRequest, error) {
	query := `SELECT ` + makeupColumns + ` FROM makeup_requests WHERE id = $1`

	m, err := scanMakeup(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// FindOutstanding returns the pending or approved request of the registration.
func (r *MakeupRepository) FindOutstanding(ctx context.Context, registrationID int64) (*models.MakeupRequest, error) {
	query := `
		SELECT ` + makeupColumns + ` FROM makeup_requests
		WHERE registration_id = $1 AND status IN ('pending', 'approved')`

	m, err := scanMakeup(r.db.QueryRowContext(ctx, query, registrationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *MakeupRepository) ListByRegistration(ctx context.Context, registrationID int64) ([]models.MakeupRequest, error) {
	query := `SELECT ` + makeupColumns + ` FROM makeup_requests WHERE registration_id = $1 ORDER BY created_at DESC`
	return r.queryMakeups(ctx, query, registrationID)
}

func (r *MakeupRepository) ListByStatus(ctx context.Context, status models.MakeupStatus) ([]models.MakeupRequest, error) {
	query := `SELECT ` + makeupColumns + ` FROM makeup_requests WHERE status = $1 ORDER BY created_at`
	return r.queryMakeups(ctx, query, status)
}

// ListExpired returns approved requests whose expiry is before now.
func (r *MakeupRepository) ListExpired(ctx context.Context, now time.Time) ([]models.MakeupRequest, error) {
	query := `
		SELECT ` + makeupColumns + ` FROM makeup_requests
		WHERE status = 'approved' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at`
	return r.queryMakeups(ctx, query, now)
}

// Transition applies a compare-and-set status change. It returns nil when
// the request was no longer in from. Completing a request also marks the
// registration's makeup as used within the same transaction.
func (r *MakeupRepository) Transition(ctx context.Context, id int64, from, to models.MakeupStatus, patch models.MakeupPatch) (*models.MakeupRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		UPDATE makeup_requests
		SET status = $3,
		    notes = COALESCE($4, notes),
		    denial_reason = COALESCE($5, denial_reason),
		    requested_session_id = COALESCE($6, requested_session_id),
		    reviewed_by = COALESCE($7, reviewed_by),
		    reviewed_at = COALESCE($8, reviewed_at),
		    expires_at = COALESCE($9, expires_at),
		    completed_at = COALESCE($10, completed_at),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + makeupColumns

	m, err := scanMakeup(tx.QueryRowContext(ctx, query,
		id, from, to,
		patch.Notes, patch.DenialReason, patch.RequestedSessionID,
		patch.ReviewedBy, patch.ReviewedAt, patch.ExpiresAt, patch.CompletedAt,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update makeup request: %w", err)
	}

	if to == models.MakeupCompleted {
		markUsed := `UPDATE registrations SET makeup_used = TRUE, updated_at = NOW() WHERE id = $1`
		if _, err := tx.ExecContext(ctx, markUsed, m.RegistrationID); err != nil {
			return nil, fmt.Errorf("failed to mark makeup used: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}
