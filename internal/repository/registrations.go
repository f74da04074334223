package repository

import (
	"context"
	"database/sql"

	"ceseminars/internal/database"
	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type RegistrationRepository struct {
	db *database.DB
}

func NewRegistrationRepository(db *database.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, user_id, seminar_id, status, sessions_completed, sessions_remaining,
	makeup_used, start_session_date, order_id, registered_at, updated_at`

func scanRegistration(row scanner) (*models.Registration, error) {
	reg := &models.Registration{}
	err := row.Scan(
		&reg.ID,
		&reg.UserID,
		&reg.SeminarID,
		&reg.Status,
		&reg.SessionsCompleted,
		&reg.SessionsRemaining,
		&reg.MakeupUsed,
		&reg.StartSessionDate,
		&reg.OrderID,
		&reg.RegisteredAt,
		&reg.UpdatedAt,
	)
	return reg, err
}

func (r *RegistrationRepository) queryRegistrations(ctx context.Context, query string, args ...any) ([]models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// Create inserts the registration. A concurrent open registration for the
// same pair surfaces as AlreadyRegistered.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (user_id, seminar_id, status, sessions_completed, sessions_remaining,
			makeup_used, start_session_date, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, registered_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		reg.UserID, reg.SeminarID, reg.Status, reg.SessionsCompleted, reg.SessionsRemaining,
		reg.MakeupUsed, reg.StartSessionDate, reg.OrderID,
	).Scan(&reg.ID, &reg.RegisteredAt, &reg.UpdatedAt)
	if _, ok := violation(err, pqUniqueViolation); ok {
		existing, findErr := r.FindOpen(ctx, reg.UserID, reg.SeminarID)
		if findErr != nil || existing == nil {
			return apperrors.AlreadyRegistered(0)
		}
		return apperrors.AlreadyRegistered(existing.ID)
	}
	return err
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}

// FindOpen returns the non-cancelled registration for the pair, if any.
func (r *RegistrationRepository) FindOpen(ctx context.Context, userID, seminarID int64) (*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + ` FROM registrations
		WHERE user_id = $1 AND seminar_id = $2 AND status <> 'cancelled'`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, userID, seminarID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}

func (r *RegistrationRepository) ListBySeminar(ctx context.Context, seminarID int64, status *models.RegistrationStatus) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE seminar_id = $1`
	args := []any{seminarID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY id`
	return r.queryRegistrations(ctx, query, args...)
}

func (r *RegistrationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 ORDER BY registered_at DESC`
	return r.queryRegistrations(ctx, query, userID)
}

// UpdateStatus moves the registration from one status to another and
// returns the updated row, or nil when the registration was not in from.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id int64, from, to models.RegistrationStatus) (*models.Registration, error) {
	query := `
		UPDATE registrations SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + registrationColumns

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id, from, to))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}

// Cancel marks any non-cancelled registration as cancelled. Counters are kept.
func (r *RegistrationRepository) Cancel(ctx context.Context, id int64) (*models.Registration, error) {
	query := `
		UPDATE registrations SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
		RETURNING ` + registrationColumns

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}
