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

type AttendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, registration_id, session_id, method, is_makeup, makeup_request_id, credits_awarded, checked_in_at`

func scanAttendance(row scanner) (*models.Attendance, error) {
	a := &models.Attendance{}
	err := row.Scan(
		&a.ID,
		&a.RegistrationID,
		&a.SessionID,
		&a.Method,
		&a.IsMakeup,
		&a.MakeupRequestID,
		&a.CreditsAwarded,
		&a.CheckedInAt,
	)
	return a, err
}

// Record inserts the attendance, its earned ledger entry and the counter
// update in one transaction. Counters move in a single clamped statement so
// sessions_completed + sessions_remaining never drifts from total_sessions.
func (r *AttendanceRepository) Record(ctx context.Context, a *models.Attendance, reg *models.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO attendance (registration_id, session_id, method, is_makeup, makeup_request_id, credits_awarded, checked_in_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (registration_id, session_id) DO NOTHING
		RETURNING id`

	err = tx.QueryRowContext(ctx, insert,
		a.RegistrationID, a.SessionID, a.Method, a.IsMakeup, a.MakeupRequestID, a.CreditsAwarded, a.CheckedInAt,
	).Scan(&a.ID)
	if err == sql.ErrNoRows {
		tx.Rollback()
		existing, findErr := r.FindByPair(ctx, a.RegistrationID, a.SessionID)
		if findErr != nil || existing == nil {
			return apperrors.DuplicateAttendance(0)
		}
		return apperrors.DuplicateAttendance(existing.ID)
	}
	if _, ok := violation(err, pqUniqueViolation); ok {
		return apperrors.Precondition(apperrors.CodeMakeupAlreadyAttended, "makeup request already has an attendance")
	}
	if err != nil {
		return fmt.Errorf("failed to insert attendance: %w", err)
	}

	if err := appendLedger(ctx, tx, &models.LedgerEntry{
		UserID:       reg.UserID,
		EntryType:    models.LedgerEarned,
		Amount:       a.CreditsAwarded,
		SeminarID:    &reg.SeminarID,
		AttendanceID: &a.ID,
		AwardedAt:    a.CheckedInAt,
	}); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	counters := `
		UPDATE registrations r
		SET sessions_completed = LEAST(r.sessions_completed + 1, s.total_sessions),
		    sessions_remaining = GREATEST(r.sessions_remaining - 1, 0),
		    status = CASE WHEN r.sessions_remaining - 1 <= 0 THEN 'completed' ELSE r.status END,
		    updated_at = NOW()
		FROM seminars s
		WHERE r.id = $1 AND s.id = r.seminar_id AND r.status = 'active'`

	res, err := tx.ExecContext(ctx, counters, a.RegistrationID)
	if err != nil {
		return fmt.Errorf("failed to update registration counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Precondition(apperrors.CodeRegistrationNotActive, "registration is not active")
	}

	return tx.Commit()
}

// Delete removes the attendance, appends a revoked entry for the same amount
// and restores the counters. A completed registration reopens.
func (r *AttendanceRepository) Delete(ctx context.Context, a *models.Attendance, reg *models.Registration, revokedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, a.ID)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("attendance", a.ID)
	}

	reason := "attendance deleted"
	if err := appendLedger(ctx, tx, &models.LedgerEntry{
		UserID:       reg.UserID,
		EntryType:    models.LedgerRevoked,
		Amount:       a.CreditsAwarded,
		SeminarID:    &reg.SeminarID,
		AttendanceID: &a.ID,
		Reason:       &reason,
		AwardedAt:    a.CheckedInAt,
		CreatedAt:    revokedAt,
	}); err != nil {
		return fmt.Errorf("failed to append revoked entry: %w", err)
	}

	counters := `
		UPDATE registrations r
		SET sessions_completed = GREATEST(r.sessions_completed - 1, 0),
		    sessions_remaining = LEAST(r.sessions_remaining + 1, s.total_sessions),
		    status = CASE WHEN r.status = 'completed' THEN 'active' ELSE r.status END,
		    updated_at = NOW()
		FROM seminars s
		WHERE r.id = $1 AND s.id = r.seminar_id`

	if _, err := tx.ExecContext(ctx, counters, a.RegistrationID); err != nil {
		return fmt.Errorf("failed to restore registration counters: %w", err)
	}

	return tx.Commit()
}

func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`

	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AttendanceRepository) FindByPair(ctx context.Context, registrationID, sessionID int64) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE registration_id = $1 AND session_id = $2`

	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, registrationID, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AttendanceRepository) FindByMakeupRequest(ctx context.Context, requestID int64) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE makeup_request_id = $1`

	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, requestID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AttendanceRepository) ListByRegistration(ctx context.Context, registrationID int64) ([]models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE registration_id = $1 ORDER BY checked_in_at`

	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *a)
	}
	return records, rows.Err()
}
