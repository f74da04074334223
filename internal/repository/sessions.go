package repository

import (
	"context"
	"database/sql"
	"time"

	"ceseminars/internal/database"
	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, seminar_id, session_number, session_date, start_time, end_time, topic, created_at, updated_at`

func scanSession(row scanner) (*models.Session, error) {
	s := &models.Session{}
	err := row.Scan(
		&s.ID,
		&s.SeminarID,
		&s.SessionNumber,
		&s.SessionDate,
		&s.StartTime,
		&s.EndTime,
		&s.Topic,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (seminar_id, session_number, session_date, start_time, end_time, topic)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.SeminarID, s.SessionNumber, s.SessionDate, s.StartTime, s.EndTime, s.Topic,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if _, ok := violation(err, pqUniqueViolation); ok {
		return apperrors.Duplicate(apperrors.CodeDuplicateSession, "session number already exists for this seminar")
	}
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *SessionRepository) ListBySeminar(ctx context.Context, seminarID int64) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE seminar_id = $1 ORDER BY session_number`
	return r.querySessions(ctx, query, seminarID)
}

func (r *SessionRepository) ListOnDate(ctx context.Context, day time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_date = $1 ORDER BY seminar_id, session_number`
	return r.querySessions(ctx, query, models.DateOf(day))
}

// NextOnOrAfter returns the earliest session of the seminar dated on day or later.
func (r *SessionRepository) NextOnOrAfter(ctx context.Context, seminarID int64, day time.Time) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE seminar_id = $1 AND session_date >= $2
		ORDER BY session_date, session_number
		LIMIT 1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, seminarID, models.DateOf(day)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// Update rewrites the session. Number and date can only change while no
// attendance references the session.
func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	query := `
		UPDATE sessions
		SET session_number = $2, session_date = $3, start_time = $4, end_time = $5, topic = $6, updated_at = NOW()
		WHERE id = $1
		  AND (NOT EXISTS (SELECT 1 FROM attendance WHERE session_id = $1)
		       OR (session_number = $2 AND session_date = $3))
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.SessionNumber, s.SessionDate, s.StartTime, s.EndTime, s.Topic,
	).Scan(&s.UpdatedAt)
	if _, ok := violation(err, pqUniqueViolation); ok {
		return apperrors.Duplicate(apperrors.CodeDuplicateSession, "session number already exists for this seminar")
	}
	if err == sql.ErrNoRows {
		current, getErr := r.GetByID(ctx, s.ID)
		if getErr != nil {
			return getErr
		}
		if current == nil {
			return apperrors.NotFound("session", s.ID)
		}
		return apperrors.HasDependentAttendance(s.ID)
	}
	return err
}

// Delete removes a session that no attendance references.
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM sessions
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM attendance WHERE session_id = $1)`

	res, err := r.db.ExecContext(ctx, query, id)
	if _, ok := violation(err, pqForeignKeyViolation); ok {
		return apperrors.Precondition(apperrors.CodeSessionReferenced, "session is referenced by makeup requests")
	}
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperrors.NotFound("session", id)
		}
		return apperrors.HasDependentAttendance(id)
	}
	return nil
}
