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

type CertificateRepository struct {
	db *database.DB
}

func NewCertificateRepository(db *database.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = `id, user_id, seminar_id, event_id, period, year, certificate_code, credits, pdf_url, issued_at`

func scanCertificate(row scanner) (*models.Certificate, error) {
	c := &models.Certificate{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.SeminarID,
		&c.EventID,
		&c.Period,
		&c.Year,
		&c.CertificateCode,
		&c.Credits,
		&c.PDFURL,
		&c.IssuedAt,
	)
	return c, err
}

func insertCertificate(ctx context.Context, q querier, c *models.Certificate) error {
	query := `
		INSERT INTO certificates (user_id, seminar_id, event_id, period, year, certificate_code, credits, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := q.QueryRowContext(ctx, query,
		c.UserID, c.SeminarID, c.EventID, c.Period, c.Year, c.CertificateCode, c.Credits, c.IssuedAt,
	).Scan(&c.ID)
	if _, ok := violation(err, pqUniqueViolation); ok {
		return apperrors.Duplicate(apperrors.CodeCertificateExists, "certificate already issued")
	}
	return err
}

func (r *CertificateRepository) Create(ctx context.Context, c *models.Certificate) error {
	return insertCertificate(ctx, r.db, c)
}

// CreateWithLedger issues the certificate and appends its credit entry atomically.
func (r *CertificateRepository) CreateWithLedger(ctx context.Context, c *models.Certificate, e *models.LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertCertificate(ctx, tx, c); err != nil {
		return err
	}
	if err := appendLedger(ctx, tx, e); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return tx.Commit()
}

func (r *CertificateRepository) getOne(ctx context.Context, query string, args ...any) (*models.Certificate, error) {
	c, err := scanCertificate(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CertificateRepository) GetByID(ctx context.Context, id int64) (*models.Certificate, error) {
	return r.getOne(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, id)
}

func (r *CertificateRepository) GetByCode(ctx context.Context, code string) (*models.Certificate, error) {
	return r.getOne(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE certificate_code = $1`, code)
}

func (r *CertificateRepository) FindForPeriod(ctx context.Context, userID, seminarID int64, period models.Period, year int) (*models.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + ` FROM certificates
		WHERE user_id = $1 AND seminar_id = $2 AND period = $3 AND year = $4`
	return r.getOne(ctx, query, userID, seminarID, period, year)
}

func (r *CertificateRepository) FindForEvent(ctx context.Context, userID, eventID int64) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 AND event_id = $2`
	return r.getOne(ctx, query, userID, eventID)
}

func (r *CertificateRepository) ListByUser(ctx context.Context, userID int64) ([]models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certs []models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, *c)
	}
	return certs, rows.Err()
}

// SetPDFURL stores the rendered document URL only if none is stored yet.
// It reports whether this call won.
func (r *CertificateRepository) SetPDFURL(ctx context.Context, id int64, url string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE certificates SET pdf_url = $2 WHERE id = $1 AND pdf_url IS NULL`, id, url)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Eligibility aggregates, per non-cancelled registration of the seminar, the
// net earned credits awarded in [from, to) and the attendance checked in
// within the same window. Only ledger entries tied to the registration's own
// attendance count. A deleted attendance leaves an earned and revoked pair
// that nets to zero either way.
func (r *CertificateRepository) Eligibility(ctx context.Context, seminarID int64, from, to time.Time) ([]models.EligibleRegistration, error) {
	query := `
		SELECT ` + prefixed("r", registrationColumns) + `,
			COALESCE((
				SELECT SUM(CASE WHEN l.entry_type = 'revoked' THEN -l.amount ELSE l.amount END)
				FROM ce_credit_ledger l
				WHERE l.user_id = r.user_id AND l.seminar_id = r.seminar_id
				  AND l.attendance_id IN (SELECT a.id FROM attendance a WHERE a.registration_id = r.id)
				  AND l.entry_type IN ('earned', 'revoked')
				  AND l.awarded_at >= $2 AND l.awarded_at < $3
			), 0) AS credits_earned,
			(
				SELECT COUNT(*) FROM attendance a
				WHERE a.registration_id = r.id AND a.checked_in_at >= $2 AND a.checked_in_at < $3
			) AS sessions_in_period
		FROM registrations r
		WHERE r.seminar_id = $1 AND r.status <> 'cancelled'
		ORDER BY r.id`

	rows, err := r.db.QueryContext(ctx, query, seminarID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EligibleRegistration
	for rows.Next() {
		var e models.EligibleRegistration
		reg := &e.Registration
		err := rows.Scan(
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
			&e.CreditsEarned,
			&e.SessionsInPeriod,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
