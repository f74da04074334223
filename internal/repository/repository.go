package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ceseminars/internal/database"

	"github.com/lib/pq"
)

type Repositories struct {
	Seminars      *SeminarRepository
	Sessions      *SessionRepository
	Registrations *RegistrationRepository
	Attendance    *AttendanceRepository
	Ledger        *LedgerRepository
	Makeups       *MakeupRepository
	Certificates  *CertificateRepository
	Users         *UserRepository
	Events        *EventRepository
	Notifications *NotificationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Seminars:      NewSeminarRepository(db),
		Sessions:      NewSessionRepository(db),
		Registrations: NewRegistrationRepository(db),
		Attendance:    NewAttendanceRepository(db),
		Ledger:        NewLedgerRepository(db),
		Makeups:       NewMakeupRepository(db),
		Certificates:  NewCertificateRepository(db),
		Users:         NewUserRepository(db),
		Events:        NewEventRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// querier is satisfied by both the pool and an open transaction
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// violation returns the constraint name when err is a Postgres error with code.
func violation(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr.Constraint, true
	}
	return "", false
}

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
