package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createSeminarsTable,
		createSessionsTable,
		createRegistrationsTable,
		createAttendanceTable,
		createLedgerTable,
		createMakeupRequestsTable,
		createEventsTable,
		createCertificatesTable,
		createNotificationLogTable,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGSERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL DEFAULT '',
    first_name VARCHAR(100) NOT NULL DEFAULT '',
    surname VARCHAR(100) NOT NULL DEFAULT '',
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSeminarsTable = `
CREATE TABLE IF NOT EXISTS seminars (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    year INTEGER NOT NULL,
    description TEXT,
    total_sessions INTEGER NOT NULL CHECK (total_sessions > 0),
    credits_per_session NUMERIC(8,2) NOT NULL DEFAULT 0,
    total_credits NUMERIC(8,2) NOT NULL DEFAULT 0,
    credits_overridden BOOLEAN NOT NULL DEFAULT FALSE,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('draft', 'active', 'completed', 'archived'))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_seminars_single_active
    ON seminars (status) WHERE status = 'active';`

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
    id BIGSERIAL PRIMARY KEY,
    seminar_id BIGINT NOT NULL REFERENCES seminars(id) ON DELETE CASCADE,
    session_number INTEGER NOT NULL CHECK (session_number > 0),
    session_date DATE NOT NULL,
    start_time VARCHAR(5),
    end_time VARCHAR(5),
    topic TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT sessions_seminar_number_key UNIQUE (seminar_id, session_number)
);
CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(session_date);`

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(user_id),
    seminar_id BIGINT NOT NULL REFERENCES seminars(id),
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    sessions_completed INTEGER NOT NULL DEFAULT 0 CHECK (sessions_completed >= 0),
    sessions_remaining INTEGER NOT NULL CHECK (sessions_remaining >= 0),
    makeup_used BOOLEAN NOT NULL DEFAULT FALSE,
    start_session_date DATE,
    order_id VARCHAR(255),
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('active', 'completed', 'cancelled', 'on_hold'))
);
CREATE UNIQUE INDEX IF NOT EXISTS registrations_open_pair_key
    ON registrations (user_id, seminar_id) WHERE status <> 'cancelled';
CREATE INDEX IF NOT EXISTS idx_registrations_seminar ON registrations(seminar_id);`

const createAttendanceTable = `
CREATE TABLE IF NOT EXISTS attendance (
    id BIGSERIAL PRIMARY KEY,
    registration_id BIGINT NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
    session_id BIGINT NOT NULL REFERENCES sessions(id),
    method VARCHAR(10) NOT NULL,
    is_makeup BOOLEAN NOT NULL DEFAULT FALSE,
    makeup_request_id BIGINT,
    credits_awarded NUMERIC(8,2) NOT NULL DEFAULT 0,
    checked_in_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT attendance_registration_session_key UNIQUE (registration_id, session_id),
    CHECK (method IN ('qr', 'manual', 'admin'))
);
CREATE UNIQUE INDEX IF NOT EXISTS attendance_makeup_request_key
    ON attendance (makeup_request_id) WHERE makeup_request_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_attendance_session ON attendance(session_id);
CREATE INDEX IF NOT EXISTS idx_attendance_checked_in ON attendance(checked_in_at);`

// Ledger rows keep attendance_id as a plain reference: the attendance row
// is deleted on undo while its credit history stays.
const createLedgerTable = `
CREATE TABLE IF NOT EXISTS ce_credit_ledger (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(user_id),
    entry_type VARCHAR(20) NOT NULL,
    amount NUMERIC(8,2) NOT NULL CHECK (amount >= 0),
    seminar_id BIGINT REFERENCES seminars(id),
    event_id BIGINT,
    attendance_id BIGINT,
    reason TEXT,
    awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (entry_type IN ('earned', 'adjustment', 'revoked'))
);
CREATE INDEX IF NOT EXISTS idx_ledger_user ON ce_credit_ledger(user_id);
CREATE INDEX IF NOT EXISTS idx_ledger_user_seminar_awarded
    ON ce_credit_ledger(user_id, seminar_id, awarded_at);`

const createMakeupRequestsTable = `
CREATE TABLE IF NOT EXISTS makeup_requests (
    id BIGSERIAL PRIMARY KEY,
    registration_id BIGINT NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
    missed_session_id BIGINT NOT NULL REFERENCES sessions(id),
    requested_session_id BIGINT REFERENCES sessions(id),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    reason TEXT,
    notes TEXT,
    denial_reason TEXT,
    reviewed_by BIGINT REFERENCES users(user_id),
    reviewed_at TIMESTAMPTZ,
    expires_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'approved', 'denied', 'completed', 'cancelled', 'expired'))
);
CREATE UNIQUE INDEX IF NOT EXISTS makeup_requests_outstanding_key
    ON makeup_requests (registration_id) WHERE status IN ('pending', 'approved');
CREATE INDEX IF NOT EXISTS idx_makeup_requests_expiry
    ON makeup_requests(expires_at) WHERE status = 'approved';`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    starts_at TIMESTAMPTZ NOT NULL,
    ce_credits NUMERIC(8,2) NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createCertificatesTable = `
CREATE TABLE IF NOT EXISTS certificates (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(user_id),
    seminar_id BIGINT REFERENCES seminars(id),
    event_id BIGINT REFERENCES events(id),
    period VARCHAR(20),
    year INTEGER,
    certificate_code VARCHAR(64) NOT NULL UNIQUE,
    credits NUMERIC(8,2) NOT NULL DEFAULT 0,
    pdf_url TEXT,
    issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (period IS NULL OR period IN ('first_half', 'second_half')),
    CHECK ((seminar_id IS NOT NULL) <> (event_id IS NOT NULL))
);
CREATE UNIQUE INDEX IF NOT EXISTS certificates_seminar_period_key
    ON certificates (user_id, seminar_id, period, year) WHERE seminar_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS certificates_event_key
    ON certificates (user_id, event_id) WHERE event_id IS NOT NULL;`

const createNotificationLogTable = `
CREATE TABLE IF NOT EXISTS notification_log (
    dedupe_key VARCHAR(255) PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
