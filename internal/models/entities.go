package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SeminarStatus string

const (
	SeminarDraft     SeminarStatus = "draft"
	SeminarActive    SeminarStatus = "active"
	SeminarCompleted SeminarStatus = "completed"
	SeminarArchived  SeminarStatus = "archived"
)

func (s SeminarStatus) Valid() bool {
	switch s {
	case SeminarDraft, SeminarActive, SeminarCompleted, SeminarArchived:
		return true
	}
	return false
}

// Seminar - multi-session CE program for a given year
type Seminar struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Year              int             `json:"year"`
	Description       *string         `json:"description,omitempty"`
	TotalSessions     int             `json:"total_sessions"`
	CreditsPerSession decimal.Decimal `json:"credits_per_session"`
	TotalCredits      decimal.Decimal `json:"total_credits"`
	CreditsOverridden bool            `json:"credits_overridden"`
	Status            SeminarStatus   `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// RecomputeCredits keeps total_credits = total_sessions * credits_per_session
// unless the total was explicitly overridden.
func (s *Seminar) RecomputeCredits() {
	if s.CreditsOverridden {
		return
	}
	s.TotalCredits = s.CreditsPerSession.Mul(decimal.NewFromInt(int64(s.TotalSessions)))
}

// Session - one dated meeting of a seminar
type Session struct {
	ID            int64     `json:"id"`
	SeminarID     int64     `json:"seminar_id"`
	SessionNumber int       `json:"session_number"`
	SessionDate   time.Time `json:"session_date"`
	StartTime     *string   `json:"start_time,omitempty"`
	EndTime       *string   `json:"end_time,omitempty"`
	Topic         *string   `json:"topic,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OnOrAfter reports whether the session is dated on day or later.
// Session dates carry no time of day, so both sides compare as UTC dates.
func (s *Session) OnOrAfter(day time.Time) bool {
	return !DateOf(s.SessionDate).Before(DateOf(day))
}

type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationCompleted RegistrationStatus = "completed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationOnHold    RegistrationStatus = "on_hold"
)

// Registration - user enrollment in a seminar with progress counters
type Registration struct {
	ID                int64              `json:"id"`
	UserID            int64              `json:"user_id"`
	SeminarID         int64              `json:"seminar_id"`
	Status            RegistrationStatus `json:"status"`
	SessionsCompleted int                `json:"sessions_completed"`
	SessionsRemaining int                `json:"sessions_remaining"`
	MakeupUsed        bool               `json:"makeup_used"`
	StartSessionDate  *time.Time         `json:"start_session_date,omitempty"`
	OrderID           *string            `json:"order_id,omitempty"`
	RegisteredAt      time.Time          `json:"registered_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type AttendanceMethod string

const (
	MethodQR     AttendanceMethod = "qr"
	MethodManual AttendanceMethod = "manual"
	MethodAdmin  AttendanceMethod = "admin"
)

func (m AttendanceMethod) Valid() bool {
	switch m {
	case MethodQR, MethodManual, MethodAdmin:
		return true
	}
	return false
}

// Attendance - check-in of a registration at a session
type Attendance struct {
	ID              int64            `json:"id"`
	RegistrationID  int64            `json:"registration_id"`
	SessionID       int64            `json:"session_id"`
	Method          AttendanceMethod `json:"method"`
	IsMakeup        bool             `json:"is_makeup"`
	MakeupRequestID *int64           `json:"makeup_request_id,omitempty"`
	CreditsAwarded  decimal.Decimal  `json:"credits_awarded"`
	CheckedInAt     time.Time        `json:"checked_in_at"`
}

type LedgerEntryType string

const (
	LedgerEarned     LedgerEntryType = "earned"
	LedgerAdjustment LedgerEntryType = "adjustment"
	LedgerRevoked    LedgerEntryType = "revoked"
)

// LedgerEntry - append-only CE credit movement
type LedgerEntry struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	EntryType    LedgerEntryType `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	SeminarID    *int64          `json:"seminar_id,omitempty"`
	EventID      *int64          `json:"event_id,omitempty"`
	AttendanceID *int64          `json:"attendance_id,omitempty"`
	Reason       *string         `json:"reason,omitempty"`
	AwardedAt    time.Time       `json:"awarded_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Signed returns the entry's contribution to a user's total.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.EntryType == LedgerRevoked {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Certificate - issued proof of completion for a seminar period or an event
type Certificate struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	SeminarID       *int64          `json:"seminar_id,omitempty"`
	EventID         *int64          `json:"event_id,omitempty"`
	Period          *Period         `json:"period,omitempty"`
	Year            *int            `json:"year,omitempty"`
	CertificateCode string          `json:"certificate_code"`
	Credits         decimal.Decimal `json:"credits"`
	PDFURL          *string         `json:"pdf_url,omitempty"`
	IssuedAt        time.Time       `json:"issued_at"`
}

// User - local mirror of an identity provider account
type User struct {
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	Surname      string    `json:"surname"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	IsActive     bool      `json:"is_active"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.Surname)
}

// Event - single-session CE course listing
type Event struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	StartsAt  time.Time       `json:"starts_at"`
	CECredits decimal.Decimal `json:"ce_credits"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// EligibleRegistration - per-registration certificate aggregate for one period
type EligibleRegistration struct {
	Registration     Registration    `json:"registration"`
	User             *User           `json:"user,omitempty"`
	CreditsEarned    decimal.Decimal `json:"credits_earned"`
	SessionsInPeriod int             `json:"sessions_in_period"`
	// LookupErr is set when the user could not be loaded.
	LookupErr error `json:"-"`
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
