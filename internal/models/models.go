package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date accepts "2006-01-02" as well as RFC 3339 timestamps in JSON bodies
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", str); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return fmt.Errorf("invalid date value: %s", str)
	}
	d.Time = DateOf(t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

// CreateSeminarRequest - seminar creation payload
type CreateSeminarRequest struct {
	Title             string           `json:"title" binding:"required"`
	Year              int              `json:"year" binding:"required,gte=2000"`
	Description       *string          `json:"description,omitempty"`
	TotalSessions     int              `json:"total_sessions" binding:"required,gte=1"`
	CreditsPerSession decimal.Decimal  `json:"credits_per_session"`
	TotalCredits      *decimal.Decimal `json:"total_credits,omitempty"`
}

// UpdateSeminarStatusRequest - admin status change
type UpdateSeminarStatusRequest struct {
	Status SeminarStatus `json:"status" binding:"required,seminar_status"`
}

// SessionRequest - create/update payload for a session
type SessionRequest struct {
	SessionNumber int     `json:"session_number" binding:"required,gte=1"`
	SessionDate   Date    `json:"session_date" binding:"required"`
	StartTime     *string `json:"start_time,omitempty"`
	EndTime       *string `json:"end_time,omitempty"`
	Topic         *string `json:"topic,omitempty"`
}

// RegisterRequest - enrollment payload; user_id is only honoured for admins
type RegisterRequest struct {
	SeminarID int64  `json:"seminar_id" binding:"required"`
	UserID    *int64 `json:"user_id,omitempty"`
}

// RecordAttendanceRequest - check-in payload
type RecordAttendanceRequest struct {
	RegistrationID int64            `json:"registration_id" binding:"required"`
	SessionID      int64            `json:"session_id" binding:"required"`
	Method         AttendanceMethod `json:"method" binding:"required,attendance_method"`
	IsMakeup       bool             `json:"is_makeup"`
}

// SubmitMakeupRequest - makeup submission payload
type SubmitMakeupRequest struct {
	RegistrationID     int64   `json:"registration_id" binding:"required"`
	MissedSessionID    int64   `json:"missed_session_id" binding:"required"`
	RequestedSessionID *int64  `json:"requested_session_id,omitempty"`
	Reason             *string `json:"reason,omitempty"`
}

// MakeupActionRequest - review/act payload
type MakeupActionRequest struct {
	Action             MakeupAction `json:"action" binding:"required,makeup_action"`
	Notes              *string      `json:"notes,omitempty"`
	DenialReason       *string      `json:"denial_reason,omitempty"`
	RequestedSessionID *int64       `json:"requested_session_id,omitempty"`
}

// SessionSummary - echoed session details in makeup responses
type SessionSummary struct {
	ID            int64   `json:"id"`
	SessionNumber int     `json:"session_number"`
	SessionDate   Date    `json:"session_date"`
	Topic         *string `json:"topic,omitempty"`
}

func NewSessionSummary(s *Session) *SessionSummary {
	if s == nil {
		return nil
	}
	return &SessionSummary{
		ID:            s.ID,
		SessionNumber: s.SessionNumber,
		SessionDate:   Date{s.SessionDate},
		Topic:         s.Topic,
	}
}

// SubmitMakeupResponse - result of a makeup submission
type SubmitMakeupResponse struct {
	ID               int64           `json:"id"`
	Status           MakeupStatus    `json:"status"`
	MissedSession    *SessionSummary `json:"missed_session"`
	RequestedSession *SessionSummary `json:"requested_session"`
}

// IssueCertificatesRequest - bi-annual issuance payload
type IssueCertificatesRequest struct {
	SeminarID       int64   `json:"seminar_id" binding:"required"`
	Period          Period  `json:"period" binding:"required,ce_period"`
	Year            int     `json:"year" binding:"required,gte=2000"`
	RegistrationIDs []int64 `json:"registration_ids,omitempty"`
}

// IssueError - per-registration issuance failure
type IssueError struct {
	RegistrationID int64  `json:"registration_id"`
	UserID         int64  `json:"user_id,omitempty"`
	Error          string `json:"error"`
}

// IssueCertificatesResponse - batch issuance outcome
type IssueCertificatesResponse struct {
	Generated []Certificate `json:"generated"`
	Skipped   []int64       `json:"skipped"`
	Errors    []IssueError  `json:"errors"`
}

// IssueEventCertificateRequest - single-event certificate payload
type IssueEventCertificateRequest struct {
	UserID  int64 `json:"user_id" binding:"required"`
	EventID int64 `json:"event_id" binding:"required"`
}

// CreateEventRequest - single-event course listing payload
type CreateEventRequest struct {
	Title     string          `json:"title" binding:"required"`
	StartsAt  time.Time       `json:"starts_at" binding:"required"`
	CECredits decimal.Decimal `json:"ce_credits"`
}

// CreditAdjustmentRequest - manual ledger adjustment
type CreditAdjustmentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" binding:"required"`
	SeminarID *int64          `json:"seminar_id,omitempty"`
}

// CreditSummaryResponse - canonical CE total with history
type CreditSummaryResponse struct {
	UserID  int64           `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
	Entries []LedgerEntry   `json:"entries"`
}

// OrderPaidPayload - payment processor webhook body
type OrderPaidPayload struct {
	OrderID   string `json:"order_id" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	SeminarID int64  `json:"seminar_id" binding:"required"`
	Timestamp string `json:"timestamp"`
	Token     string `json:"token" binding:"required"`
}

// CertificateDocument - data handed to the PDF renderer
type CertificateDocument struct {
	Code        string          `json:"code"`
	Recipient   string          `json:"recipient"`
	Title       string          `json:"title"`
	PeriodLabel string          `json:"period_label,omitempty"`
	Credits     decimal.Decimal `json:"credits"`
	IssuedOn    string          `json:"issued_on"`
}

// Roster - attendance grid of one seminar, one row per registration
type Roster struct {
	Seminar  Seminar     `json:"seminar"`
	Sessions []Session   `json:"sessions"`
	Rows     []RosterRow `json:"rows"`
}

// RosterRow - a registration with its check-ins keyed by session id
type RosterRow struct {
	Registration Registration         `json:"registration"`
	User         *User                `json:"user,omitempty"`
	Attendance   map[int64]Attendance `json:"attendance"`
}

// AttendanceImportRow - one parsed spreadsheet line
type AttendanceImportRow struct {
	Row     int
	Request RecordAttendanceRequest
}

// ImportAttendanceResponse - outcome of a spreadsheet attendance import
type ImportAttendanceResponse struct {
	Recorded []Attendance  `json:"recorded"`
	Errors   []ImportError `json:"errors"`
}

// ImportError - one spreadsheet row that could not be recorded
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}
