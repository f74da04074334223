package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NATS Event Types
const (
	EventRegistrationCreated   = "registration.created"
	EventRegistrationCancelled = "registration.cancelled"
	EventAttendanceRecorded    = "attendance.recorded"
	EventAttendanceDeleted     = "attendance.deleted"
	EventMakeupSubmitted       = "makeup.submitted"
	EventMakeupTransitioned    = "makeup.transitioned"
	EventCertificateIssued     = "certificate.issued"
	EventOrderPaid             = "order.paid"
)

// RegistrationCreatedEvent is published when a user enrolls in a seminar
type RegistrationCreatedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	UserID         int64     `json:"user_id"`
	SeminarID      int64     `json:"seminar_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// RegistrationCancelledEvent is published when an enrollment is cancelled
type RegistrationCancelledEvent struct {
	RegistrationID int64     `json:"registration_id"`
	UserID         int64     `json:"user_id"`
	SeminarID      int64     `json:"seminar_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// AttendanceRecordedEvent represents a credit-earning check-in
type AttendanceRecordedEvent struct {
	AttendanceID   int64           `json:"attendance_id"`
	RegistrationID int64           `json:"registration_id"`
	SessionID      int64           `json:"session_id"`
	UserID         int64           `json:"user_id"`
	IsMakeup       bool            `json:"is_makeup"`
	Credits        decimal.Decimal `json:"credits"`
	Timestamp      time.Time       `json:"timestamp"`
}

// AttendanceDeletedEvent represents a reversed check-in
type AttendanceDeletedEvent struct {
	AttendanceID   int64           `json:"attendance_id"`
	RegistrationID int64           `json:"registration_id"`
	SessionID      int64           `json:"session_id"`
	UserID         int64           `json:"user_id"`
	Credits        decimal.Decimal `json:"credits"`
	Timestamp      time.Time       `json:"timestamp"`
}

// MakeupSubmittedEvent represents a new pending makeup request
type MakeupSubmittedEvent struct {
	RequestID       int64     `json:"request_id"`
	RegistrationID  int64     `json:"registration_id"`
	UserID          int64     `json:"user_id"`
	MissedSessionID int64     `json:"missed_session_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// MakeupTransitionedEvent represents a status change of a makeup request
type MakeupTransitionedEvent struct {
	RequestID      int64        `json:"request_id"`
	RegistrationID int64        `json:"registration_id"`
	UserID         int64        `json:"user_id"`
	Action         MakeupAction `json:"action"`
	From           MakeupStatus `json:"from"`
	To             MakeupStatus `json:"to"`
	Timestamp      time.Time    `json:"timestamp"`
}

// CertificateIssuedEvent represents a freshly issued certificate
type CertificateIssuedEvent struct {
	CertificateID   int64     `json:"certificate_id"`
	CertificateCode string    `json:"certificate_code"`
	UserID          int64     `json:"user_id"`
	SeminarID       *int64    `json:"seminar_id,omitempty"`
	EventID         *int64    `json:"event_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
