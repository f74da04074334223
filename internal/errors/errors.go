package errors

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

// Kind groups domain failures by how callers should react to them.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindDuplicate              Kind = "duplicate"
	KindPreconditionFailed     Kind = "precondition_failed"
	KindValidation             Kind = "validation"
)

// Codes narrow a kind down to the concrete rule that was broken.
const (
	CodeDuplicateRequest       = "DuplicateRequest"
	CodeDuplicateAttendance    = "DuplicateAttendance"
	CodeAlreadyRegistered      = "AlreadyRegistered"
	CodeDuplicateSession       = "DuplicateSessionNumber"
	CodeHasDependentAttendance = "HasDependentAttendance"
	CodeSessionReferenced      = "SessionReferenced"
	CodeMakeupAlreadyUsed      = "MakeupAlreadyUsed"
	CodeRegistrationNotActive  = "RegistrationNotActive"
	CodeSessionMismatch        = "SessionMismatch"
	CodeSessionNotInFuture     = "SessionNotInFuture"
	CodeSessionNotToday        = "SessionNotToday"
	CodeMakeupAlreadyReviewed  = "MakeupAlreadyReviewed"
	CodeSessionAlreadyAttended = "SessionAlreadyAttended"
	CodeNoApprovedMakeup       = "NoApprovedMakeup"
	CodeMakeupAlreadyAttended  = "MakeupAlreadyAttended"
	CodeSeminarNotOpen         = "SeminarNotOpen"
	CodeNotConfigured          = "NotConfigured"
	CodeCertificateExists      = "CertificateExists"
	CodeEmailTaken             = "EmailTaken"
)

// Error is the typed failure returned by services. It is matched with
// errors.Is against the Err* sentinels below.
type Error struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Action     string `json:"action,omitempty"`
	State      string `json:"state,omitempty"`
	ExistingID *int64 `json:"existing_id,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Is reports whether target is a sentinel of the same kind. A sentinel
// carrying a code only matches errors with that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrDuplicate              = &Error{Kind: KindDuplicate}
	ErrPreconditionFailed     = &Error{Kind: KindPreconditionFailed}
	ErrValidation             = &Error{Kind: KindValidation}

	ErrDuplicateRequest       = &Error{Kind: KindDuplicate, Code: CodeDuplicateRequest}
	ErrDuplicateAttendance    = &Error{Kind: KindDuplicate, Code: CodeDuplicateAttendance}
	ErrAlreadyRegistered      = &Error{Kind: KindDuplicate, Code: CodeAlreadyRegistered}
	ErrHasDependentAttendance = &Error{Kind: KindPreconditionFailed, Code: CodeHasDependentAttendance}
	ErrMakeupAlreadyUsed      = &Error{Kind: KindPreconditionFailed, Code: CodeMakeupAlreadyUsed}
)

func NotFound(entity string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func InvalidTransition(action, state string) *Error {
	return &Error{
		Kind:    KindInvalidStateTransition,
		Message: fmt.Sprintf("cannot %s from state %s", action, state),
		Action:  action,
		State:   state,
	}
}

func DuplicateRequest(existingID int64) *Error {
	return &Error{
		Kind:       KindDuplicate,
		Code:       CodeDuplicateRequest,
		Message:    "an outstanding makeup request already exists for this registration",
		ExistingID: &existingID,
	}
}

func DuplicateAttendance(existingID int64) *Error {
	return &Error{
		Kind:       KindDuplicate,
		Code:       CodeDuplicateAttendance,
		Message:    "attendance already recorded for this session",
		ExistingID: &existingID,
	}
}

func AlreadyRegistered(existingID int64) *Error {
	e := &Error{
		Kind:    KindDuplicate,
		Code:    CodeAlreadyRegistered,
		Message: "user is already registered for this seminar",
	}
	if existingID > 0 {
		e.ExistingID = &existingID
	}
	return e
}

func Duplicate(code, message string) *Error {
	return &Error{Kind: KindDuplicate, Code: code, Message: message}
}

func HasDependentAttendance(sessionID int64) *Error {
	return &Error{
		Kind:    KindPreconditionFailed,
		Code:    CodeHasDependentAttendance,
		Message: fmt.Sprintf("session %d has attendance records", sessionID),
	}
}

func Precondition(code, message string) *Error {
	return &Error{Kind: KindPreconditionFailed, Code: code, Message: message}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// As unwraps err into a domain error if it carries one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
