package service

import (
	"context"
	"fmt"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"
)

type AttendanceService struct {
	attendance    AttendanceStore
	registrations RegistrationStore
	sessions      SessionStore
	seminars      SeminarStore
	makeups       MakeupStore
	credits       *CreditService
	pub           publisher
	now           func() time.Time
}

func NewAttendanceService(attendance AttendanceStore, registrations RegistrationStore, sessions SessionStore, seminars SeminarStore, makeups MakeupStore, credits *CreditService, pub publisher, now func() time.Time) *AttendanceService {
	return &AttendanceService{
		attendance:    attendance,
		registrations: registrations,
		sessions:      sessions,
		seminars:      seminars,
		makeups:       makeups,
		credits:       credits,
		pub:           pub,
		now:           now,
	}
}

// RecordAttendance checks a registration in at a session. The attendance
// row, its earned ledger entry and the counter move commit together.
func (s *AttendanceService) RecordAttendance(ctx context.Context, req *models.RecordAttendanceRequest) (*models.Attendance, error) {
	if !req.Method.Valid() {
		return nil, apperrors.Validation("method", "method must be one of qr, manual, admin")
	}

	reg, err := s.registrations.GetByID(ctx, req.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.NotFound("registration", req.RegistrationID)
	}
	if reg.Status != models.RegistrationActive {
		return nil, apperrors.Precondition(apperrors.CodeRegistrationNotActive,
			fmt.Sprintf("registration is %s", reg.Status))
	}

	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session", req.SessionID)
	}

	existing, err := s.attendance.FindByPair(ctx, reg.ID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing attendance: %w", err)
	}
	if existing != nil {
		return nil, apperrors.DuplicateAttendance(existing.ID)
	}

	seminar, err := s.seminars.GetByID(ctx, reg.SeminarID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seminar: %w", err)
	}
	if seminar == nil {
		return nil, apperrors.NotFound("seminar", reg.SeminarID)
	}

	now := s.now().UTC()
	record := &models.Attendance{
		RegistrationID: reg.ID,
		SessionID:      session.ID,
		Method:         req.Method,
		IsMakeup:       req.IsMakeup,
		CreditsAwarded: seminar.CreditsPerSession,
		CheckedInAt:    now,
	}

	if req.IsMakeup {
		request, err := s.makeupTarget(ctx, reg, session, now)
		if err != nil {
			return nil, err
		}
		record.MakeupRequestID = &request.ID
	} else if session.SeminarID != reg.SeminarID {
		return nil, apperrors.Precondition(apperrors.CodeSessionMismatch,
			"session does not belong to the registration's seminar")
	}

	if err := s.attendance.Record(ctx, record, reg); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}
	s.credits.Invalidate(ctx, reg.UserID)

	logger.WithContext(ctx).Info("Attendance recorded",
		"attendance_id", record.ID,
		"registration_id", reg.ID,
		"session_id", session.ID,
		"is_makeup", record.IsMakeup)

	s.pub.publish(ctx, models.EventAttendanceRecorded, models.AttendanceRecordedEvent{
		AttendanceID:   record.ID,
		RegistrationID: reg.ID,
		SessionID:      session.ID,
		UserID:         reg.UserID,
		IsMakeup:       record.IsMakeup,
		Credits:        record.CreditsAwarded,
		Timestamp:      now,
	})

	return record, nil
}

// SelfCheckIn records a member's own QR check-in. Members can only check in
// on the day the session runs; staff use RecordAttendance for other days.
func (s *AttendanceService) SelfCheckIn(ctx context.Context, req *models.RecordAttendanceRequest) (*models.Attendance, error) {
	if req.Method != models.MethodQR {
		return nil, apperrors.Validation("method", "self check-in must use qr")
	}

	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session", req.SessionID)
	}
	if !models.DateOf(session.SessionDate).Equal(models.DateOf(s.now())) {
		return nil, apperrors.Precondition(apperrors.CodeSessionNotToday,
			fmt.Sprintf("session %d is not running today", session.ID))
	}

	return s.RecordAttendance(ctx, req)
}

// makeupTarget returns the approved request that session satisfies.
//
// A request naming a session is satisfied only by that session. Without one,
// any session of the same seminar other than the missed one qualifies if it
// is dated on or after the day the request was submitted.
func (s *AttendanceService) makeupTarget(ctx context.Context, reg *models.Registration, session *models.Session, now time.Time) (*models.MakeupRequest, error) {
	request, err := s.makeups.FindOutstanding(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get makeup request: %w", err)
	}
	if request == nil || request.Status != models.MakeupApproved {
		return nil, apperrors.Precondition(apperrors.CodeNoApprovedMakeup,
			"registration has no approved makeup request")
	}
	if request.ExpiresAt != nil && !now.Before(*request.ExpiresAt) {
		return nil, apperrors.Precondition(apperrors.CodeNoApprovedMakeup, "makeup approval has expired")
	}

	if request.RequestedSessionID != nil {
		if *request.RequestedSessionID != session.ID {
			return nil, apperrors.Precondition(apperrors.CodeSessionMismatch,
				fmt.Sprintf("makeup request targets session %d", *request.RequestedSessionID))
		}
	} else {
		if session.SeminarID != reg.SeminarID {
			return nil, apperrors.Precondition(apperrors.CodeSessionMismatch,
				"session does not belong to the registration's seminar")
		}
		if session.ID == request.MissedSessionID {
			return nil, apperrors.Precondition(apperrors.CodeSessionMismatch,
				"makeup cannot be taken at the missed session")
		}
		if !session.OnOrAfter(request.CreatedAt) {
			return nil, apperrors.Precondition(apperrors.CodeSessionNotInFuture,
				"makeup session must not predate the request")
		}
	}

	used, err := s.attendance.FindByMakeupRequest(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check makeup attendance: %w", err)
	}
	if used != nil {
		return nil, apperrors.Precondition(apperrors.CodeMakeupAlreadyAttended,
			"makeup request already has an attendance")
	}

	return request, nil
}

// DeleteAttendance reverses a check-in. The ledger gains a revoked entry
// and the registration counters move back.
func (s *AttendanceService) DeleteAttendance(ctx context.Context, id int64) (*models.Attendance, error) {
	record, err := s.attendance.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	if record == nil {
		return nil, apperrors.NotFound("attendance", id)
	}

	reg, err := s.registrations.GetByID(ctx, record.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.NotFound("registration", record.RegistrationID)
	}

	now := s.now().UTC()
	if err := s.attendance.Delete(ctx, record, reg, now); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete attendance: %w", err)
	}
	s.credits.Invalidate(ctx, reg.UserID)

	s.pub.publish(ctx, models.EventAttendanceDeleted, models.AttendanceDeletedEvent{
		AttendanceID:   record.ID,
		RegistrationID: reg.ID,
		SessionID:      record.SessionID,
		UserID:         reg.UserID,
		Credits:        record.CreditsAwarded,
		Timestamp:      now,
	})

	return record, nil
}

func (s *AttendanceService) ListAttendance(ctx context.Context, registrationID int64) ([]models.Attendance, error) {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.NotFound("registration", registrationID)
	}

	records, err := s.attendance.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return records, nil
}
