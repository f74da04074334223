package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"
)

type MakeupService struct {
	makeups       MakeupStore
	registrations RegistrationStore
	sessions      SessionStore
	attendance    AttendanceStore
	pub           publisher
	approvalTTL   time.Duration
	now           func() time.Time
}

func NewMakeupService(makeups MakeupStore, registrations RegistrationStore, sessions SessionStore, attendance AttendanceStore, pub publisher, approvalTTL time.Duration, now func() time.Time) *MakeupService {
	return &MakeupService{
		makeups:       makeups,
		registrations: registrations,
		sessions:      sessions,
		attendance:    attendance,
		pub:           pub,
		approvalTTL:   approvalTTL,
		now:           now,
	}
}

// Submit opens a pending makeup request for a missed session.
func (s *MakeupService) Submit(ctx context.Context, req *models.SubmitMakeupRequest) (*models.SubmitMakeupResponse, error) {
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
	if reg.MakeupUsed {
		return nil, apperrors.Precondition(apperrors.CodeMakeupAlreadyUsed,
			"registration has already used its makeup")
	}

	outstanding, err := s.makeups.FindOutstanding(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check outstanding requests: %w", err)
	}
	if outstanding != nil {
		return nil, apperrors.DuplicateRequest(outstanding.ID)
	}

	missed, err := s.sessions.GetByID(ctx, req.MissedSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get missed session: %w", err)
	}
	if missed == nil {
		return nil, apperrors.NotFound("session", req.MissedSessionID)
	}
	if missed.SeminarID != reg.SeminarID {
		return nil, apperrors.Precondition(apperrors.CodeSessionMismatch,
			"missed session does not belong to the registration's seminar")
	}

	attended, err := s.attendance.FindByPair(ctx, reg.ID, missed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check attendance: %w", err)
	}
	if attended != nil {
		return nil, apperrors.Precondition(apperrors.CodeSessionAlreadyAttended,
			"missed session was attended")
	}

	now := s.now().UTC()
	var requested *models.Session
	if req.RequestedSessionID != nil {
		requested, err = s.requestedSession(ctx, *req.RequestedSessionID, missed, now)
		if err != nil {
			return nil, err
		}
	}

	request := &models.MakeupRequest{
		RegistrationID:     reg.ID,
		MissedSessionID:    missed.ID,
		RequestedSessionID: req.RequestedSessionID,
		Status:             models.MakeupPending,
		Reason:             trimmed(req.Reason),
		CreatedAt:          now,
	}
	if err := s.makeups.Create(ctx, request); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create makeup request: %w", err)
	}

	s.pub.publish(ctx, models.EventMakeupSubmitted, models.MakeupSubmittedEvent{
		RequestID:       request.ID,
		RegistrationID:  reg.ID,
		UserID:          reg.UserID,
		MissedSessionID: missed.ID,
		Timestamp:       now,
	})

	return &models.SubmitMakeupResponse{
		ID:               request.ID,
		Status:           request.Status,
		MissedSession:    models.NewSessionSummary(missed),
		RequestedSession: models.NewSessionSummary(requested),
	}, nil
}

// requestedSession loads a makeup target and checks it is usable. It must
// belong to the missed session's seminar, differ from the missed session and
// not be dated in the past.
func (s *MakeupService) requestedSession(ctx context.Context, id int64, missed *models.Session, now time.Time) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get requested session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session", id)
	}
	if session.SeminarID != missed.SeminarID {
		return nil, apperrors.Precondition(apperrors.CodeSessionMismatch,
			"requested session belongs to another seminar")
	}
	if session.ID == missed.ID {
		return nil, apperrors.Precondition(apperrors.CodeSessionMismatch,
			"requested session is the missed session")
	}
	if !session.OnOrAfter(now) {
		return nil, apperrors.Precondition(apperrors.CodeSessionNotInFuture,
			"requested session must be in the future")
	}
	return session, nil
}

// Act applies a review action. The store compares the status it read with
// the current one, so a concurrent winner turns this call into
// InvalidStateTransition instead of being overwritten.
func (s *MakeupService) Act(ctx context.Context, id int64, req *models.MakeupActionRequest, reviewerID *int64) (*models.MakeupRequest, error) {
	if !req.Action.Valid() {
		return nil, apperrors.Validation("action", "unknown makeup action")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	to, ok := models.NextMakeupStatus(current.Status, req.Action)
	if !ok {
		return nil, apperrors.InvalidTransition(string(req.Action), string(current.Status))
	}

	patch, err := s.patchFor(ctx, current, req, reviewerID)
	if err != nil {
		return nil, err
	}

	updated, err := s.makeups.Transition(ctx, id, current.Status, to, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to apply makeup action: %w", err)
	}
	if updated == nil {
		latest, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidTransition(string(req.Action), string(latest.Status))
	}

	logger.WithContext(ctx).Info("Makeup request transitioned",
		"request_id", id,
		"action", req.Action,
		"from", current.Status,
		"to", to)

	s.announce(ctx, updated, req.Action, current.Status)
	return updated, nil
}

func (s *MakeupService) patchFor(ctx context.Context, current *models.MakeupRequest, req *models.MakeupActionRequest, reviewerID *int64) (models.MakeupPatch, error) {
	now := s.now().UTC()
	patch := models.MakeupPatch{Notes: trimmed(req.Notes)}

	switch req.Action {
	case models.ActionApprove:
		target := current.RequestedSessionID
		if req.RequestedSessionID != nil {
			if _, err := s.retarget(ctx, current, *req.RequestedSessionID, now); err != nil {
				return patch, err
			}
			patch.RequestedSessionID = req.RequestedSessionID
			target = req.RequestedSessionID
		}
		expires, err := s.expiry(ctx, target, now)
		if err != nil {
			return patch, err
		}
		patch.ReviewedBy = reviewerID
		patch.ReviewedAt = &now
		patch.ExpiresAt = &expires

	case models.ActionDeny:
		reason := trimmed(req.DenialReason)
		if reason == nil {
			return patch, apperrors.Validation("denial_reason", "denial_reason is required to deny a request")
		}
		patch.DenialReason = reason
		patch.ReviewedBy = reviewerID
		patch.ReviewedAt = &now

	case models.ActionComplete:
		patch.CompletedAt = &now

	case models.ActionUpdate:
		if patch.Notes == nil && req.RequestedSessionID == nil {
			return patch, apperrors.Validation("notes", "nothing to update")
		}
		if req.RequestedSessionID != nil {
			if _, err := s.retarget(ctx, current, *req.RequestedSessionID, now); err != nil {
				return patch, err
			}
			patch.RequestedSessionID = req.RequestedSessionID
			if current.Status == models.MakeupApproved {
				expires, err := s.expiry(ctx, req.RequestedSessionID, now)
				if err != nil {
					return patch, err
				}
				patch.ExpiresAt = &expires
			}
		}
	}

	return patch, nil
}

func (s *MakeupService) retarget(ctx context.Context, current *models.MakeupRequest, sessionID int64, now time.Time) (*models.Session, error) {
	missed, err := s.sessions.GetByID(ctx, current.MissedSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get missed session: %w", err)
	}
	if missed == nil {
		return nil, apperrors.NotFound("session", current.MissedSessionID)
	}
	return s.requestedSession(ctx, sessionID, missed, now)
}

// expiry is the end of the requested session's day, or the approval TTL
// when no session was requested.
func (s *MakeupService) expiry(ctx context.Context, sessionID *int64, now time.Time) (time.Time, error) {
	if sessionID == nil {
		return now.Add(s.approvalTTL), nil
	}
	session, err := s.sessions.GetByID(ctx, *sessionID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get requested session: %w", err)
	}
	if session == nil {
		return time.Time{}, apperrors.NotFound("session", *sessionID)
	}
	return models.DateOf(session.SessionDate).AddDate(0, 0, 1), nil
}

// ExpireDue moves every approved request past its expiry to expired and
// returns how many this call transitioned. Requests another worker already
// moved are skipped, so reruns neither double-transition nor double-notify.
func (s *MakeupService) ExpireDue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.makeups.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired makeup requests: %w", err)
	}

	expired := 0
	for _, request := range due {
		updated, err := s.makeups.Transition(ctx, request.ID, models.MakeupApproved, models.MakeupExpired, models.MakeupPatch{})
		if err != nil {
			logger.WithContext(ctx).Error("Failed to expire makeup request",
				"error", err,
				"request_id", request.ID)
			continue
		}
		if updated == nil {
			continue
		}
		expired++
		s.announce(ctx, updated, models.ActionExpire, models.MakeupApproved)
	}

	return expired, nil
}

func (s *MakeupService) announce(ctx context.Context, request *models.MakeupRequest, action models.MakeupAction, from models.MakeupStatus) {
	event := models.MakeupTransitionedEvent{
		RequestID:      request.ID,
		RegistrationID: request.RegistrationID,
		Action:         action,
		From:           from,
		To:             request.Status,
		Timestamp:      s.now(),
	}
	if reg, err := s.registrations.GetByID(ctx, request.RegistrationID); err == nil && reg != nil {
		event.UserID = reg.UserID
	}
	s.pub.publish(ctx, models.EventMakeupTransitioned, event)
}

func (s *MakeupService) Get(ctx context.Context, id int64) (*models.MakeupRequest, error) {
	request, err := s.makeups.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get makeup request: %w", err)
	}
	if request == nil {
		return nil, apperrors.NotFound("makeup request", id)
	}
	return request, nil
}

func (s *MakeupService) ListByRegistration(ctx context.Context, registrationID int64) ([]models.MakeupRequest, error) {
	requests, err := s.makeups.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list makeup requests: %w", err)
	}
	return requests, nil
}

func (s *MakeupService) ListByStatus(ctx context.Context, status models.MakeupStatus) ([]models.MakeupRequest, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("status", "unknown makeup status")
	}
	requests, err := s.makeups.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list makeup requests: %w", err)
	}
	return requests, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
