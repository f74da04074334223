package service

import (
	"context"
	"fmt"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type RegistrationService struct {
	registrations RegistrationStore
	seminars      SeminarStore
	sessions      SessionStore
	pub           publisher
	now           func() time.Time
}

func NewRegistrationService(registrations RegistrationStore, seminars SeminarStore, sessions SessionStore, pub publisher, now func() time.Time) *RegistrationService {
	return &RegistrationService{
		registrations: registrations,
		seminars:      seminars,
		sessions:      sessions,
		pub:           pub,
		now:           now,
	}
}

// Register enrolls userID in seminarID. orderID links the registration to
// the paid order that produced it and may be nil.
func (s *RegistrationService) Register(ctx context.Context, userID, seminarID int64, orderID *string) (*models.Registration, error) {
	seminar, err := s.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seminar: %w", err)
	}
	if seminar == nil {
		return nil, apperrors.NotFound("seminar", seminarID)
	}
	if seminar.Status != models.SeminarDraft && seminar.Status != models.SeminarActive {
		return nil, apperrors.Precondition(apperrors.CodeSeminarNotOpen,
			fmt.Sprintf("seminar is %s and does not accept registrations", seminar.Status))
	}

	// Fast path; the partial unique index still catches concurrent inserts
	existing, err := s.registrations.FindOpen(ctx, userID, seminarID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyRegistered(existing.ID)
	}

	reg := &models.Registration{
		UserID:            userID,
		SeminarID:         seminarID,
		Status:            models.RegistrationActive,
		SessionsCompleted: 0,
		SessionsRemaining: seminar.TotalSessions,
		OrderID:           orderID,
	}

	next, err := s.sessions.NextOnOrAfter(ctx, seminarID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to find next session: %w", err)
	}
	if next != nil {
		date := models.DateOf(next.SessionDate)
		reg.StartSessionDate = &date
	}

	if err := s.registrations.Create(ctx, reg); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	s.pub.publish(ctx, models.EventRegistrationCreated, models.RegistrationCreatedEvent{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		SeminarID:      reg.SeminarID,
		Timestamp:      s.now(),
	})

	return reg, nil
}

func (s *RegistrationService) Get(ctx context.Context, id int64) (*models.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.NotFound("registration", id)
	}
	return reg, nil
}

// Cancel moves the registration to cancelled. Counters stay as they were.
func (s *RegistrationService) Cancel(ctx context.Context, id int64) (*models.Registration, error) {
	reg, err := s.registrations.Cancel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel registration: %w", err)
	}
	if reg == nil {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidTransition("cancel", string(current.Status))
	}

	s.pub.publish(ctx, models.EventRegistrationCancelled, models.RegistrationCancelledEvent{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		SeminarID:      reg.SeminarID,
		Timestamp:      s.now(),
	})

	return reg, nil
}

func (s *RegistrationService) Hold(ctx context.Context, id int64) (*models.Registration, error) {
	return s.move(ctx, id, "hold", models.RegistrationActive, models.RegistrationOnHold)
}

func (s *RegistrationService) Resume(ctx context.Context, id int64) (*models.Registration, error) {
	return s.move(ctx, id, "resume", models.RegistrationOnHold, models.RegistrationActive)
}

func (s *RegistrationService) move(ctx context.Context, id int64, action string, from, to models.RegistrationStatus) (*models.Registration, error) {
	reg, err := s.registrations.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update registration status: %w", err)
	}
	if reg == nil {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidTransition(action, string(current.Status))
	}
	return reg, nil
}

func (s *RegistrationService) ListBySeminar(ctx context.Context, seminarID int64, status *models.RegistrationStatus) ([]models.Registration, error) {
	regs, err := s.registrations.ListBySeminar(ctx, seminarID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

func (s *RegistrationService) ListByUser(ctx context.Context, userID int64) ([]models.Registration, error) {
	regs, err := s.registrations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}
