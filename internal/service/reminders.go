package service

import (
	"context"
	"fmt"
	"time"

	"ceseminars/internal/external"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"
)

// ReminderService mails active registrations the day before a session.
type ReminderService struct {
	sessions      SessionStore
	registrations RegistrationStore
	users         UserStore
	seminars      SeminarStore
	notifications NotificationStore
	mailer        Mailer
	now           func() time.Time
}

func NewReminderService(sessions SessionStore, registrations RegistrationStore, users UserStore, seminars SeminarStore, notifications NotificationStore, mailer Mailer, now func() time.Time) *ReminderService {
	return &ReminderService{
		sessions:      sessions,
		registrations: registrations,
		users:         users,
		seminars:      seminars,
		notifications: notifications,
		mailer:        mailer,
		now:           now,
	}
}

// SendSessionReminders mails every active registration of tomorrow's
// sessions once. A dedupe key is claimed before each send and released if
// the send fails, so a rerun only retries what did not go out.
func (s *ReminderService) SendSessionReminders(ctx context.Context) (int, error) {
	log := logger.WithContext(ctx)
	if s.mailer == nil {
		log.Warn("Mail is not configured, skipping session reminders")
		return 0, nil
	}

	tomorrow := models.DateOf(s.now()).AddDate(0, 0, 1)
	sessions, err := s.sessions.ListOnDate(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	active := models.RegistrationActive
	sent := 0
	for i := range sessions {
		session := &sessions[i]

		seminar, err := s.seminars.GetByID(ctx, session.SeminarID)
		if err != nil || seminar == nil {
			log.Error("Failed to load seminar for reminder", "error", err, "seminar_id", session.SeminarID)
			continue
		}

		regs, err := s.registrations.ListBySeminar(ctx, session.SeminarID, &active)
		if err != nil {
			log.Error("Failed to list registrations for reminder", "error", err, "session_id", session.ID)
			continue
		}

		for _, reg := range regs {
			ok, err := s.remind(ctx, seminar, session, &reg)
			if err != nil {
				log.Error("Failed to send session reminder",
					"error", err,
					"session_id", session.ID,
					"registration_id", reg.ID)
				continue
			}
			if ok {
				sent++
			}
		}
	}

	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, seminar *models.Seminar, session *models.Session, reg *models.Registration) (bool, error) {
	user, err := s.users.GetByID(ctx, reg.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.Email == "" {
		return false, nil
	}

	key := fmt.Sprintf("session-reminder:%d:%d", session.ID, reg.ID)
	claimed, err := s.notifications.Claim(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	if !claimed {
		return false, nil
	}

	vars := map[string]interface{}{
		"first_name":     user.FirstName,
		"seminar_title":  seminar.Title,
		"session_number": session.SessionNumber,
		"session_date":   session.SessionDate.Format("Monday, January 2"),
	}
	if session.Topic != nil {
		vars["topic"] = *session.Topic
	}
	if session.StartTime != nil {
		vars["start_time"] = *session.StartTime
	}

	if err := s.mailer.Send(ctx, external.TemplateSessionReminder, user.Email, vars); err != nil {
		if releaseErr := s.notifications.Release(ctx, key); releaseErr != nil {
			logger.WithContext(ctx).Error("Failed to release reminder claim", "error", releaseErr, "key", key)
		}
		return false, err
	}
	return true, nil
}
