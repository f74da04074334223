package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ceseminars/internal/external"
	"ceseminars/internal/logger"
	"ceseminars/internal/metrics"
	"ceseminars/internal/models"
	"ceseminars/internal/service"

	"github.com/nats-io/stan.go"
)

// Stores are the read models the notification handlers need
type Stores struct {
	Users         service.UserStore
	Registrations service.RegistrationStore
	Seminars      service.SeminarStore
	Sessions      service.SessionStore
	Makeups       service.MakeupStore
	Certificates  service.CertificateStore
	Events        service.EventStore
	Notifications service.NotificationStore
}

// Handlers turn domain events into member emails. Each mail is claimed in
// the notification log first so a redelivered message sends nothing.
type Handlers struct {
	stores Stores
	mailer service.Mailer
}

func NewHandlers(stores Stores, mailer service.Mailer) *Handlers {
	return &Handlers{stores: stores, mailer: mailer}
}

// handle adapts a typed handler to a manual-ack stan handler. Messages that
// fail to decode are acked and dropped; handler errors leave the message
// unacked for redelivery.
func handle[T any](subject string, fn func(context.Context, T) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx := logger.ContextWithRequestID(context.Background(), logger.NewRequestID())
		log := logger.WithContext(ctx).With("subject", subject, "sequence", m.Sequence)

		var event T
		if err := json.Unmarshal(m.Data, &event); err != nil {
			log.Error("Failed to unmarshal event", "error", err)
			metrics.ObserveConsumed(subject, err)
			ack(log, m)
			return
		}

		err := fn(ctx, event)
		metrics.ObserveConsumed(subject, err)
		if err != nil {
			log.Error("Failed to process event", "error", err)
			return
		}
		ack(log, m)
	}
}

func ack(log *slog.Logger, m *stan.Msg) {
	if err := m.Ack(); err != nil {
		log.Error("Failed to ack message", "error", err)
	}
}

// send claims key, mails the user and releases the claim when sending fails
func (h *Handlers) send(ctx context.Context, key, template string, user *models.User, vars map[string]interface{}) error {
	if h.mailer == nil || user == nil || user.Email == "" {
		return nil
	}

	claimed, err := h.stores.Notifications.Claim(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to claim notification: %w", err)
	}
	if !claimed {
		logger.WithContext(ctx).Debug("Notification already sent", "key", key)
		return nil
	}

	vars["first_name"] = user.FirstName
	if err := h.mailer.Send(ctx, template, user.Email, vars); err != nil {
		if releaseErr := h.stores.Notifications.Release(ctx, key); releaseErr != nil {
			logger.WithContext(ctx).Error("Failed to release notification claim", "error", releaseErr, "key", key)
		}
		return fmt.Errorf("failed to send %s mail: %w", template, err)
	}

	logger.WithContext(ctx).Info("Notification sent", "key", key, "template", template, "user_id", user.UserID)
	return nil
}

func (h *Handlers) user(ctx context.Context, id int64) (*models.User, error) {
	user, err := h.stores.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// seminarFor returns the seminar of a registration, nil if either is gone
func (h *Handlers) seminarFor(ctx context.Context, registrationID int64) (*models.Seminar, error) {
	reg, err := h.stores.Registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, nil
	}
	seminar, err := h.stores.Seminars.GetByID(ctx, reg.SeminarID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seminar: %w", err)
	}
	return seminar, nil
}

func (h *Handlers) sessionVars(ctx context.Context, vars map[string]interface{}, prefix string, id *int64) error {
	if id == nil {
		return nil
	}
	session, err := h.stores.Sessions.GetByID(ctx, *id)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session != nil {
		vars[prefix+"_session_number"] = session.SessionNumber
		vars[prefix+"_session_date"] = session.SessionDate.Format("Monday, January 2")
	}
	return nil
}

// RegistrationCreated confirms a new enrollment
func (h *Handlers) RegistrationCreated(ctx context.Context, event models.RegistrationCreatedEvent) error {
	user, err := h.user(ctx, event.UserID)
	if err != nil {
		return err
	}
	seminar, err := h.stores.Seminars.GetByID(ctx, event.SeminarID)
	if err != nil {
		return fmt.Errorf("failed to get seminar: %w", err)
	}
	if seminar == nil {
		return nil
	}

	key := fmt.Sprintf("registration:%d", event.RegistrationID)
	return h.send(ctx, key, external.TemplateRegistration, user, map[string]interface{}{
		"seminar_title":  seminar.Title,
		"total_sessions": seminar.TotalSessions,
	})
}

// MakeupSubmitted acknowledges a new request to the member
func (h *Handlers) MakeupSubmitted(ctx context.Context, event models.MakeupSubmittedEvent) error {
	request, err := h.stores.Makeups.GetByID(ctx, event.RequestID)
	if err != nil {
		return fmt.Errorf("failed to get makeup request: %w", err)
	}
	if request == nil {
		return nil
	}
	user, err := h.user(ctx, event.UserID)
	if err != nil {
		return err
	}
	seminar, err := h.seminarFor(ctx, request.RegistrationID)
	if err != nil {
		return err
	}

	vars := map[string]interface{}{"request_id": request.ID}
	if seminar != nil {
		vars["seminar_title"] = seminar.Title
	}
	missed := request.MissedSessionID
	if err := h.sessionVars(ctx, vars, "missed", &missed); err != nil {
		return err
	}
	if err := h.sessionVars(ctx, vars, "requested", request.RequestedSessionID); err != nil {
		return err
	}

	key := fmt.Sprintf("makeup:%d:%s", request.ID, models.MakeupPending)
	return h.send(ctx, key, external.TemplateMakeupSubmitted, user, vars)
}

var transitionTemplates = map[models.MakeupStatus]string{
	models.MakeupApproved: external.TemplateMakeupApproved,
	models.MakeupDenied:   external.TemplateMakeupDenied,
	models.MakeupExpired:  external.TemplateMakeupExpired,
}

// MakeupTransitioned mails the outcome of a review or expiry. Other
// transitions are ignored.
func (h *Handlers) MakeupTransitioned(ctx context.Context, event models.MakeupTransitionedEvent) error {
	template, ok := transitionTemplates[event.To]
	if !ok {
		return nil
	}

	request, err := h.stores.Makeups.GetByID(ctx, event.RequestID)
	if err != nil {
		return fmt.Errorf("failed to get makeup request: %w", err)
	}
	if request == nil {
		return nil
	}
	user, err := h.user(ctx, event.UserID)
	if err != nil {
		return err
	}
	seminar, err := h.seminarFor(ctx, request.RegistrationID)
	if err != nil {
		return err
	}

	vars := map[string]interface{}{"request_id": request.ID}
	if seminar != nil {
		vars["seminar_title"] = seminar.Title
	}
	if err := h.sessionVars(ctx, vars, "requested", request.RequestedSessionID); err != nil {
		return err
	}
	if request.DenialReason != nil {
		vars["denial_reason"] = *request.DenialReason
	}
	if request.ExpiresAt != nil {
		vars["expires_at"] = request.ExpiresAt.Format("January 2, 2006")
	}

	key := fmt.Sprintf("makeup:%d:%s", request.ID, event.To)
	return h.send(ctx, key, template, user, vars)
}

// CertificateIssued tells the member a certificate is ready
func (h *Handlers) CertificateIssued(ctx context.Context, event models.CertificateIssuedEvent) error {
	cert, err := h.stores.Certificates.GetByID(ctx, event.CertificateID)
	if err != nil {
		return fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return nil
	}
	user, err := h.user(ctx, cert.UserID)
	if err != nil {
		return err
	}

	vars := map[string]interface{}{
		"certificate_code": cert.CertificateCode,
		"credits":          cert.Credits.String(),
	}
	switch {
	case cert.SeminarID != nil:
		seminar, err := h.stores.Seminars.GetByID(ctx, *cert.SeminarID)
		if err != nil {
			return fmt.Errorf("failed to get seminar: %w", err)
		}
		if seminar != nil {
			vars["title"] = seminar.Title
		}
		if cert.Period != nil && cert.Year != nil {
			vars["period"] = cert.Period.Label(*cert.Year)
		}
	case cert.EventID != nil:
		ev, err := h.stores.Events.GetByID(ctx, *cert.EventID)
		if err != nil {
			return fmt.Errorf("failed to get event: %w", err)
		}
		if ev != nil {
			vars["title"] = ev.Title
		}
	}

	key := fmt.Sprintf("certificate:%d", cert.ID)
	return h.send(ctx, key, external.TemplateCertificate, user, vars)
}
