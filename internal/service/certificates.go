package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CertificateService struct {
	certificates   CertificateStore
	seminars       SeminarStore
	users          UserStore
	events         EventStore
	credits        *CreditService
	renderer       Renderer
	renderTemplate string
	objects        ObjectStore
	pub            publisher
	now            func() time.Time
}

func NewCertificateService(certificates CertificateStore, seminars SeminarStore, users UserStore, events EventStore, credits *CreditService, renderer Renderer, renderTemplate string, objects ObjectStore, pub publisher, now func() time.Time) *CertificateService {
	return &CertificateService{
		certificates:   certificates,
		seminars:       seminars,
		users:          users,
		events:         events,
		credits:        credits,
		renderer:       renderer,
		renderTemplate: renderTemplate,
		objects:        objects,
		pub:            pub,
		now:            now,
	}
}

// GetEligible lists the registrations of the seminar that attended at least
// one session in the period, with the net credits they earned in it.
// No attendance in the period yields an empty list. A failed user lookup is
// carried on its row rather than failing the listing.
func (s *CertificateService) GetEligible(ctx context.Context, seminarID int64, period models.Period, year int) ([]models.EligibleRegistration, error) {
	if !period.Valid() {
		return nil, apperrors.Validation("period", "period must be first_half or second_half")
	}
	if year < 2000 {
		return nil, apperrors.Validation("year", "year is out of range")
	}

	seminar, err := s.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seminar: %w", err)
	}
	if seminar == nil {
		return nil, apperrors.NotFound("seminar", seminarID)
	}

	from, to, err := period.Range(year)
	if err != nil {
		return nil, apperrors.Validation("period", err.Error())
	}

	rows, err := s.certificates.Eligibility(ctx, seminarID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute eligibility: %w", err)
	}

	eligible := make([]models.EligibleRegistration, 0, len(rows))
	for _, row := range rows {
		if row.SessionsInPeriod < 1 {
			continue
		}
		if row.CreditsEarned.IsNegative() {
			row.CreditsEarned = decimal.Zero
		}
		user, err := s.users.GetByID(ctx, row.Registration.UserID)
		if err != nil {
			logger.WithContext(ctx).Warn("Failed to load user for eligibility",
				"error", err,
				"registration_id", row.Registration.ID,
				"user_id", row.Registration.UserID)
			row.LookupErr = fmt.Errorf("failed to get user: %w", err)
		}
		row.User = user
		eligible = append(eligible, row)
	}
	return eligible, nil
}

// IssueCertificates creates one certificate per eligible registration.
// Certificates already issued for the period are reported as skipped and
// per-registration failures are collected without stopping the batch.
func (s *CertificateService) IssueCertificates(ctx context.Context, req *models.IssueCertificatesRequest) (*models.IssueCertificatesResponse, error) {
	eligible, err := s.GetEligible(ctx, req.SeminarID, req.Period, req.Year)
	if err != nil {
		return nil, err
	}

	result := &models.IssueCertificatesResponse{
		Generated: []models.Certificate{},
		Skipped:   []int64{},
		Errors:    []models.IssueError{},
	}

	if len(req.RegistrationIDs) > 0 {
		wanted := make(map[int64]bool, len(req.RegistrationIDs))
		for _, id := range req.RegistrationIDs {
			wanted[id] = true
		}
		filtered := eligible[:0]
		for _, row := range eligible {
			if wanted[row.Registration.ID] {
				filtered = append(filtered, row)
				delete(wanted, row.Registration.ID)
			}
		}
		eligible = filtered
		for _, id := range req.RegistrationIDs {
			if wanted[id] {
				result.Errors = append(result.Errors, models.IssueError{
					RegistrationID: id,
					Error:          "registration is not eligible for this period",
				})
				delete(wanted, id)
			}
		}
	}

	log := logger.WithContext(ctx)
	for _, row := range eligible {
		cert, skipped, err := s.issueOne(ctx, row, req.Period, req.Year)
		switch {
		case err != nil:
			log.Warn("Certificate issuance failed",
				"error", err,
				"registration_id", row.Registration.ID)
			result.Errors = append(result.Errors, models.IssueError{
				RegistrationID: row.Registration.ID,
				UserID:         row.Registration.UserID,
				Error:          err.Error(),
			})
		case skipped:
			result.Skipped = append(result.Skipped, row.Registration.ID)
		default:
			result.Generated = append(result.Generated, *cert)
		}
	}

	log.Info("Bi-annual certificates issued",
		"seminar_id", req.SeminarID,
		"period", req.Period,
		"year", req.Year,
		"generated", len(result.Generated),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors))

	return result, nil
}

func (s *CertificateService) issueOne(ctx context.Context, row models.EligibleRegistration, period models.Period, year int) (*models.Certificate, bool, error) {
	if row.LookupErr != nil {
		return nil, false, row.LookupErr
	}
	if row.User == nil {
		return nil, false, fmt.Errorf("user %d not found", row.Registration.UserID)
	}
	if row.User.FullName() == "" || row.User.Email == "" {
		return nil, false, fmt.Errorf("user %d profile is incomplete", row.User.UserID)
	}

	existing, err := s.certificates.FindForPeriod(ctx, row.User.UserID, row.Registration.SeminarID, period, year)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing certificate: %w", err)
	}
	if existing != nil {
		return nil, true, nil
	}

	seminarID := row.Registration.SeminarID
	p, y := period, year
	cert := &models.Certificate{
		UserID:          row.User.UserID,
		SeminarID:       &seminarID,
		Period:          &p,
		Year:            &y,
		CertificateCode: certificateCode(fmt.Sprintf("CE-%d", year)),
		Credits:         row.CreditsEarned,
		IssuedAt:        s.now().UTC(),
	}
	if err := s.certificates.Create(ctx, cert); err != nil {
		if apperrors.IsDuplicate(err) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("failed to create certificate: %w", err)
	}

	s.announce(ctx, cert)
	return cert, false, nil
}

// IssueEventCertificate issues the single certificate for a user's event
// and credits the event's CE value. It reports whether a new certificate
// was created; an existing one is returned unchanged.
func (s *CertificateService) IssueEventCertificate(ctx context.Context, userID, eventID int64) (*models.Certificate, bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, false, apperrors.NotFound("user", userID)
	}
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.certificates.FindForEvent(ctx, userID, eventID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing certificate: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	now := s.now().UTC()
	cert := &models.Certificate{
		UserID:          userID,
		EventID:         &event.ID,
		CertificateCode: certificateCode("CE-EV"),
		Credits:         event.CECredits,
		IssuedAt:        now,
	}
	reason := "event certificate"
	entry := &models.LedgerEntry{
		UserID:    userID,
		EntryType: models.LedgerEarned,
		Amount:    event.CECredits,
		EventID:   &event.ID,
		Reason:    &reason,
		AwardedAt: event.StartsAt.UTC(),
	}

	if err := s.certificates.CreateWithLedger(ctx, cert, entry); err != nil {
		if apperrors.IsDuplicate(err) {
			winner, findErr := s.certificates.FindForEvent(ctx, userID, eventID)
			if findErr == nil && winner != nil {
				return winner, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create event certificate: %w", err)
	}
	s.credits.Invalidate(ctx, userID)

	s.announce(ctx, cert)
	return cert, true, nil
}

func (s *CertificateService) announce(ctx context.Context, cert *models.Certificate) {
	s.pub.publish(ctx, models.EventCertificateIssued, models.CertificateIssuedEvent{
		CertificateID:   cert.ID,
		CertificateCode: cert.CertificateCode,
		UserID:          cert.UserID,
		SeminarID:       cert.SeminarID,
		EventID:         cert.EventID,
		Timestamp:       cert.IssuedAt,
	})
}

// PDF returns the certificate document URL, rendering and uploading it on
// first use. Concurrent first calls may both render; only one URL is kept.
func (s *CertificateService) PDF(ctx context.Context, id int64) (string, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if cert.PDFURL != nil {
		return *cert.PDFURL, nil
	}
	if s.renderer == nil || s.objects == nil {
		return "", apperrors.Precondition(apperrors.CodeNotConfigured, "certificate rendering is not configured")
	}

	doc, err := s.document(ctx, cert)
	if err != nil {
		return "", err
	}

	pdf, err := s.renderer.Render(ctx, *doc, s.renderTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to render certificate: %w", err)
	}

	url, err := s.objects.Put(ctx, "certificates/"+cert.CertificateCode+".pdf", pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("failed to store certificate: %w", err)
	}

	won, err := s.certificates.SetPDFURL(ctx, cert.ID, url)
	if err != nil {
		return "", fmt.Errorf("failed to save certificate url: %w", err)
	}
	if !won {
		latest, err := s.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if latest.PDFURL != nil {
			return *latest.PDFURL, nil
		}
	}
	return url, nil
}

func (s *CertificateService) document(ctx context.Context, cert *models.Certificate) (*models.CertificateDocument, error) {
	user, err := s.users.GetByID(ctx, cert.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user", cert.UserID)
	}

	doc := &models.CertificateDocument{
		Code:      cert.CertificateCode,
		Recipient: user.FullName(),
		Credits:   cert.Credits,
		IssuedOn:  cert.IssuedAt.Format("January 2, 2006"),
	}

	switch {
	case cert.SeminarID != nil:
		seminar, err := s.seminars.GetByID(ctx, *cert.SeminarID)
		if err != nil {
			return nil, fmt.Errorf("failed to get seminar: %w", err)
		}
		if seminar == nil {
			return nil, apperrors.NotFound("seminar", *cert.SeminarID)
		}
		doc.Title = seminar.Title
		if cert.Period != nil && cert.Year != nil {
			doc.PeriodLabel = cert.Period.Label(*cert.Year)
		}
	case cert.EventID != nil:
		event, err := s.GetEvent(ctx, *cert.EventID)
		if err != nil {
			return nil, err
		}
		doc.Title = event.Title
	}

	return doc, nil
}

func (s *CertificateService) Get(ctx context.Context, id int64) (*models.Certificate, error) {
	cert, err := s.certificates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return nil, apperrors.NotFound("certificate", id)
	}
	return cert, nil
}

// Verify looks a certificate up by its public code.
func (s *CertificateService) Verify(ctx context.Context, code string) (*models.Certificate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.Validation("code", "certificate code is required")
	}
	cert, err := s.certificates.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return nil, &apperrors.Error{Kind: apperrors.KindNotFound, Message: fmt.Sprintf("certificate %s not found", code)}
	}
	return cert, nil
}

func (s *CertificateService) ListByUser(ctx context.Context, userID int64) ([]models.Certificate, error) {
	certs, err := s.certificates.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certs, nil
}

// Events

func (s *CertificateService) CreateEvent(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	if req.CECredits.IsNegative() {
		return nil, apperrors.Validation("ce_credits", "ce_credits must not be negative")
	}
	event := &models.Event{
		Title:     strings.TrimSpace(req.Title),
		StartsAt:  req.StartsAt,
		CECredits: req.CECredits,
		Status:    "scheduled",
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *CertificateService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event", id)
	}
	return event, nil
}

func (s *CertificateService) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// certificateCode returns prefix followed by eight upper-case hex digits.
func certificateCode(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:8])
}
