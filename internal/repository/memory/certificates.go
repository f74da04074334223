package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
)

type CertificateRepository struct {
	db *DB
}

func (r *CertificateRepository) conflicts(c *models.Certificate) bool {
	for _, other := range r.db.certificates {
		if other.CertificateCode == c.CertificateCode {
			return true
		}
		if other.UserID != c.UserID {
			continue
		}
		if c.SeminarID != nil && other.SeminarID != nil && *other.SeminarID == *c.SeminarID &&
			c.Period != nil && other.Period != nil && *other.Period == *c.Period &&
			c.Year != nil && other.Year != nil && *other.Year == *c.Year {
			return true
		}
		if c.EventID != nil && other.EventID != nil && *other.EventID == *c.EventID {
			return true
		}
	}
	return false
}

func (r *CertificateRepository) insert(c *models.Certificate) error {
	if r.conflicts(c) {
		return apperrors.Duplicate(apperrors.CodeCertificateExists, "certificate already issued")
	}
	c.ID = r.db.nextID()
	row := *c
	r.db.certificates[c.ID] = &row
	return nil
}

func (r *CertificateRepository) Create(ctx context.Context, c *models.Certificate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.insert(c)
}

func (r *CertificateRepository) CreateWithLedger(ctx context.Context, c *models.Certificate, e *models.LedgerEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.insert(c); err != nil {
		return err
	}
	stored := r.db.appendLedger(*e)
	e.ID = stored.ID
	e.CreatedAt = stored.CreatedAt
	return nil
}

func (r *CertificateRepository) find(match func(*models.Certificate) bool) *models.Certificate {
	for _, id := range sortedIDs(r.db.certificates) {
		if c := r.db.certificates[id]; match(c) {
			out := *c
			return &out
		}
	}
	return nil
}

func (r *CertificateRepository) GetByID(ctx context.Context, id int64) (*models.Certificate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.find(func(c *models.Certificate) bool { return c.ID == id }), nil
}

func (r *CertificateRepository) GetByCode(ctx context.Context, code string) (*models.Certificate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.find(func(c *models.Certificate) bool { return c.CertificateCode == code }), nil
}

func (r *CertificateRepository) FindForPeriod(ctx context.Context, userID, seminarID int64, period models.Period, year int) (*models.Certificate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.find(func(c *models.Certificate) bool {
		return c.UserID == userID && c.SeminarID != nil && *c.SeminarID == seminarID &&
			c.Period != nil && *c.Period == period && c.Year != nil && *c.Year == year
	}), nil
}

func (r *CertificateRepository) FindForEvent(ctx context.Context, userID, eventID int64) (*models.Certificate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.find(func(c *models.Certificate) bool {
		return c.UserID == userID && c.EventID != nil && *c.EventID == eventID
	}), nil
}

func (r *CertificateRepository) ListByUser(ctx context.Context, userID int64) ([]models.Certificate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Certificate
	for _, id := range sortedIDs(r.db.certificates) {
		if c := r.db.certificates[id]; c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (r *CertificateRepository) SetPDFURL(ctx context.Context, id int64, url string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.certificates[id]
	if !ok || c.PDFURL != nil {
		return false, nil
	}
	c.PDFURL = &url
	return true, nil
}

// Eligibility follows the SQL aggregate: net earned minus revoked credits
// awarded in [from, to) and attendance checked in within the same window.
func (r *CertificateRepository) Eligibility(ctx context.Context, seminarID int64, from, to time.Time) ([]models.EligibleRegistration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inWindow := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	var out []models.EligibleRegistration
	for _, id := range sortedIDs(r.db.registrations) {
		reg := r.db.registrations[id]
		if reg.SeminarID != seminarID || reg.Status == models.RegistrationCancelled {
			continue
		}

		credits := decimal.Zero
		for _, e := range r.db.ledger {
			if e.UserID != reg.UserID || e.SeminarID == nil || *e.SeminarID != seminarID {
				continue
			}
			if e.AttendanceID == nil {
				continue
			}
			if a, ok := r.db.attendance[*e.AttendanceID]; !ok || a.RegistrationID != reg.ID {
				continue
			}
			if e.EntryType == models.LedgerAdjustment || !inWindow(e.AwardedAt) {
				continue
			}
			credits = credits.Add(e.Signed())
		}

		sessions := 0
		for _, a := range r.db.attendance {
			if a.RegistrationID == reg.ID && inWindow(a.CheckedInAt) {
				sessions++
			}
		}

		out = append(out, models.EligibleRegistration{
			Registration:     *reg,
			CreditsEarned:    credits,
			SessionsInPeriod: sessions,
		})
	}
	return out, nil
}

type UserRepository struct {
	db *DB
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range r.db.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, u := range r.db.users {
		if u.Email == user.Email {
			return apperrors.Duplicate(apperrors.CodeEmailTaken, "email is already registered")
		}
	}
	user.UserID = r.db.nextID()
	user.RegisteredAt = r.db.timestamp()
	row := *user
	r.db.users[user.UserID] = &row
	return nil
}

type NotificationRepository struct {
	db *DB
}

func (r *NotificationRepository) Claim(ctx context.Context, key string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.notifications[key]; ok {
		return false, nil
	}
	r.db.notifications[key] = r.db.timestamp()
	return true, nil
}

func (r *NotificationRepository) Release(ctx context.Context, key string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.notifications, key)
	return nil
}
