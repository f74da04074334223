package service

import (
	"context"
	"time"

	"ceseminars/internal/logger"
	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
)

type SeminarStore interface {
	Create(ctx context.Context, s *models.Seminar) error
	GetByID(ctx context.Context, id int64) (*models.Seminar, error)
	List(ctx context.Context, status *models.SeminarStatus) ([]models.Seminar, error)
	Activate(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, from, to models.SeminarStatus) (bool, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	ListBySeminar(ctx context.Context, seminarID int64) ([]models.Session, error)
	ListOnDate(ctx context.Context, day time.Time) ([]models.Session, error)
	NextOnOrAfter(ctx context.Context, seminarID int64, day time.Time) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id int64) error
}

type RegistrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id int64) (*models.Registration, error)
	FindOpen(ctx context.Context, userID, seminarID int64) (*models.Registration, error)
	ListBySeminar(ctx context.Context, seminarID int64, status *models.RegistrationStatus) ([]models.Registration, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Registration, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.RegistrationStatus) (*models.Registration, error)
	Cancel(ctx context.Context, id int64) (*models.Registration, error)
}

type AttendanceStore interface {
	Record(ctx context.Context, a *models.Attendance, reg *models.Registration) error
	Delete(ctx context.Context, a *models.Attendance, reg *models.Registration, revokedAt time.Time) error
	GetByID(ctx context.Context, id int64) (*models.Attendance, error)
	FindByPair(ctx context.Context, registrationID, sessionID int64) (*models.Attendance, error)
	FindByMakeupRequest(ctx context.Context, requestID int64) (*models.Attendance, error)
	ListByRegistration(ctx context.Context, registrationID int64) ([]models.Attendance, error)
}

type LedgerStore interface {
	Append(ctx context.Context, e *models.LedgerEntry) error
	SumForUser(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListForUser(ctx context.Context, userID int64) ([]models.LedgerEntry, error)
}

type MakeupStore interface {
	Create(ctx context.Context, m *models.MakeupRequest) error
	GetByID(ctx context.Context, id int64) (*models.MakeupRequest, error)
	FindOutstanding(ctx context.Context, registrationID int64) (*models.MakeupRequest, error)
	ListByRegistration(ctx context.Context, registrationID int64) ([]models.MakeupRequest, error)
	ListByStatus(ctx context.Context, status models.MakeupStatus) ([]models.MakeupRequest, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.MakeupRequest, error)
	Transition(ctx context.Context, id int64, from, to models.MakeupStatus, patch models.MakeupPatch) (*models.MakeupRequest, error)
}

type CertificateStore interface {
	Create(ctx context.Context, c *models.Certificate) error
	CreateWithLedger(ctx context.Context, c *models.Certificate, e *models.LedgerEntry) error
	GetByID(ctx context.Context, id int64) (*models.Certificate, error)
	GetByCode(ctx context.Context, code string) (*models.Certificate, error)
	FindForPeriod(ctx context.Context, userID, seminarID int64, period models.Period, year int) (*models.Certificate, error)
	FindForEvent(ctx context.Context, userID, eventID int64) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Certificate, error)
	SetPDFURL(ctx context.Context, id int64, url string) (bool, error)
	Eligibility(ctx context.Context, seminarID int64, from, to time.Time) ([]models.EligibleRegistration, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
}

type NotificationStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Publisher emits domain events. *messaging.NATSClient implements it.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// CreditCache holds derived credit totals. The ledger stays authoritative.
type CreditCache interface {
	GetCreditTotal(ctx context.Context, userID int64) (decimal.Decimal, bool)
	SetCreditTotal(ctx context.Context, userID int64, total decimal.Decimal)
	InvalidateCredits(ctx context.Context, userID int64)
}

type SeminarIndex interface {
	IndexSeminar(ctx context.Context, s *models.Seminar) error
	SearchSeminars(ctx context.Context, query string, year, page, pageSize int) ([]models.Seminar, error)
}

type Mailer interface {
	Send(ctx context.Context, template, recipient string, vars map[string]interface{}) error
}

type Renderer interface {
	Render(ctx context.Context, doc models.CertificateDocument, template string) ([]byte, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Stores bundles every persistence contract the services depend on.
type Stores struct {
	Seminars      SeminarStore
	Sessions      SessionStore
	Registrations RegistrationStore
	Attendance    AttendanceStore
	Ledger        LedgerStore
	Makeups       MakeupStore
	Certificates  CertificateStore
	Users         UserStore
	Events        EventStore
	Notifications NotificationStore
}

// Deps are the collaborators handed to NewServices. Optional ones may be nil.
type Deps struct {
	Stores            Stores
	Publisher         Publisher
	Credits           CreditCache
	Index             SeminarIndex
	Mailer            Mailer
	Renderer          Renderer
	RenderTemplate    string
	Objects           ObjectStore
	MakeupApprovalTTL time.Duration
	Now               func() time.Time
}

type Services struct {
	Catalog       *CatalogService
	Registrations *RegistrationService
	Attendance    *AttendanceService
	Makeups       *MakeupService
	Credits       *CreditService
	Certificates  *CertificateService
	Reminders     *ReminderService
	Orders        *OrderService
	Rosters       *RosterService
}

func NewServices(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MakeupApprovalTTL == 0 {
		d.MakeupApprovalTTL = 90 * 24 * time.Hour
	}
	pub := publisher{d.Publisher}
	st := d.Stores

	credits := NewCreditService(st.Ledger, d.Credits, d.Now)
	registrations := NewRegistrationService(st.Registrations, st.Seminars, st.Sessions, pub, d.Now)
	catalog := NewCatalogService(st.Seminars, st.Sessions, d.Index, d.Now)
	attendance := NewAttendanceService(st.Attendance, st.Registrations, st.Sessions, st.Seminars, st.Makeups, credits, pub, d.Now)

	return &Services{
		Catalog:       catalog,
		Registrations: registrations,
		Attendance:    attendance,
		Makeups:       NewMakeupService(st.Makeups, st.Registrations, st.Sessions, st.Attendance, pub, d.MakeupApprovalTTL, d.Now),
		Credits:       credits,
		Certificates:  NewCertificateService(st.Certificates, st.Seminars, st.Users, st.Events, credits, d.Renderer, d.RenderTemplate, d.Objects, pub, d.Now),
		Reminders:     NewReminderService(st.Sessions, st.Registrations, st.Users, st.Seminars, st.Notifications, d.Mailer, d.Now),
		Orders:        NewOrderService(st.Users, registrations),
		Rosters:       NewRosterService(catalog, st.Registrations, st.Attendance, st.Users, attendance),
	}
}

// publisher logs instead of failing when no broker is wired.
type publisher struct {
	p Publisher
}

func (p publisher) publish(ctx context.Context, subject string, data interface{}) {
	if p.p == nil {
		return
	}
	if err := p.p.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}
