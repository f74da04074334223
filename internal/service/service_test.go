package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ceseminars/internal/models"
	"ceseminars/internal/repository/memory"
	"ceseminars/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.subject == subject {
			n++
		}
	}
	return n
}

type fakeCache struct {
	mu     sync.Mutex
	totals map[int64]decimal.Decimal
	hits   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{totals: make(map[int64]decimal.Decimal)}
}

func (c *fakeCache) GetCreditTotal(ctx context.Context, userID int64) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total, ok := c.totals[userID]
	if ok {
		c.hits++
	}
	return total, ok
}

func (c *fakeCache) SetCreditTotal(ctx context.Context, userID int64, total decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals[userID] = total
}

func (c *fakeCache) InvalidateCredits(ctx context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.totals, userID)
}

type sentMail struct {
	template  string
	recipient string
	vars      map[string]interface{}
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(ctx context.Context, template, recipient string, vars map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("mail provider unavailable")
	}
	m.sent = append(m.sent, sentMail{template: template, recipient: recipient, vars: vars})
	return nil
}

type fakeRenderer struct {
	calls int
	doc   models.CertificateDocument
}

func (r *fakeRenderer) Render(ctx context.Context, doc models.CertificateDocument, template string) ([]byte, error) {
	r.calls++
	r.doc = doc
	return []byte("%PDF " + doc.Code), nil
}

type fakeObjects struct {
	keys []string
}

func (o *fakeObjects) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	o.keys = append(o.keys, key)
	return "https://files.example.com/" + key, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	ctx      context.Context
	db       *memory.DB
	repos    *memory.Repositories
	svc      *service.Services
	pub      *fakePublisher
	cache    *fakeCache
	mailer   *fakeMailer
	renderer *fakeRenderer
	objects  *fakeObjects
	clock    *clock
}

// start is a Monday in the first half of 2026. Seeded sessions run weekly
// from 2026-02-01, so #1-#5 are past and #6 onwards are upcoming.
var start = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

type option func(*service.Deps, *harness)

func withDocuments() option {
	return func(d *service.Deps, h *harness) {
		d.Renderer = h.renderer
		d.Objects = h.objects
		d.RenderTemplate = "ce-certificate"
	}
}

func withIndex(index service.SeminarIndex) option {
	return func(d *service.Deps, _ *harness) {
		d.Index = index
	}
}

func withUsers(wrap func(service.UserStore) service.UserStore) option {
	return func(d *service.Deps, _ *harness) {
		d.Stores.Users = wrap(d.Stores.Users)
	}
}

func withoutMailer() option {
	return func(d *service.Deps, _ *harness) {
		d.Mailer = nil
	}
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()

	h := &harness{
		ctx:      context.Background(),
		db:       memory.NewDB(),
		pub:      &fakePublisher{},
		cache:    newFakeCache(),
		mailer:   &fakeMailer{},
		renderer: &fakeRenderer{},
		objects:  &fakeObjects{},
		clock:    &clock{now: start},
	}
	h.db.SetClock(h.clock.Now)
	h.repos = memory.NewRepositories(h.db)

	deps := service.Deps{
		Stores: service.Stores{
			Seminars:      h.repos.Seminars,
			Sessions:      h.repos.Sessions,
			Registrations: h.repos.Registrations,
			Attendance:    h.repos.Attendance,
			Ledger:        h.repos.Ledger,
			Makeups:       h.repos.Makeups,
			Certificates:  h.repos.Certificates,
			Users:         h.repos.Users,
			Events:        h.repos.Events,
			Notifications: h.repos.Notifications,
		},
		Publisher: h.pub,
		Credits:   h.cache,
		Mailer:    h.mailer,
		Now:       h.clock.Now,
	}
	for _, opt := range opts {
		opt(&deps, h)
	}
	h.svc = service.NewServices(deps)
	return h
}

type fixture struct {
	seminar  *models.Seminar
	sessions []models.Session
	user     *models.User
	reg      *models.Registration
}

// session returns the seeded session with the given 1-based number.
func (f *fixture) session(number int) models.Session {
	return f.sessions[number-1]
}

func (h *harness) seminar(t *testing.T, total int, credits int64) (*models.Seminar, []models.Session) {
	t.Helper()

	seminar, err := h.svc.Catalog.CreateSeminar(h.ctx, &models.CreateSeminarRequest{
		Title:             "Clinical Practice Seminar",
		Year:              2026,
		TotalSessions:     total,
		CreditsPerSession: decimal.NewFromInt(credits),
	})
	require.NoError(t, err)
	seminar, err = h.svc.Catalog.ActivateSeminar(h.ctx, seminar.ID)
	require.NoError(t, err)

	first := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	sessions := make([]models.Session, 0, total)
	for i := 1; i <= total; i++ {
		s, err := h.svc.Catalog.CreateSession(h.ctx, seminar.ID, &models.SessionRequest{
			SessionNumber: i,
			SessionDate:   models.Date{Time: first.AddDate(0, 0, 7*(i-1))},
		})
		require.NoError(t, err)
		sessions = append(sessions, *s)
	}
	return seminar, sessions
}

func (h *harness) user(t *testing.T, email string) *models.User {
	t.Helper()

	u := &models.User{Email: email, FirstName: "Ann", Surname: "Lee", IsActive: true}
	require.NoError(t, h.repos.Users.Create(h.ctx, u))
	return u
}

// enrolled seeds a 10-session seminar worth 2 credits per session and one
// active registration in it.
func (h *harness) enrolled(t *testing.T) *fixture {
	t.Helper()

	seminar, sessions := h.seminar(t, 10, 2)
	user := h.user(t, "ann@example.com")
	reg, err := h.svc.Registrations.Register(h.ctx, user.UserID, seminar.ID, nil)
	require.NoError(t, err)

	return &fixture{seminar: seminar, sessions: sessions, user: user, reg: reg}
}

func (h *harness) attend(t *testing.T, regID int64, session models.Session, makeup bool) *models.Attendance {
	t.Helper()

	a, err := h.svc.Attendance.RecordAttendance(h.ctx, &models.RecordAttendanceRequest{
		RegistrationID: regID,
		SessionID:      session.ID,
		Method:         models.MethodQR,
		IsMakeup:       makeup,
	})
	require.NoError(t, err)
	return a
}

func (h *harness) registration(t *testing.T, id int64) *models.Registration {
	t.Helper()

	reg, err := h.svc.Registrations.Get(h.ctx, id)
	require.NoError(t, err)
	return reg
}

func (h *harness) total(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()

	total, err := h.svc.Credits.Total(h.ctx, userID)
	require.NoError(t, err)
	return total
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }
