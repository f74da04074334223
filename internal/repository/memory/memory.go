// Package memory is an in-process implementation of the repository
// contracts. It keeps the same atomicity and uniqueness rules as the
// Postgres repositories and backs service tests and local demos.
package memory

import (
	"sort"
	"sync"
	"time"

	"ceseminars/internal/models"
)

type DB struct {
	mu  sync.Mutex
	seq int64
	now func() time.Time

	seminars      map[int64]*models.Seminar
	sessions      map[int64]*models.Session
	registrations map[int64]*models.Registration
	attendance    map[int64]*models.Attendance
	ledger        []models.LedgerEntry
	makeups       map[int64]*models.MakeupRequest
	certificates  map[int64]*models.Certificate
	users         map[int64]*models.User
	events        map[int64]*models.Event
	notifications map[string]time.Time
}

func NewDB() *DB {
	return &DB{
		now:           time.Now,
		seminars:      make(map[int64]*models.Seminar),
		sessions:      make(map[int64]*models.Session),
		registrations: make(map[int64]*models.Registration),
		attendance:    make(map[int64]*models.Attendance),
		makeups:       make(map[int64]*models.MakeupRequest),
		certificates:  make(map[int64]*models.Certificate),
		users:         make(map[int64]*models.User),
		events:        make(map[int64]*models.Event),
		notifications: make(map[string]time.Time),
	}
}

// SetClock replaces the clock used for created_at/updated_at columns.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func (db *DB) timestamp() time.Time {
	return db.now().UTC()
}

// Repositories mirrors repository.Repositories for the in-memory store.
type Repositories struct {
	Seminars      *SeminarRepository
	Sessions      *SessionRepository
	Registrations *RegistrationRepository
	Attendance    *AttendanceRepository
	Ledger        *LedgerRepository
	Makeups       *MakeupRepository
	Certificates  *CertificateRepository
	Users         *UserRepository
	Events        *EventRepository
	Notifications *NotificationRepository
}

func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Seminars:      &SeminarRepository{db: db},
		Sessions:      &SessionRepository{db: db},
		Registrations: &RegistrationRepository{db: db},
		Attendance:    &AttendanceRepository{db: db},
		Ledger:        &LedgerRepository{db: db},
		Makeups:       &MakeupRepository{db: db},
		Certificates:  &CertificateRepository{db: db},
		Users:         &UserRepository{db: db},
		Events:        &EventRepository{db: db},
		Notifications: &NotificationRepository{db: db},
	}
}

func sortedIDs[T any](table map[int64]*T) []int64 {
	ids := make([]int64, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortSessions(s []models.Session) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].SessionNumber < s[j].SessionNumber })
}

func sortEvents(e []models.Event) {
	sort.SliceStable(e, func(i, j int) bool { return e[i].StartsAt.After(e[j].StartsAt) })
}
