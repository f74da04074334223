package memory

import (
	"context"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
)

type RegistrationRepository struct {
	db *DB
}

func (r *RegistrationRepository) findOpen(userID, seminarID int64) *models.Registration {
	for _, reg := range r.db.registrations {
		if reg.UserID == userID && reg.SeminarID == seminarID && reg.Status != models.RegistrationCancelled {
			return reg
		}
	}
	return nil
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing := r.findOpen(reg.UserID, reg.SeminarID); existing != nil {
		return apperrors.AlreadyRegistered(existing.ID)
	}
	reg.ID = r.db.nextID()
	reg.RegisteredAt = r.db.timestamp()
	reg.UpdatedAt = reg.RegisteredAt
	row := *reg
	r.db.registrations[reg.ID] = &row
	return nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if reg, ok := r.db.registrations[id]; ok {
		out := *reg
		return &out, nil
	}
	return nil, nil
}

func (r *RegistrationRepository) FindOpen(ctx context.Context, userID, seminarID int64) (*models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if reg := r.findOpen(userID, seminarID); reg != nil {
		out := *reg
		return &out, nil
	}
	return nil, nil
}

func (r *RegistrationRepository) ListBySeminar(ctx context.Context, seminarID int64, status *models.RegistrationStatus) ([]models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Registration
	for _, id := range sortedIDs(r.db.registrations) {
		reg := r.db.registrations[id]
		if reg.SeminarID != seminarID || (status != nil && reg.Status != *status) {
			continue
		}
		out = append(out, *reg)
	}
	return out, nil
}

func (r *RegistrationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Registration
	ids := sortedIDs(r.db.registrations)
	for i := len(ids) - 1; i >= 0; i-- {
		if reg := r.db.registrations[ids[i]]; reg.UserID == userID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id int64, from, to models.RegistrationStatus) (*models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	reg, ok := r.db.registrations[id]
	if !ok || reg.Status != from {
		return nil, nil
	}
	reg.Status = to
	reg.UpdatedAt = r.db.timestamp()
	out := *reg
	return &out, nil
}

func (r *RegistrationRepository) Cancel(ctx context.Context, id int64) (*models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	reg, ok := r.db.registrations[id]
	if !ok || reg.Status == models.RegistrationCancelled {
		return nil, nil
	}
	reg.Status = models.RegistrationCancelled
	reg.UpdatedAt = r.db.timestamp()
	out := *reg
	return &out, nil
}

type AttendanceRepository struct {
	db *DB
}

func (r *AttendanceRepository) findPair(registrationID, sessionID int64) *models.Attendance {
	for _, a := range r.db.attendance {
		if a.RegistrationID == registrationID && a.SessionID == sessionID {
			return a
		}
	}
	return nil
}

func (r *AttendanceRepository) findByMakeup(requestID int64) *models.Attendance {
	for _, a := range r.db.attendance {
		if a.MakeupRequestID != nil && *a.MakeupRequestID == requestID {
			return a
		}
	}
	return nil
}

// Record applies the insert, the ledger entry and the counter move under
// one lock, matching the single transaction of the SQL repository.
func (r *AttendanceRepository) Record(ctx context.Context, a *models.Attendance, reg *models.Registration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing := r.findPair(a.RegistrationID, a.SessionID); existing != nil {
		return apperrors.DuplicateAttendance(existing.ID)
	}
	if a.MakeupRequestID != nil && r.findByMakeup(*a.MakeupRequestID) != nil {
		return apperrors.Precondition(apperrors.CodeMakeupAlreadyAttended, "makeup request already has an attendance")
	}
	current, ok := r.db.registrations[a.RegistrationID]
	if !ok || current.Status != models.RegistrationActive {
		return apperrors.Precondition(apperrors.CodeRegistrationNotActive, "registration is not active")
	}
	total := r.totalSessions(current.SeminarID)

	a.ID = r.db.nextID()
	row := *a
	r.db.attendance[a.ID] = &row

	attendanceID := a.ID
	seminarID := reg.SeminarID
	r.db.appendLedger(models.LedgerEntry{
		UserID:       reg.UserID,
		EntryType:    models.LedgerEarned,
		Amount:       a.CreditsAwarded,
		SeminarID:    &seminarID,
		AttendanceID: &attendanceID,
		AwardedAt:    a.CheckedInAt,
	})

	current.SessionsCompleted = clamp(current.SessionsCompleted+1, 0, total)
	current.SessionsRemaining = clamp(current.SessionsRemaining-1, 0, total)
	if current.SessionsRemaining == 0 {
		current.Status = models.RegistrationCompleted
	}
	current.UpdatedAt = r.db.timestamp()
	return nil
}

func (r *AttendanceRepository) Delete(ctx context.Context, a *models.Attendance, reg *models.Registration, revokedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.attendance[a.ID]; !ok {
		return apperrors.NotFound("attendance", a.ID)
	}
	delete(r.db.attendance, a.ID)

	attendanceID := a.ID
	seminarID := reg.SeminarID
	reason := "attendance deleted"
	r.db.appendLedger(models.LedgerEntry{
		UserID:       reg.UserID,
		EntryType:    models.LedgerRevoked,
		Amount:       a.CreditsAwarded,
		SeminarID:    &seminarID,
		AttendanceID: &attendanceID,
		Reason:       &reason,
		AwardedAt:    a.CheckedInAt,
		CreatedAt:    revokedAt,
	})

	if current, ok := r.db.registrations[a.RegistrationID]; ok {
		total := r.totalSessions(current.SeminarID)
		current.SessionsCompleted = clamp(current.SessionsCompleted-1, 0, total)
		current.SessionsRemaining = clamp(current.SessionsRemaining+1, 0, total)
		if current.Status == models.RegistrationCompleted {
			current.Status = models.RegistrationActive
		}
		current.UpdatedAt = r.db.timestamp()
	}
	return nil
}

func (r *AttendanceRepository) totalSessions(seminarID int64) int {
	if s, ok := r.db.seminars[seminarID]; ok {
		return s.TotalSessions
	}
	return 0
}

func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*models.Attendance, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if a, ok := r.db.attendance[id]; ok {
		out := *a
		return &out, nil
	}
	return nil, nil
}

func (r *AttendanceRepository) FindByPair(ctx context.Context, registrationID, sessionID int64) (*models.Attendance, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if a := r.findPair(registrationID, sessionID); a != nil {
		out := *a
		return &out, nil
	}
	return nil, nil
}

func (r *AttendanceRepository) FindByMakeupRequest(ctx context.Context, requestID int64) (*models.Attendance, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if a := r.findByMakeup(requestID); a != nil {
		out := *a
		return &out, nil
	}
	return nil, nil
}

func (r *AttendanceRepository) ListByRegistration(ctx context.Context, registrationID int64) ([]models.Attendance, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Attendance
	for _, id := range sortedIDs(r.db.attendance) {
		if a := r.db.attendance[id]; a.RegistrationID == registrationID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type LedgerRepository struct {
	db *DB
}

// appendLedger must be called with the lock held.
func (db *DB) appendLedger(e models.LedgerEntry) models.LedgerEntry {
	e.ID = db.nextID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = db.timestamp()
	}
	db.ledger = append(db.ledger, e)
	return e
}

func (r *LedgerRepository) Append(ctx context.Context, e *models.LedgerEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored := r.db.appendLedger(*e)
	e.ID = stored.ID
	e.CreatedAt = stored.CreatedAt
	return nil
}

func (r *LedgerRepository) SumForUser(ctx context.Context, userID int64) (decimal.Decimal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	total := decimal.Zero
	for _, e := range r.db.ledger {
		if e.UserID == userID {
			total = total.Add(e.Signed())
		}
	}
	return total, nil
}

func (r *LedgerRepository) ListForUser(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range r.db.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
