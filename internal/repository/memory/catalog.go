package memory

import (
	"context"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type SeminarRepository struct {
	db *DB
}

func (r *SeminarRepository) Create(ctx context.Context, s *models.Seminar) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s.ID = r.db.nextID()
	s.CreatedAt = r.db.timestamp()
	s.UpdatedAt = s.CreatedAt
	row := *s
	r.db.seminars[s.ID] = &row
	return nil
}

func (r *SeminarRepository) GetByID(ctx context.Context, id int64) (*models.Seminar, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.seminars[id]; ok {
		out := *s
		return &out, nil
	}
	return nil, nil
}

func (r *SeminarRepository) List(ctx context.Context, status *models.SeminarStatus) ([]models.Seminar, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Seminar
	ids := sortedIDs(r.db.seminars)
	for i := len(ids) - 1; i >= 0; i-- {
		s := r.db.seminars[ids[i]]
		if status != nil && s.Status != *status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *SeminarRepository) Activate(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.seminars[id]
	if !ok {
		return apperrors.NotFound("seminar", id)
	}
	if s.Status == models.SeminarArchived {
		return apperrors.InvalidTransition("activate", string(s.Status))
	}

	now := r.db.timestamp()
	for otherID, other := range r.db.seminars {
		if otherID != id && other.Status == models.SeminarActive {
			other.Status = models.SeminarCompleted
			other.UpdatedAt = now
		}
	}
	s.Status = models.SeminarActive
	s.UpdatedAt = now
	return nil
}

func (r *SeminarRepository) UpdateStatus(ctx context.Context, id int64, from, to models.SeminarStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.seminars[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = r.db.timestamp()
	return true, nil
}

type SessionRepository struct {
	db *DB
}

func (r *SessionRepository) numberTaken(seminarID int64, number int, exceptID int64) bool {
	for id, s := range r.db.sessions {
		if id != exceptID && s.SeminarID == seminarID && s.SessionNumber == number {
			return true
		}
	}
	return false
}

func (r *SessionRepository) hasAttendance(sessionID int64) bool {
	for _, a := range r.db.attendance {
		if a.SessionID == sessionID {
			return true
		}
	}
	return false
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.numberTaken(s.SeminarID, s.SessionNumber, 0) {
		return apperrors.Duplicate(apperrors.CodeDuplicateSession, "session number already exists for this seminar")
	}
	s.ID = r.db.nextID()
	s.SessionDate = models.DateOf(s.SessionDate)
	s.CreatedAt = r.db.timestamp()
	s.UpdatedAt = s.CreatedAt
	row := *s
	r.db.sessions[s.ID] = &row
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[id]; ok {
		out := *s
		return &out, nil
	}
	return nil, nil
}

func (r *SessionRepository) ListBySeminar(ctx context.Context, seminarID int64) ([]models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Session
	for _, id := range sortedIDs(r.db.sessions) {
		if s := r.db.sessions[id]; s.SeminarID == seminarID {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out, nil
}

func (r *SessionRepository) ListOnDate(ctx context.Context, day time.Time) ([]models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	day = models.DateOf(day)
	var out []models.Session
	for _, id := range sortedIDs(r.db.sessions) {
		if s := r.db.sessions[id]; s.SessionDate.Equal(day) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *SessionRepository) NextOnOrAfter(ctx context.Context, seminarID int64, day time.Time) (*models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var best *models.Session
	for _, s := range r.db.sessions {
		if s.SeminarID != seminarID || !s.OnOrAfter(day) {
			continue
		}
		if best == nil || s.SessionDate.Before(best.SessionDate) ||
			(s.SessionDate.Equal(best.SessionDate) && s.SessionNumber < best.SessionNumber) {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.sessions[s.ID]
	if !ok {
		return apperrors.NotFound("session", s.ID)
	}
	date := models.DateOf(s.SessionDate)
	moved := current.SessionNumber != s.SessionNumber || !current.SessionDate.Equal(date)
	if moved && r.hasAttendance(s.ID) {
		return apperrors.HasDependentAttendance(s.ID)
	}
	if r.numberTaken(current.SeminarID, s.SessionNumber, s.ID) {
		return apperrors.Duplicate(apperrors.CodeDuplicateSession, "session number already exists for this seminar")
	}

	current.SessionNumber = s.SessionNumber
	current.SessionDate = date
	current.StartTime = s.StartTime
	current.EndTime = s.EndTime
	current.Topic = s.Topic
	current.UpdatedAt = r.db.timestamp()
	s.SessionDate = date
	s.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.sessions[id]; !ok {
		return apperrors.NotFound("session", id)
	}
	if r.hasAttendance(id) {
		return apperrors.HasDependentAttendance(id)
	}
	for _, m := range r.db.makeups {
		if m.MissedSessionID == id || (m.RequestedSessionID != nil && *m.RequestedSessionID == id) {
			return apperrors.Precondition(apperrors.CodeSessionReferenced, "session is referenced by makeup requests")
		}
	}
	delete(r.db.sessions, id)
	return nil
}

type EventRepository struct {
	db *DB
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e.ID = r.db.nextID()
	e.CreatedAt = r.db.timestamp()
	if e.Status == "" {
		e.Status = "scheduled"
	}
	row := *e
	r.db.events[e.ID] = &row
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if e, ok := r.db.events[id]; ok {
		out := *e
		return &out, nil
	}
	return nil, nil
}

func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Event
	for _, id := range sortedIDs(r.db.events) {
		out = append(out, *r.db.events[id])
	}
	sortEvents(out)
	return out, nil
}
