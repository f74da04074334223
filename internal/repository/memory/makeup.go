package memory

import (
	"context"
	"sort"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type MakeupRepository struct {
	db *DB
}

func (r *MakeupRepository) outstanding(registrationID int64) *models.MakeupRequest {
	for _, m := range r.db.makeups {
		if m.RegistrationID == registrationID && m.Status.Outstanding() {
			return m
		}
	}
	return nil
}

func (r *MakeupRepository) list(keep func(*models.MakeupRequest) bool) []models.MakeupRequest {
	var out []models.MakeupRequest
	for _, id := range sortedIDs(r.db.makeups) {
		if m := r.db.makeups[id]; keep(m) {
			out = append(out, *m)
		}
	}
	return out
}

func (r *MakeupRepository) Create(ctx context.Context, m *models.MakeupRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing := r.outstanding(m.RegistrationID); existing != nil {
		return apperrors.DuplicateRequest(existing.ID)
	}
	m.ID = r.db.nextID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.db.timestamp()
	}
	m.UpdatedAt = m.CreatedAt
	row := *m
	r.db.makeups[m.ID] = &row
	return nil
}

func (r *MakeupRepository) GetByID(ctx context.Context, id int64) (*models.MakeupRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if m, ok := r.db.makeups[id]; ok {
		out := *m
		return &out, nil
	}
	return nil, nil
}

func (r *MakeupRepository) FindOutstanding(ctx context.Context, registrationID int64) (*models.MakeupRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if m := r.outstanding(registrationID); m != nil {
		out := *m
		return &out, nil
	}
	return nil, nil
}

func (r *MakeupRepository) ListByRegistration(ctx context.Context, registrationID int64) ([]models.MakeupRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := r.list(func(m *models.MakeupRequest) bool { return m.RegistrationID == registrationID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *MakeupRepository) ListByStatus(ctx context.Context, status models.MakeupStatus) ([]models.MakeupRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.list(func(m *models.MakeupRequest) bool { return m.Status == status }), nil
}

func (r *MakeupRepository) ListExpired(ctx context.Context, now time.Time) ([]models.MakeupRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.list(func(m *models.MakeupRequest) bool {
		return m.Status == models.MakeupApproved && m.ExpiresAt != nil && m.ExpiresAt.Before(now)
	}), nil
}

// Transition is the compare-and-set on status. It returns nil when the
// request is missing or no longer in from.
func (r *MakeupRepository) Transition(ctx context.Context, id int64, from, to models.MakeupStatus, patch models.MakeupPatch) (*models.MakeupRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.makeups[id]
	if !ok || m.Status != from {
		return nil, nil
	}

	m.Status = to
	patch.Apply(m)
	m.UpdatedAt = r.db.timestamp()

	if to == models.MakeupCompleted {
		if reg, ok := r.db.registrations[m.RegistrationID]; ok {
			reg.MakeupUsed = true
			reg.UpdatedAt = m.UpdatedAt
		}
	}

	out := *m
	return &out, nil
}
