package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"
)

// seminarStatusMoves lists the status changes UpdateSeminarStatus accepts.
// Activation has its own path because it demotes the current active seminar.
var seminarStatusMoves = map[models.SeminarStatus][]models.SeminarStatus{
	models.SeminarActive:    {models.SeminarCompleted},
	models.SeminarDraft:     {models.SeminarArchived},
	models.SeminarCompleted: {models.SeminarArchived},
}

type CatalogService struct {
	seminars SeminarStore
	sessions SessionStore
	index    SeminarIndex
	now      func() time.Time
}

func NewCatalogService(seminars SeminarStore, sessions SessionStore, index SeminarIndex, now func() time.Time) *CatalogService {
	return &CatalogService{seminars: seminars, sessions: sessions, index: index, now: now}
}

func (s *CatalogService) CreateSeminar(ctx context.Context, req *models.CreateSeminarRequest) (*models.Seminar, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	if req.TotalSessions < 1 {
		return nil, apperrors.Validation("total_sessions", "total_sessions must be at least 1")
	}
	if req.CreditsPerSession.IsNegative() {
		return nil, apperrors.Validation("credits_per_session", "credits_per_session must not be negative")
	}

	seminar := &models.Seminar{
		Title:             strings.TrimSpace(req.Title),
		Year:              req.Year,
		Description:       req.Description,
		TotalSessions:     req.TotalSessions,
		CreditsPerSession: req.CreditsPerSession,
		Status:            models.SeminarDraft,
	}
	if req.TotalCredits != nil {
		if req.TotalCredits.IsNegative() {
			return nil, apperrors.Validation("total_credits", "total_credits must not be negative")
		}
		seminar.TotalCredits = *req.TotalCredits
		seminar.CreditsOverridden = true
	}
	seminar.RecomputeCredits()

	if err := s.seminars.Create(ctx, seminar); err != nil {
		return nil, fmt.Errorf("failed to create seminar: %w", err)
	}

	s.reindex(ctx, seminar)
	return seminar, nil
}

func (s *CatalogService) GetSeminar(ctx context.Context, id int64) (*models.Seminar, error) {
	seminar, err := s.seminars.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get seminar: %w", err)
	}
	if seminar == nil {
		return nil, apperrors.NotFound("seminar", id)
	}
	return seminar, nil
}

func (s *CatalogService) ListSeminars(ctx context.Context, status *models.SeminarStatus) ([]models.Seminar, error) {
	seminars, err := s.seminars.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list seminars: %w", err)
	}
	return seminars, nil
}

// ActivateSeminar makes id the only active seminar.
func (s *CatalogService) ActivateSeminar(ctx context.Context, id int64) (*models.Seminar, error) {
	if err := s.seminars.Activate(ctx, id); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to activate seminar: %w", err)
	}

	seminar, err := s.GetSeminar(ctx, id)
	if err != nil {
		return nil, err
	}

	s.reindexAll(ctx)
	return seminar, nil
}

// UpdateSeminarStatus applies a non-activating status change with a
// compare-and-set on the current status.
func (s *CatalogService) UpdateSeminarStatus(ctx context.Context, id int64, to models.SeminarStatus) (*models.Seminar, error) {
	if !to.Valid() {
		return nil, apperrors.Validation("status", "unknown seminar status")
	}
	if to == models.SeminarActive {
		return s.ActivateSeminar(ctx, id)
	}

	current, err := s.GetSeminar(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canMoveSeminar(current.Status, to) {
		return nil, apperrors.InvalidTransition("set status "+string(to), string(current.Status))
	}

	ok, err := s.seminars.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update seminar status: %w", err)
	}
	if !ok {
		latest, err := s.GetSeminar(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidTransition("set status "+string(to), string(latest.Status))
	}

	current.Status = to
	s.reindex(ctx, current)
	return current, nil
}

func canMoveSeminar(from, to models.SeminarStatus) bool {
	for _, allowed := range seminarStatusMoves[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SearchSeminars queries the search index and falls back to the store when
// the index is not configured or fails.
func (s *CatalogService) SearchSeminars(ctx context.Context, query string, year, page, pageSize int) ([]models.Seminar, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	if s.index != nil {
		results, err := s.index.SearchSeminars(ctx, query, year, page, pageSize)
		if err == nil {
			return results, nil
		}
		logger.WithContext(ctx).Warn("Seminar search failed, falling back to database", "error", err)
	}

	all, err := s.ListSeminars(ctx, nil)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	var matched []models.Seminar
	for _, seminar := range all {
		if year != 0 && seminar.Year != year {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(seminar.Title), needle) {
			continue
		}
		matched = append(matched, seminar)
	}

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []models.Seminar{}, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *CatalogService) reindex(ctx context.Context, seminar *models.Seminar) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexSeminar(ctx, seminar); err != nil {
		logger.WithContext(ctx).Warn("Failed to index seminar", "error", err, "seminar_id", seminar.ID)
	}
}

// reindexAll refreshes every seminar after an activation, which may have
// demoted another one.
func (s *CatalogService) reindexAll(ctx context.Context) {
	if s.index == nil {
		return
	}
	seminars, err := s.seminars.List(ctx, nil)
	if err != nil {
		logger.WithContext(ctx).Warn("Failed to list seminars for reindex", "error", err)
		return
	}
	for i := range seminars {
		s.reindex(ctx, &seminars[i])
	}
}

// Sessions

func (s *CatalogService) ListSessions(ctx context.Context, seminarID int64) ([]models.Session, error) {
	if _, err := s.GetSeminar(ctx, seminarID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListBySeminar(ctx, seminarID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *CatalogService) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session", id)
	}
	return session, nil
}

func (s *CatalogService) CreateSession(ctx context.Context, seminarID int64, req *models.SessionRequest) (*models.Session, error) {
	seminar, err := s.GetSeminar(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if err := validateSession(seminar, req); err != nil {
		return nil, err
	}

	session := &models.Session{
		SeminarID:     seminarID,
		SessionNumber: req.SessionNumber,
		SessionDate:   models.DateOf(req.SessionDate.Time),
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Topic:         req.Topic,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// UpdateSession rewrites a session. Number and date are frozen once
// attendance exists; the store enforces that atomically.
func (s *CatalogService) UpdateSession(ctx context.Context, id int64, req *models.SessionRequest) (*models.Session, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	seminar, err := s.GetSeminar(ctx, session.SeminarID)
	if err != nil {
		return nil, err
	}
	if err := validateSession(seminar, req); err != nil {
		return nil, err
	}

	session.SessionNumber = req.SessionNumber
	session.SessionDate = models.DateOf(req.SessionDate.Time)
	session.StartTime = req.StartTime
	session.EndTime = req.EndTime
	session.Topic = req.Topic

	if err := s.sessions.Update(ctx, session); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return session, nil
}

func (s *CatalogService) DeleteSession(ctx context.Context, id int64) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func validateSession(seminar *models.Seminar, req *models.SessionRequest) error {
	if req.SessionNumber < 1 {
		return apperrors.Validation("session_number", "session_number must be at least 1")
	}
	if req.SessionNumber > seminar.TotalSessions {
		return apperrors.Validation("session_number",
			fmt.Sprintf("session_number must not exceed %d", seminar.TotalSessions))
	}
	if req.SessionDate.IsZero() {
		return apperrors.Validation("session_date", "session_date is required")
	}
	return nil
}
