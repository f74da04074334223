package service

import (
	"context"
	"fmt"

	"ceseminars/internal/logger"
	"ceseminars/internal/models"
)

// RosterService assembles the attendance grid used for spreadsheet export
// and replays imported check-ins through AttendanceService.
type RosterService struct {
	catalog       *CatalogService
	registrations RegistrationStore
	attendance    AttendanceStore
	users         UserStore
	recorder      *AttendanceService
}

func NewRosterService(catalog *CatalogService, registrations RegistrationStore, attendance AttendanceStore, users UserStore, recorder *AttendanceService) *RosterService {
	return &RosterService{
		catalog:       catalog,
		registrations: registrations,
		attendance:    attendance,
		users:         users,
		recorder:      recorder,
	}
}

// Roster lists every non-cancelled registration of the seminar with the
// sessions it attended.
func (s *RosterService) Roster(ctx context.Context, seminarID int64) (*models.Roster, error) {
	seminar, err := s.catalog.GetSeminar(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.catalog.ListSessions(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListBySeminar(ctx, seminarID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	roster := &models.Roster{Seminar: *seminar, Sessions: sessions, Rows: []models.RosterRow{}}
	for _, reg := range regs {
		if reg.Status == models.RegistrationCancelled {
			continue
		}
		user, err := s.users.GetByID(ctx, reg.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		records, err := s.attendance.ListByRegistration(ctx, reg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list attendance: %w", err)
		}

		row := models.RosterRow{Registration: reg, User: user, Attendance: make(map[int64]models.Attendance, len(records))}
		for _, a := range records {
			row.Attendance[a.SessionID] = a
		}
		roster.Rows = append(roster.Rows, row)
	}
	return roster, nil
}

// Import records each parsed check-in in order. Failures are reported per
// spreadsheet row and do not stop the rest.
func (s *RosterService) Import(ctx context.Context, rows []models.AttendanceImportRow) *models.ImportAttendanceResponse {
	resp := &models.ImportAttendanceResponse{Recorded: []models.Attendance{}, Errors: []models.ImportError{}}

	for _, row := range rows {
		req := row.Request
		a, err := s.recorder.RecordAttendance(ctx, &req)
		if err != nil {
			resp.Errors = append(resp.Errors, models.ImportError{Row: row.Row, Error: err.Error()})
			continue
		}
		resp.Recorded = append(resp.Recorded, *a)
	}

	logger.WithContext(ctx).Info("Attendance import finished",
		"recorded", len(resp.Recorded),
		"errors", len(resp.Errors))
	return resp
}
