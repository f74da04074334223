package export

import (
	"bytes"
	"testing"
	"time"

	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteRoster(t *testing.T) {
	sessions := []models.Session{
		{ID: 11, SessionNumber: 1, SessionDate: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 12, SessionNumber: 2, SessionDate: time.Date(2026, time.February, 8, 0, 0, 0, 0, time.UTC)},
	}
	roster := &models.Roster{
		Seminar:  models.Seminar{ID: 1, Title: "Clinical Practice"},
		Sessions: sessions,
		Rows: []models.RosterRow{
			{
				Registration: models.Registration{ID: 5, Status: models.RegistrationActive, SessionsCompleted: 2, SessionsRemaining: 8},
				User:         &models.User{FirstName: "Ann", Surname: "Lee", Email: "ann@example.com"},
				Attendance: map[int64]models.Attendance{
					11: {SessionID: 11},
					12: {SessionID: 12, IsMakeup: true},
				},
			},
			{
				Registration: models.Registration{ID: 6, Status: models.RegistrationOnHold, SessionsRemaining: 10},
				Attendance:   map[int64]models.Attendance{},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, roster))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(rosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Registration ID", "Name", "Email", "Status", "Completed", "Remaining", "#1 2026-02-01", "#2 2026-02-08"}, rows[0])
	assert.Equal(t, []string{"5", "Ann Lee", "ann@example.com", "active", "2", "8", "x", "M"}, rows[1])
	assert.Equal(t, "on_hold", rows[2][3])
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadAttendance(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Registration_ID", "session_id", "is_makeup"},
		{"5", "11", ""},
		{"5", "12", "yes"},
		{"", "", ""},
		{"abc", "13", ""},
		{"6", "14", "maybe"},
	})

	rows, errs, err := ReadAttendance(buf)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, int64(5), rows[0].Request.RegistrationID)
	assert.Equal(t, int64(11), rows[0].Request.SessionID)
	assert.Equal(t, models.MethodManual, rows[0].Request.Method)
	assert.False(t, rows[0].Request.IsMakeup)
	assert.True(t, rows[1].Request.IsMakeup)

	require.Len(t, errs, 2)
	assert.Equal(t, 5, errs[0].Row)
	assert.Equal(t, 6, errs[1].Row)
}

func TestReadAttendance_MissingColumns(t *testing.T) {
	buf := workbook(t, [][]interface{}{{"registration_id", "date"}})

	_, _, err := ReadAttendance(buf)
	assert.ErrorContains(t, err, "session_id")
}

func TestWriteEligible(t *testing.T) {
	rows := []models.EligibleRegistration{
		{
			Registration:     models.Registration{ID: 5, UserID: 9},
			User:             &models.User{FirstName: "Ann", Surname: "Lee", Email: "ann@example.com"},
			SessionsInPeriod: 3,
			CreditsEarned:    decimal.RequireFromString("4.5"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEligible(&buf, &models.Seminar{Title: "Clinical Practice"}, "January - June 2026", rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(eligibleSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Clinical Practice", "January - June 2026"}, got[0])
	assert.Equal(t, []string{"5", "9", "Ann Lee", "ann@example.com", "3", "4.5"}, got[2])
}
