package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"ceseminars/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	rosterSheet = "Roster"

	// Marks written into session cells.
	markAttended = "x"
	markMakeup   = "M"
)

var rosterHeader = []string{"Registration ID", "Name", "Email", "Status", "Completed", "Remaining"}

// WriteRoster renders the roster as an xlsx workbook, one column per
// session after the fixed registration columns.
func WriteRoster(w io.Writer, roster *models.Roster) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(rosterHeader)+len(roster.Sessions))
	for _, h := range rosterHeader {
		header = append(header, h)
	}
	for _, s := range roster.Sessions {
		header = append(header, fmt.Sprintf("#%d %s", s.SessionNumber, s.SessionDate.Format("2006-01-02")))
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range roster.Rows {
		values := []interface{}{
			row.Registration.ID,
			"",
			"",
			string(row.Registration.Status),
			row.Registration.SessionsCompleted,
			row.Registration.SessionsRemaining,
		}
		if row.User != nil {
			values[1] = row.User.FullName()
			values[2] = row.User.Email
		}
		for _, s := range roster.Sessions {
			a, ok := row.Attendance[s.ID]
			switch {
			case !ok:
				values = append(values, "")
			case a.IsMakeup:
				values = append(values, markMakeup)
			default:
				values = append(values, markAttended)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(rosterSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(rosterSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(rosterSheet, "B", "C", 28); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetPanes(rosterSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      3,
		YSplit:      1,
		TopLeftCell: "D2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadAttendance parses the first sheet of an attendance import workbook.
// The header row must name registration_id and session_id; method and
// is_makeup are optional. Rows that cannot be parsed come back as errors
// keyed by their spreadsheet row number.
func ReadAttendance(r io.Reader) ([]models.AttendanceImportRow, []models.ImportError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("workbook is empty")
	}

	columns := make(map[string]int)
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	regCol, ok := columns["registration_id"]
	if !ok {
		return nil, nil, fmt.Errorf("missing registration_id column")
	}
	sessionCol, ok := columns["session_id"]
	if !ok {
		return nil, nil, fmt.Errorf("missing session_id column")
	}
	methodCol, hasMethod := columns["method"]
	makeupCol, hasMakeup := columns["is_makeup"]

	cell := func(row []string, col int) string {
		if col < len(row) {
			return strings.TrimSpace(row[col])
		}
		return ""
	}

	var parsed []models.AttendanceImportRow
	var errs []models.ImportError
	for i, row := range rows[1:] {
		n := i + 2
		if cell(row, regCol) == "" && cell(row, sessionCol) == "" {
			continue
		}

		regID, err := strconv.ParseInt(cell(row, regCol), 10, 64)
		if err != nil {
			errs = append(errs, models.ImportError{Row: n, Error: "registration_id is not a number"})
			continue
		}
		sessionID, err := strconv.ParseInt(cell(row, sessionCol), 10, 64)
		if err != nil {
			errs = append(errs, models.ImportError{Row: n, Error: "session_id is not a number"})
			continue
		}

		req := models.RecordAttendanceRequest{
			RegistrationID: regID,
			SessionID:      sessionID,
			Method:         models.MethodManual,
		}
		if hasMethod {
			if m := cell(row, methodCol); m != "" {
				req.Method = models.AttendanceMethod(strings.ToLower(m))
			}
		}
		if hasMakeup {
			switch strings.ToLower(cell(row, makeupCol)) {
			case "", "0", "false", "no", "n":
			case "1", "true", "yes", "y":
				req.IsMakeup = true
			default:
				errs = append(errs, models.ImportError{Row: n, Error: "is_makeup must be yes or no"})
				continue
			}
		}

		parsed = append(parsed, models.AttendanceImportRow{Row: n, Request: req})
	}

	return parsed, errs, nil
}
