package export

import (
	"fmt"
	"io"

	"ceseminars/internal/models"

	"github.com/xuri/excelize/v2"
)

const eligibleSheet = "Eligible"

// WriteEligible renders the certificate eligibility list of one period.
func WriteEligible(w io.Writer, seminar *models.Seminar, label string, rows []models.EligibleRegistration) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", eligibleSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	title := []interface{}{seminar.Title, label}
	if err := f.SetSheetRow(eligibleSheet, "A1", &title); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	header := []interface{}{"Registration ID", "User ID", "Name", "Email", "Sessions", "Credits"}
	if err := f.SetSheetRow(eligibleSheet, "A2", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		values := []interface{}{row.Registration.ID, row.Registration.UserID, "", "", row.SessionsInPeriod, row.CreditsEarned.InexactFloat64()}
		if row.User != nil {
			values[2] = row.User.FullName()
			values[3] = row.User.Email
		}
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(eligibleSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+3, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(eligibleSheet, 1, 2, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(eligibleSheet, "C", "D", 28); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
