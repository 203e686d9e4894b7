package helper

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet  = "Summary"
	SessionsSheet = "Sessions"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// BuildWorkbook renders the reports into an xlsx file with a per-project
// summary sheet and a per-session sheet.
func BuildWorkbook(reports []ProjectReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SessionsSheet); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	summary := [][]interface{}{{"Company", "Project", "Name", "Job type", "Target met", "Valid reason", "Below target"}}
	sessions := [][]interface{}{{"Company", "Project", "Worker", "Work date", "Units", "Target", "Status", "Reason code", "Reason"}}

	for _, r := range reports {
		s := r.Report.Summary
		summary = append(summary, []interface{}{r.Schema, r.Project.ID, r.Project.Name, string(r.Project.JobType()), s.TargetMet, s.ValidReason, s.BelowTarget})

		for _, c := range r.Report.Sessions {
			sessions = append(sessions, []interface{}{r.Schema, r.Project.ID, c.WorkerID, c.WorkDate, c.Units, c.Target, string(c.Status), c.ReasonCode, c.Reason})
		}
	}

	if err := writeRows(f, SummarySheet, summary); err != nil {
		return nil, err
	}
	if err := writeRows(f, SessionsSheet, sessions); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
