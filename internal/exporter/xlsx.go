package exporter

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

// ExportXLSX writes the activity logs as a spreadsheet, one sheet per
// log, for users who want their data in a tabular form.
func (s *Service) ExportXLSX(ctx context.Context, userID, path string) error {
	bundle, err := s.Export(ctx, userID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeCompulsionsSheet(f, bundle.Analytics.Compulsions); err != nil {
		return err
	}
	if err := writeSessionsSheet(f, bundle.Analytics.ERPSessions); err != nil {
		return err
	}
	if err := writeAssessmentsSheet(f, bundle); err != nil {
		return err
	}

	// Drop the default sheet left over from NewFile.
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	s.logger.Info().Str("user", userID).Str("path", path).Msg("xlsx export written")
	return nil
}

func writeCompulsionsSheet(f *excelize.File, entries []models.Compulsion) error {
	const sheet = "Compulsions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headers := []interface{}{"Date", "Type", "Intensity", "Resistance", "Resisted", "Trigger", "Notes"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, entry := range entries {
		row := []interface{}{
			entry.CreatedAt.Format("2006-01-02 15:04"),
			entry.Type,
			entry.Intensity,
			entry.ResistanceLevel,
			entry.Resisted,
			entry.Trigger,
			entry.Notes,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSessionsSheet(f *excelize.File, sessions []models.ERPSession) error {
	const sheet = "ERP Sessions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headers := []interface{}{"Started", "Exercise", "Category", "Duration (s)", "Anxiety Start", "Anxiety Peak", "Anxiety End", "Completed"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, session := range sessions {
		row := []interface{}{
			session.StartedAt.Format("2006-01-02 15:04"),
			session.ExerciseID,
			session.Category,
			session.Duration,
			session.AnxietyStart,
			session.AnxietyPeak,
			session.AnxietyEnd,
			session.Completed,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeAssessmentsSheet(f *excelize.File, bundle *Bundle) error {
	const sheet = "Assessments"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headers := []interface{}{"Taken", "Obsession Score", "Compulsion Score", "Total", "Severity"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, result := range bundle.Analytics.Assessments {
		row := []interface{}{
			result.TakenAt.Format("2006-01-02 15:04"),
			result.ObsessionScore,
			result.CompulsionScore,
			result.TotalScore,
			result.Severity,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
