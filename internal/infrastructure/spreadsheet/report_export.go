package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// Sheet names of the exported report.
const (
	SheetSummary   = "Summary"
	SheetSessions  = "Sessions"
	SheetRoster    = "Roster"
	SheetAttention = "Needs attention"
)

// ClassReport is the content of an exported workbook.
type ClassReport struct {
	ClassName   string
	Stats       stats.ClassStats
	Sessions    []*stats.SessionRecord
	Students    []*student.Student
	Attention   []stats.AttentionEntry
	GeneratedAt time.Time
}

// ExportClassReport writes the report as an xlsx workbook to w.
func ExportClassReport(w io.Writer, report ClassReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("spreadsheet: rename sheet: %w", err)
	}

	summary := [][]any{
		{"Class", report.ClassName},
		{"Games", report.Stats.Games},
		{"Average score", report.Stats.Average},
		{"Best score", report.Stats.Max},
		{"Generated at", report.GeneratedAt.Format(time.RFC3339)},
	}
	if err := writeRows(f, SheetSummary, nil, summary); err != nil {
		return err
	}

	sessions := make([][]any, 0, len(report.Sessions))
	for _, s := range report.Sessions {
		sessions = append(sessions, []any{
			s.CreatedAt.Format("2006-01-02 15:04"), s.Score, s.Accuracy, s.MaxStreak, s.CorrectCount(), len(s.Answers),
		})
	}
	if err := writeSheet(f, SheetSessions,
		[]string{"Played at", "Score", "Accuracy %", "Max streak", "Correct", "Questions"}, sessions); err != nil {
		return err
	}

	roster := make([][]any, 0, len(report.Students))
	for _, s := range report.Students {
		roster = append(roster, []any{
			s.SeatNumber, s.Name, strings.Join(s.Tags, ", "), s.Familiarity,
			s.Stats.TotalAttempts, s.Stats.CorrectAttempts, int(s.Stats.Accuracy() + 0.5),
		})
	}
	if err := writeSheet(f, SheetRoster,
		[]string{"Seat", "Name", "Tags", "Familiarity", "Attempts", "Correct", "Accuracy %"}, roster); err != nil {
		return err
	}

	attention := make([][]any, 0, len(report.Attention))
	for _, a := range report.Attention {
		attention = append(attention, []any{a.SeatNumber, a.Name, a.Accuracy, a.TotalAttempts, a.CorrectAttempts})
	}
	if err := writeSheet(f, SheetAttention,
		[]string{"Seat", "Name", "Accuracy %", "Attempts", "Correct"}, attention); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("spreadsheet: create sheet %s: %w", name, err)
	}
	return writeRows(f, name, header, rows)
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]any) error {
	start := 1
	if header != nil {
		values := make([]any, len(header))
		for i, h := range header {
			values[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
			return fmt.Errorf("spreadsheet: %s header: %w", sheet, err)
		}
		start = 2
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("spreadsheet: %s row %d: %w", sheet, start+i, err)
		}
	}
	return nil
}
