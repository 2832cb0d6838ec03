package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
	"github.com/roster-hub/classroom-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT ROSTER COMMAND
// Enrols or updates students of one class from a parsed spreadsheet.
// Existing counters are kept; only roster fields are written.
// ══════════════════════════════════════════════════════════════════════════════

// RosterRow is one parsed spreadsheet row.
type RosterRow struct {
	// Line is the 1-based sheet row, used in error reports.
	Line int

	ID          string
	Name        string
	SeatNumber  string
	PhotoURL    string
	Tags        []string
	Familiarity float64
}

// ImportRosterCommand contains the rows to import.
type ImportRosterCommand struct {
	ClassName string
	Rows      []RosterRow
}

// Validate validates the command.
func (c ImportRosterCommand) Validate() error {
	if strings.TrimSpace(c.ClassName) == "" {
		return shared.ErrEmptyClassName
	}
	if len(c.Rows) == 0 {
		return shared.NewDomainError("student", "Import", shared.ErrEmptyValue, "no rows to import")
	}
	return nil
}

// RowError is a row that was not imported.
type RowError struct {
	Line  int    `json:"line"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// ImportRosterResult contains the import outcome.
type ImportRosterResult struct {
	ClassName string     `json:"class_name"`
	Imported  int        `json:"imported"`
	Skipped   []RowError `json:"skipped,omitempty"`
}

// ImportRosterHandler handles the ImportRosterCommand.
type ImportRosterHandler struct {
	students student.Repository
	log      *logger.Logger
}

// NewImportRosterHandler creates a new ImportRosterHandler.
func NewImportRosterHandler(students student.Repository, log *logger.Logger) *ImportRosterHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &ImportRosterHandler{
		students: students,
		log:      log.With(logger.Component("import_roster")),
	}
}

// Handle executes the import. Invalid rows and duplicate IDs are skipped and
// reported; a storage failure aborts the import.
func (h *ImportRosterHandler) Handle(ctx context.Context, cmd ImportRosterCommand) (*ImportRosterResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	className := strings.TrimSpace(cmd.ClassName)
	result := &ImportRosterResult{ClassName: className}
	seen := make(map[string]int, len(cmd.Rows))

	for _, row := range cmd.Rows {
		s, err := student.NewStudent(student.NewStudentParams{
			ID:          row.ID,
			ClassName:   className,
			Name:        row.Name,
			SeatNumber:  row.SeatNumber,
			PhotoURL:    row.PhotoURL,
			Tags:        row.Tags,
			Familiarity: row.Familiarity,
		})
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Line: row.Line, ID: row.ID, Error: err.Error()})
			continue
		}

		if first, dup := seen[s.ID]; dup {
			result.Skipped = append(result.Skipped, RowError{
				Line:  row.Line,
				ID:    s.ID,
				Error: fmt.Sprintf("duplicate of line %d", first),
			})
			continue
		}
		seen[s.ID] = row.Line

		if err := h.students.Save(ctx, s); err != nil {
			if errors.Is(err, context.Canceled) || !shared.IsValidation(err) {
				return nil, fmt.Errorf("import_roster: save %s: %w", s.ID, err)
			}
			result.Skipped = append(result.Skipped, RowError{Line: row.Line, ID: s.ID, Error: err.Error()})
			continue
		}
		result.Imported++
	}

	h.log.Info("roster imported",
		logger.ClassName(className),
		logger.Int("imported", result.Imported),
		logger.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
