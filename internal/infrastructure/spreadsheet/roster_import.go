// Package spreadsheet reads class rosters from and writes class reports to
// xlsx workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrNotFinite is returned for a NaN or infinite number cell.
	ErrNotFinite = errors.New("spreadsheet: number is not finite")

	// ErrNoSheet is returned for a workbook without sheets.
	ErrNoSheet = errors.New("spreadsheet: workbook has no sheets")

	// ErrNoNameColumn is returned when no column can hold student names.
	ErrNoNameColumn = errors.New("spreadsheet: no name column")
)

// Header aliases, matched after trimming and lower-casing.
var columnAliases = map[string][]string{
	colID:          {"id", "student_id", "studentid", "學號"},
	colName:        {"name", "姓名"},
	colSeat:        {"seat", "seatnumber", "seat_number", "座號", "班級座號"},
	colTags:        {"tags", "tag", "interests", "標籤", "興趣"},
	colFamiliarity: {"familiarity", "熟悉度"},
	colPhoto:       {"photo", "photourl", "photo_url", "照片"},
}

const (
	colID          = "id"
	colName        = "name"
	colSeat        = "seat"
	colTags        = "tags"
	colFamiliarity = "familiarity"
	colPhoto       = "photo"
)

// RosterRow is one student read from the sheet.
type RosterRow struct {
	// Line is the 1-based row number in the sheet.
	Line        int
	ID          string
	Name        string
	SeatNumber  string
	PhotoURL    string
	Tags        []string
	Familiarity float64
}

// ImportRoster reads the first sheet of an xlsx workbook. Row 1 is the header;
// columns are found by name, and when no name header exists the first column
// holds names. Rows without a name are skipped. A missing ID is derived from
// class, seat and name so that re-importing the same sheet updates in place.
func ImportRoster(r io.Reader, className string) ([]RosterRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []RosterRow{}, nil
	}

	cols := mapHeader(rows[0])
	if _, ok := cols[colName]; !ok {
		if len(rows[0]) == 0 {
			return nil, ErrNoNameColumn
		}
		cols[colName] = 0
	}

	out := make([]RosterRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		row := RosterRow{
			Line:       i + 2,
			ID:         cell(cells, cols, colID),
			Name:       cell(cells, cols, colName),
			SeatNumber: cell(cells, cols, colSeat),
			PhotoURL:   cell(cells, cols, colPhoto),
			Tags:       SplitTags(cell(cells, cols, colTags)),
		}
		if row.Name == "" {
			continue
		}
		if raw := cell(cells, cols, colFamiliarity); raw != "" {
			row.Familiarity, err = strconv.ParseFloat(raw, 64)
			if err == nil && (math.IsNaN(row.Familiarity) || math.IsInf(row.Familiarity, 0)) {
				err = ErrNotFinite
			}
			if err != nil {
				return nil, fmt.Errorf("spreadsheet: row %d: familiarity %q: %w", row.Line, raw, err)
			}
		}
		if row.ID == "" {
			row.ID = DeriveID(className, row.SeatNumber, row.Name)
		}
		out = append(out, row)
	}
	return out, nil
}

// DeriveID returns a stable ID for a student listed without one.
func DeriveID(className, seat, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("roster:"+className+"/"+seat+"/"+name)).String()
}

// SplitTags splits a tag cell on commas, semicolons and the ideographic comma.
func SplitTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '、' || r == '，'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tags = append(tags, f)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func mapHeader(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for col, aliases := range columnAliases {
			if _, taken := cols[col]; taken {
				continue
			}
			for _, a := range aliases {
				if h == a {
					cols[col] = i
				}
			}
		}
	}
	return cols
}

func cell(cells []string, cols map[string]int, col string) string {
	i, ok := cols[col]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}
