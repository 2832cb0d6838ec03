package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestImportRoster_HeaderAliases(t *testing.T) {
	buf := workbook(t, [][]any{
		{"座號", "姓名", "標籤", "熟悉度", "ID"},
		{"1", "陳小明", "籃球、音樂", "3.5", "s-1"},
		{"2", "", "art", "", ""},
		{"3", "林小華", "", "", ""},
	})

	rows, err := ImportRoster(buf, "3A")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, RosterRow{
		Line: 2, ID: "s-1", Name: "陳小明", SeatNumber: "1",
		Tags: []string{"籃球", "音樂"}, Familiarity: 3.5,
	}, rows[0])

	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, DeriveID("3A", "3", "林小華"), rows[1].ID)
	assert.Nil(t, rows[1].Tags)
}

func TestImportRoster_FirstColumnIsNameWithoutHeader(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Student", "Seat"},
		{"Amy", "7"},
	})

	rows, err := ImportRoster(buf, "3A")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Amy", rows[0].Name)
	assert.Equal(t, "7", rows[0].SeatNumber)
}

func TestImportRoster_BadFamiliarity(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Name", "Familiarity"},
		{"Amy", "high"},
	})

	_, err := ImportRoster(buf, "3A")
	assert.ErrorContains(t, err, "row 2")
}

func TestImportRoster_NonFiniteFamiliarity(t *testing.T) {
	for _, raw := range []string{"NaN", "nan", "Inf", "-Infinity", "+inf"} {
		t.Run(raw, func(t *testing.T) {
			buf := workbook(t, [][]any{
				{"Name", "Familiarity"},
				{"Amy", "2"},
				{"Ben", raw},
			})

			_, err := ImportRoster(buf, "3A")
			assert.ErrorIs(t, err, ErrNotFinite)
			assert.ErrorContains(t, err, "row 3")
		})
	}
}

func TestImportRoster_NotAWorkbook(t *testing.T) {
	_, err := ImportRoster(bytes.NewBufferString("name,seat\nAmy,1\n"), "3A")
	assert.Error(t, err)
}

func TestDeriveID_Stable(t *testing.T) {
	assert.Equal(t, DeriveID("3A", "1", "Amy"), DeriveID("3A", "1", "Amy"))
	assert.NotEqual(t, DeriveID("3A", "1", "Amy"), DeriveID("3B", "1", "Amy"))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, SplitTags(" a, b;c ，d "))
	assert.Nil(t, SplitTags(" , ;"))
}

func TestExportClassReport(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	report := ClassReport{
		ClassName: "3A",
		Stats:     stats.ClassStats{Average: 420, Max: 610, Games: 2},
		Sessions: []*stats.SessionRecord{{
			ID: "x", ClassName: "3A", Score: 610, Accuracy: 80, MaxStreak: 5, CreatedAt: at,
			Answers: []stats.AnswerResult{{StudentID: "s1", Correct: true}, {StudentID: "s2"}},
		}},
		Students: []*student.Student{{
			ID: "s1", Name: "Amy", SeatNumber: "1", Tags: []string{"art", "music"},
			Stats: student.Stats{TotalAttempts: 4, CorrectAttempts: 1},
		}},
		Attention:   []stats.AttentionEntry{{StudentID: "s1", Name: "Amy", SeatNumber: "1", Accuracy: 25, TotalAttempts: 4, CorrectAttempts: 1}},
		GeneratedAt: at,
	}

	buf := new(bytes.Buffer)
	require.NoError(t, ExportClassReport(buf, report))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetSessions, SheetRoster, SheetAttention}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Average score", "420"}, summary[2])

	sessions, err := f.GetRows(SheetSessions)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, []string{"2026-03-02 09:30", "610", "80", "5", "1", "2"}, sessions[1])

	roster, err := f.GetRows(SheetRoster)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "Amy", "art, music", "0", "4", "1", "25"}, roster[1])

	attention, err := f.GetRows(SheetAttention)
	require.NoError(t, err)
	assert.Equal(t, "25", attention[1][2])
}
