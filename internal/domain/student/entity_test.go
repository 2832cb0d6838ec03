package student

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
)

func TestNewStudent_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  NewStudentParams
		wantErr error
	}{
		{
			name:   "valid",
			params: NewStudentParams{ID: "s1", ClassName: "3-2", Name: "Ann", SeatNumber: "01"},
		},
		{
			name:    "missing id",
			params:  NewStudentParams{ClassName: "3-2", Name: "Ann"},
			wantErr: shared.ErrInvalidStudentID,
		},
		{
			name:    "blank name",
			params:  NewStudentParams{ID: "s1", ClassName: "3-2", Name: "   "},
			wantErr: shared.ErrEmptyStudentName,
		},
		{
			name:    "missing class",
			params:  NewStudentParams{ID: "s1", Name: "Ann"},
			wantErr: shared.ErrEmptyClassName,
		},
		{
			name:    "NaN familiarity",
			params:  NewStudentParams{ID: "s1", ClassName: "3-2", Name: "Ann", Familiarity: math.NaN()},
			wantErr: shared.ErrBadFamiliarity,
		},
		{
			name:    "infinite familiarity",
			params:  NewStudentParams{ID: "s1", ClassName: "3-2", Name: "Ann", Familiarity: math.Inf(-1)},
			wantErr: shared.ErrBadFamiliarity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStudent(tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, shared.IsValidation(err))
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.True(t, s.Stats.IsZero())
		})
	}
}

func TestStudent_TagsAreASet(t *testing.T) {
	s, err := NewStudent(NewStudentParams{
		ID: "s1", ClassName: "3-2", Name: "Ann",
		Tags: []string{"chess", " chess ", "", "music"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"chess", "music"}, s.Tags)
	assert.False(t, s.AddTag("music"))
	assert.True(t, s.AddTag("art"))

	first, ok := s.FirstTag()
	assert.True(t, ok)
	assert.Equal(t, "chess", first)
}

func TestStats_Accuracy(t *testing.T) {
	assert.Equal(t, 100.0, Stats{}.Accuracy(), "never practised counts as 100%")
	assert.InDelta(t, 75.0, Stats{TotalAttempts: 4, CorrectAttempts: 3}.Accuracy(), 1e-9)
	assert.Equal(t, 0.0, Stats{TotalAttempts: 2}.Accuracy())
}

func TestStats_AddAndDelta(t *testing.T) {
	s := Stats{}.Add(AttemptDelta(true)).Add(AttemptDelta(false))

	assert.Equal(t, Stats{TotalAttempts: 2, CorrectAttempts: 1}, s)
	assert.NoError(t, s.Validate())
	assert.ErrorIs(t, Stats{TotalAttempts: 1, CorrectAttempts: 2}.Validate(), shared.ErrCorrectExceedsAll)
	assert.ErrorIs(t, Stats{TotalAttempts: -1}.Validate(), shared.ErrNegativeAttempts)
}

func TestStudent_CloneIsDeep(t *testing.T) {
	s, err := NewStudent(NewStudentParams{ID: "s1", ClassName: "c", Name: "Ann", Tags: []string{"a"}})
	require.NoError(t, err)

	c := s.Clone()
	c.Tags[0] = "changed"

	assert.Equal(t, "a", s.Tags[0])
}
