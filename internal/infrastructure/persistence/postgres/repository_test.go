package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// openTestDB connects to DATABASE_URL and applies the migrations. Each test
// uses class names with a random suffix, so runs never collide.
func openTestDB(t *testing.T) *Connection {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := NewConnection(ctx, Config{URL: url, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	_, err = NewMigrator(conn).Migrate(ctx)
	require.NoError(t, err)
	return conn
}

func uniqueClass(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func saveStudent(t *testing.T, repo *StudentRepository, className, id, name string) {
	t.Helper()
	s, err := student.NewStudent(student.NewStudentParams{ID: id, ClassName: className, Name: name})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), s))
}

func TestStudentRepository_ConcurrentIncrements(t *testing.T) {
	conn := openTestDB(t)
	repo := NewStudentRepository(conn)
	ctx := context.Background()
	class := uniqueClass("3A")
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		saveStudent(t, repo, class, id, "N"+id)
	}

	var wg sync.WaitGroup
	for i := 0; i < 90; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Increment(ctx, class, ids[i%len(ids)], student.AttemptDelta(i%3 == 0)))
		}()
	}
	wg.Wait()

	got, err := repo.Load(ctx, class, append(ids, "missing"))
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	assert.Equal(t, student.Stats{TotalAttempts: 30, CorrectAttempts: 30}, got["a"])
	assert.Equal(t, student.Stats{TotalAttempts: 30}, got["b"])

	err = repo.Increment(ctx, class, "missing", student.AttemptDelta(true))
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestStudentRepository_IDsScopedToClass(t *testing.T) {
	conn := openTestDB(t)
	repo := NewStudentRepository(conn)
	ctx := context.Background()
	classA, classB := uniqueClass("3A"), uniqueClass("3B")

	saveStudent(t, repo, classA, "1", "Amy")
	saveStudent(t, repo, classA, "2", "Ben")
	require.NoError(t, repo.Increment(ctx, classA, "1", student.AttemptDelta(true)))
	saveStudent(t, repo, classB, "1", "Cleo")

	rosterA, err := repo.ListByClass(ctx, classA)
	require.NoError(t, err)
	require.Len(t, rosterA, 2)
	assert.Equal(t, "Amy", rosterA[0].Name)
	assert.Equal(t, int64(1), rosterA[0].Stats.CorrectAttempts)

	b1, err := repo.GetByID(ctx, classB, "1")
	require.NoError(t, err)
	assert.Equal(t, "Cleo", b1.Name)
	assert.Zero(t, b1.Stats.TotalAttempts)

	_, err = repo.GetByID(ctx, classB, "2")
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestSessionRepository_AppendAndList(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSessionRepository(conn)
	ctx := context.Background()
	class := uniqueClass("3A")
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, score := range []int{120, 340} {
		require.NoError(t, repo.Append(ctx, &stats.SessionRecord{
			ID:        uuid.NewString(),
			ClassName: class,
			Score:     score,
			Accuracy:  10,
			Answers:   []stats.AnswerResult{{StudentID: "a", Correct: true}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := repo.ListByClass(ctx, class, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 340, got[0].Score)
	require.Len(t, got[0].Answers, 1)
	assert.Equal(t, "a", got[0].Answers[0].StudentID)
}
