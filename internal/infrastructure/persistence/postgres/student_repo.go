package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository and student.CounterStore.
// Counters are columns of the students row and change only through Increment.
type StudentRepository struct {
	conn *Connection
}

var (
	_ student.Repository   = (*StudentRepository)(nil)
	_ student.CounterStore = (*StudentRepository)(nil)
)

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, class_name, name, seat_number, photo_url, tags, familiarity,
	total_attempts, correct_attempts, created_at, updated_at
`

// GetByID returns a student of a class by ID.
func (r *StudentRepository) GetByID(ctx context.Context, className, id string) (*student.Student, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE class_name = $1 AND id = $2`,
		className, id,
	)

	s, err := scanStudent(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student %s/%s: %w", className, id, err)
	}
	return s, nil
}

// ListByClass returns the class roster in enrolment order.
func (r *StudentRepository) ListByClass(ctx context.Context, className string) ([]*student.Student, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+studentColumns+` FROM students WHERE class_name = $1 ORDER BY enrolled_seq`,
		className,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list students of %s: %w", className, err)
	}
	defer rows.Close()

	out := make([]*student.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Save inserts the student or updates its roster fields. Counters of an
// existing row are left untouched.
func (r *StudentRepository) Save(ctx context.Context, s *student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}

	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO students (
			id, class_name, name, seat_number, photo_url, tags, familiarity, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (class_name, id) DO UPDATE SET
			name = EXCLUDED.name,
			seat_number = EXCLUDED.seat_number,
			photo_url = EXCLUDED.photo_url,
			tags = EXCLUDED.tags,
			familiarity = EXCLUDED.familiarity,
			updated_at = NOW()
	`, s.ID, s.ClassName, s.Name, s.SeatNumber, s.PhotoURL, tags, s.Familiarity, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save student %s/%s: %w", s.ClassName, s.ID, err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Counters
// ─────────────────────────────────────────────────────────────────────────────

// Increment adds delta in a single UPDATE so concurrent calls never lose writes.
func (r *StudentRepository) Increment(ctx context.Context, className, studentID string, delta student.Stats) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE students SET
			total_attempts = total_attempts + $3,
			correct_attempts = correct_attempts + $4,
			updated_at = NOW()
		WHERE class_name = $1 AND id = $2
	`, className, studentID, delta.TotalAttempts, delta.CorrectAttempts)
	if err != nil {
		if IsCheckViolation(err) {
			return shared.WrapError("student", "Increment", shared.ErrValueOutOfRange, "counter delta rejected", err)
		}
		return fmt.Errorf("failed to increment counters of %s/%s: %w", className, studentID, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

// Load returns the counters of the given students.
func (r *StudentRepository) Load(ctx context.Context, className string, studentIDs []string) (map[string]student.Stats, error) {
	out := make(map[string]student.Stats, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}

	rows, err := r.conn.Query(ctx,
		`SELECT id, total_attempts, correct_attempts FROM students WHERE class_name = $1 AND id = ANY($2)`,
		className, studentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			st student.Stats
		)
		if err := rows.Scan(&id, &st.TotalAttempts, &st.CorrectAttempts); err != nil {
			return nil, fmt.Errorf("failed to scan counters: %w", err)
		}
		out[id] = st
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	err := row.Scan(
		&s.ID,
		&s.ClassName,
		&s.Name,
		&s.SeatNumber,
		&s.PhotoURL,
		&s.Tags,
		&s.Familiarity,
		&s.Stats.TotalAttempts,
		&s.Stats.CorrectAttempts,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(s.Tags) == 0 {
		s.Tags = nil
	}
	return &s, nil
}
