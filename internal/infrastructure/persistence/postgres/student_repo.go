// Package postgres implements the PostgreSQL persistence layer of the
// curriculum engine.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const studentColumns = `id, school_id, teacher_id, name, english_name, grade,
	   exp, points, status, created_at, updated_at`

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (
			id, school_id, teacher_id, name, english_name, grade,
			exp, points, level, status, created_at, updated_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.SchoolID,
		s.TeacherID,
		s.Name,
		s.EnglishName,
		s.Grade,
		int(s.Exp),
		int(s.Points),
		int(s.Level()),
		string(s.Status),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE id = $1 AND deleted_at IS NULL
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanStudent(row)
}

// Update updates a student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			teacher_id = NULLIF($1, '')::uuid,
			name = $2,
			english_name = $3,
			grade = $4,
			exp = $5,
			points = $6,
			level = $7,
			status = $8,
			updated_at = $9
		WHERE id = $10 AND deleted_at IS NULL
	`

	result, err := r.conn.Exec(ctx, query,
		s.TeacherID,
		s.Name,
		s.EnglishName,
		s.Grade,
		int(s.Exp),
		int(s.Points),
		int(s.Level()),
		string(s.Status),
		time.Now().UTC(),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// Delete performs a soft delete on a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE students
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.conn.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetByIDs returns students by a list of IDs.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE id = ANY($1) AND deleted_at IS NULL
	`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query students by ids: %w", err)
	}
	defer rows.Close()

	return r.scanStudents(rows)
}

// ListActiveByTeacher returns the active students of a teacher.
// This is the materializer's audience for a plan publication.
func (r *StudentRepository) ListActiveByTeacher(ctx context.Context, schoolID, teacherID string) ([]*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE school_id = $1 AND teacher_id = $2
		  AND status = 'active' AND deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.conn.Query(ctx, query, schoolID, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students by teacher: %w", err)
	}
	defer rows.Close()

	return r.scanStudents(rows)
}

// ListBySchool returns students of a school with pagination.
func (r *StudentRepository) ListBySchool(ctx context.Context, schoolID string, opts student.ListOptions) ([]*student.Student, error) {
	sortColumn := "exp"
	switch opts.SortBy {
	case "name", "exp", "points", "created_at", "updated_at":
		sortColumn = opts.SortBy
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	statusFilter := "AND status = 'active'"
	if opts.IncludeInactive {
		statusFilter = ""
	}

	query := fmt.Sprintf(`
		SELECT `+studentColumns+`
		FROM students
		WHERE school_id = $1 AND deleted_at IS NULL %s
		ORDER BY %s %s
		LIMIT $2 OFFSET $3
	`, statusFilter, sortColumn, direction)

	rows, err := r.conn.Query(ctx, query, schoolID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	return r.scanStudents(rows)
}

// Count returns the number of students in a school.
func (r *StudentRepository) Count(ctx context.Context, schoolID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE school_id = $1 AND deleted_at IS NULL`,
		schoolID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reward Balance
// ─────────────────────────────────────────────────────────────────────────────

// ApplyRewardDelta atomically applies a balance delta in a single UPDATE.
// The balance is clamped at zero and the level recomputed in the same
// statement, so concurrent settlements never lose an increment.
func (r *StudentRepository) ApplyRewardDelta(ctx context.Context, id string, expDelta, pointsDelta int) (*student.Student, error) {
	return applyRewardDelta(ctx, r.conn, id, expDelta, pointsDelta)
}

// applyRewardDelta runs the balance update against any Querier so the
// settlement store can reuse it inside a transaction.
func applyRewardDelta(ctx context.Context, q Querier, id string, expDelta, pointsDelta int) (*student.Student, error) {
	query := `
		UPDATE students SET
			exp = GREATEST(exp + $1, 0),
			points = GREATEST(points + $2, 0),
			level = GREATEST(exp + $1, 0) / 100 + 1,
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING ` + studentColumns + `
	`

	row := q.QueryRow(ctx, query, expDelta, pointsDelta, id)

	s, err := scanStudentRow(row)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Exists checks if a student exists.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM students WHERE id = $1 AND deleted_at IS NULL)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	return scanStudentRow(row)
}

func scanStudentRow(row pgx.Row) (*student.Student, error) {
	var (
		s         student.Student
		teacherID *string
		exp       int
		points    int
		status    string
	)

	err := row.Scan(
		&s.ID,
		&s.SchoolID,
		&teacherID,
		&s.Name,
		&s.EnglishName,
		&s.Grade,
		&exp,
		&points,
		&status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, student.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	if teacherID != nil {
		s.TeacherID = *teacherID
	}
	s.Exp = student.Exp(exp)
	s.Points = student.Points(points)
	s.Status = student.Status(status)

	return &s, nil
}

func (r *StudentRepository) scanStudents(rows pgx.Rows) ([]*student.Student, error) {
	var students []*student.Student
	for rows.Next() {
		s, err := scanStudentRow(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
