package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUBLICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PublicationRepository implements curriculum.PublicationRepository for
// PostgreSQL. Course positions and task templates are stored as JSONB
// blobs: publications are written once and read back whole.
type PublicationRepository struct {
	conn *Connection
}

// NewPublicationRepository creates a new PublicationRepository.
func NewPublicationRepository(conn *Connection) *PublicationRepository {
	return &PublicationRepository{conn: conn}
}

// Create persists a publication.
func (r *PublicationRepository) Create(ctx context.Context, pub *curriculum.Publication) error {
	courseJSON, err := json.Marshal(pub.CourseInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal course info: %w", err)
	}
	templatesJSON, err := json.Marshal(pub.Templates)
	if err != nil {
		return fmt.Errorf("failed to marshal templates: %w", err)
	}

	query := `
		INSERT INTO lesson_plan_publications (
			id, school_id, teacher_id, title, calendar_day,
			course_info, templates, published_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8)
	`

	_, err = r.conn.Exec(ctx, query,
		pub.ID,
		pub.SchoolID,
		pub.TeacherID,
		pub.Title,
		pub.CalendarDay,
		courseJSON,
		templatesJSON,
		pub.PublishedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("publication %s: %w", pub.ID, curriculum.ErrInvalidPublication)
		}
		return fmt.Errorf("failed to create publication: %w", err)
	}

	return nil
}

// GetByID returns a publication by ID.
func (r *PublicationRepository) GetByID(ctx context.Context, id string) (*curriculum.Publication, error) {
	query := `
		SELECT id, school_id, teacher_id, title, calendar_day,
		       course_info, templates, published_at
		FROM lesson_plan_publications
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return scanPublicationRow(row)
}

// ListByTeacherDay returns a teacher's publications for a calendar day,
// oldest first so replays apply in publish order.
func (r *PublicationRepository) ListByTeacherDay(ctx context.Context, schoolID, teacherID, calendarDay string) ([]*curriculum.Publication, error) {
	query := `
		SELECT id, school_id, teacher_id, title, calendar_day,
		       course_info, templates, published_at
		FROM lesson_plan_publications
		WHERE school_id = $1 AND teacher_id = $2 AND calendar_day = $3
		ORDER BY published_at
	`

	rows, err := r.conn.Query(ctx, query, schoolID, teacherID, calendarDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query publications: %w", err)
	}
	defer rows.Close()

	var pubs []*curriculum.Publication
	for rows.Next() {
		pub, err := scanPublicationRow(rows)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, rows.Err()
}

func scanPublicationRow(row pgx.Row) (*curriculum.Publication, error) {
	var (
		pub           curriculum.Publication
		teacherID     *string
		courseJSON    []byte
		templatesJSON []byte
	)

	err := row.Scan(
		&pub.ID,
		&pub.SchoolID,
		&teacherID,
		&pub.Title,
		&pub.CalendarDay,
		&courseJSON,
		&templatesJSON,
		&pub.PublishedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, curriculum.ErrPublicationNotFound
		}
		return nil, fmt.Errorf("failed to scan publication: %w", err)
	}

	if teacherID != nil {
		pub.TeacherID = *teacherID
	}
	if err := json.Unmarshal(courseJSON, &pub.CourseInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal course info: %w", err)
	}
	if err := json.Unmarshal(templatesJSON, &pub.Templates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal templates: %w", err)
	}

	return &pub, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements curriculum.ProgressRepository. Snapshots
// and overrides live in separate tables with the same (student, subject)
// primary key; merging the two layers is left to the resolver.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// UpsertSnapshot writes the lesson-plan layer for one subject.
func (r *ProgressRepository) UpsertSnapshot(ctx context.Context, snap *curriculum.Snapshot) error {
	query := `
		INSERT INTO progress_snapshots (student_id, subject, unit, lesson, title, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, subject) DO UPDATE SET
			unit = EXCLUDED.unit,
			lesson = EXCLUDED.lesson,
			title = EXCLUDED.title,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		snap.StudentID,
		string(snap.Subject),
		snap.Position.Unit,
		snap.Position.Lesson,
		snap.Position.Title,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress snapshot: %w", err)
	}
	return nil
}

// GetSnapshots returns a student's lesson-plan layer keyed by subject.
func (r *ProgressRepository) GetSnapshots(ctx context.Context, studentID string) (map[curriculum.Subject]*curriculum.Snapshot, error) {
	query := `
		SELECT student_id, subject, unit, lesson, title, updated_at
		FROM progress_snapshots
		WHERE student_id = $1
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress snapshots: %w", err)
	}
	defer rows.Close()

	result := make(map[curriculum.Subject]*curriculum.Snapshot)
	for rows.Next() {
		var (
			snap    curriculum.Snapshot
			subject string
		)
		if err := rows.Scan(
			&snap.StudentID,
			&subject,
			&snap.Position.Unit,
			&snap.Position.Lesson,
			&snap.Position.Title,
			&snap.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress snapshot: %w", err)
		}
		snap.Subject = curriculum.Subject(subject)
		result[snap.Subject] = &snap
	}
	return result, rows.Err()
}

// UpsertOverride writes the manual layer for one subject.
func (r *ProgressRepository) UpsertOverride(ctx context.Context, ov *curriculum.Override) error {
	query := `
		INSERT INTO progress_overrides (student_id, subject, unit, lesson, title, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, subject) DO UPDATE SET
			unit = EXCLUDED.unit,
			lesson = EXCLUDED.lesson,
			title = EXCLUDED.title,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		ov.StudentID,
		string(ov.Subject),
		ov.Position.Unit,
		ov.Position.Lesson,
		ov.Position.Title,
		ov.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress override: %w", err)
	}
	return nil
}

// GetOverrides returns a student's manual layer keyed by subject.
func (r *ProgressRepository) GetOverrides(ctx context.Context, studentID string) (map[curriculum.Subject]*curriculum.Override, error) {
	query := `
		SELECT student_id, subject, unit, lesson, title, updated_at
		FROM progress_overrides
		WHERE student_id = $1
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress overrides: %w", err)
	}
	defer rows.Close()

	result := make(map[curriculum.Subject]*curriculum.Override)
	for rows.Next() {
		var (
			ov      curriculum.Override
			subject string
		)
		if err := rows.Scan(
			&ov.StudentID,
			&subject,
			&ov.Position.Unit,
			&ov.Position.Lesson,
			&ov.Position.Title,
			&ov.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress override: %w", err)
		}
		ov.Subject = curriculum.Subject(subject)
		result[ov.Subject] = &ov
	}
	return result, rows.Err()
}

// DeleteOverride removes the manual layer for one subject, letting the
// lesson-plan layer show through again.
func (r *ProgressRepository) DeleteOverride(ctx context.Context, studentID string, subject curriculum.Subject) error {
	_, err := r.conn.Exec(ctx,
		`DELETE FROM progress_overrides WHERE student_id = $1 AND subject = $2`,
		studentID, string(subject),
	)
	if err != nil {
		return fmt.Errorf("failed to delete progress override: %w", err)
	}
	return nil
}
