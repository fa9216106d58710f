package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/task"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const taskColumns = `id, school_id, student_id, teacher_id, publication_id,
	   title, type, status, calendar_day, content, reward_exp, reward_points,
	   attempts, completed_at, settled_at, settled_exp, settled_points,
	   created_at, updated_at`

// TaskRepository implements task.Repository for PostgreSQL.
type TaskRepository struct {
	conn *Connection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(conn *Connection) *TaskRepository {
	return &TaskRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Materialization
// ─────────────────────────────────────────────────────────────────────────────

// Upsert inserts a task record keyed by the dedup index
// (student_id, title, type, calendar_day). On conflict only the content
// snapshot and assigned reward are refreshed; status, attempts and
// settlement are left untouched so re-publishing is non-destructive.
func (r *TaskRepository) Upsert(ctx context.Context, record *task.Record) (bool, error) {
	contentJSON, err := json.Marshal(contentToMap(record.Content))
	if err != nil {
		return false, fmt.Errorf("failed to marshal task content: %w", err)
	}

	query := `
		INSERT INTO task_records (
			id, school_id, student_id, teacher_id, publication_id,
			title, type, status, calendar_day, content,
			reward_exp, reward_points, attempts, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid,
			$6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (student_id, title, type, calendar_day) DO UPDATE SET
			content = EXCLUDED.content,
			reward_exp = EXCLUDED.reward_exp,
			reward_points = EXCLUDED.reward_points,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	err = r.conn.QueryRow(ctx, query,
		record.ID,
		record.SchoolID,
		record.StudentID,
		record.TeacherID,
		record.PublicationID,
		record.Title,
		string(record.Type),
		string(record.Status),
		record.CalendarDay,
		contentJSON,
		record.RewardExp,
		record.RewardPoints,
		record.Attempts,
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert task record: %w", err)
	}

	return inserted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookup
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a task record by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*task.Record, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task_records
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return scanTaskRow(row)
}

// ListByStudentDay returns a student's task records for a calendar day.
// Day matching is on the stored day string, not timestamp ranges.
func (r *TaskRepository) ListByStudentDay(ctx context.Context, studentID, calendarDay string) ([]*task.Record, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task_records
		WHERE student_id = $1 AND calendar_day = $2
		ORDER BY created_at
	`

	rows, err := r.conn.Query(ctx, query, studentID, calendarDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by day: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// ListByPublication returns the task records materialized from a publication.
func (r *TaskRepository) ListByPublication(ctx context.Context, publicationID string) ([]*task.Record, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task_records
		WHERE publication_id = $1
		ORDER BY created_at
	`

	rows, err := r.conn.Query(ctx, query, publicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by publication: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// ListSettledInWindow returns settled records whose settled_at falls in
// the half-open window [from, to).
func (r *TaskRepository) ListSettledInWindow(ctx context.Context, studentID string, from, to time.Time) ([]*task.Record, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task_records
		WHERE student_id = $1
		  AND settled_at IS NOT NULL
		  AND settled_at >= $2 AND settled_at < $3
		ORDER BY settled_at
	`

	rows, err := r.conn.Query(ctx, query, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query settled tasks: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// ListCompletedUnsettled returns completed-but-unsettled records older
// than the threshold. Feeds the settlement reconciliation job.
func (r *TaskRepository) ListCompletedUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]*task.Record, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task_records
		WHERE status = 'COMPLETED'
		  AND settled_at IS NULL
		  AND completed_at < $1
		ORDER BY completed_at
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsettled tasks: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// State Transitions
// ─────────────────────────────────────────────────────────────────────────────

// MarkCompleted transitions a record to COMPLETED.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE task_records SET
			status = 'COMPLETED',
			completed_at = $1,
			attempts = attempts + 1,
			updated_at = NOW()
		WHERE id = $2 AND status = 'PENDING'
	`

	result, err := r.conn.Exec(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark task completed: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish missing from already completed.
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return task.ErrTaskNotFound
		}
		return task.ErrAlreadyCompleted
	}

	return nil
}

// MarkSettled is the settlement compare-and-set: the UPDATE only fires
// while settled_at IS NULL, so exactly one concurrent caller wins.
func (r *TaskRepository) MarkSettled(ctx context.Context, id string, at time.Time, exp, points int) (bool, error) {
	return markSettled(ctx, r.conn, id, at, exp, points)
}

// markSettled runs the CAS against any Querier so the settlement store
// can reuse it inside a transaction.
func markSettled(ctx context.Context, q Querier, id string, at time.Time, exp, points int) (bool, error) {
	query := `
		UPDATE task_records SET
			settled_at = $1,
			settled_exp = $2,
			settled_points = $3,
			updated_at = NOW()
		WHERE id = $4 AND status = 'COMPLETED' AND settled_at IS NULL
	`

	result, err := q.Exec(ctx, query, at.UTC(), exp, points, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark task settled: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// ClearSettlement is the rollback compare-and-set: the UPDATE only fires
// while settled_at IS NOT NULL.
func (r *TaskRepository) ClearSettlement(ctx context.Context, id string) (bool, error) {
	won, _, _, err := clearSettlement(ctx, r.conn, id)
	return won, err
}

// clearSettlement resets the settlement marker and returns the amounts
// that had been granted, for the compensating balance delta. The row is
// locked and read before clearing: RETURNING on an UPDATE would see the
// already-zeroed values.
func clearSettlement(ctx context.Context, q Querier, id string) (won bool, exp, points int, err error) {
	readQuery := `
		SELECT settled_exp, settled_points
		FROM task_records
		WHERE id = $1 AND settled_at IS NOT NULL
		FOR UPDATE
	`

	err = q.QueryRow(ctx, readQuery, id).Scan(&exp, &points)
	if err != nil {
		if IsNoRows(err) {
			return false, 0, 0, nil
		}
		return false, 0, 0, fmt.Errorf("failed to read settled amounts: %w", err)
	}

	clearQuery := `
		UPDATE task_records SET
			settled_at = NULL,
			settled_exp = 0,
			settled_points = 0,
			status = 'PENDING',
			completed_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND settled_at IS NOT NULL
	`

	result, err := q.Exec(ctx, clearQuery, id)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to clear settlement: %w", err)
	}

	return result.RowsAffected() == 1, exp, points, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregates
// ─────────────────────────────────────────────────────────────────────────────

// CountByStudentDay returns the number of a student's tasks for a day.
func (r *TaskRepository) CountByStudentDay(ctx context.Context, studentID, calendarDay string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM task_records WHERE student_id = $1 AND calendar_day = $2`,
		studentID, calendarDay,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM task_records WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func contentToMap(c task.Content) map[string]interface{} {
	return map[string]interface{}{
		"subject":      c.Subject,
		"unit":         c.Unit,
		"lesson":       c.Lesson,
		"course_title": c.CourseTitle,
		"description":  c.Description,
		"task_date":    c.TaskDate,
		"block":        c.Block,
	}
}

func contentFromMap(m map[string]interface{}) task.Content {
	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}
	return task.Content{
		Subject:     str("subject"),
		Unit:        str("unit"),
		Lesson:      str("lesson"),
		CourseTitle: str("course_title"),
		Description: str("description"),
		TaskDate:    str("task_date"),
		Block:       str("block"),
	}
}

func scanTaskRow(row pgx.Row) (*task.Record, error) {
	var (
		rec           task.Record
		teacherID     *string
		publicationID *string
		taskType      string
		status        string
		contentJSON   []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.SchoolID,
		&rec.StudentID,
		&teacherID,
		&publicationID,
		&rec.Title,
		&taskType,
		&status,
		&rec.CalendarDay,
		&contentJSON,
		&rec.RewardExp,
		&rec.RewardPoints,
		&rec.Attempts,
		&rec.CompletedAt,
		&rec.SettledAt,
		&rec.SettledExp,
		&rec.SettledPoints,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, task.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to scan task record: %w", err)
	}

	if teacherID != nil {
		rec.TeacherID = *teacherID
	}
	if publicationID != nil {
		rec.PublicationID = *publicationID
	}
	rec.Type = task.Type(taskType)
	rec.Status = task.Status(status)

	var contentMap map[string]interface{}
	if err := json.Unmarshal(contentJSON, &contentMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task content: %w", err)
	}
	rec.Content = contentFromMap(contentMap)

	return &rec, nil
}

func scanTaskRows(rows pgx.Rows) ([]*task.Record, error) {
	var records []*task.Record
	for rows.Next() {
		rec, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
