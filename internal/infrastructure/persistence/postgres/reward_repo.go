package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD POLICY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PolicyRepository implements reward.PolicyRepository for PostgreSQL.
type PolicyRepository struct {
	conn *Connection
}

// NewPolicyRepository creates a new PolicyRepository.
func NewPolicyRepository(conn *Connection) *PolicyRepository {
	return &PolicyRepository{conn: conn}
}

// Upsert creates or replaces a policy keyed by
// (school_id, module, category, action).
func (r *PolicyRepository) Upsert(ctx context.Context, entry *reward.PolicyEntry) error {
	query := `
		INSERT INTO reward_policies (
			id, school_id, module, category, action,
			exp_reward, points_reward, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (school_id, module, category, action) DO UPDATE SET
			exp_reward = EXCLUDED.exp_reward,
			points_reward = EXCLUDED.points_reward,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`

	_, err := r.conn.Exec(ctx, query,
		entry.ID,
		entry.SchoolID,
		string(entry.Module),
		entry.Category,
		entry.Action,
		entry.ExpReward,
		entry.PointsReward,
		entry.IsActive,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reward policy: %w", err)
	}
	return nil
}

// Resolve finds the active policy for a settlement. The exact
// (module, category, action) key is tried first, then the category
// wildcard (module, '', action).
func (r *PolicyRepository) Resolve(ctx context.Context, schoolID string, module reward.Module, category, action string) (*reward.PolicyEntry, error) {
	query := `
		SELECT id, school_id, module, category, action,
		       exp_reward, points_reward, is_active, created_at, updated_at
		FROM reward_policies
		WHERE school_id = $1 AND module = $2 AND category = $3 AND action = $4
		  AND is_active
	`

	entry, err := r.scanPolicy(ctx, query, schoolID, string(module), category, action)
	if err == nil {
		return entry, nil
	}
	if err != reward.ErrPolicyNotFound {
		return nil, err
	}
	if category == "" {
		return nil, reward.ErrPolicyNotFound
	}

	return r.scanPolicy(ctx, query, schoolID, string(module), "", action)
}

// ListBySchool returns all policies for a school, active and inactive.
func (r *PolicyRepository) ListBySchool(ctx context.Context, schoolID string) ([]*reward.PolicyEntry, error) {
	query := `
		SELECT id, school_id, module, category, action,
		       exp_reward, points_reward, is_active, created_at, updated_at
		FROM reward_policies
		WHERE school_id = $1
		ORDER BY module, category, action
	`

	rows, err := r.conn.Query(ctx, query, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward policies: %w", err)
	}
	defer rows.Close()

	var entries []*reward.PolicyEntry
	for rows.Next() {
		var (
			entry  reward.PolicyEntry
			module string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.SchoolID,
			&module,
			&entry.Category,
			&entry.Action,
			&entry.ExpReward,
			&entry.PointsReward,
			&entry.IsActive,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reward policy: %w", err)
		}
		entry.Module = reward.Module(module)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Seed installs the default pass-through policies for a school. Existing
// rows with the same key are left alone so operator tuning survives
// restarts.
func (r *PolicyRepository) Seed(ctx context.Context, schoolID string) error {
	query := `
		INSERT INTO reward_policies (
			id, school_id, module, category, action,
			exp_reward, points_reward, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (school_id, module, category, action) DO NOTHING
	`

	for _, entry := range reward.DefaultPolicies(schoolID) {
		_, err := r.conn.Exec(ctx, query,
			entry.ID,
			entry.SchoolID,
			string(entry.Module),
			entry.Category,
			entry.Action,
			entry.ExpReward,
			entry.PointsReward,
			entry.IsActive,
			entry.CreatedAt,
			entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to seed reward policy %s: %w", entry.Action, err)
		}
	}
	return nil
}

func (r *PolicyRepository) scanPolicy(ctx context.Context, query string, args ...interface{}) (*reward.PolicyEntry, error) {
	var (
		entry  reward.PolicyEntry
		module string
	)

	err := r.conn.QueryRow(ctx, query, args...).Scan(
		&entry.ID,
		&entry.SchoolID,
		&module,
		&entry.Category,
		&entry.Action,
		&entry.ExpReward,
		&entry.PointsReward,
		&entry.IsActive,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, reward.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to scan reward policy: %w", err)
	}

	entry.Module = reward.Module(module)
	return &entry, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REWARD EVENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EventRepository implements reward.EventRepository. The table is an
// append-only ledger: no updates, no deletes.
type EventRepository struct {
	conn *Connection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(conn *Connection) *EventRepository {
	return &EventRepository{conn: conn}
}

// Append writes a ledger entry.
func (r *EventRepository) Append(ctx context.Context, event *reward.Event) error {
	return appendRewardEvent(ctx, r.conn, event)
}

// appendRewardEvent runs against any Querier so the settlement store can
// append inside its transaction.
func appendRewardEvent(ctx context.Context, q Querier, event *reward.Event) error {
	query := `
		INSERT INTO reward_events (
			id, school_id, student_id, task_id, kind,
			exp_delta, points_delta, occurred_at
		) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		event.ID,
		event.SchoolID,
		event.StudentID,
		event.TaskID,
		string(event.Kind),
		event.ExpDelta,
		event.PointsDelta,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append reward event: %w", err)
	}
	return nil
}

// ListByStudent returns a student's ledger entries in [from, to),
// oldest first.
func (r *EventRepository) ListByStudent(ctx context.Context, studentID string, from, to time.Time) ([]*reward.Event, error) {
	query := `
		SELECT id, school_id, student_id, COALESCE(task_id::text, ''), kind,
		       exp_delta, points_delta, occurred_at
		FROM reward_events
		WHERE student_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at
	`

	rows, err := r.conn.Query(ctx, query, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward events: %w", err)
	}
	defer rows.Close()

	return scanRewardEvents(rows)
}

// ListByTask returns the ledger entries tied to one task, oldest first.
// A settled-then-rolled-back task shows an award/rollback pair.
func (r *EventRepository) ListByTask(ctx context.Context, taskID string) ([]*reward.Event, error) {
	query := `
		SELECT id, school_id, student_id, COALESCE(task_id::text, ''), kind,
		       exp_delta, points_delta, occurred_at
		FROM reward_events
		WHERE task_id = $1
		ORDER BY occurred_at
	`

	rows, err := r.conn.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward events by task: %w", err)
	}
	defer rows.Close()

	return scanRewardEvents(rows)
}

// SumByStudent returns the net signed totals over a student's whole
// ledger. A clean settle/rollback history nets to zero.
func (r *EventRepository) SumByStudent(ctx context.Context, studentID string) (int, int, error) {
	var expSum, pointsSum int
	err := r.conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(exp_delta), 0), COALESCE(SUM(points_delta), 0)
		 FROM reward_events WHERE student_id = $1`,
		studentID,
	).Scan(&expSum, &pointsSum)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum reward events: %w", err)
	}
	return expSum, pointsSum, nil
}

func scanRewardEvents(rows pgx.Rows) ([]*reward.Event, error) {
	var events []*reward.Event
	for rows.Next() {
		var (
			event reward.Event
			kind  string
		)
		if err := rows.Scan(
			&event.ID,
			&event.SchoolID,
			&event.StudentID,
			&event.TaskID,
			&kind,
			&event.ExpDelta,
			&event.PointsDelta,
			&event.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reward event: %w", err)
		}
		event.Kind = reward.Kind(kind)
		events = append(events, &event)
	}
	return events, rows.Err()
}
