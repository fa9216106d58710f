package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SETTLEMENT STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SettlementStore implements reward.SettlementStore. Each operation runs
// in a single transaction: the settled_at compare-and-set, the ledger
// append and the balance delta commit or roll back together, so a crash
// between steps can never leave a task settled without its reward or
// the reverse.
type SettlementStore struct {
	conn *Connection
}

// NewSettlementStore creates a new SettlementStore.
func NewSettlementStore(conn *Connection) *SettlementStore {
	return &SettlementStore{conn: conn}
}

// Settle awards a completed task's reward exactly once. Losing the
// settled_at race returns Won == false and leaves the balance and the
// ledger untouched.
func (s *SettlementStore) Settle(ctx context.Context, params reward.SettleParams) (*reward.SettleOutcome, error) {
	outcome := &reward.SettleOutcome{}

	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		won, err := markSettled(ctx, tx, params.TaskID, params.At, params.Exp, params.Points)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		outcome.Won = true

		var oldExp int
		err = tx.QueryRow(ctx,
			`SELECT exp FROM students WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
			params.StudentID,
		).Scan(&oldExp)
		if err != nil {
			if IsNoRows(err) {
				return student.ErrStudentNotFound
			}
			return fmt.Errorf("failed to read student balance: %w", err)
		}
		outcome.OldLevel = int(student.CalculateLevel(student.Exp(oldExp)))

		event, err := reward.NewEvent(reward.NewEventParams{
			ID:          uuid.New().String(),
			SchoolID:    params.SchoolID,
			StudentID:   params.StudentID,
			TaskID:      params.TaskID,
			Kind:        reward.KindAward,
			ExpDelta:    params.Exp,
			PointsDelta: params.Points,
			OccurredAt:  params.At,
		})
		if err != nil {
			return err
		}
		if err := appendRewardEvent(ctx, tx, event); err != nil {
			return err
		}

		updated, err := applyRewardDelta(ctx, tx, params.StudentID, params.Exp, params.Points)
		if err != nil {
			return err
		}
		outcome.NewExp = int(updated.Exp)
		outcome.NewPoints = int(updated.Points)
		outcome.NewLevel = int(updated.Level())

		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// RollbackTask reverses a settled task: the settlement marker is cleared,
// a compensating ledger entry is appended and the granted amounts are
// subtracted from the balance. An unsettled task returns Won == false.
func (s *SettlementStore) RollbackTask(ctx context.Context, taskID string, at time.Time) (*reward.RollbackOutcome, error) {
	outcome := &reward.RollbackOutcome{}

	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var (
			schoolID  string
			studentID string
		)
		err := tx.QueryRow(ctx,
			`SELECT school_id, student_id, settled_exp, settled_points
			 FROM task_records
			 WHERE id = $1 AND settled_at IS NOT NULL
			 FOR UPDATE`,
			taskID,
		).Scan(&schoolID, &studentID, &outcome.ExpReversed, &outcome.PointsReversed)
		if err != nil {
			if IsNoRows(err) {
				return s.unsettledOrMissing(ctx, tx, taskID)
			}
			return fmt.Errorf("failed to read settled task: %w", err)
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
		if _, err := tx.Exec(ctx, clearQuery, taskID); err != nil {
			return fmt.Errorf("failed to clear settlement: %w", err)
		}
		outcome.Won = true

		event, err := reward.NewEvent(reward.NewEventParams{
			ID:          uuid.New().String(),
			SchoolID:    schoolID,
			StudentID:   studentID,
			TaskID:      taskID,
			Kind:        reward.KindRollback,
			ExpDelta:    -outcome.ExpReversed,
			PointsDelta: -outcome.PointsReversed,
			OccurredAt:  at,
		})
		if err != nil {
			return err
		}
		if err := appendRewardEvent(ctx, tx, event); err != nil {
			return err
		}

		updated, err := applyRewardDelta(ctx, tx, studentID, -outcome.ExpReversed, -outcome.PointsReversed)
		if err != nil {
			return err
		}
		outcome.NewExp = int(updated.Exp)
		outcome.NewPoints = int(updated.Points)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// unsettledOrMissing distinguishes a task that was never settled from
// one that does not exist at all.
func (s *SettlementStore) unsettledOrMissing(ctx context.Context, tx pgx.Tx, taskID string) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM task_records WHERE id = $1)`,
		taskID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check task existence: %w", err)
	}
	if !exists {
		return task.ErrTaskNotFound
	}
	return nil
}
