package inmem

import (
	"context"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"

	"github.com/google/uuid"
)

// SettlementStore implements reward.SettlementStore over the shared
// Store. The single store mutex plays the role of the database
// transaction: the settlement compare-and-set, the ledger append and
// the balance delta happen under one critical section.
type SettlementStore struct {
	store *Store
}

// Settle awards a completed task's reward exactly once.
func (s *SettlementStore) Settle(ctx context.Context, params reward.SettleParams) (*reward.SettleOutcome, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	won, err := settleTask(s.store, params.TaskID, params.At, params.Exp, params.Points)
	if err != nil {
		return nil, err
	}
	if !won {
		return &reward.SettleOutcome{}, nil
	}

	st, ok := s.store.students[params.StudentID]
	if !ok || s.store.deleted[params.StudentID] {
		return nil, student.ErrStudentNotFound
	}
	oldLevel := int(st.Level())

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
		return nil, err
	}
	appendEvent(s.store, event)

	updated, err := applyDelta(s.store, params.StudentID, params.Exp, params.Points)
	if err != nil {
		return nil, err
	}

	return &reward.SettleOutcome{
		Won:       true,
		NewExp:    int(updated.Exp),
		NewPoints: int(updated.Points),
		OldLevel:  oldLevel,
		NewLevel:  int(updated.Level()),
	}, nil
}

// RollbackTask reverses a settled task.
func (s *SettlementStore) RollbackTask(ctx context.Context, taskID string, at time.Time) (*reward.RollbackOutcome, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	won, schoolID, studentID, exp, points, err := clearTaskSettlement(s.store, taskID)
	if err != nil {
		return nil, err
	}
	if !won {
		return &reward.RollbackOutcome{}, nil
	}

	event, err := reward.NewEvent(reward.NewEventParams{
		ID:          uuid.New().String(),
		SchoolID:    schoolID,
		StudentID:   studentID,
		TaskID:      taskID,
		Kind:        reward.KindRollback,
		ExpDelta:    -exp,
		PointsDelta: -points,
		OccurredAt:  at,
	})
	if err != nil {
		return nil, err
	}
	appendEvent(s.store, event)

	updated, err := applyDelta(s.store, studentID, -exp, -points)
	if err != nil {
		return nil, err
	}

	return &reward.RollbackOutcome{
		Won:            true,
		ExpReversed:    exp,
		PointsReversed: points,
		NewExp:         int(updated.Exp),
		NewPoints:      int(updated.Points),
	}, nil
}
