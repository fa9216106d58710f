package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
)

// settleAt completes and settles a task with a controlled settlement time.
func settleAt(t *testing.T, store *inmem.Store, rec *task.Record, at time.Time) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.Tasks().MarkCompleted(ctx, rec.ID, at))

	outcome, err := store.Settlement().Settle(ctx, reward.SettleParams{
		TaskID:    rec.ID,
		SchoolID:  rec.SchoolID,
		StudentID: rec.StudentID,
		Exp:       rec.RewardExp,
		Points:    rec.RewardPoints,
		At:        at,
	})
	require.NoError(t, err)
	require.True(t, outcome.Won)
}

func TestRollbackRewards_NetZeroRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewRollbackRewardsHandler(store.Tasks(), store.Settlement(), nil)

	s, err := student.NewStudent(student.NewStudentParams{
		ID: "stu-1", SchoolID: "school-1", Name: "小明", InitialExp: 50,
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(ctx, s))

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	first := addTask(t, store, s.ID, 10, 5)
	second := addTask(t, store, s.ID, 20, 0)
	settleAt(t, store, first, base)
	settleAt(t, store, second, base.Add(time.Hour))

	result, err := handler.Handle(ctx, RollbackRewardsCommand{
		StudentID: s.ID,
		From:      base.Add(-time.Minute),
		To:        base.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TasksReset)
	assert.Equal(t, 30, result.ExpReversed)
	assert.Equal(t, 5, result.PointsReversed)
	assert.Equal(t, 50, result.NewExp)
	assert.Zero(t, result.NewPoints)

	// Balance back to the start, ledger sums to zero.
	updated, err := store.Students().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Exp(50), updated.Exp)

	expSum, pointsSum, err := store.Events().SumByStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, expSum)
	assert.Zero(t, pointsSum)

	// Rolled-back tasks are PENDING again.
	rec, err := store.Tasks().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, rec.Status)
	assert.False(t, rec.IsSettled())
}

func TestRollbackRewards_HalfOpenWindow(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewRollbackRewardsHandler(store.Tasks(), store.Settlement(), nil)

	s, err := student.NewStudent(student.NewStudentParams{
		ID: "stu-1", SchoolID: "school-1", Name: "小明",
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(ctx, s))

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	inside := addTask(t, store, s.ID, 10, 0)
	atBound := addTask(t, store, s.ID, 20, 0)
	settleAt(t, store, inside, base)
	settleAt(t, store, atBound, base.Add(time.Hour))

	// A task settled exactly at To falls outside the window.
	result, err := handler.Handle(ctx, RollbackRewardsCommand{
		StudentID: s.ID,
		From:      base,
		To:        base.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TasksReset)
	assert.Equal(t, 10, result.ExpReversed)

	kept, err := store.Tasks().GetByID(ctx, atBound.ID)
	require.NoError(t, err)
	assert.True(t, kept.IsSettled())
}

func TestRollbackRewards_RerunIsNoop(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewRollbackRewardsHandler(store.Tasks(), store.Settlement(), nil)

	s, err := student.NewStudent(student.NewStudentParams{
		ID: "stu-1", SchoolID: "school-1", Name: "小明",
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(ctx, s))

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rec := addTask(t, store, s.ID, 10, 5)
	settleAt(t, store, rec, base)

	window := RollbackRewardsCommand{
		StudentID: s.ID,
		From:      base.Add(-time.Minute),
		To:        base.Add(time.Minute),
	}

	first, err := handler.Handle(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TasksReset)

	second, err := handler.Handle(ctx, window)
	require.NoError(t, err)
	assert.Zero(t, second.TasksReset)
	assert.Empty(t, second.Events)
}

func TestRollbackRewards_Validation(t *testing.T) {
	handler := NewRollbackRewardsHandler(inmem.NewStore().Tasks(), inmem.NewStore().Settlement(), nil)
	now := time.Now().UTC()

	_, err := handler.Handle(context.Background(), RollbackRewardsCommand{From: now, To: now.Add(time.Hour)})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), RollbackRewardsCommand{StudentID: "stu-1"})
	assert.Error(t, err)

	// An empty window is rejected.
	_, err = handler.Handle(context.Background(), RollbackRewardsCommand{StudentID: "stu-1", From: now, To: now})
	assert.Error(t, err)
}
