package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

func seedSettlement(t *testing.T, store *Store) (*student.Student, *task.Record) {
	t.Helper()
	ctx := context.Background()

	s, err := student.NewStudent(student.NewStudentParams{
		ID: "stu-1", SchoolID: "school-1", TeacherID: "teacher-1",
		Name: "小明", InitialExp: 95,
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(ctx, s))

	rec, err := task.NewRecord(task.NewRecordParams{
		ID: "task-1", SchoolID: "school-1", StudentID: s.ID,
		Title: "听写", Type: task.TypeTask, CalendarDay: "2026-03-02",
		RewardExp: 10, RewardPoints: 5,
	})
	require.NoError(t, err)
	_, err = store.Tasks().Upsert(ctx, rec)
	require.NoError(t, err)

	return s, rec
}

func TestSettlementStore_SettleWinsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, rec := seedSettlement(t, store)

	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Tasks().MarkCompleted(ctx, rec.ID, at))

	params := reward.SettleParams{
		TaskID: rec.ID, SchoolID: "school-1", StudentID: s.ID,
		Exp: 10, Points: 5, At: at,
	}

	first, err := store.Settlement().Settle(ctx, params)
	require.NoError(t, err)
	assert.True(t, first.Won)
	assert.Equal(t, 105, first.NewExp)
	assert.Equal(t, 5, first.NewPoints)
	assert.Equal(t, 1, first.OldLevel)
	assert.Equal(t, 2, first.NewLevel)

	// The losing attempt sees Won == false and writes nothing.
	second, err := store.Settlement().Settle(ctx, params)
	require.NoError(t, err)
	assert.False(t, second.Won)

	events, err := store.Events().ListByTask(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	updated, err := store.Students().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Exp(105), updated.Exp)
}

func TestSettlementStore_SettleRequiresCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, rec := seedSettlement(t, store)

	outcome, err := store.Settlement().Settle(ctx, reward.SettleParams{
		TaskID: rec.ID, SchoolID: "school-1", StudentID: s.ID,
		Exp: 10, At: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, outcome.Won)

	_, err = store.Settlement().Settle(ctx, reward.SettleParams{
		TaskID: "missing", StudentID: s.ID, At: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestSettlementStore_RollbackTask(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, rec := seedSettlement(t, store)

	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Tasks().MarkCompleted(ctx, rec.ID, at))

	settled, err := store.Settlement().Settle(ctx, reward.SettleParams{
		TaskID: rec.ID, SchoolID: "school-1", StudentID: s.ID,
		Exp: 10, Points: 5, At: at,
	})
	require.NoError(t, err)
	require.True(t, settled.Won)

	outcome, err := store.Settlement().RollbackTask(ctx, rec.ID, at.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, outcome.Won)
	assert.Equal(t, 10, outcome.ExpReversed)
	assert.Equal(t, 5, outcome.PointsReversed)
	assert.Equal(t, 95, outcome.NewExp)
	assert.Zero(t, outcome.NewPoints)

	// A repeated rollback loses the race and writes nothing.
	again, err := store.Settlement().RollbackTask(ctx, rec.ID, at.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, again.Won)

	// Award plus rollback nets the ledger to zero.
	expSum, pointsSum, err := store.Events().SumByStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, expSum)
	assert.Zero(t, pointsSum)

	stored, err := store.Tasks().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, stored.Status)
	assert.False(t, stored.IsSettled())
}

func TestTaskRepository_UpsertRefreshesExisting(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, rec := seedSettlement(t, store)

	// Same dedup key, different ID and content.
	refreshed, err := task.NewRecord(task.NewRecordParams{
		ID: "task-2", SchoolID: "school-1", StudentID: rec.StudentID,
		Title: rec.Title, Type: rec.Type, CalendarDay: rec.CalendarDay,
		Content:   task.Content{Description: "更新后的内容"},
		RewardExp: 20,
	})
	require.NoError(t, err)

	created, err := store.Tasks().Upsert(ctx, refreshed)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := store.Tasks().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "更新后的内容", stored.Content.Description)
	assert.Equal(t, 20, stored.RewardExp)

	_, err = store.Tasks().GetByID(ctx, "task-2")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestTaskRepository_ListCompletedUnsettled(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, first := seedSettlement(t, store)

	second, err := task.NewRecord(task.NewRecordParams{
		ID: "task-2", SchoolID: "school-1", StudentID: s.ID,
		Title: "朗读", Type: task.TypeTask, CalendarDay: "2026-03-02",
		RewardExp: 5,
	})
	require.NoError(t, err)
	_, err = store.Tasks().Upsert(ctx, second)
	require.NoError(t, err)

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Tasks().MarkCompleted(ctx, first.ID, old))
	require.NoError(t, store.Tasks().MarkCompleted(ctx, second.ID, time.Now().UTC()))

	// Fresh completions stay below the threshold.
	stuck, err := store.Tasks().ListCompletedUnsettled(ctx, time.Now().UTC().Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, first.ID, stuck[0].ID)
}
