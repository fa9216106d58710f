package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
)

func seedStudent(t *testing.T, store *inmem.Store) *student.Student {
	t.Helper()

	s, err := student.NewStudent(student.NewStudentParams{
		ID: uuid.New().String(), SchoolID: "school-1", TeacherID: "teacher-1", Name: "小明",
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(context.Background(), s))
	return s
}

func seedCompletedTask(t *testing.T, store *inmem.Store, studentID string, completedAt time.Time) *task.Record {
	t.Helper()
	ctx := context.Background()

	rec, err := task.NewRecord(task.NewRecordParams{
		ID:          uuid.New().String(),
		SchoolID:    "school-1",
		StudentID:   studentID,
		Title:       "听写 " + uuid.New().String()[:8],
		Type:        task.TypeTask,
		CalendarDay: "2026-03-02",
		RewardExp:   10,
	})
	require.NoError(t, err)
	_, err = store.Tasks().Upsert(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, store.Tasks().MarkCompleted(ctx, rec.ID, completedAt))
	return rec
}

func TestSettleReconcileJob_SettlesStuckTasks(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	s := seedStudent(t, store)

	old := time.Now().UTC().Add(-time.Hour)
	stuck := seedCompletedTask(t, store, s.ID, old)
	fresh := seedCompletedTask(t, store, s.ID, time.Now().UTC())

	job := NewSettleReconcileJob(store.Tasks(), store.Settlement(), nil, nil, SettleReconcileConfig{
		GracePeriod: 10 * time.Minute,
		BatchSize:   50,
	})

	require.NoError(t, job.Run(ctx))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Candidates)
	assert.Equal(t, 1, stats.SettledCount)
	assert.Equal(t, 10, stats.ExpAwarded)
	assert.Zero(t, stats.LostRaces)
	assert.Zero(t, stats.FailedCount)

	settled, err := store.Tasks().GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.True(t, settled.IsSettled())

	// The freshly completed task stays inside the grace period.
	waiting, err := store.Tasks().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, waiting.IsSettled())

	updated, err := store.Students().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Exp(10), updated.Exp)
}

func TestSettleReconcileJob_EmptyRun(t *testing.T) {
	store := inmem.NewStore()

	job := NewSettleReconcileJob(store.Tasks(), store.Settlement(), nil, nil, DefaultSettleReconcileConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Zero(t, stats.Candidates)
	assert.Zero(t, stats.SettledCount)
}

// staleListRepo serves a listing captured before another settler won the
// race, which is exactly what a concurrent on-demand settlement produces.
type staleListRepo struct {
	task.Repository
	stale []*task.Record
}

func (r *staleListRepo) ListCompletedUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]*task.Record, error) {
	return r.stale, nil
}

func TestSettleReconcileJob_CountsLostRaces(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	s := seedStudent(t, store)

	old := time.Now().UTC().Add(-time.Hour)
	raced := seedCompletedTask(t, store, s.ID, old)
	stuck := seedCompletedTask(t, store, s.ID, old)

	// Both looked unsettled at listing time.
	listing := []*task.Record{raced.Clone(), stuck.Clone()}

	// Someone settles the first task before the job gets to it.
	outcome, err := store.Settlement().Settle(ctx, reward.SettleParams{
		TaskID: raced.ID, SchoolID: "school-1", StudentID: s.ID,
		Exp: 10, At: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, outcome.Won)

	job := NewSettleReconcileJob(
		&staleListRepo{Repository: store.Tasks(), stale: listing},
		store.Settlement(),
		nil,
		nil,
		DefaultSettleReconcileConfig(),
	)
	require.NoError(t, job.Run(ctx))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 1, stats.SettledCount)
	assert.Equal(t, 1, stats.LostRaces)

	// No double award for the raced task.
	expSum, _, err := store.Events().SumByStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, expSum)
}
