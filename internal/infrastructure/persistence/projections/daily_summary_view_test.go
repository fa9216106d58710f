package projections

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
)

func TestDailySummaryView_RecordSettlement(t *testing.T) {
	ctx := context.Background()
	view := NewDailySummaryView()

	view.RecordSettlement("stu-1", "2026-03-02", 10, 5, false)
	view.RecordSettlement("stu-1", "2026-03-02", 20, 0, true)

	entry, err := view.GetByStudentDay(ctx, "stu-1", "2026-03-02")
	require.NoError(t, err)

	assert.Equal(t, 2, entry.TasksSettled)
	assert.Equal(t, 30, entry.NetExp)
	assert.Equal(t, 5, entry.NetPoints)
	assert.Equal(t, 1, entry.LevelUps)
	assert.Zero(t, entry.TasksRolledBack)
}

func TestDailySummaryView_RecordRollback(t *testing.T) {
	ctx := context.Background()
	view := NewDailySummaryView()

	view.RecordSettlement("stu-1", "2026-03-02", 10, 5, false)
	view.RecordSettlement("stu-1", "2026-03-02", 20, 0, false)
	view.RecordRollback("stu-1", "2026-03-02", 2, 30, 5)

	entry, err := view.GetByStudentDay(ctx, "stu-1", "2026-03-02")
	require.NoError(t, err)

	// A settled-then-rolled-back day nets to zero, task for task.
	assert.Equal(t, 2, entry.TasksSettled)
	assert.Equal(t, 2, entry.TasksRolledBack)
	assert.Zero(t, entry.NetExp)
	assert.Zero(t, entry.NetPoints)
}

func TestDailySummaryView_GetDay(t *testing.T) {
	ctx := context.Background()
	view := NewDailySummaryView()

	view.RecordSettlement("stu-1", "2026-03-02", 10, 0, false)
	view.RecordSettlement("stu-2", "2026-03-02", 30, 0, false)
	view.RecordSettlement("stu-3", "2026-03-02", 20, 0, false)
	view.RecordSettlement("stu-4", "2026-03-03", 99, 0, false)

	entries, err := view.GetDay(ctx, "2026-03-02", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Sorted by net exp descending.
	assert.Equal(t, "stu-2", entries[0].StudentID)
	assert.Equal(t, "stu-3", entries[1].StudentID)
	assert.Equal(t, "stu-1", entries[2].StudentID)

	limited, err := view.GetDay(ctx, "2026-03-02", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	missing, err := view.GetDay(ctx, "2026-01-01", 0)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = view.GetByStudentDay(ctx, "stu-9", "2026-03-02")
	assert.Error(t, err)
}

func TestDailySummaryView_RebuildFromLedger(t *testing.T) {
	ctx := context.Background()
	view := NewDailySummaryView()

	// Stale state that the rebuild must discard.
	view.RecordSettlement("stu-9", "2026-03-01", 999, 0, false)

	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

	events := []*reward.Event{
		{StudentID: "stu-1", TaskID: "t1", Kind: reward.KindAward, ExpDelta: 10, PointsDelta: 5, OccurredAt: day1},
		{StudentID: "stu-1", TaskID: "t2", Kind: reward.KindAward, ExpDelta: 20, OccurredAt: day1},
		{StudentID: "stu-1", TaskID: "t1", Kind: reward.KindRollback, ExpDelta: -10, PointsDelta: -5, OccurredAt: day2},
	}

	versionBefore := view.GetVersion()
	view.RebuildFromLedger(events, func(at time.Time) string {
		return at.Format("2006-01-02")
	})
	assert.Greater(t, view.GetVersion(), versionBefore)

	first, err := view.GetByStudentDay(ctx, "stu-1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 2, first.TasksSettled)
	assert.Equal(t, 30, first.NetExp)
	assert.Equal(t, 5, first.NetPoints)

	second, err := view.GetByStudentDay(ctx, "stu-1", "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, 1, second.TasksRolledBack)
	assert.Equal(t, -10, second.NetExp)

	_, err = view.GetByStudentDay(ctx, "stu-9", "2026-03-01")
	assert.Error(t, err)
}
