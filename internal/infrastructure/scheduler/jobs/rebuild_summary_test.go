package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/projections"
	"github.com/arkok-lms/curriculum-engine/pkg/timeutil"
)

func TestRebuildSummaryJob_RebuildsFromLedger(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	view := projections.NewDailySummaryView()

	s := seedStudent(t, store)

	occurred := time.Now().UTC().Add(-2 * time.Hour)
	day := timeutil.DayOf(occurred).String()

	for _, delta := range []int{10, 20} {
		event, err := reward.NewEvent(reward.NewEventParams{
			ID:         uuid.New().String(),
			SchoolID:   "school-1",
			StudentID:  s.ID,
			TaskID:     uuid.New().String(),
			Kind:       reward.KindAward,
			ExpDelta:   delta,
			OccurredAt: occurred,
		})
		require.NoError(t, err)
		require.NoError(t, store.Events().Append(ctx, event))
	}

	// Drift the projection away from the ledger.
	view.RecordSettlement(s.ID, day, 999, 0, false)

	job := NewRebuildSummaryJob(store.Students(), store.Events(), view, nil, RebuildSummaryConfig{
		SchoolIDs: []string{"school-1"},
		Lookback:  24 * time.Hour,
		PageSize:  10,
	})
	require.NoError(t, job.Run(ctx))

	entry, err := view.GetByStudentDay(ctx, s.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.TasksSettled)
	assert.Equal(t, 30, entry.NetExp)
}

func TestRebuildSummaryJob_LookbackBoundsReplay(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	view := projections.NewDailySummaryView()

	s := seedStudent(t, store)

	ancient, err := reward.NewEvent(reward.NewEventParams{
		ID:         uuid.New().String(),
		SchoolID:   "school-1",
		StudentID:  s.ID,
		TaskID:     uuid.New().String(),
		Kind:       reward.KindAward,
		ExpDelta:   50,
		OccurredAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, store.Events().Append(ctx, ancient))

	job := NewRebuildSummaryJob(store.Students(), store.Events(), view, nil, RebuildSummaryConfig{
		SchoolIDs: []string{"school-1"},
		Lookback:  24 * time.Hour,
		PageSize:  10,
	})
	require.NoError(t, job.Run(ctx))

	day := timeutil.DayOf(ancient.OccurredAt).String()
	_, err = view.GetByStudentDay(ctx, s.ID, day)
	assert.Error(t, err)
}
