package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
)

func TestGetDailyRecords(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewGetDailyRecordsHandler(store.Students(), store.Tasks())

	s := seedStudent(t, store)

	titles := []string{"听写", "朗读", "口算"}
	var recorded []*task.Record
	for _, title := range titles {
		rec, err := task.NewRecord(task.NewRecordParams{
			ID:          uuid.New().String(),
			SchoolID:    "school-1",
			StudentID:   s.ID,
			Title:       title,
			Type:        task.TypeTask,
			CalendarDay: "2026-03-02",
			RewardExp:   5,
		})
		require.NoError(t, err)
		_, err = store.Tasks().Upsert(ctx, rec)
		require.NoError(t, err)
		recorded = append(recorded, rec)
	}

	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Tasks().MarkCompleted(ctx, recorded[0].ID, at))
	require.NoError(t, store.Tasks().MarkCompleted(ctx, recorded[1].ID, at))

	outcome, err := store.Settlement().Settle(ctx, reward.SettleParams{
		TaskID:    recorded[0].ID,
		SchoolID:  "school-1",
		StudentID: s.ID,
		Exp:       5,
		At:        at,
	})
	require.NoError(t, err)
	require.True(t, outcome.Won)

	result, err := handler.Handle(ctx, GetDailyRecordsQuery{StudentID: s.ID, CalendarDay: "2026-03-02"})
	require.NoError(t, err)

	assert.Len(t, result.Records, 3)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 1, result.Settled)

	// Другой день - пустой список, а не ошибка.
	empty, err := handler.Handle(ctx, GetDailyRecordsQuery{StudentID: s.ID, CalendarDay: "2026-03-03"})
	require.NoError(t, err)
	assert.Empty(t, empty.Records)
}

func TestGetDailyRecords_Validation(t *testing.T) {
	store := inmem.NewStore()
	handler := NewGetDailyRecordsHandler(store.Students(), store.Tasks())
	ctx := context.Background()

	_, err := handler.Handle(ctx, GetDailyRecordsQuery{CalendarDay: "2026-03-02"})
	assert.Error(t, err)

	_, err = handler.Handle(ctx, GetDailyRecordsQuery{StudentID: "stu-1", CalendarDay: "бб"})
	assert.Error(t, err)

	_, err = handler.Handle(ctx, GetDailyRecordsQuery{StudentID: "missing", CalendarDay: "2026-03-02"})
	assert.Error(t, err)
}
