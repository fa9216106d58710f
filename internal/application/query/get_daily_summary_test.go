package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/projections"
)

func TestGetDailySummary(t *testing.T) {
	ctx := context.Background()
	view := projections.NewDailySummaryView()
	handler := NewGetDailySummaryHandler(view)

	view.RecordSettlement("stu-1", "2026-03-02", 10, 5, false)
	view.RecordSettlement("stu-1", "2026-03-02", 20, 0, true)
	view.RecordSettlement("stu-2", "2026-03-02", 15, 0, false)

	result, err := handler.Handle(ctx, GetDailySummaryQuery{CalendarDay: "2026-03-02"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	// Записи дня идут по убыванию чистого опыта.
	assert.Equal(t, "stu-1", result.Entries[0].StudentID)
	assert.Equal(t, 30, result.Entries[0].NetExp)
	assert.Equal(t, 1, result.Entries[0].LevelUps)
	assert.Equal(t, "stu-2", result.Entries[1].StudentID)

	single, err := handler.Handle(ctx, GetDailySummaryQuery{CalendarDay: "2026-03-02", StudentID: "stu-2"})
	require.NoError(t, err)
	require.Len(t, single.Entries, 1)
	assert.Equal(t, 15, single.Entries[0].NetExp)

	// День без расчётов - пустая сводка, не ошибка.
	empty, err := handler.Handle(ctx, GetDailySummaryQuery{CalendarDay: "2026-03-03", StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
}

func TestGetDailySummary_Validation(t *testing.T) {
	handler := NewGetDailySummaryHandler(projections.NewDailySummaryView())

	_, err := handler.Handle(context.Background(), GetDailySummaryQuery{CalendarDay: "03-02"})
	assert.Error(t, err)
}
