package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
)

func TestCompleteTask_CompletesAndSettles(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()

	settle := NewSettleTaskHandler(store.Tasks(), store.Settlement(), nil)
	handler := NewCompleteTaskHandler(store.Tasks(), settle, nil)

	s, err := student.NewStudent(student.NewStudentParams{
		ID: "stu-1", SchoolID: "school-1", Name: "小明",
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(ctx, s))

	rec := addTask(t, store, s.ID, 10, 5)

	result, err := handler.Handle(ctx, CompleteTaskCommand{TaskID: rec.ID})
	require.NoError(t, err)

	assert.True(t, result.Completed)
	require.NotNil(t, result.Settlement)
	assert.True(t, result.Settlement.Awarded)
	assert.Equal(t, 10, result.Settlement.NewExp)

	stored, err := store.Tasks().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
	assert.True(t, stored.IsSettled())
}

func TestCompleteTask_IdempotentNoDoubleAward(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()

	settle := NewSettleTaskHandler(store.Tasks(), store.Settlement(), nil)
	handler := NewCompleteTaskHandler(store.Tasks(), settle, nil)

	s, err := student.NewStudent(student.NewStudentParams{
		ID: "stu-1", SchoolID: "school-1", Name: "小明",
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(ctx, s))

	rec := addTask(t, store, s.ID, 10, 5)

	_, err = handler.Handle(ctx, CompleteTaskCommand{TaskID: rec.ID})
	require.NoError(t, err)

	// Re-completion is a no-op: no transition, no second award.
	second, err := handler.Handle(ctx, CompleteTaskCommand{TaskID: rec.ID})
	require.NoError(t, err)
	assert.False(t, second.Completed)
	require.NotNil(t, second.Settlement)
	assert.False(t, second.Settlement.Awarded)

	updated, err := store.Students().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Exp(10), updated.Exp)
	assert.Equal(t, student.Points(5), updated.Points)
}
