package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
)

func TestOverrideProgress_WritesPatches(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewOverrideProgressHandler(store.Progress(), store.Students(), nil, nil)

	s := addStudent(t, store, "小明", "", "teacher-1")

	result, err := handler.Handle(ctx, OverrideProgressCommand{
		StudentID: s.ID,
		Subjects: map[curriculum.Subject]curriculum.Position{
			curriculum.SubjectChinese: {Unit: "1", Lesson: "2"},
			curriculum.SubjectMath:    {Unit: "3", Lesson: "1", Title: "乘法"},
		},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]curriculum.Subject{curriculum.SubjectChinese, curriculum.SubjectMath},
		result.Overridden,
	)
	assert.False(t, result.AppliedAt.IsZero())

	overrides, err := store.Progress().GetOverrides(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	// Название дозаполняется из стандартной библиотеки.
	chinese := overrides[curriculum.SubjectChinese]
	require.NotNil(t, chinese)
	assert.Equal(t, "金木水火土", chinese.Position.Title)
	assert.Equal(t, result.AppliedAt, chinese.UpdatedAt)

	math := overrides[curriculum.SubjectMath]
	require.NotNil(t, math)
	assert.Equal(t, "乘法", math.Position.Title)
}

func TestOverrideProgress_StudentMustExist(t *testing.T) {
	store := inmem.NewStore()
	handler := NewOverrideProgressHandler(store.Progress(), store.Students(), nil, nil)

	_, err := handler.Handle(context.Background(), OverrideProgressCommand{
		StudentID: "missing",
		Subjects: map[curriculum.Subject]curriculum.Position{
			curriculum.SubjectChinese: {Unit: "1"},
		},
	})
	assert.ErrorIs(t, err, student.ErrStudentNotFound)
}

func TestOverrideProgress_Validation(t *testing.T) {
	store := inmem.NewStore()
	handler := NewOverrideProgressHandler(store.Progress(), store.Students(), nil, nil)
	ctx := context.Background()

	_, err := handler.Handle(ctx, OverrideProgressCommand{StudentID: "stu-1"})
	assert.Error(t, err)

	_, err = handler.Handle(ctx, OverrideProgressCommand{
		StudentID: "stu-1",
		Subjects: map[curriculum.Subject]curriculum.Position{
			curriculum.Subject("physics"): {Unit: "1"},
		},
	})
	assert.ErrorIs(t, err, curriculum.ErrUnknownSubject)

	_, err = handler.Handle(ctx, OverrideProgressCommand{
		StudentID: "stu-1",
		Subjects: map[curriculum.Subject]curriculum.Position{
			curriculum.SubjectChinese: {Title: "没有单元"},
		},
	})
	assert.ErrorIs(t, err, curriculum.ErrEmptyPosition)
}
