package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
)

func seedStudent(t *testing.T, store *inmem.Store) *student.Student {
	t.Helper()

	s, err := student.NewStudent(student.NewStudentParams{
		ID:        uuid.New().String(),
		SchoolID:  "school-1",
		TeacherID: "teacher-1",
		Name:      "小明",
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(context.Background(), s))
	return s
}

func TestResolveProgress_DefaultsWhenNoSources(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewResolveProgressHandler(store.Students(), store.Progress(), nil, nil, 0)

	s := seedStudent(t, store)

	progress, err := handler.Handle(ctx, ResolveProgressQuery{StudentID: s.ID})
	require.NoError(t, err)

	// Каждый известный предмет присутствует всегда.
	require.Len(t, progress.Subjects, len(curriculum.KnownSubjects))
	assert.Equal(t, curriculum.SourceDefault, progress.Source)

	chinese := progress.Subjects[curriculum.SubjectChinese]
	assert.Equal(t, curriculum.SourceDefault, chinese.Source)
	assert.Equal(t, curriculum.DefaultPosition(curriculum.SubjectChinese), chinese.Position)

	// У английской программы нет урока даже в позиции по умолчанию.
	english := progress.Subjects[curriculum.SubjectEnglish]
	assert.Empty(t, english.Position.Lesson)
}

func TestResolveProgress_MergesPerSubject(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewResolveProgressHandler(store.Students(), store.Progress(), nil, nil, 0)

	s := seedStudent(t, store)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Progress().UpsertSnapshot(ctx, &curriculum.Snapshot{
		StudentID: s.ID,
		Subject:   curriculum.SubjectChinese,
		Position:  curriculum.Position{Unit: "4", Lesson: "2", Title: "из плана"},
		UpdatedAt: base,
	}))
	require.NoError(t, store.Progress().UpsertOverride(ctx, &curriculum.Override{
		StudentID: s.ID,
		Subject:   curriculum.SubjectMath,
		Position:  curriculum.Position{Unit: "3", Lesson: "1", Title: "правка"},
		UpdatedAt: base,
	}))

	progress, err := handler.Handle(ctx, ResolveProgressQuery{StudentID: s.ID})
	require.NoError(t, err)

	assert.Equal(t, curriculum.SourceLessonPlan, progress.Subjects[curriculum.SubjectChinese].Source)
	assert.Equal(t, curriculum.SourceOverride, progress.Subjects[curriculum.SubjectMath].Source)
	assert.Equal(t, curriculum.SourceDefault, progress.Subjects[curriculum.SubjectEnglish].Source)

	// Итоговый источник - самый специфичный среди предметов.
	assert.Equal(t, curriculum.SourceOverride, progress.Source)
}

func TestResolveProgress_NewerSnapshotBeatsOverride(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := NewResolveProgressHandler(store.Students(), store.Progress(), nil, nil, 0)

	s := seedStudent(t, store)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Progress().UpsertOverride(ctx, &curriculum.Override{
		StudentID: s.ID,
		Subject:   curriculum.SubjectChinese,
		Position:  curriculum.Position{Unit: "2", Lesson: "1"},
		UpdatedAt: base,
	}))
	require.NoError(t, store.Progress().UpsertSnapshot(ctx, &curriculum.Snapshot{
		StudentID: s.ID,
		Subject:   curriculum.SubjectChinese,
		Position:  curriculum.Position{Unit: "5", Lesson: "3"},
		UpdatedAt: base.Add(time.Hour),
	}))

	progress, err := handler.Handle(ctx, ResolveProgressQuery{StudentID: s.ID})
	require.NoError(t, err)

	chinese := progress.Subjects[curriculum.SubjectChinese]
	assert.Equal(t, curriculum.SourceLessonPlan, chinese.Source)
	assert.Equal(t, "5", chinese.Position.Unit)
}

func TestResolveProgress_CacheReadThrough(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	cache := inmem.NewProgressCache()
	handler := NewResolveProgressHandler(store.Students(), store.Progress(), cache, nil, time.Minute)

	s := seedStudent(t, store)

	first, err := handler.Handle(ctx, ResolveProgressQuery{StudentID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, curriculum.SourceDefault, first.Source)

	// Правка после кеширования: кешированный ответ её ещё не видит.
	require.NoError(t, store.Progress().UpsertOverride(ctx, &curriculum.Override{
		StudentID: s.ID,
		Subject:   curriculum.SubjectChinese,
		Position:  curriculum.Position{Unit: "9", Lesson: "1"},
		UpdatedAt: time.Now().UTC(),
	}))

	cached, err := handler.Handle(ctx, ResolveProgressQuery{StudentID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, curriculum.SourceDefault, cached.Source)

	fresh, err := handler.Handle(ctx, ResolveProgressQuery{StudentID: s.ID, BypassCache: true})
	require.NoError(t, err)
	assert.Equal(t, curriculum.SourceOverride, fresh.Source)
	assert.Equal(t, "9", fresh.Subjects[curriculum.SubjectChinese].Position.Unit)
}

func TestResolveProgress_StudentNotFound(t *testing.T) {
	store := inmem.NewStore()
	handler := NewResolveProgressHandler(store.Students(), store.Progress(), nil, nil, 0)

	_, err := handler.Handle(context.Background(), ResolveProgressQuery{StudentID: "missing"})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), ResolveProgressQuery{})
	assert.Error(t, err)
}
