package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/config"
	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
)

func newPublishHandler(store *inmem.Store, flags *config.FeatureFlags) *PublishPlanHandler {
	return NewPublishPlanHandler(
		store.Publications(),
		store.Progress(),
		store.Students(),
		store.Tasks(),
		store.Policies(),
		nil,
		nil,
		flags,
		DefaultPublishPlanHandlerConfig(),
	)
}

func addStudent(t *testing.T, store *inmem.Store, name, englishName, teacherID string) *student.Student {
	t.Helper()

	s, err := student.NewStudent(student.NewStudentParams{
		ID:          uuid.New().String(),
		SchoolID:    "school-1",
		TeacherID:   teacherID,
		Name:        name,
		EnglishName: englishName,
	})
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(context.Background(), s))
	return s
}

func planCommand(templates ...curriculum.TaskTemplate) PublishPlanCommand {
	return PublishPlanCommand{
		SchoolID:    "school-1",
		TeacherID:   "teacher-1",
		Title:       "周一计划",
		CalendarDay: "2026-03-02",
		CourseInfo: map[curriculum.Subject]curriculum.Position{
			curriculum.SubjectChinese: {Unit: "2", Lesson: "1", Title: "小蝌蚪找妈妈"},
		},
		Templates: templates,
	}
}

func TestPublishPlan_MaterializesForActiveStudents(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := newPublishHandler(store, nil)

	ming := addStudent(t, store, "小明", "", "teacher-1")
	hong := addStudent(t, store, "小红", "", "teacher-1")
	addStudent(t, store, "别班", "", "teacher-2")

	paused := addStudent(t, store, "请假", "", "teacher-1")
	require.NoError(t, paused.Pause())
	require.NoError(t, store.Students().Update(ctx, paused))

	require.NoError(t, store.Policies().Seed(ctx, "school-1"))

	result, err := handler.Handle(ctx, planCommand(
		curriculum.TaskTemplate{
			Title: "听写第一课", Type: "TASK", Block: "核心教学法",
			Subject: curriculum.SubjectChinese, DefaultExp: 3,
		},
		curriculum.TaskTemplate{
			Title: "语文过关", Type: "QC", Block: "QC",
			Subject: curriculum.SubjectChinese,
		},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, result.StudentsAffected)
	assert.Equal(t, 4, result.TasksCreated)
	assert.Zero(t, result.TasksSkipped)
	assert.Empty(t, result.StudentsFailed)
	assert.NotEmpty(t, result.PublicationID)

	for _, s := range []*student.Student{ming, hong} {
		records, err := store.Tasks().ListByStudentDay(ctx, s.ID, "2026-03-02")
		require.NoError(t, err)
		require.Len(t, records, 2)

		for _, rec := range records {
			switch rec.Title {
			case "听写第一课":
				// No policy hit, so the template's DefaultExp applies.
				assert.Equal(t, 3, rec.RewardExp)
				assert.Zero(t, rec.RewardPoints)
			case "语文过关":
				// Reward fixed from the policy table at materialization.
				assert.Equal(t, 10, rec.RewardExp)
				assert.Equal(t, 5, rec.RewardPoints)
			default:
				t.Fatalf("unexpected task %q", rec.Title)
			}
			assert.Equal(t, "2", rec.Content.Unit)
			assert.Equal(t, "小蝌蚪找妈妈", rec.Content.CourseTitle)
		}
	}

	pausedTasks, err := store.Tasks().ListByStudentDay(ctx, paused.ID, "2026-03-02")
	require.NoError(t, err)
	assert.Empty(t, pausedTasks)
}

func TestPublishPlan_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := newPublishHandler(store, nil)

	s := addStudent(t, store, "小明", "", "teacher-1")

	cmd := planCommand(curriculum.TaskTemplate{Title: "朗读课文", Type: "TASK", DefaultExp: 2})

	first, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TasksCreated)

	second, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)

	// The publication is stored again; the tasks are not.
	assert.NotEqual(t, first.PublicationID, second.PublicationID)
	assert.Zero(t, second.TasksCreated)
	assert.Equal(t, 1, second.TasksSkipped)

	count, err := store.Tasks().CountByStudentDay(ctx, s.ID, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPublishPlan_UpsertsSnapshots(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := newPublishHandler(store, nil)

	s := addStudent(t, store, "小明", "", "teacher-1")

	_, err := handler.Handle(ctx, planCommand())
	require.NoError(t, err)

	snapshots, err := store.Progress().GetSnapshots(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	snap := snapshots[curriculum.SubjectChinese]
	require.NotNil(t, snap)
	assert.Equal(t, "2", snap.Position.Unit)
	assert.Equal(t, "小蝌蚪找妈妈", snap.Position.Title)

	// Subjects the plan does not carry get no snapshot.
	assert.Nil(t, snapshots[curriculum.SubjectMath])
}

func TestPublishPlan_SpecialTargeting(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	handler := newPublishHandler(store, config.LoadFeatureFlags())

	ming := addStudent(t, store, "小明", "Tom", "teacher-1")
	hong := addStudent(t, store, "小红", "", "teacher-1")

	result, err := handler.Handle(ctx, planCommand(
		curriculum.TaskTemplate{
			Title: "加餐练习", Type: "SPECIAL", Block: "定制加餐",
			DefaultExp: 5, TargetStudents: []string{"Tom"},
		},
	))
	require.NoError(t, err)

	// Both students processed, only the addressee got the task.
	assert.Equal(t, 2, result.StudentsAffected)
	assert.Equal(t, 1, result.TasksCreated)

	mingTasks, err := store.Tasks().ListByStudentDay(ctx, ming.ID, "2026-03-02")
	require.NoError(t, err)
	assert.Len(t, mingTasks, 1)

	hongTasks, err := store.Tasks().ListByStudentDay(ctx, hong.ID, "2026-03-02")
	require.NoError(t, err)
	assert.Empty(t, hongTasks)
}

func TestPublishPlan_SpecialTargetingDisabled(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()

	flags := config.LoadFeatureFlags()
	require.NoError(t, flags.DisableFeature(config.FeatureSpecialTargeting))
	handler := newPublishHandler(store, flags)

	addStudent(t, store, "小明", "", "teacher-1")
	addStudent(t, store, "小红", "", "teacher-1")

	result, err := handler.Handle(ctx, planCommand(
		curriculum.TaskTemplate{
			Title: "加餐练习", Type: "SPECIAL", Block: "定制加餐",
			DefaultExp: 5, TargetStudents: []string{"小明"},
		},
	))
	require.NoError(t, err)

	// With targeting off, SPECIAL goes to everyone.
	assert.Equal(t, 2, result.TasksCreated)
}

func TestPublishPlan_Validation(t *testing.T) {
	handler := newPublishHandler(inmem.NewStore(), nil)

	cmd := planCommand()
	cmd.SchoolID = ""
	_, err := handler.Handle(context.Background(), cmd)
	assert.Error(t, err)

	cmd = planCommand()
	cmd.CalendarDay = "02.03.2026"
	_, err = handler.Handle(context.Background(), cmd)
	assert.Error(t, err)

	cmd = planCommand()
	cmd.CourseInfo = nil
	_, err = handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, curriculum.ErrNoSubjects)
}

// flakyPolicyRepo fails Resolve a fixed number of times, then delegates.
type flakyPolicyRepo struct {
	reward.PolicyRepository
	failures int
	calls    int
}

func (r *flakyPolicyRepo) Resolve(ctx context.Context, schoolID string, module reward.Module, category, action string) (*reward.PolicyEntry, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, errors.New("policy store unavailable")
	}
	return r.PolicyRepository.Resolve(ctx, schoolID, module, category, action)
}

func TestPublishPlan_PolicyStoreErrorRetried(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	require.NoError(t, store.Policies().Seed(ctx, "school-1"))

	policies := &flakyPolicyRepo{PolicyRepository: store.Policies(), failures: 1}
	handler := NewPublishPlanHandler(
		store.Publications(),
		store.Progress(),
		store.Students(),
		store.Tasks(),
		policies,
		nil,
		nil,
		nil,
		PublishPlanHandlerConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	)

	s := addStudent(t, store, "小明", "", "teacher-1")

	result, err := handler.Handle(ctx, planCommand(
		curriculum.TaskTemplate{
			Title: "语文过关", Type: "QC", Block: "QC",
			Subject: curriculum.SubjectChinese, DefaultExp: 3,
		},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, result.TasksCreated)
	assert.Empty(t, result.StudentsFailed)

	// A transient lookup failure must never bake the template default
	// into the record; the retried unit re-prices from the policy table.
	records, err := store.Tasks().ListByStudentDay(ctx, s.ID, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 10, records[0].RewardExp)
	assert.Equal(t, 5, records[0].RewardPoints)
}

func TestPublishPlan_PolicyStoreDownFailsUnit(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()

	policies := &flakyPolicyRepo{PolicyRepository: store.Policies(), failures: 1 << 30}
	handler := NewPublishPlanHandler(
		store.Publications(),
		store.Progress(),
		store.Students(),
		store.Tasks(),
		policies,
		nil,
		nil,
		nil,
		PublishPlanHandlerConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	)

	s := addStudent(t, store, "小明", "", "teacher-1")

	result, err := handler.Handle(ctx, planCommand(
		curriculum.TaskTemplate{Title: "语文过关", Type: "QC", Block: "QC", DefaultExp: 3},
	))
	require.Error(t, err)
	assert.Contains(t, result.StudentsFailed, s.ID)

	records, listErr := store.Tasks().ListByStudentDay(ctx, s.ID, "2026-03-02")
	require.NoError(t, listErr)
	assert.Empty(t, records)
}
