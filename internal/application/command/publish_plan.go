// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arkok-lms/curriculum-engine/config"
	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
	"github.com/arkok-lms/curriculum-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUBLISH PLAN COMMAND (Materializer)
// Turns a lesson-plan publication into per-student task records. The upsert
// dedup key (student, title, type, day) makes a re-publish refresh existing
// rows instead of duplicating them, so the whole operation is idempotent.
// ══════════════════════════════════════════════════════════════════════════════

// PublishPlanCommand contains the lesson plan to publish.
type PublishPlanCommand struct {
	// SchoolID is the tenant publishing the plan.
	SchoolID string

	// TeacherID is the publishing teacher. Tasks materialize for this
	// teacher's active students.
	TeacherID string

	// Title is the lesson plan title.
	Title string

	// CalendarDay is the plan's day in school time ("YYYY-MM-DD").
	CalendarDay string

	// CourseInfo carries the course positions per subject.
	CourseInfo map[curriculum.Subject]curriculum.Position

	// Templates are the task templates to materialize.
	Templates []curriculum.TaskTemplate

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c PublishPlanCommand) Validate() error {
	if c.SchoolID == "" {
		return errors.New("publish_plan: school_id is required")
	}
	if c.TeacherID == "" {
		return errors.New("publish_plan: teacher_id is required")
	}
	if !task.IsValidCalendarDay(c.CalendarDay) {
		return fmt.Errorf("publish_plan: invalid calendar day %q", c.CalendarDay)
	}
	if len(c.CourseInfo) == 0 {
		return curriculum.ErrNoSubjects
	}
	return nil
}

// PublishPlanResult contains the result of publishing a plan.
type PublishPlanResult struct {
	// PublicationID is the ID of the stored publication.
	PublicationID string

	// StudentsAffected is how many students received the plan.
	StudentsAffected int

	// TasksCreated is the number of newly materialized task records.
	TasksCreated int

	// TasksSkipped is the number of records that already existed and
	// were only refreshed.
	TasksSkipped int

	// StudentsFailed lists students whose unit failed after retries.
	StudentsFailed []string

	// Events contains domain events generated.
	Events []shared.Event

	// PublishedAt is when the publication was stored.
	PublishedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// PublishPlanHandler handles the PublishPlanCommand.
type PublishPlanHandler struct {
	publicationRepo curriculum.PublicationRepository
	progressRepo    curriculum.ProgressRepository
	studentRepo     student.Repository
	taskRepo        task.Repository
	policyRepo      reward.PolicyRepository
	library         *curriculum.Library
	eventPublisher  shared.EventPublisher
	flags           *config.FeatureFlags
	retrier         *retry.Retrier

	// defaultExp is granted when neither the policy table nor the
	// template carry an amount.
	defaultExp int
}

// PublishPlanHandlerConfig contains configuration for the handler.
type PublishPlanHandlerConfig struct {
	DefaultExp int

	// Per-student retry settings.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPublishPlanHandlerConfig returns default configuration.
func DefaultPublishPlanHandlerConfig() PublishPlanHandlerConfig {
	return PublishPlanHandlerConfig{
		DefaultExp: 0,
		MaxRetries: 4,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   3 * time.Second,
	}
}

// NewPublishPlanHandler creates a new PublishPlanHandler.
func NewPublishPlanHandler(
	publicationRepo curriculum.PublicationRepository,
	progressRepo curriculum.ProgressRepository,
	studentRepo student.Repository,
	taskRepo task.Repository,
	policyRepo reward.PolicyRepository,
	library *curriculum.Library,
	eventPublisher shared.EventPublisher,
	flags *config.FeatureFlags,
	cfg PublishPlanHandlerConfig,
) *PublishPlanHandler {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultPublishPlanHandlerConfig()
	}
	if library == nil {
		library = curriculum.NewLibrary()
	}

	retrier := retry.New(
		retry.WithMaxAttempts(cfg.MaxRetries),
		retry.WithInitialDelay(cfg.BaseDelay),
		retry.WithMaxDelay(cfg.MaxDelay),
	)

	return &PublishPlanHandler{
		publicationRepo: publicationRepo,
		progressRepo:    progressRepo,
		studentRepo:     studentRepo,
		taskRepo:        taskRepo,
		policyRepo:      policyRepo,
		library:         library,
		eventPublisher:  eventPublisher,
		flags:           flags,
		retrier:         retrier,
		defaultExp:      cfg.DefaultExp,
	}
}

// Handle executes the publish plan command.
func (h *PublishPlanHandler) Handle(ctx context.Context, cmd PublishPlanCommand) (*PublishPlanResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("publish_plan: validation failed: %w", err)
	}

	// Backfill missing course titles from the standard library.
	courseInfo := make(map[curriculum.Subject]curriculum.Position, len(cmd.CourseInfo))
	for subject, position := range cmd.CourseInfo {
		courseInfo[subject] = h.library.BackfillTitle(subject, position)
	}

	publication, err := curriculum.NewPublication(curriculum.NewPublicationParams{
		ID:          uuid.New().String(),
		SchoolID:    cmd.SchoolID,
		TeacherID:   cmd.TeacherID,
		Title:       cmd.Title,
		CalendarDay: cmd.CalendarDay,
		CourseInfo:  courseInfo,
		Templates:   cmd.Templates,
	})
	if err != nil {
		return nil, fmt.Errorf("publish_plan: %w", err)
	}

	// The publication log is append-only; idempotency lives in the
	// task upsert, not here.
	if err := h.publicationRepo.Create(ctx, publication); err != nil {
		return nil, fmt.Errorf("publish_plan: failed to store publication: %w", err)
	}

	students, err := h.studentRepo.ListActiveByTeacher(ctx, cmd.SchoolID, cmd.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("publish_plan: failed to list students: %w", err)
	}

	result := &PublishPlanResult{
		PublicationID: publication.ID,
		PublishedAt:   publication.PublishedAt,
		Events:        make([]shared.Event, 0, 1),
	}

	affectedIDs := make([]string, 0, len(students))
	for _, st := range students {
		var created, skipped int

		err := h.retrier.Do(ctx, func(ctx context.Context) error {
			c, s, unitErr := h.materializeForStudent(ctx, publication, st)
			created, skipped = c, s
			if unitErr != nil {
				return retry.Retryable(unitErr)
			}
			return nil
		})
		if err != nil {
			result.StudentsFailed = append(result.StudentsFailed, st.ID)
			continue
		}

		result.StudentsAffected++
		result.TasksCreated += created
		result.TasksSkipped += skipped
		affectedIDs = append(affectedIDs, st.ID)
	}

	event := shared.NewPlanPublishedEvent(
		publication.ID,
		cmd.SchoolID,
		cmd.TeacherID,
		cmd.CalendarDay,
		result.StudentsAffected,
		result.TasksCreated,
		result.TasksSkipped,
		affectedIDs,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	if h.eventPublisher != nil {
		for _, e := range result.Events {
			_ = h.eventPublisher.Publish(e)
		}
	}

	if len(result.StudentsFailed) > 0 {
		return result, fmt.Errorf("publish_plan: materialization failed for %d of %d students",
			len(result.StudentsFailed), len(students))
	}

	return result, nil
}

// materializeForStudent is the per-student retryable unit: task upserts
// plus progress snapshots. Every write here is idempotent, so a retry of
// a half-finished unit is harmless.
func (h *PublishPlanHandler) materializeForStudent(
	ctx context.Context,
	publication *curriculum.Publication,
	st *student.Student,
) (created, skipped int, err error) {
	for _, template := range publication.Templates {
		if !h.templateApplies(template, st) {
			continue
		}

		exp, points, err := h.resolveReward(ctx, publication.SchoolID, template)
		if err != nil {
			return created, skipped, fmt.Errorf("resolve reward for %q: %w", template.Title, err)
		}

		record, err := task.NewRecord(task.NewRecordParams{
			ID:            uuid.New().String(),
			SchoolID:      publication.SchoolID,
			StudentID:     st.ID,
			TeacherID:     publication.TeacherID,
			PublicationID: publication.ID,
			Title:         template.Title,
			Type:          task.Type(template.Type),
			CalendarDay:   publication.CalendarDay,
			Content:       contentFor(publication, template),
			RewardExp:     exp,
			RewardPoints:  points,
		})
		if err != nil {
			return created, skipped, fmt.Errorf("invalid task template %q: %w", template.Title, err)
		}

		wasCreated, err := h.taskRepo.Upsert(ctx, record)
		if err != nil {
			return created, skipped, fmt.Errorf("upsert task %q: %w", template.Title, err)
		}
		if wasCreated {
			created++
		} else {
			skipped++
		}
	}

	// Snapshots only for the subjects this publication carries; other
	// subjects keep whatever position they had.
	now := time.Now().UTC()
	for subject, position := range publication.CourseInfo {
		snapshot := &curriculum.Snapshot{
			StudentID: st.ID,
			Subject:   subject,
			Position:  position,
			UpdatedAt: now,
		}
		if err := h.progressRepo.UpsertSnapshot(ctx, snapshot); err != nil {
			return created, skipped, fmt.Errorf("upsert snapshot %s: %w", subject, err)
		}
	}

	return created, skipped, nil
}

// templateApplies reports whether a template materializes for a student.
// SPECIAL templates with a target list reach only the named students.
func (h *PublishPlanHandler) templateApplies(template curriculum.TaskTemplate, st *student.Student) bool {
	if task.Type(template.Type) != task.TypeSpecial || len(template.TargetStudents) == 0 {
		return true
	}

	if h.flags != nil {
		fctx := &config.FeatureContext{SchoolID: st.SchoolID}
		if !h.flags.IsEnabled(config.FeatureSpecialTargeting, fctx) {
			return true
		}
	}

	return template.TargetsStudent(st.Name, st.EnglishName)
}

// resolveReward fixes the task's reward amounts at materialization time.
// Policy lookup: module from the plan block, action from the subcategory
// falling back to the title. No policy hit means the template default;
// any other store error aborts the unit so the retry re-prices the task.
func (h *PublishPlanHandler) resolveReward(
	ctx context.Context,
	schoolID string,
	template curriculum.TaskTemplate,
) (exp, points int, err error) {
	module := reward.ModuleForBlock(template.Block)
	action := template.Subcategory
	if action == "" {
		action = template.Title
	}

	entry, err := h.policyRepo.Resolve(ctx, schoolID, module, template.Block, action)
	switch {
	case err == nil && entry != nil:
		return entry.ExpReward, entry.PointsReward, nil
	case err != nil && !errors.Is(err, reward.ErrPolicyNotFound):
		return 0, 0, err
	}

	exp = template.DefaultExp
	if exp == 0 {
		exp = h.defaultExp
	}
	return exp, 0, nil
}

// contentFor builds the task's content snapshot from the publication.
func contentFor(publication *curriculum.Publication, template curriculum.TaskTemplate) task.Content {
	content := task.Content{
		Subject:     string(template.Subject),
		Description: template.Description,
		TaskDate:    publication.CalendarDay,
		Block:       template.Block,
	}

	if position, ok := publication.CourseInfo[template.Subject]; ok {
		content.Unit = position.Unit
		content.Lesson = position.Lesson
		content.CourseTitle = position.Title
	}

	return content
}
