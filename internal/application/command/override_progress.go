package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// OVERRIDE PROGRESS COMMAND
// Writes per-subject progress patches for one student. Overrides live in
// their own table, so later publications never discard them; the resolver
// decides the winner per subject by source rank and recency.
// ══════════════════════════════════════════════════════════════════════════════

// OverrideProgressCommand contains the patches to apply.
type OverrideProgressCommand struct {
	// StudentID is the student whose progress is patched.
	StudentID string

	// Subjects maps each patched subject to its new position. Subjects
	// absent from the map are untouched.
	Subjects map[curriculum.Subject]curriculum.Position

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c OverrideProgressCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("override_progress: student_id is required")
	}
	if len(c.Subjects) == 0 {
		return errors.New("override_progress: at least one subject is required")
	}
	for subject, position := range c.Subjects {
		if !subject.IsValid() {
			return fmt.Errorf("override_progress: %w: %q", curriculum.ErrUnknownSubject, subject)
		}
		if position.Unit == "" {
			return fmt.Errorf("override_progress: %w: subject %q", curriculum.ErrEmptyPosition, subject)
		}
	}
	return nil
}

// OverrideProgressResult contains the result of applying overrides.
type OverrideProgressResult struct {
	// Overridden lists the subjects that were patched.
	Overridden []curriculum.Subject

	// Events contains domain events generated.
	Events []shared.Event

	// AppliedAt is the override timestamp shared by all patches.
	AppliedAt time.Time
}

// OverrideProgressHandler handles the OverrideProgressCommand.
type OverrideProgressHandler struct {
	progressRepo   curriculum.ProgressRepository
	studentRepo    student.Repository
	library        *curriculum.Library
	eventPublisher shared.EventPublisher
}

// NewOverrideProgressHandler creates a new OverrideProgressHandler.
func NewOverrideProgressHandler(
	progressRepo curriculum.ProgressRepository,
	studentRepo student.Repository,
	library *curriculum.Library,
	eventPublisher shared.EventPublisher,
) *OverrideProgressHandler {
	if library == nil {
		library = curriculum.NewLibrary()
	}
	return &OverrideProgressHandler{
		progressRepo:   progressRepo,
		studentRepo:    studentRepo,
		library:        library,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the override progress command.
func (h *OverrideProgressHandler) Handle(ctx context.Context, cmd OverrideProgressCommand) (*OverrideProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	exists, err := h.studentRepo.Exists(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("override_progress: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("override_progress: %w", student.ErrStudentNotFound)
	}

	now := time.Now().UTC()
	result := &OverrideProgressResult{
		Overridden: make([]curriculum.Subject, 0, len(cmd.Subjects)),
		Events:     make([]shared.Event, 0, 1),
		AppliedAt:  now,
	}

	for subject, position := range cmd.Subjects {
		override := &curriculum.Override{
			StudentID: cmd.StudentID,
			Subject:   subject,
			Position:  h.library.BackfillTitle(subject, position),
			UpdatedAt: now,
		}
		if err := h.progressRepo.UpsertOverride(ctx, override); err != nil {
			return result, fmt.Errorf("override_progress: subject %s: %w", subject, err)
		}
		result.Overridden = append(result.Overridden, subject)
	}

	subjectNames := make([]string, 0, len(result.Overridden))
	for _, subject := range result.Overridden {
		subjectNames = append(subjectNames, string(subject))
	}

	event := shared.NewProgressOverriddenEvent(cmd.StudentID, subjectNames)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}
