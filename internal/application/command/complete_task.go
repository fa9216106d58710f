package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TASK COMMAND
// Moves a task to COMPLETED and immediately settles its reward. The two
// steps stay independent: re-completing an already-settled record is a
// no-op success and never re-awards.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTaskCommand contains the data to complete a task.
type CompleteTaskCommand struct {
	// TaskID is the task record to complete.
	TaskID string

	// CompletedAt is the completion moment (defaults to now).
	CompletedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteTaskCommand) Validate() error {
	if c.TaskID == "" {
		return errors.New("complete_task: task_id is required")
	}
	return nil
}

// CompleteTaskResult contains the result of completing a task.
type CompleteTaskResult struct {
	// Completed is true if this call performed the PENDING→COMPLETED
	// transition. False means the task was already completed.
	Completed bool

	// Settlement is the result of the follow-up settlement attempt.
	Settlement *SettleTaskResult

	// Events contains domain events generated.
	Events []shared.Event
}

// CompleteTaskHandler handles the CompleteTaskCommand.
type CompleteTaskHandler struct {
	taskRepo       task.Repository
	settleHandler  *SettleTaskHandler
	eventPublisher shared.EventPublisher
}

// NewCompleteTaskHandler creates a new CompleteTaskHandler.
func NewCompleteTaskHandler(
	taskRepo task.Repository,
	settleHandler *SettleTaskHandler,
	eventPublisher shared.EventPublisher,
) *CompleteTaskHandler {
	return &CompleteTaskHandler{
		taskRepo:       taskRepo,
		settleHandler:  settleHandler,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the complete task command.
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) (*CompleteTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	at := cmd.CompletedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result := &CompleteTaskResult{Events: make([]shared.Event, 0, 1)}

	err := h.taskRepo.MarkCompleted(ctx, cmd.TaskID, at)
	switch {
	case err == nil:
		result.Completed = true
	case errors.Is(err, task.ErrAlreadyCompleted):
		// Idempotent: fall through to settlement, which decides on its
		// own whether anything is still owed.
	default:
		return nil, fmt.Errorf("complete_task: %w", err)
	}

	if result.Completed {
		record, err := h.taskRepo.GetByID(ctx, cmd.TaskID)
		if err == nil {
			event := shared.NewTaskCompletedEvent(record.StudentID, record.ID, record.Title)
			if cmd.CorrelationID != "" {
				event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
			}
			result.Events = append(result.Events, event)
			if h.eventPublisher != nil {
				_ = h.eventPublisher.Publish(event)
			}
		}
	}

	settlement, err := h.settleHandler.Handle(ctx, SettleTaskCommand{
		TaskID:        cmd.TaskID,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return result, fmt.Errorf("complete_task: settlement failed: %w", err)
	}
	result.Settlement = settlement
	result.Events = append(result.Events, settlement.Events...)

	return result, nil
}
