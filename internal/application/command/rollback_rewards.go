package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLLBACK REWARDS COMMAND
// Reverses the settlements of one student inside a time window. Each task
// is its own atomic unit, so a re-run skips everything already reversed
// and the aggregate always equals the sum of the tasks actually reset.
// ══════════════════════════════════════════════════════════════════════════════

// RollbackRewardsCommand describes the rollback window.
type RollbackRewardsCommand struct {
	// StudentID is the student whose settlements are reversed.
	StudentID string

	// From, To bound the half-open window [From, To) over SettledAt.
	From time.Time
	To   time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RollbackRewardsCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("rollback_rewards: student_id is required")
	}
	if c.From.IsZero() || c.To.IsZero() {
		return errors.New("rollback_rewards: window bounds are required")
	}
	if !c.To.After(c.From) {
		return errors.New("rollback_rewards: window must not be empty")
	}
	return nil
}

// RollbackRewardsResult contains the result of a window rollback.
type RollbackRewardsResult struct {
	// TasksReset is how many settlements this call reversed.
	TasksReset int

	// ExpReversed, PointsReversed are the total reversed amounts.
	ExpReversed    int
	PointsReversed int

	// NewExp, NewPoints are the balance after the last reversal
	// (unchanged balance when nothing was reset).
	NewExp    int
	NewPoints int

	// Events contains domain events generated.
	Events []shared.Event
}

// RollbackRewardsHandler handles the RollbackRewardsCommand.
type RollbackRewardsHandler struct {
	taskRepo       task.Repository
	settlements    reward.SettlementStore
	eventPublisher shared.EventPublisher
}

// NewRollbackRewardsHandler creates a new RollbackRewardsHandler.
func NewRollbackRewardsHandler(
	taskRepo task.Repository,
	settlements reward.SettlementStore,
	eventPublisher shared.EventPublisher,
) *RollbackRewardsHandler {
	return &RollbackRewardsHandler{
		taskRepo:       taskRepo,
		settlements:    settlements,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the rollback rewards command.
func (h *RollbackRewardsHandler) Handle(ctx context.Context, cmd RollbackRewardsCommand) (*RollbackRewardsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	candidates, err := h.taskRepo.ListSettledInWindow(ctx, cmd.StudentID, cmd.From, cmd.To)
	if err != nil {
		return nil, fmt.Errorf("rollback_rewards: failed to list settled tasks: %w", err)
	}

	result := &RollbackRewardsResult{Events: make([]shared.Event, 0, 1)}
	now := time.Now().UTC()

	for _, rec := range candidates {
		outcome, err := h.settlements.RollbackTask(ctx, rec.ID, now)
		if err != nil {
			return result, fmt.Errorf("rollback_rewards: task %s: %w", rec.ID, err)
		}
		// A concurrent rollback may have reset this task between the
		// listing and the conditional update. Nothing to reverse then.
		if !outcome.Won {
			continue
		}

		result.TasksReset++
		result.ExpReversed += outcome.ExpReversed
		result.PointsReversed += outcome.PointsReversed
		result.NewExp = outcome.NewExp
		result.NewPoints = outcome.NewPoints
	}

	if result.TasksReset > 0 {
		event := shared.NewRewardsRolledBackEvent(
			cmd.StudentID, result.TasksReset, result.ExpReversed, result.PointsReversed,
		)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)

		if h.eventPublisher != nil {
			_ = h.eventPublisher.Publish(event)
		}
	}

	return result, nil
}
