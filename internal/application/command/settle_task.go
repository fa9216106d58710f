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
// SETTLE TASK COMMAND
// Grants the reward for a completed task exactly once. The settlement
// store performs the conditional settled-at mark, the ledger append and
// the balance delta in a single storage transaction; this handler only
// looks up the amounts and reports the outcome.
// ══════════════════════════════════════════════════════════════════════════════

// SettleTaskCommand identifies the task to settle.
type SettleTaskCommand struct {
	// TaskID is the task record to settle.
	TaskID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SettleTaskCommand) Validate() error {
	if c.TaskID == "" {
		return errors.New("settle_task: task_id is required")
	}
	return nil
}

// SettleTaskResult contains the result of a settlement attempt.
type SettleTaskResult struct {
	// Awarded is true if this call granted the reward. False means the
	// task was already settled: the balance was not touched.
	Awarded bool

	// ExpGranted, PointsGranted are the awarded amounts (zero when not awarded).
	ExpGranted    int
	PointsGranted int

	// NewExp, NewPoints are the student's balance after settlement.
	NewExp    int
	NewPoints int

	// LeveledUp is true if the award changed the student's level.
	LeveledUp bool
	NewLevel  int

	// Events contains domain events generated.
	Events []shared.Event
}

// SettleTaskHandler handles the SettleTaskCommand.
type SettleTaskHandler struct {
	taskRepo       task.Repository
	settlements    reward.SettlementStore
	eventPublisher shared.EventPublisher
}

// NewSettleTaskHandler creates a new SettleTaskHandler.
func NewSettleTaskHandler(
	taskRepo task.Repository,
	settlements reward.SettlementStore,
	eventPublisher shared.EventPublisher,
) *SettleTaskHandler {
	return &SettleTaskHandler{
		taskRepo:       taskRepo,
		settlements:    settlements,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the settle task command.
func (h *SettleTaskHandler) Handle(ctx context.Context, cmd SettleTaskCommand) (*SettleTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	record, err := h.taskRepo.GetByID(ctx, cmd.TaskID)
	if err != nil {
		return nil, fmt.Errorf("settle_task: %w", err)
	}

	// Cheap early exits. The storage-level conditional mark is still the
	// real guarantee; these only avoid pointless transactions.
	if record.IsSettled() {
		return &SettleTaskResult{Awarded: false, Events: []shared.Event{}}, nil
	}
	if !record.IsCompleted() {
		return nil, fmt.Errorf("settle_task: %w", task.ErrNotCompleted)
	}

	outcome, err := h.settlements.Settle(ctx, reward.SettleParams{
		TaskID:    record.ID,
		SchoolID:  record.SchoolID,
		StudentID: record.StudentID,
		Exp:       record.RewardExp,
		Points:    record.RewardPoints,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("settle_task: %w", err)
	}

	result := &SettleTaskResult{
		Awarded: outcome.Won,
		Events:  make([]shared.Event, 0, 2),
	}
	if !outcome.Won {
		return result, nil
	}

	result.ExpGranted = record.RewardExp
	result.PointsGranted = record.RewardPoints
	result.NewExp = outcome.NewExp
	result.NewPoints = outcome.NewPoints
	result.LeveledUp = outcome.NewLevel != outcome.OldLevel
	result.NewLevel = outcome.NewLevel

	settled := shared.NewTaskSettledEvent(
		record.StudentID, record.ID, record.RewardExp, record.RewardPoints, outcome.NewExp,
	)
	if cmd.CorrelationID != "" {
		settled.BaseEvent = settled.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, settled)

	if result.LeveledUp {
		result.Events = append(result.Events,
			shared.NewLevelUpEvent(record.StudentID, outcome.OldLevel, outcome.NewLevel))
	}

	if h.eventPublisher != nil {
		for _, e := range result.Events {
			_ = h.eventPublisher.Publish(e)
		}
	}

	return result, nil
}
