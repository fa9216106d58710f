package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON REWARDS ROLLED BACK HANDLER
// Откат меняет баланс ученика и сводку дня. Подробности по заданиям
// живут в журнале наград; сводка получает агрегат отката, отнесённый
// к школьному дню самого отката.
// ═══════════════════════════════════════════════════════════════════════════

// OnRewardsRolledBackHandler обрабатывает событие отката наград.
type OnRewardsRolledBackHandler struct {
	studentRepo  student.Repository
	studentCache student.Cache
	summary      SummaryRecorder
	broadcaster  Broadcaster
	logger       *slog.Logger
}

// NewOnRewardsRolledBackHandler создаёт новый обработчик.
func NewOnRewardsRolledBackHandler(
	studentRepo student.Repository,
	studentCache student.Cache,
	summary SummaryRecorder,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *OnRewardsRolledBackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnRewardsRolledBackHandler{
		studentRepo:  studentRepo,
		studentCache: studentCache,
		summary:      summary,
		broadcaster:  broadcaster,
		logger:       logger.With("handler", "on_rewards_rolled_back"),
	}
}

// Handle обрабатывает событие. Реализует интерфейс shared.EventHandler.
func (h *OnRewardsRolledBackHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	rolledBack, ok := event.(shared.RewardsRolledBackEvent)
	if !ok {
		h.logger.Warn("received non-RewardsRolledBackEvent", "event_type", event.EventType())
		return nil
	}

	if h.studentCache != nil {
		if err := h.studentCache.Invalidate(ctx, rolledBack.StudentID); err != nil {
			h.logger.Warn("failed to invalidate student cache",
				"student_id", rolledBack.StudentID,
				"error", err,
			)
		}
	}

	if h.summary != nil {
		day := h.dayOf(rolledBack.OccurredAt())
		h.summary.RecordRollback(
			rolledBack.StudentID,
			day,
			rolledBack.TasksReset,
			rolledBack.ExpReversed,
			rolledBack.PointsReversed,
		)
	}

	if h.broadcaster != nil {
		schoolID := ""
		if st, err := h.studentRepo.GetByID(ctx, rolledBack.StudentID); err == nil {
			schoolID = st.SchoolID
		}
		if err := h.broadcaster.Broadcast(schoolID, rolledBack); err != nil {
			h.logger.Warn("failed to broadcast rollback",
				"student_id", rolledBack.StudentID,
				"error", err,
			)
		}
	}

	h.logger.Debug("rewards rolled back event processed",
		"student_id", rolledBack.StudentID,
		"tasks_reset", rolledBack.TasksReset,
		"exp_reversed", rolledBack.ExpReversed,
	)

	return nil
}

func (h *OnRewardsRolledBackHandler) dayOf(t time.Time) string {
	return timeutil.DayOf(t).String()
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnRewardsRolledBackHandler) EventType() shared.EventType {
	return shared.EventRewardsRolledBack
}
