package eventhandler

import (
	"context"
	"log/slog"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON TASK SETTLED HANDLER
// Обрабатывает событие расчёта награды:
// 1. Инвалидация кешей ученика - баланс изменился.
// 2. Запись в проекцию сводки дня.
// 3. Внешняя трансляция события (live-обновление баланса).
// ═══════════════════════════════════════════════════════════════════════════

// OnTaskSettledHandler обрабатывает событие расчёта награды.
type OnTaskSettledHandler struct {
	taskRepo      task.Repository
	studentCache  student.Cache
	progressCache curriculum.ProgressCache
	summary       SummaryRecorder
	broadcaster   Broadcaster
	logger        *slog.Logger
}

// NewOnTaskSettledHandler создаёт новый обработчик. Кеши, сводка и
// трансляция опциональны: nil отключает соответствующий шаг.
func NewOnTaskSettledHandler(
	taskRepo task.Repository,
	studentCache student.Cache,
	progressCache curriculum.ProgressCache,
	summary SummaryRecorder,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *OnTaskSettledHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnTaskSettledHandler{
		taskRepo:      taskRepo,
		studentCache:  studentCache,
		progressCache: progressCache,
		summary:       summary,
		broadcaster:   broadcaster,
		logger:        logger.With("handler", "on_task_settled"),
	}
}

// Handle обрабатывает событие. Реализует интерфейс shared.EventHandler.
func (h *OnTaskSettledHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	settled, ok := event.(shared.TaskSettledEvent)
	if !ok {
		h.logger.Warn("received non-TaskSettledEvent", "event_type", event.EventType())
		return nil
	}

	record, err := h.taskRepo.GetByID(ctx, settled.TaskID)
	if err != nil {
		h.logger.Error("failed to load settled task",
			"task_id", settled.TaskID,
			"error", err,
		)
		return err
	}

	if h.studentCache != nil {
		if err := h.studentCache.Invalidate(ctx, settled.StudentID); err != nil {
			h.logger.Warn("failed to invalidate student cache",
				"student_id", settled.StudentID,
				"error", err,
			)
		}
	}
	if h.progressCache != nil {
		if err := h.progressCache.Invalidate(ctx, settled.StudentID); err != nil {
			h.logger.Warn("failed to invalidate progress cache",
				"student_id", settled.StudentID,
				"error", err,
			)
		}
	}

	if h.summary != nil {
		// Уровень до начисления восстанавливается из нового баланса.
		oldExp := settled.NewExpTotal - settled.ExpGranted
		leveledUp := student.CalculateLevel(student.Exp(oldExp)) !=
			student.CalculateLevel(student.Exp(settled.NewExpTotal))

		h.summary.RecordSettlement(
			settled.StudentID,
			record.CalendarDay,
			settled.ExpGranted,
			settled.PointsGranted,
			leveledUp,
		)
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.Broadcast(record.SchoolID, settled); err != nil {
			h.logger.Warn("failed to broadcast settlement",
				"task_id", settled.TaskID,
				"error", err,
			)
		}
	}

	h.logger.Debug("task settled event processed",
		"student_id", settled.StudentID,
		"task_id", settled.TaskID,
		"exp", settled.ExpGranted,
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnTaskSettledHandler) EventType() shared.EventType {
	return shared.EventTaskSettled
}
