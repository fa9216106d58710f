package eventhandler

import (
	"context"
	"log/slog"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS OVERRIDDEN HANDLER
// Персональная правка меняет результат резолвера немедленно - кеш
// разрешённого прогресса ученика сбрасывается.
// ═══════════════════════════════════════════════════════════════════════════

// OnProgressOverriddenHandler обрабатывает событие персональной правки.
type OnProgressOverriddenHandler struct {
	progressCache curriculum.ProgressCache
	logger        *slog.Logger
}

// NewOnProgressOverriddenHandler создаёт новый обработчик.
func NewOnProgressOverriddenHandler(progressCache curriculum.ProgressCache, logger *slog.Logger) *OnProgressOverriddenHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnProgressOverriddenHandler{
		progressCache: progressCache,
		logger:        logger.With("handler", "on_progress_overridden"),
	}
}

// Handle обрабатывает событие. Реализует интерфейс shared.EventHandler.
func (h *OnProgressOverriddenHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	overridden, ok := event.(shared.ProgressOverriddenEvent)
	if !ok {
		h.logger.Warn("received non-ProgressOverriddenEvent", "event_type", event.EventType())
		return nil
	}

	if h.progressCache != nil {
		if err := h.progressCache.Invalidate(ctx, overridden.StudentID); err != nil {
			h.logger.Warn("failed to invalidate progress cache",
				"student_id", overridden.StudentID,
				"error", err,
			)
			return err
		}
	}

	h.logger.Debug("progress overridden event processed",
		"student_id", overridden.StudentID,
		"subjects", overridden.Subjects,
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnProgressOverriddenHandler) EventType() shared.EventType {
	return shared.EventProgressOverridden
}
