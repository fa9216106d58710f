package eventhandler

import (
	"context"
	"log/slog"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PLAN PUBLISHED HANDLER
// Публикация переписывает снимки прогресса затронутых учеников, поэтому
// их разрешённый прогресс в кеше устаревает. Handler инвалидирует кеш
// и транслирует событие наружу.
// ═══════════════════════════════════════════════════════════════════════════

// OnPlanPublishedHandler обрабатывает событие публикации плана.
type OnPlanPublishedHandler struct {
	progressCache curriculum.ProgressCache
	broadcaster   Broadcaster
	logger        *slog.Logger
}

// NewOnPlanPublishedHandler создаёт новый обработчик.
func NewOnPlanPublishedHandler(
	progressCache curriculum.ProgressCache,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *OnPlanPublishedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnPlanPublishedHandler{
		progressCache: progressCache,
		broadcaster:   broadcaster,
		logger:        logger.With("handler", "on_plan_published"),
	}
}

// Handle обрабатывает событие. Реализует интерфейс shared.EventHandler.
func (h *OnPlanPublishedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	published, ok := event.(shared.PlanPublishedEvent)
	if !ok {
		h.logger.Warn("received non-PlanPublishedEvent", "event_type", event.EventType())
		return nil
	}

	if h.progressCache != nil {
		for _, studentID := range published.StudentIDs {
			if err := h.progressCache.Invalidate(ctx, studentID); err != nil {
				h.logger.Warn("failed to invalidate progress cache",
					"student_id", studentID,
					"error", err,
				)
			}
		}
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.Broadcast(published.SchoolID, published); err != nil {
			h.logger.Warn("failed to broadcast publication",
				"publication_id", published.AggregateID(),
				"error", err,
			)
		}
	}

	h.logger.Debug("plan published event processed",
		"publication_id", published.AggregateID(),
		"students", published.StudentsAffected,
		"created", published.TasksCreated,
		"skipped", published.TasksSkipped,
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnPlanPublishedHandler) EventType() shared.EventType {
	return shared.EventPlanPublished
}
