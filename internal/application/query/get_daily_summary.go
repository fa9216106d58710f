package query

import (
	"context"
	"errors"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/projections"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAILY SUMMARY QUERY
// Читает сводку наград дня из проекции журнала. Чистое чтение: проекция
// наполняется обработчиками событий расчёта и фоновой пересборкой.
// ══════════════════════════════════════════════════════════════════════════════

// GetDailySummaryQuery содержит параметры запроса.
type GetDailySummaryQuery struct {
	// CalendarDay - день в формате "YYYY-MM-DD".
	CalendarDay string

	// StudentID - если задан, вернуть сводку одного ученика.
	StudentID string

	// Limit - максимум записей дня (0 = без ограничения).
	Limit int
}

// Validate проверяет корректность параметров.
func (q GetDailySummaryQuery) Validate() error {
	if !task.IsValidCalendarDay(q.CalendarDay) {
		return errors.New("get_daily_summary: invalid calendar day")
	}
	return nil
}

// DailySummaryResult содержит результат запроса.
type DailySummaryResult struct {
	CalendarDay string

	// Entries - сводки учеников дня, по убыванию чистого опыта.
	Entries []*projections.DailySummaryEntry

	// Version - версия проекции на момент чтения.
	Version int64

	GeneratedAt time.Time
}

// GetDailySummaryHandler обрабатывает запросы сводки дня.
type GetDailySummaryHandler struct {
	view *projections.DailySummaryView
}

// NewGetDailySummaryHandler создаёт новый обработчик.
func NewGetDailySummaryHandler(view *projections.DailySummaryView) *GetDailySummaryHandler {
	return &GetDailySummaryHandler{view: view}
}

// Handle выполняет запрос.
func (h *GetDailySummaryHandler) Handle(ctx context.Context, query GetDailySummaryQuery) (*DailySummaryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("reward", "GetDailySummary", shared.ErrValidation, err.Error(), err)
	}

	result := &DailySummaryResult{
		CalendarDay: query.CalendarDay,
		Version:     h.view.GetVersion(),
		GeneratedAt: time.Now().UTC(),
	}

	if query.StudentID != "" {
		// День без расчётов - нормальный случай, не ошибка.
		if entry, err := h.view.GetByStudentDay(ctx, query.StudentID, query.CalendarDay); err == nil {
			result.Entries = []*projections.DailySummaryEntry{entry}
		}
		return result, nil
	}

	entries, err := h.view.GetDay(ctx, query.CalendarDay, query.Limit)
	if err != nil {
		return nil, shared.WrapError("reward", "GetDailySummary", shared.ErrStoreUnavailable, "failed to read day summary", err)
	}
	result.Entries = entries
	return result, nil
}
