package query

import (
	"context"
	"errors"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAILY RECORDS QUERY
// Возвращает задания ученика за календарный день. День сопоставляется
// по сохранённой строке "YYYY-MM-DD" школьного часового пояса, а не по
// диапазону таймстемпов - граница дня не плывёт при смене зоны сервера.
// ══════════════════════════════════════════════════════════════════════════════

// GetDailyRecordsQuery содержит параметры запроса.
type GetDailyRecordsQuery struct {
	// StudentID - внутренний ID ученика.
	StudentID string

	// CalendarDay - день в формате "YYYY-MM-DD".
	CalendarDay string
}

// Validate проверяет корректность параметров.
func (q GetDailyRecordsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("get_daily_records: student_id is required")
	}
	if !task.IsValidCalendarDay(q.CalendarDay) {
		return errors.New("get_daily_records: invalid calendar day")
	}
	return nil
}

// DailyRecordsResult содержит результат запроса.
type DailyRecordsResult struct {
	StudentID   string
	CalendarDay string

	// Records - задания дня в порядке создания.
	Records []*task.Record

	// Completed, Settled - быстрые счётчики для сводки дня.
	Completed int
	Settled   int

	GeneratedAt time.Time
}

// GetDailyRecordsHandler обрабатывает запросы заданий дня.
type GetDailyRecordsHandler struct {
	studentRepo student.Repository
	taskRepo    task.Repository
}

// NewGetDailyRecordsHandler создаёт новый обработчик.
func NewGetDailyRecordsHandler(studentRepo student.Repository, taskRepo task.Repository) *GetDailyRecordsHandler {
	return &GetDailyRecordsHandler{
		studentRepo: studentRepo,
		taskRepo:    taskRepo,
	}
}

// Handle выполняет запрос.
func (h *GetDailyRecordsHandler) Handle(ctx context.Context, query GetDailyRecordsQuery) (*DailyRecordsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("task", "GetDailyRecords", shared.ErrValidation, err.Error(), err)
	}

	exists, err := h.studentRepo.Exists(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("task", "GetDailyRecords", shared.ErrStoreUnavailable, "student lookup failed", err)
	}
	if !exists {
		return nil, shared.WrapError("task", "GetDailyRecords", shared.ErrNotFound, "student not found", student.ErrStudentNotFound)
	}

	records, err := h.taskRepo.ListByStudentDay(ctx, query.StudentID, query.CalendarDay)
	if err != nil {
		return nil, shared.WrapError("task", "GetDailyRecords", shared.ErrStoreUnavailable, "failed to list records", err)
	}

	result := &DailyRecordsResult{
		StudentID:   query.StudentID,
		CalendarDay: query.CalendarDay,
		Records:     records,
		GeneratedAt: time.Now().UTC(),
	}

	for _, rec := range records {
		if rec.IsCompleted() {
			result.Completed++
		}
		if rec.IsSettled() {
			result.Settled++
		}
	}

	return result, nil
}
