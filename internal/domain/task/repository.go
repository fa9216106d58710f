package task

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции с материализованными заданиями.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Materialization
	// ─────────────────────────────────────────────────────────────────────────

	// Upsert вставляет задание по ключу идемпотентности
	// (StudentID, Title, Type, CalendarDay). Возвращает true, если запись
	// создана, и false, если задание уже существовало. У существующей
	// записи обновляются только снимок содержимого и назначенная награда;
	// статус, попытки и расчёт награды повторная публикация не трогает.
	Upsert(ctx context.Context, record *Record) (created bool, err error)

	// ─────────────────────────────────────────────────────────────────────────
	// Lookup
	// ─────────────────────────────────────────────────────────────────────────

	// GetByID возвращает задание по ID.
	// Возвращает ErrTaskNotFound, если задание не найдено.
	GetByID(ctx context.Context, id string) (*Record, error)

	// ListByStudentDay возвращает задания ученика за календарный день.
	ListByStudentDay(ctx context.Context, studentID, calendarDay string) ([]*Record, error)

	// ListByPublication возвращает задания, материализованные из публикации.
	ListByPublication(ctx context.Context, publicationID string) ([]*Record, error)

	// ListSettledInWindow возвращает рассчитанные задания ученика,
	// у которых SettledAt попадает в полуоткрытое окно [from, to).
	// Кандидаты для отката наград.
	ListSettledInWindow(ctx context.Context, studentID string, from, to time.Time) ([]*Record, error)

	// ListCompletedUnsettled возвращает выполненные, но не рассчитанные
	// задания, выполненные раньше порога. Кандидаты для фоновой сверки.
	ListCompletedUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]*Record, error)

	// ─────────────────────────────────────────────────────────────────────────
	// State Transitions
	// ─────────────────────────────────────────────────────────────────────────

	// MarkCompleted переводит задание в статус COMPLETED.
	// Возвращает ErrTaskNotFound или ErrAlreadyCompleted.
	MarkCompleted(ctx context.Context, id string, at time.Time) error

	// MarkSettled условно фиксирует расчёт награды: UPDATE срабатывает
	// только при settled_at IS NULL и статусе COMPLETED. Возвращает true,
	// если именно этот вызов выиграл гонку; false - если задание уже
	// было рассчитано кем-то другим.
	MarkSettled(ctx context.Context, id string, at time.Time, exp, points int) (won bool, err error)

	// ClearSettlement условно сбрасывает расчёт: UPDATE срабатывает только
	// при settled_at IS NOT NULL. Возвращает true, если сброс произошёл.
	ClearSettlement(ctx context.Context, id string) (won bool, err error)

	// ─────────────────────────────────────────────────────────────────────────
	// Aggregates
	// ─────────────────────────────────────────────────────────────────────────

	// CountByStudentDay возвращает количество заданий ученика за день.
	CountByStudentDay(ctx context.Context, studentID, calendarDay string) (int, error)
}
