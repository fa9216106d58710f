package student

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет основные операции CRUD для учеников.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create создаёт нового ученика.
	// Возвращает ErrStudentAlreadyExists, если ученик уже существует.
	Create(ctx context.Context, student *Student) error

	// GetByID возвращает ученика по внутреннему ID.
	// Возвращает ErrStudentNotFound, если ученик не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// Update обновляет данные ученика.
	// Возвращает ErrStudentNotFound, если ученик не найден.
	Update(ctx context.Context, student *Student) error

	// Delete удаляет ученика (soft delete).
	// Возвращает ErrStudentNotFound, если ученик не найден.
	Delete(ctx context.Context, id string) error

	// ─────────────────────────────────────────────────────────────────────────
	// Bulk Operations
	// ─────────────────────────────────────────────────────────────────────────

	// GetByIDs возвращает учеников по списку ID.
	GetByIDs(ctx context.Context, ids []string) ([]*Student, error)

	// ListActiveByTeacher возвращает активных учеников преподавателя.
	// Именно этот список получает задания при публикации плана урока.
	ListActiveByTeacher(ctx context.Context, schoolID, teacherID string) ([]*Student, error)

	// ListBySchool возвращает учеников школы с пагинацией.
	ListBySchool(ctx context.Context, schoolID string, opts ListOptions) ([]*Student, error)

	// Count возвращает количество учеников школы.
	Count(ctx context.Context, schoolID string) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Reward Balance
	// ─────────────────────────────────────────────────────────────────────────

	// ApplyRewardDelta атомарно изменяет баланс ученика на уровне хранилища
	// (инкремент в одном UPDATE, не read-modify-write). Возвращает ученика
	// с уже применённой дельтой. Баланс не опускается ниже нуля.
	ApplyRewardDelta(ctx context.Context, id string, expDelta, pointsDelta int) (*Student, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Existence Checks
	// ─────────────────────────────────────────────────────────────────────────

	// Exists проверяет существование ученика по ID.
	Exists(ctx context.Context, id string) (bool, error)
}

// ListOptions содержит параметры для пагинации и сортировки.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int

	// SortBy - поле для сортировки.
	SortBy string

	// SortDesc - сортировка по убыванию.
	SortDesc bool

	// IncludeInactive - включать неактивных учеников.
	IncludeInactive bool
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:          0,
		Limit:           50,
		SortBy:          "exp",
		SortDesc:        true,
		IncludeInactive: false,
	}
}

// WithOffset устанавливает смещение.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit устанавливает лимит.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithSort устанавливает сортировку.
func (o ListOptions) WithSort(field string, desc bool) ListOptions {
	o.SortBy = field
	o.SortDesc = desc
	return o
}

// WithInactive включает неактивных учеников.
func (o ListOptions) WithInactive() ListOptions {
	o.IncludeInactive = true
	return o
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// Для кеширования часто запрашиваемых данных.
// ══════════════════════════════════════════════════════════════════════════════

// Cache определяет операции кеширования данных учеников.
type Cache interface {
	// Get получает ученика из кеша.
	Get(ctx context.Context, studentID string) (*Student, error)

	// Set сохраняет ученика в кеш.
	Set(ctx context.Context, student *Student, ttl time.Duration) error

	// Delete удаляет ученика из кеша.
	Delete(ctx context.Context, studentID string) error

	// Invalidate инвалидирует все записи ученика в кеше.
	Invalidate(ctx context.Context, studentID string) error

	// InvalidateAll очищает весь кеш учеников.
	InvalidateAll(ctx context.Context) error
}
