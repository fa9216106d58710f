package curriculum

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// PublicationRepository определяет операции с публикациями планов уроков.
// Хранилище append-only: публикации не редактируются и не удаляются.
type PublicationRepository interface {
	// Create сохраняет новую публикацию.
	Create(ctx context.Context, publication *Publication) error

	// GetByID возвращает публикацию по ID.
	// Возвращает ErrPublicationNotFound, если публикация не найдена.
	GetByID(ctx context.Context, id string) (*Publication, error)

	// ListByTeacherDay возвращает публикации преподавателя за день
	// в порядке публикации.
	ListByTeacherDay(ctx context.Context, schoolID, teacherID, calendarDay string) ([]*Publication, error)
}

// ProgressRepository определяет операции с источниками прогресса:
// снимками публикаций и персональными правками.
type ProgressRepository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Snapshots (источник lesson_plan)
	// ─────────────────────────────────────────────────────────────────────────

	// UpsertSnapshot записывает снимок позиции (student, subject).
	// Публикация вызывает его только для предметов, которые она несёт.
	UpsertSnapshot(ctx context.Context, snapshot *Snapshot) error

	// GetSnapshots возвращает снимки ученика по предметам.
	GetSnapshots(ctx context.Context, studentID string) (map[Subject]*Snapshot, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Overrides (источник override)
	// ─────────────────────────────────────────────────────────────────────────

	// UpsertOverride записывает персональную правку (student, subject).
	// Правки других предметов не затрагиваются.
	UpsertOverride(ctx context.Context, override *Override) error

	// GetOverrides возвращает правки ученика по предметам.
	GetOverrides(ctx context.Context, studentID string) (map[Subject]*Override, error)

	// DeleteOverride удаляет правку предмета (возврат к снимку/умолчанию).
	DeleteOverride(ctx context.Context, studentID string, subject Subject) error
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// ProgressCache определяет кеширование разрешённого прогресса.
// Инвалидируется обработчиками событий публикации и правок.
type ProgressCache interface {
	// Get возвращает разрешённый прогресс из кеша или nil при промахе.
	Get(ctx context.Context, studentID string) (*ResolvedProgress, error)

	// Set сохраняет разрешённый прогресс в кеш.
	Set(ctx context.Context, progress *ResolvedProgress, ttl time.Duration) error

	// Invalidate удаляет прогресс ученика из кеша.
	Invalidate(ctx context.Context, studentID string) error
}
