// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"github.com/arkok-lms/curriculum-engine/config"
	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVE PROGRESS QUERY
// Разрешает текущую позицию ученика по каждому предмету. Каждый предмет
// разрешается независимо: override > снимок публикации > позиция по
// умолчанию, внутри пары источников побеждает более свежий UpdatedAt,
// при равенстве - override как более специфичный.
// ══════════════════════════════════════════════════════════════════════════════

// ResolveProgressQuery содержит параметры запроса.
type ResolveProgressQuery struct {
	// StudentID - внутренний ID ученика.
	StudentID string

	// BypassCache - принудительно разрешить из хранилища.
	BypassCache bool
}

// Validate проверяет корректность параметров.
func (q ResolveProgressQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("resolve_progress: student_id is required")
	}
	return nil
}

// ResolveProgressHandler обрабатывает запросы разрешения прогресса.
type ResolveProgressHandler struct {
	studentRepo  student.Repository
	progressRepo curriculum.ProgressRepository
	cache        curriculum.ProgressCache
	flags        *config.FeatureFlags
	cacheTTL     time.Duration
}

// NewResolveProgressHandler создаёт новый обработчик. Кеш опционален:
// nil отключает read-through полностью.
func NewResolveProgressHandler(
	studentRepo student.Repository,
	progressRepo curriculum.ProgressRepository,
	cache curriculum.ProgressCache,
	flags *config.FeatureFlags,
	cacheTTL time.Duration,
) *ResolveProgressHandler {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ResolveProgressHandler{
		studentRepo:  studentRepo,
		progressRepo: progressRepo,
		cache:        cache,
		flags:        flags,
		cacheTTL:     cacheTTL,
	}
}

// Handle выполняет запрос.
func (h *ResolveProgressHandler) Handle(ctx context.Context, query ResolveProgressQuery) (*curriculum.ResolvedProgress, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("curriculum", "ResolveProgress", shared.ErrValidation, err.Error(), err)
	}

	st, err := h.studentRepo.GetByID(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("curriculum", "ResolveProgress", shared.ErrNotFound, "student not found", err)
	}

	useCache := h.cacheEnabled(st.SchoolID) && !query.BypassCache
	if useCache {
		if cached, err := h.cache.Get(ctx, query.StudentID); err == nil && cached != nil {
			return cached, nil
		}
	}

	progress, err := h.resolve(ctx, query.StudentID)
	if err != nil {
		return nil, err
	}

	if useCache {
		_ = h.cache.Set(ctx, progress, h.cacheTTL)
	}

	return progress, nil
}

// resolve собирает источники и разрешает каждый известный предмет.
func (h *ResolveProgressHandler) resolve(ctx context.Context, studentID string) (*curriculum.ResolvedProgress, error) {
	snapshots, err := h.progressRepo.GetSnapshots(ctx, studentID)
	if err != nil {
		return nil, shared.WrapError("curriculum", "ResolveProgress", shared.ErrStoreUnavailable, "failed to load snapshots", err)
	}

	overrides, err := h.progressRepo.GetOverrides(ctx, studentID)
	if err != nil {
		return nil, shared.WrapError("curriculum", "ResolveProgress", shared.ErrStoreUnavailable, "failed to load overrides", err)
	}

	progress := &curriculum.ResolvedProgress{
		StudentID:  studentID,
		Subjects:   make(map[curriculum.Subject]curriculum.SubjectProgress, len(curriculum.KnownSubjects)),
		Source:     curriculum.SourceDefault,
		ResolvedAt: time.Now().UTC(),
	}

	// Каждый известный предмет получает запись всегда, даже без источников.
	for _, subject := range curriculum.KnownSubjects {
		resolved := curriculum.ResolveSubject(subject, overrides[subject], snapshots[subject])
		progress.Subjects[subject] = resolved

		if resolved.Source.Rank() > progress.Source.Rank() {
			progress.Source = resolved.Source
		}
	}

	return progress, nil
}

func (h *ResolveProgressHandler) cacheEnabled(schoolID string) bool {
	if h.cache == nil {
		return false
	}
	if h.flags == nil {
		return true
	}
	return h.flags.IsEnabled(config.FeatureCacheProgress, &config.FeatureContext{SchoolID: schoolID})
}
