// Package reward содержит доменную модель наград: таблицу правил
// начисления, журнал начислений и контракт атомарного расчёта.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package reward

import (
	"errors"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Module определяет модуль расчёта награды. Задание попадает в модуль
// по блоку плана урока, из которого оно материализовано.
type Module string

const (
	// ModuleProgress - прохождение контрольных точек программы (QC).
	ModuleProgress Module = "PROGRESS"
	// ModuleMethodology - задания основного метода обучения (核心教学法).
	ModuleMethodology Module = "METHODOLOGY"
	// ModulePersonalized - персональные дополнительные задания (定制加餐).
	ModulePersonalized Module = "PERSONALIZED"
	// ModuleTask - остальные задания плана урока.
	ModuleTask Module = "TASK"
)

// IsValid проверяет, что модуль корректен.
func (m Module) IsValid() bool {
	switch m {
	case ModuleProgress, ModuleMethodology, ModulePersonalized, ModuleTask:
		return true
	default:
		return false
	}
}

// ModuleForBlock отображает блок плана урока в модуль расчёта.
func ModuleForBlock(block string) Module {
	switch block {
	case "QC":
		return ModuleProgress
	case "核心教学法":
		return ModuleMethodology
	case "定制加餐":
		return ModulePersonalized
	default:
		return ModuleTask
	}
}

// Kind определяет знак записи журнала.
type Kind string

const (
	// KindAward - начисление награды за рассчитанное задание.
	KindAward Kind = "award"
	// KindRollback - откат ранее начисленной награды.
	KindRollback Kind = "rollback"
)

// IsValid проверяет, что вид записи корректен.
func (k Kind) IsValid() bool {
	return k == KindAward || k == KindRollback
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY TABLE
// ══════════════════════════════════════════════════════════════════════════════

// PolicyEntry - правило начисления награды. Ключ поиска:
// (SchoolID, Module, Category, Action); пустая Category означает
// правило для всего модуля.
type PolicyEntry struct {
	ID       string
	SchoolID string
	Module   Module

	// Category - уточнение внутри модуля (пустая строка = любой).
	Category string

	// Action - действие, за которое начисляется награда
	// (например, "听写" или "语文过关").
	Action string

	ExpReward    int
	PointsReward int
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Matches проверяет, подходит ли правило под запрос.
func (p *PolicyEntry) Matches(module Module, category, action string) bool {
	if !p.IsActive || p.Module != module || p.Action != action {
		return false
	}
	return p.Category == "" || p.Category == category
}

// DefaultPolicies возвращает стартовый набор правил школы:
// контрольные точки трёх предметов.
func DefaultPolicies(schoolID string) []*PolicyEntry {
	now := time.Now().UTC()
	seed := func(id, action string, exp, points int) *PolicyEntry {
		return &PolicyEntry{
			ID:           id,
			SchoolID:     schoolID,
			Module:       ModuleProgress,
			Category:     "",
			Action:       action,
			ExpReward:    exp,
			PointsReward: points,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	return []*PolicyEntry{
		seed("seed-qc-chinese", "语文过关", 10, 5),
		seed("seed-qc-math", "数学过关", 10, 5),
		seed("seed-qc-english", "英语过关", 10, 5),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// Event - запись журнала наград. Журнал append-only: начисление и откат
// дают по отдельной записи с противоположными знаками, поэтому сумма
// дельт всегда равна текущему балансу.
type Event struct {
	ID        string
	SchoolID  string
	StudentID string
	TaskID    string
	Kind      Kind

	// ExpDelta - подписанная дельта опыта (отрицательная для отката).
	ExpDelta int

	// PointsDelta - подписанная дельта баллов.
	PointsDelta int

	OccurredAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrPolicyNotFound - правило начисления не найдено.
	ErrPolicyNotFound = errors.New("reward policy entry not found")

	// ErrInvalidModule - невалидный модуль расчёта.
	ErrInvalidModule = errors.New("invalid reward module")

	// ErrInvalidKind - невалидный вид записи журнала.
	ErrInvalidKind = errors.New("invalid ledger event kind")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewEventParams содержит параметры записи журнала.
type NewEventParams struct {
	ID          string
	SchoolID    string
	StudentID   string
	TaskID      string
	Kind        Kind
	ExpDelta    int
	PointsDelta int
	OccurredAt  time.Time
}

// NewEvent создаёт запись журнала с валидацией.
func NewEvent(params NewEventParams) (*Event, error) {
	if params.ID == "" {
		return nil, errors.New("event id is required")
	}
	if params.StudentID == "" {
		return nil, errors.New("student id is required")
	}
	if !params.Kind.IsValid() {
		return nil, ErrInvalidKind
	}

	occurredAt := params.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return &Event{
		ID:          params.ID,
		SchoolID:    params.SchoolID,
		StudentID:   params.StudentID,
		TaskID:      params.TaskID,
		Kind:        params.Kind,
		ExpDelta:    params.ExpDelta,
		PointsDelta: params.PointsDelta,
		OccurredAt:  occurredAt.UTC(),
	}, nil
}

// String возвращает строковое представление записи для логирования.
func (e *Event) String() string {
	return fmt.Sprintf(
		"RewardEvent{ID: %s, Student: %s, Task: %s, Kind: %s, Exp: %+d, Points: %+d}",
		e.ID, e.StudentID, e.TaskID, e.Kind, e.ExpDelta, e.PointsDelta,
	)
}
