package reward

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// PolicyRepository определяет операции с таблицей правил начисления.
type PolicyRepository interface {
	// Upsert создаёт или обновляет правило.
	Upsert(ctx context.Context, entry *PolicyEntry) error

	// Resolve ищет активное правило начисления. Порядок поиска:
	// точное совпадение (module, category, action), затем правило
	// модуля без категории (module, "", action). Возвращает
	// ErrPolicyNotFound, если ничего не подошло.
	Resolve(ctx context.Context, schoolID string, module Module, category, action string) (*PolicyEntry, error)

	// ListBySchool возвращает все правила школы.
	ListBySchool(ctx context.Context, schoolID string) ([]*PolicyEntry, error)

	// Seed записывает стартовый набор правил школы, не трогая
	// существующие.
	Seed(ctx context.Context, schoolID string) error
}

// EventRepository определяет операции с журналом наград.
// Журнал append-only: записи не редактируются и не удаляются.
type EventRepository interface {
	// Append добавляет запись в журнал.
	Append(ctx context.Context, event *Event) error

	// ListByStudent возвращает записи ученика за окно [from, to)
	// в порядке возникновения.
	ListByStudent(ctx context.Context, studentID string, from, to time.Time) ([]*Event, error)

	// ListByTask возвращает записи по заданию в порядке возникновения.
	ListByTask(ctx context.Context, taskID string) ([]*Event, error)

	// SumByStudent возвращает сумму подписанных дельт ученика.
	// Инвариант журнала: сумма равна текущему балансу.
	SumByStudent(ctx context.Context, studentID string) (expSum, pointsSum int, err error)
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTLEMENT STORE
// Атомарные единицы расчёта. Реализация обязана выполнять каждую
// операцию в одной транзакции хранилища.
// ══════════════════════════════════════════════════════════════════════════════

// SettleParams - параметры расчёта награды за задание.
type SettleParams struct {
	TaskID    string
	SchoolID  string
	StudentID string

	// Exp, Points - суммы к начислению (из назначенной награды задания).
	Exp    int
	Points int

	// At - момент расчёта.
	At time.Time
}

// SettleOutcome - результат расчёта.
type SettleOutcome struct {
	// Won - true, если именно этот вызов зафиксировал расчёт.
	// False означает, что задание уже было рассчитано: баланс не тронут.
	Won bool

	// NewExp, NewPoints - баланс ученика после применения дельты.
	NewExp    int
	NewPoints int

	// OldLevel, NewLevel - уровень до и после начисления.
	OldLevel int
	NewLevel int
}

// RollbackOutcome - результат отката расчёта одного задания.
type RollbackOutcome struct {
	// Won - true, если именно этот вызов сбросил расчёт.
	Won bool

	// ExpReversed, PointsReversed - фактически возвращённые суммы
	// (из зафиксированных при расчёте).
	ExpReversed    int
	PointsReversed int

	// NewExp, NewPoints - баланс ученика после отката.
	NewExp    int
	NewPoints int
}

// SettlementStore выполняет расчёт и откат как атомарные единицы.
type SettlementStore interface {
	// Settle атомарно: условный сброс метки расчёта
	// (settled_at IS NULL → now), запись журнала, применение дельты
	// баланса. Проигранная гонка возвращает Outcome.Won == false
	// без каких-либо побочных эффектов.
	Settle(ctx context.Context, params SettleParams) (*SettleOutcome, error)

	// RollbackTask атомарно откатывает расчёт одного задания:
	// условный сброс метки (settled_at IS NOT NULL → NULL, статус
	// возвращается в PENDING), запись отката в журнал, обратная
	// дельта баланса. Нерассчитанное задание возвращает Won == false.
	RollbackTask(ctx context.Context, taskID string, at time.Time) (*RollbackOutcome, error)
}
