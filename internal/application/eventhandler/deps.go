// Package eventhandler содержит обработчики доменных событий.
// Обработчики подписаны на внутреннюю шину: команды публикуют события,
// а вся побочная работа (инвалидация кешей, проекция сводки дня,
// внешняя трансляция) живёт здесь, вне транзакций команд.
package eventhandler

import (
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
)

// SummaryRecorder принимает факты расчёта и отката для сводки дня.
// Реализуется проекцией daily summary.
type SummaryRecorder interface {
	RecordSettlement(studentID, calendarDay string, exp, points int, leveledUp bool)
	RecordRollback(studentID, calendarDay string, tasksReset, expReversed, pointsReversed int)
}

// Broadcaster транслирует событие наружу с учётом флагов школы.
type Broadcaster interface {
	Broadcast(schoolID string, event shared.Event) error
}
