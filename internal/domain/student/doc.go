// Package student содержит доменную модель ученика школьной платформы.
//
// Это ядро бизнес-логики движка учебной программы. Пакет определяет:
//
//   - Сущность Student с балансом наград (Exp, Points, вычисляемый Level)
//   - Value Objects: Exp, Points, Level, Status
//   - Интерфейсы репозиториев: Repository, Cache
//
// # Архитектурные принципы
//
// Пакет следует принципам Clean Architecture и DDD:
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - определяет интерфейсы, которые реализуются в infrastructure
//  3. Rich Domain Model - бизнес-логика инкапсулирована в сущностях
//
// # Баланс наград
//
// Exp и Points меняются только через расчёт наград за выполненные задания.
// Уровень не хранится, а вычисляется линейной формулой:
//
//	level := CalculateLevel(student.Exp) // exp/100 + 1
//
// Изменение баланса в памяти делается через ApplyRewardDelta, а в хранилище -
// через одноимённый атомарный метод репозитория (один UPDATE с инкрементом,
// без read-modify-write):
//
//	levelChanged := student.ApplyRewardDelta(+10, +5)
//	if levelChanged {
//	    event := shared.NewLevelUpEvent(student.ID, oldLevel, newLevel)
//	    eventBus.Publish(event)
//	}
//
// # Материализация заданий
//
// Статус ученика определяет, получает ли он задания при публикации плана
// урока: материализатор берёт ListActiveByTeacher и пропускает всех,
// у кого Status.ReceivesTasks() == false. Персональные задания адресуются
// по имени через MatchesName (основное или английское имя).
package student
