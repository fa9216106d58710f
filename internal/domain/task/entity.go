// Package task содержит доменную модель материализованного задания.
// Задание - это персональная запись ученика, созданная из публикации
// плана урока. Это ядро бизнес-логики - здесь нет внешних зависимостей.
package task

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Type определяет тип задания.
type Type string

const (
	// TypeQC - задание на прохождение контрольной точки предмета.
	TypeQC Type = "QC"
	// TypeTask - обычное задание из плана урока.
	TypeTask Type = "TASK"
	// TypeSpecial - персональное задание для конкретных учеников.
	TypeSpecial Type = "SPECIAL"
)

// IsValid проверяет, что тип корректен.
func (t Type) IsValid() bool {
	switch t {
	case TypeQC, TypeTask, TypeSpecial:
		return true
	default:
		return false
	}
}

// Status определяет статус выполнения задания.
type Status string

const (
	// StatusPending - задание выдано, но не выполнено.
	StatusPending Status = "PENDING"
	// StatusCompleted - задание выполнено учеником.
	StatusCompleted Status = "COMPLETED"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// calendarDayRegex - формат календарного дня "YYYY-MM-DD".
var calendarDayRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsValidCalendarDay проверяет формат календарного дня.
func IsValidCalendarDay(day string) bool {
	return calendarDayRegex.MatchString(day)
}

// Content - снимок содержимого задания на момент материализации.
// Последующие правки плана урока или учебной программы его не меняют.
type Content struct {
	// Subject - предмет ("语文", "数学", "英语" и т.д.).
	Subject string

	// Unit - юнит учебной программы на момент выдачи.
	Unit string

	// Lesson - урок внутри юнита.
	Lesson string

	// CourseTitle - название курса из библиотеки программ.
	CourseTitle string

	// Description - текст задания из блока плана урока.
	Description string

	// TaskDate - календарный день задания ("YYYY-MM-DD", школьный часовой пояс).
	TaskDate string

	// Block - название блока плана урока, из которого пришло задание.
	// Определяет модуль расчёта награды ("QC", "核心教学法", "定制加餐", ...).
	Block string
}

// DedupKey - ключ идемпотентности материализации. Повторная публикация
// плана не создаёт дубликатов: два задания с одинаковым ключом - это
// одно задание.
type DedupKey struct {
	StudentID   string
	Title       string
	Type        Type
	CalendarDay string
}

// String возвращает строковое представление ключа (для кеша и логов).
func (k DedupKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.StudentID, k.Title, k.Type, k.CalendarDay)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record - материализованное задание конкретного ученика.
type Record struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// SchoolID - школа (тенант).
	SchoolID string

	// StudentID - ученик, которому выдано задание.
	StudentID string

	// TeacherID - преподаватель, опубликовавший план урока.
	TeacherID string

	// PublicationID - публикация, из которой задание материализовано.
	PublicationID string

	// Title - заголовок задания. Входит в ключ идемпотентности.
	Title string

	// Type - тип задания.
	Type Type

	// Status - статус выполнения.
	Status Status

	// CalendarDay - календарный день задания ("YYYY-MM-DD").
	CalendarDay string

	// Content - снимок содержимого на момент материализации.
	Content Content

	// RewardExp - опыт, назначенный заданию по таблице наград при
	// материализации. Начисляется при расчёте.
	RewardExp int

	// RewardPoints - баллы, назначенные заданию при материализации.
	RewardPoints int

	// Attempts - количество попыток выполнения.
	Attempts int

	// CompletedAt - время выполнения (nil, пока не выполнено).
	CompletedAt *time.Time

	// SettledAt - время расчёта награды. Nil означает "не рассчитано";
	// проверка на nil в одном UPDATE даёт гарантию exactly-once.
	SettledAt *time.Time

	// SettledExp - фактически начисленный опыт (для точного отката).
	SettledExp int

	// SettledPoints - фактически начисленные баллы (для точного отката).
	SettledPoints int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidTitle - невалидный заголовок задания.
	ErrInvalidTitle = errors.New("invalid task title: must be 1-200 chars")

	// ErrInvalidType - невалидный тип задания.
	ErrInvalidType = errors.New("invalid task type")

	// ErrInvalidCalendarDay - невалидный календарный день.
	ErrInvalidCalendarDay = errors.New("invalid calendar day: expected YYYY-MM-DD")

	// ErrTaskNotFound - задание не найдено.
	ErrTaskNotFound = errors.New("task record not found")

	// ErrNotCompleted - задание ещё не выполнено.
	ErrNotCompleted = errors.New("task record is not completed")

	// ErrAlreadyCompleted - задание уже выполнено.
	ErrAlreadyCompleted = errors.New("task record is already completed")

	// ErrAlreadySettled - награда за задание уже рассчитана.
	ErrAlreadySettled = errors.New("task record is already settled")

	// ErrNotSettled - награда за задание не рассчитана, откатывать нечего.
	ErrNotSettled = errors.New("task record is not settled")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewRecordParams содержит параметры для материализации задания.
type NewRecordParams struct {
	ID            string
	SchoolID      string
	StudentID     string
	TeacherID     string
	PublicationID string
	Title         string
	Type          Type
	CalendarDay   string
	Content       Content
	RewardExp     int
	RewardPoints  int
}

// NewRecord материализует новое задание с валидацией всех полей.
func NewRecord(params NewRecordParams) (*Record, error) {
	if params.ID == "" {
		return nil, errors.New("task id is required")
	}

	if params.StudentID == "" {
		return nil, errors.New("student id is required")
	}

	title := strings.TrimSpace(params.Title)
	if len(title) == 0 || len(title) > 200 {
		return nil, ErrInvalidTitle
	}

	if !params.Type.IsValid() {
		return nil, ErrInvalidType
	}

	if !IsValidCalendarDay(params.CalendarDay) {
		return nil, ErrInvalidCalendarDay
	}

	now := time.Now().UTC()

	return &Record{
		ID:            params.ID,
		SchoolID:      params.SchoolID,
		StudentID:     params.StudentID,
		TeacherID:     params.TeacherID,
		PublicationID: params.PublicationID,
		Title:         title,
		Type:          params.Type,
		Status:        StatusPending,
		CalendarDay:   params.CalendarDay,
		Content:       params.Content,
		RewardExp:     params.RewardExp,
		RewardPoints:  params.RewardPoints,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// DedupKey возвращает ключ идемпотентности задания.
func (r *Record) DedupKey() DedupKey {
	return DedupKey{
		StudentID:   r.StudentID,
		Title:       r.Title,
		Type:        r.Type,
		CalendarDay: r.CalendarDay,
	}
}

// IsCompleted возвращает true, если задание выполнено.
func (r *Record) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// IsSettled возвращает true, если награда рассчитана.
func (r *Record) IsSettled() bool {
	return r.SettledAt != nil
}

// MarkCompleted переводит задание в статус "выполнено".
// Повторный вызов возвращает ErrAlreadyCompleted.
func (r *Record) MarkCompleted(at time.Time) error {
	if r.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}

	completedAt := at.UTC()
	r.Status = StatusCompleted
	r.CompletedAt = &completedAt
	r.Attempts++
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// CanSettle проверяет, готово ли задание к расчёту награды:
// выполнено и ещё не рассчитано.
func (r *Record) CanSettle() error {
	if r.Status != StatusCompleted {
		return ErrNotCompleted
	}
	if r.IsSettled() {
		return ErrAlreadySettled
	}
	return nil
}

// Settle фиксирует расчёт награды в памяти. Реальная гарантия
// exactly-once обеспечивается условным UPDATE в хранилище, а не здесь.
func (r *Record) Settle(at time.Time, exp, points int) error {
	if err := r.CanSettle(); err != nil {
		return err
	}

	settledAt := at.UTC()
	r.SettledAt = &settledAt
	r.SettledExp = exp
	r.SettledPoints = points
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// ClearSettlement откатывает расчёт награды. Задание возвращается в
// статус PENDING: чтобы получить награду снова, его нужно выполнить
// заново. Зафиксированные суммы обнуляются.
func (r *Record) ClearSettlement() error {
	if !r.IsSettled() {
		return ErrNotSettled
	}

	r.SettledAt = nil
	r.SettledExp = 0
	r.SettledPoints = 0
	r.Status = StatusPending
	r.CompletedAt = nil
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление задания для логирования.
func (r *Record) String() string {
	return fmt.Sprintf(
		"Task{ID: %s, Student: %s, Title: %s, Type: %s, Day: %s, Status: %s, Settled: %t}",
		r.ID, r.StudentID, r.Title, r.Type, r.CalendarDay, r.Status, r.IsSettled(),
	)
}

// Clone создаёт глубокую копию задания.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	clone := *r
	if r.CompletedAt != nil {
		completedAt := *r.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if r.SettledAt != nil {
		settledAt := *r.SettledAt
		clone.SettledAt = &settledAt
	}
	return &clone
}
