// Package student содержит доменную модель ученика школьной платформы.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Exp представляет очки опыта ученика.
type Exp int

// IsValid проверяет, что Exp неотрицательный.
func (x Exp) IsValid() bool {
	return x >= 0
}

// Add складывает Exp. Отрицательная дельта откатывает начисление,
// баланс никогда не опускается ниже нуля.
func (x Exp) Add(delta int) Exp {
	result := Exp(int(x) + delta)
	if result < 0 {
		return 0
	}
	return result
}

// Points представляет накопительные баллы ученика (тратятся в магазине наград).
type Points int

// IsValid проверяет, что Points неотрицательные.
func (p Points) IsValid() bool {
	return p >= 0
}

// Add складывает Points с нижней границей в ноль.
func (p Points) Add(delta int) Points {
	result := Points(int(p) + delta)
	if result < 0 {
		return 0
	}
	return result
}

// Level представляет уровень ученика, вычисляемый из Exp.
type Level int

// ExpPerLevel - шаг уровня: каждые 100 очков опыта = 1 уровень.
const ExpPerLevel = 100

// CalculateLevel вычисляет уровень на основе Exp.
// Формула: level = exp/100 + 1, минимальный уровень - первый.
func CalculateLevel(exp Exp) Level {
	if exp < 0 {
		return 1
	}
	return Level(int(exp)/ExpPerLevel + 1)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет текущий статус ученика в школе.
type Status string

const (
	// StatusActive - ученик активно учится.
	StatusActive Status = "active"
	// StatusPaused - обучение временно приостановлено (каникулы, болезнь).
	StatusPaused Status = "paused"
	// StatusGraduated - ученик закончил программу.
	StatusGraduated Status = "graduated"
	// StatusLeft - ученик покинул школу.
	StatusLeft Status = "left"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusGraduated, StatusLeft:
		return true
	default:
		return false
	}
}

// IsEnrolled возвращает true, если ученик всё ещё числится в школе.
func (s Status) IsEnrolled() bool {
	return s == StatusActive || s == StatusPaused
}

// ReceivesTasks возвращает true, если ученику материализуются задания.
// Материализатор пропускает всех, кроме активных.
func (s Status) ReceivesTasks() bool {
	return s == StatusActive
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - центральная сущность системы, представляющая ученика школы.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// SchoolID - школа (тенант), к которой принадлежит ученик.
	SchoolID string

	// TeacherID - закреплённый преподаватель. Публикация плана урока
	// материализует задания именно для учеников этого преподавателя.
	TeacherID string

	// Name - имя ученика. По нему адресуются персональные задания.
	Name string

	// EnglishName - имя для английской программы (может быть пустым).
	EnglishName string

	// Grade - класс/параллель (например, "三年级").
	Grade string

	// Exp - текущее количество очков опыта.
	Exp Exp

	// Points - текущий баланс баллов.
	Points Points

	// Status - текущий статус в школе.
	Status Status

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidName - невалидное имя ученика.
	ErrInvalidName = errors.New("invalid student name: must be 1-100 chars")

	// ErrInvalidExp - невалидное значение Exp.
	ErrInvalidExp = errors.New("invalid exp: must be non-negative")

	// ErrInvalidPoints - невалидное значение Points.
	ErrInvalidPoints = errors.New("invalid points: must be non-negative")

	// ErrInvalidStatus - невалидный статус.
	ErrInvalidStatus = errors.New("invalid student status")

	// ErrStudentNotFound - ученик не найден.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentAlreadyExists - ученик уже существует.
	ErrStudentAlreadyExists = errors.New("student already exists")

	// ErrStudentNotEnrolled - ученик больше не числится в школе.
	ErrStudentNotEnrolled = errors.New("student is not enrolled")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams содержит параметры для создания нового ученика.
type NewStudentParams struct {
	ID          string
	SchoolID    string
	TeacherID   string
	Name        string
	EnglishName string
	Grade       string
	InitialExp  Exp
}

// NewStudent создаёт нового ученика с валидацией всех полей.
func NewStudent(params NewStudentParams) (*Student, error) {
	if params.ID == "" {
		return nil, errors.New("student id is required")
	}

	if params.SchoolID == "" {
		return nil, errors.New("school id is required")
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidName
	}

	if !params.InitialExp.IsValid() {
		return nil, ErrInvalidExp
	}

	now := time.Now().UTC()

	return &Student{
		ID:          params.ID,
		SchoolID:    params.SchoolID,
		TeacherID:   params.TeacherID,
		Name:        name,
		EnglishName: strings.TrimSpace(params.EnglishName),
		Grade:       strings.TrimSpace(params.Grade),
		Exp:         params.InitialExp,
		Points:      0,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// Level возвращает текущий уровень ученика.
func (s *Student) Level() Level {
	return CalculateLevel(s.Exp)
}

// ApplyRewardDelta применяет изменение баланса наград (начисление или откат).
// Возвращает true, если уровень ученика изменился.
func (s *Student) ApplyRewardDelta(expDelta, pointsDelta int) (levelChanged bool) {
	oldLevel := s.Level()

	s.Exp = s.Exp.Add(expDelta)
	s.Points = s.Points.Add(pointsDelta)
	s.UpdatedAt = time.Now().UTC()

	return s.Level() != oldLevel
}

// Pause приостанавливает обучение ученика.
func (s *Student) Pause() error {
	if !s.Status.IsEnrolled() {
		return ErrStudentNotEnrolled
	}

	s.Status = StatusPaused
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Resume возвращает ученика в активное состояние.
func (s *Student) Resume() error {
	if s.Status != StatusPaused {
		return errors.New("can only resume paused students")
	}

	s.Status = StatusActive
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkGraduated помечает ученика как выпускника.
func (s *Student) MarkGraduated() error {
	if !s.Status.IsEnrolled() {
		return ErrStudentNotEnrolled
	}

	s.Status = StatusGraduated
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Leave помечает ученика как покинувшего школу.
func (s *Student) Leave() error {
	if !s.Status.IsEnrolled() {
		return ErrStudentNotEnrolled
	}

	s.Status = StatusLeft
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Rename обновляет имя ученика.
func (s *Student) Rename(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 100 {
		return ErrInvalidName
	}

	s.Name = name
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// MatchesName проверяет, адресовано ли ученику персональное задание.
// Сопоставление идёт и по основному, и по английскому имени.
func (s *Student) MatchesName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return s.Name == name || (s.EnglishName != "" && s.EnglishName == name)
}

// String возвращает строковое представление ученика для логирования.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, Name: %s, Exp: %d, Points: %d, Level: %d, Status: %s}",
		s.ID, s.Name, s.Exp, s.Points, s.Level(), s.Status,
	)
}

// Clone создаёт глубокую копию ученика.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
