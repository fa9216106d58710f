// Package curriculum содержит доменную модель учебной программы:
// публикации планов уроков, позиции прогресса по предметам и их
// разрешение. Это ядро бизнес-логики - здесь нет внешних зависимостей.
package curriculum

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Subject представляет предмет учебной программы.
type Subject string

const (
	// SubjectChinese - китайский язык (语文).
	SubjectChinese Subject = "chinese"
	// SubjectMath - математика (数学).
	SubjectMath Subject = "math"
	// SubjectEnglish - английский язык (英语).
	SubjectEnglish Subject = "english"
)

// KnownSubjects - предметы, для которых всегда существует позиция
// по умолчанию.
var KnownSubjects = []Subject{SubjectChinese, SubjectMath, SubjectEnglish}

// IsValid проверяет, что предмет известен системе.
func (s Subject) IsValid() bool {
	switch s {
	case SubjectChinese, SubjectMath, SubjectEnglish:
		return true
	default:
		return false
	}
}

// DisplayName возвращает отображаемое название предмета.
func (s Subject) DisplayName() string {
	switch s {
	case SubjectChinese:
		return "语文"
	case SubjectMath:
		return "数学"
	case SubjectEnglish:
		return "英语"
	default:
		return string(s)
	}
}

// Position представляет позицию в учебной программе предмета.
type Position struct {
	// Unit - юнит программы.
	Unit string

	// Lesson - урок внутри юнита. У английской программы отсутствует.
	Lesson string

	// Title - название курса.
	Title string
}

// IsZero возвращает true, если позиция не задана.
func (p Position) IsZero() bool {
	return p.Unit == "" && p.Lesson == "" && p.Title == ""
}

// Equal сравнивает две позиции.
func (p Position) Equal(other Position) bool {
	return p.Unit == other.Unit && p.Lesson == other.Lesson && p.Title == other.Title
}

// String возвращает строковое представление позиции.
func (p Position) String() string {
	if p.Lesson == "" {
		return fmt.Sprintf("unit %s: %s", p.Unit, p.Title)
	}
	return fmt.Sprintf("unit %s lesson %s: %s", p.Unit, p.Lesson, p.Title)
}

// DefaultPosition возвращает позицию по умолчанию для предмета.
// Используется резолвером, когда у ученика нет ни снимка публикации,
// ни персональной правки.
func DefaultPosition(subject Subject) Position {
	if subject == SubjectEnglish {
		// Английская программа не делится на уроки.
		return Position{Unit: "1", Title: "Default"}
	}
	return Position{Unit: "1", Lesson: "1", Title: "默认课程"}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS SOURCES
// ══════════════════════════════════════════════════════════════════════════════

// ProgressSource определяет, откуда пришла позиция прогресса.
// Приоритет: override > lesson_plan > default.
type ProgressSource string

const (
	// SourceOverride - персональная правка преподавателя.
	SourceOverride ProgressSource = "override"
	// SourceLessonPlan - снимок последней публикации плана урока.
	SourceLessonPlan ProgressSource = "lesson_plan"
	// SourceDefault - позиция по умолчанию.
	SourceDefault ProgressSource = "default"
)

// Rank возвращает приоритет источника (больше - специфичнее).
func (s ProgressSource) Rank() int {
	switch s {
	case SourceOverride:
		return 2
	case SourceLessonPlan:
		return 1
	default:
		return 0
	}
}

// Snapshot - позиция прогресса (student, subject), записанная последней
// публикацией плана урока. Публикация обновляет снимки только тех
// предметов, которые она несёт.
type Snapshot struct {
	StudentID string
	Subject   Subject
	Position  Position
	UpdatedAt time.Time
}

// Override - персональная правка позиции (student, subject). Живёт в
// собственной таблице и не затирается последующими публикациями.
type Override struct {
	StudentID string
	Subject   Subject
	Position  Position
	UpdatedAt time.Time
}

// SubjectProgress - разрешённая позиция одного предмета.
type SubjectProgress struct {
	Subject  Subject
	Position Position
	Source   ProgressSource

	// UpdatedAt - время источника (нулевое для default).
	UpdatedAt time.Time
}

// ResolvedProgress - полный разрешённый прогресс ученика.
type ResolvedProgress struct {
	StudentID string

	// Subjects - позиция каждого известного предмета. Предмет без
	// источников получает позицию по умолчанию, ключ присутствует всегда.
	Subjects map[Subject]SubjectProgress

	// Source - самый специфичный источник среди предметов.
	Source ProgressSource

	// ResolvedAt - время разрешения.
	ResolvedAt time.Time
}

// ResolveSubject выбирает позицию предмета из доступных источников.
// Правило: override > snapshot > default; при равных UpdatedAt
// побеждает override как более специфичный источник.
func ResolveSubject(subject Subject, override *Override, snapshot *Snapshot) SubjectProgress {
	switch {
	case override != nil && snapshot != nil:
		if snapshot.UpdatedAt.After(override.UpdatedAt) {
			return SubjectProgress{Subject: subject, Position: snapshot.Position, Source: SourceLessonPlan, UpdatedAt: snapshot.UpdatedAt}
		}
		return SubjectProgress{Subject: subject, Position: override.Position, Source: SourceOverride, UpdatedAt: override.UpdatedAt}
	case override != nil:
		return SubjectProgress{Subject: subject, Position: override.Position, Source: SourceOverride, UpdatedAt: override.UpdatedAt}
	case snapshot != nil:
		return SubjectProgress{Subject: subject, Position: snapshot.Position, Source: SourceLessonPlan, UpdatedAt: snapshot.UpdatedAt}
	default:
		return SubjectProgress{Subject: subject, Position: DefaultPosition(subject), Source: SourceDefault}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PUBLICATION
// ══════════════════════════════════════════════════════════════════════════════

// TaskTemplate - шаблон задания внутри публикации плана урока.
type TaskTemplate struct {
	// Title - заголовок задания.
	Title string

	// Type - тип материализуемого задания ("QC", "TASK", "SPECIAL").
	Type string

	// Block - название блока плана ("QC", "核心教学法", "定制加餐", ...).
	// Определяет модуль расчёта награды.
	Block string

	// Subcategory - уточнение внутри блока; действие для таблицы наград.
	Subcategory string

	// Subject - предмет задания (может быть пустым для общих заданий).
	Subject Subject

	// Description - текст задания.
	Description string

	// DefaultExp - опыт по умолчанию, если таблица наград не дала ответа.
	DefaultExp int

	// TargetStudents - имена учеников для персональных заданий (SPECIAL).
	// Пустой список означает "всем ученикам преподавателя".
	TargetStudents []string
}

// TargetsStudent проверяет, адресован ли шаблон ученику с данным именем.
func (t TaskTemplate) TargetsStudent(names ...string) bool {
	if len(t.TargetStudents) == 0 {
		return true
	}
	for _, target := range t.TargetStudents {
		for _, name := range names {
			if name != "" && strings.TrimSpace(target) == name {
				return true
			}
		}
	}
	return false
}

// Publication - публикация плана урока. Append-only: повторная
// публикация создаёт новую запись, а идемпотентность материализации
// обеспечивается ключом дедупликации заданий.
type Publication struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// SchoolID - школа (тенант).
	SchoolID string

	// TeacherID - преподаватель, опубликовавший план.
	TeacherID string

	// Title - заголовок плана урока.
	Title string

	// CalendarDay - календарный день плана ("YYYY-MM-DD").
	CalendarDay string

	// CourseInfo - позиции программы по предметам, которые несёт план.
	CourseInfo map[Subject]Position

	// Templates - шаблоны заданий для материализации.
	Templates []TaskTemplate

	// PublishedAt - время публикации.
	PublishedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNoSubjects - публикация не несёт ни одного предмета.
	ErrNoSubjects = errors.New("publication carries no subjects")

	// ErrUnknownSubject - неизвестный предмет.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrInvalidPublication - невалидная публикация.
	ErrInvalidPublication = errors.New("invalid publication")

	// ErrPublicationNotFound - публикация не найдена.
	ErrPublicationNotFound = errors.New("publication not found")

	// ErrEmptyPosition - пустая позиция программы.
	ErrEmptyPosition = errors.New("position must carry at least a unit")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewPublicationParams содержит параметры для создания публикации.
type NewPublicationParams struct {
	ID          string
	SchoolID    string
	TeacherID   string
	Title       string
	CalendarDay string
	CourseInfo  map[Subject]Position
	Templates   []TaskTemplate
}

// NewPublication создаёт публикацию плана урока с валидацией.
func NewPublication(params NewPublicationParams) (*Publication, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidPublication)
	}
	if params.SchoolID == "" {
		return nil, fmt.Errorf("%w: school id is required", ErrInvalidPublication)
	}
	if params.TeacherID == "" {
		return nil, fmt.Errorf("%w: teacher id is required", ErrInvalidPublication)
	}
	if len(params.CourseInfo) == 0 {
		return nil, ErrNoSubjects
	}

	for subject, position := range params.CourseInfo {
		if !subject.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
		}
		if position.Unit == "" {
			return nil, fmt.Errorf("%w: subject %q", ErrEmptyPosition, subject)
		}
	}

	return &Publication{
		ID:          params.ID,
		SchoolID:    params.SchoolID,
		TeacherID:   params.TeacherID,
		Title:       strings.TrimSpace(params.Title),
		CalendarDay: params.CalendarDay,
		CourseInfo:  params.CourseInfo,
		Templates:   params.Templates,
		PublishedAt: time.Now().UTC(),
	}, nil
}

// Subjects возвращает предметы публикации.
func (p *Publication) Subjects() []Subject {
	subjects := make([]Subject, 0, len(p.CourseInfo))
	for subject := range p.CourseInfo {
		subjects = append(subjects, subject)
	}
	return subjects
}

// String возвращает строковое представление публикации для логирования.
func (p *Publication) String() string {
	return fmt.Sprintf(
		"Publication{ID: %s, Teacher: %s, Day: %s, Subjects: %d, Templates: %d}",
		p.ID, p.TeacherID, p.CalendarDay, len(p.CourseInfo), len(p.Templates),
	)
}
