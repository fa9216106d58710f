// Package shared contains common domain types, errors and events that are
// used across all domain packages.
package shared

import (
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// SchoolID represents a unique school (tenant) identifier. Every lesson plan,
// task record and reward policy is scoped to exactly one school.
type SchoolID string

// IsValid checks if the school ID is a valid UUID.
func (s SchoolID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s SchoolID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s SchoolID) IsEmpty() bool {
	return s == ""
}

// NewSchoolID creates a new SchoolID with validation.
func NewSchoolID(id string) (SchoolID, error) {
	sid := SchoolID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewSchoolID", ErrInvalidID, "invalid school ID format")
	}
	return sid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Exp Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// Exp represents experience points earned by a student.
type Exp int

const (
	// Exp boundaries
	MinExp Exp = 0
	MaxExp Exp = 1000000 // 1 million exp cap

	// ExpPerLevel is the linear level step: every 100 exp is one level.
	ExpPerLevel = 100
)

// IsValid checks if the exp value is within valid range.
func (x Exp) IsValid() bool {
	return x >= MinExp && x <= MaxExp
}

// Int returns the underlying int value.
func (x Exp) Int() int {
	return int(x)
}

// Add adds exp and returns the result, clamped to [MinExp, MaxExp].
// A negative amount reverses a prior grant; balances never go below zero.
func (x Exp) Add(amount int) Exp {
	result := Exp(int(x) + amount)
	if result > MaxExp {
		return MaxExp
	}
	if result < MinExp {
		return MinExp
	}
	return result
}

// Level calculates the level from total exp: level = exp/100 + 1.
func (x Exp) Level() Level {
	if x <= 0 {
		return 1
	}
	return Level(int(x)/ExpPerLevel + 1)
}

// ProgressToNextLevel returns percentage progress to the next level (0-100).
func (x Exp) ProgressToNextLevel() int {
	if x < 0 {
		return 0
	}
	return (int(x) % ExpPerLevel) * 100 / ExpPerLevel
}

// NewExp creates a new Exp value with validation.
func NewExp(amount int) (Exp, error) {
	if amount < int(MinExp) {
		return 0, NewDomainError("shared", "NewExp", ErrNegativeValue, "exp cannot be negative")
	}
	if amount > int(MaxExp) {
		return MaxExp, nil // Cap at max
	}
	return Exp(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Points represents spendable reward points. Unlike exp, points do not feed
// the level formula.
type Points int

// IsValid checks if the points value is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// Add adds points and returns the result, floored at zero.
func (p Points) Add(amount int) Points {
	result := Points(int(p) + amount)
	if result < 0 {
		return 0
	}
	return result
}

// NewPoints creates a new Points value with validation.
func NewPoints(amount int) (Points, error) {
	if amount < 0 {
		return 0, NewDomainError("shared", "NewPoints", ErrNegativeValue, "points cannot be negative")
	}
	return Points(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a student's level.
type Level int

const (
	MinLevel Level = 1
)

// IsValid checks if the level is within valid range.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredExp returns the total exp required to reach this level.
func (l Level) RequiredExp() int {
	if l <= 1 {
		return 0
	}
	return (int(l) - 1) * ExpPerLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a half-open time window [From, To). Rollback windows
// use this shape so adjacent windows never double-count a boundary instant.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && t.From.Before(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time falls within [From, To).
func (t TimeRange) Contains(tm time.Time) bool {
	return !tm.Before(t.From) && tm.Before(t.To)
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
