// Package timeutil provides timezone utilities for the school timezone (UTC+8).
// All lesson plans, task records and settlement windows in the curriculum engine
// are keyed to the school calendar day, so "which day a task belongs to" must be
// computed in school time, not in UTC or in the server's local zone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"regexp"
	"time"
)

// SchoolTZ is the school timezone (UTC+8, no DST).
// China abolished DST in 1991, so this is constant year-round.
var SchoolTZ = time.FixedZone("Asia/Shanghai", 8*60*60)

// Now returns the current time in school timezone.
func Now() time.Time {
	return time.Now().In(SchoolTZ)
}

// ToSchool converts a time to school timezone.
func ToSchool(t time.Time) time.Time {
	return t.In(SchoolTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in school timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, SchoolTZ)
}

// DateTime creates a time in school timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, SchoolTZ)
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR DAY KEYS
// ══════════════════════════════════════════════════════════════════════════════

// Day is a school calendar day in "YYYY-MM-DD" form. It is the stable component
// of the task dedup key: two publishes on the same school day land on the same
// Day regardless of the instants they were issued at.
type Day string

var dayRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DayOf returns the school calendar day the given instant falls on.
func DayOf(t time.Time) Day {
	return Day(ToSchool(t).Format("2006-01-02"))
}

// Today returns the current school calendar day.
func Today() Day {
	return DayOf(time.Now())
}

// IsValid reports whether the day is in "YYYY-MM-DD" form.
func (d Day) IsValid() bool {
	if !dayRegex.MatchString(string(d)) {
		return false
	}
	_, err := time.ParseInLocation("2006-01-02", string(d), SchoolTZ)
	return err == nil
}

// String returns the string representation of the day.
func (d Day) String() string {
	return string(d)
}

// Start returns the first instant of the day in school timezone.
func (d Day) Start() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", string(d), SchoolTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid day %q: %w", d, err)
	}
	return t, nil
}

// Bounds returns the half-open interval [start, next day start) of the day.
// Suitable for range queries over timestamp columns.
func (d Day) Bounds() (start, end time.Time, err error) {
	start, err = d.Start()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DAY ARITHMETIC
// ══════════════════════════════════════════════════════════════════════════════

// StartOfDay returns the start of the day (00:00:00) in school timezone.
func StartOfDay(t time.Time) time.Time {
	s := ToSchool(t)
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, SchoolTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in school timezone.
func EndOfDay(t time.Time) time.Time {
	s := ToSchool(t)
	return time.Date(s.Year(), s.Month(), s.Day(), 23, 59, 59, 999999999, SchoolTZ)
}

// SameDay checks if two instants fall on the same school calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a) == DayOf(b)
}

// IsToday checks if the given time is today in school timezone.
func IsToday(t time.Time) bool {
	return SameDay(t, time.Now())
}

// DaysSince calculates the number of school calendar days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	return int(now.Sub(then).Hours() / 24)
}

// FormatDateTime formats a time for human-readable output in school timezone.
func FormatDateTime(t time.Time) string {
	return ToSchool(t).Format("2006-01-02 15:04:05")
}
