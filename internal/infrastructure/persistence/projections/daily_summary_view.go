// Package projections implements read models for CQRS pattern.
// Projections are denormalized views optimized for fast reads.
// They are updated asynchronously when domain events occur.
package projections

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY SUMMARY VIEW - Denormalized Read Model
// ══════════════════════════════════════════════════════════════════════════════

// DailySummaryView aggregates reward activity per student per calendar
// day. It is fed by settlement and rollback events and answers "what did
// this student earn today" without touching the ledger tables.
type DailySummaryView struct {
	mu sync.RWMutex

	// entries holds summaries indexed by (student, day) key.
	entries map[string]*DailySummaryEntry

	// byDay groups entry keys by calendar day for day-wide queries.
	byDay map[string][]string

	// lastUpdated is the timestamp of the last update.
	lastUpdated time.Time

	// version is incremented on each update for cache invalidation.
	version int64
}

// DailySummaryEntry is one student's reward activity for one day.
type DailySummaryEntry struct {
	StudentID   string `json:"student_id"`
	CalendarDay string `json:"calendar_day"`

	// Settlement counters.
	TasksSettled    int `json:"tasks_settled"`
	TasksRolledBack int `json:"tasks_rolled_back"`

	// Net amounts: rollbacks subtract what they reverse.
	NetExp    int `json:"net_exp"`
	NetPoints int `json:"net_points"`

	// LevelUps counts level transitions observed during settlements.
	LevelUps int `json:"level_ups"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewDailySummaryView creates a new empty view.
func NewDailySummaryView() *DailySummaryView {
	return &DailySummaryView{
		entries:     make(map[string]*DailySummaryEntry),
		byDay:       make(map[string][]string),
		lastUpdated: time.Now().UTC(),
		version:     1,
	}
}

func summaryKey(studentID, calendarDay string) string {
	return studentID + "|" + calendarDay
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE OPERATIONS (Called on domain events)
// ══════════════════════════════════════════════════════════════════════════════

// RecordSettlement applies one settled task to the summary.
func (v *DailySummaryView) RecordSettlement(studentID, calendarDay string, exp, points int, leveledUp bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry := v.getOrCreate(studentID, calendarDay)
	entry.TasksSettled++
	entry.NetExp += exp
	entry.NetPoints += points
	if leveledUp {
		entry.LevelUps++
	}
	entry.UpdatedAt = time.Now().UTC()

	v.lastUpdated = entry.UpdatedAt
	v.version++
}

// RecordRollback applies a rollback of tasksReset tasks to the summary.
// The amounts are the rollback's aggregate, matching the per-event
// accounting of RebuildFromLedger.
func (v *DailySummaryView) RecordRollback(studentID, calendarDay string, tasksReset, expReversed, pointsReversed int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry := v.getOrCreate(studentID, calendarDay)
	entry.TasksRolledBack += tasksReset
	entry.NetExp -= expReversed
	entry.NetPoints -= pointsReversed
	entry.UpdatedAt = time.Now().UTC()

	v.lastUpdated = entry.UpdatedAt
	v.version++
}

// RebuildFromLedger rebuilds the whole view from ledger events, bucketed
// into calendar days by dayOf. Used at startup and after gaps in the
// event stream.
func (v *DailySummaryView) RebuildFromLedger(events []*reward.Event, dayOf func(time.Time) string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries = make(map[string]*DailySummaryEntry)
	v.byDay = make(map[string][]string)

	for _, event := range events {
		entry := v.getOrCreate(event.StudentID, dayOf(event.OccurredAt))
		switch event.Kind {
		case reward.KindAward:
			entry.TasksSettled++
		case reward.KindRollback:
			entry.TasksRolledBack++
		}
		entry.NetExp += event.ExpDelta
		entry.NetPoints += event.PointsDelta
		entry.UpdatedAt = event.OccurredAt
	}

	v.lastUpdated = time.Now().UTC()
	v.version++
}

// getOrCreate assumes the write lock is held.
func (v *DailySummaryView) getOrCreate(studentID, calendarDay string) *DailySummaryEntry {
	key := summaryKey(studentID, calendarDay)
	if entry, ok := v.entries[key]; ok {
		return entry
	}

	entry := &DailySummaryEntry{
		StudentID:   studentID,
		CalendarDay: calendarDay,
	}
	v.entries[key] = entry
	v.byDay[calendarDay] = append(v.byDay[calendarDay], key)
	return entry
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY OPERATIONS (Fast reads from denormalized data)
// ══════════════════════════════════════════════════════════════════════════════

// GetByStudentDay returns one student's summary for a day.
func (v *DailySummaryView) GetByStudentDay(ctx context.Context, studentID, calendarDay string) (*DailySummaryEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	entry, ok := v.entries[summaryKey(studentID, calendarDay)]
	if !ok {
		return nil, fmt.Errorf("projections: no summary for student %s on %s", studentID, calendarDay)
	}
	return entry.clone(), nil
}

// GetDay returns all summaries for a day sorted by net exp (descending).
func (v *DailySummaryView) GetDay(ctx context.Context, calendarDay string, limit int) ([]*DailySummaryEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := v.byDay[calendarDay]
	result := make([]*DailySummaryEntry, 0, len(keys))
	for _, key := range keys {
		if entry, ok := v.entries[key]; ok {
			result = append(result, entry.clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].NetExp != result[j].NetExp {
			return result[i].NetExp > result[j].NetExp
		}
		return result[i].StudentID < result[j].StudentID
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// GetVersion returns the current version number.
func (v *DailySummaryView) GetVersion() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// GetLastUpdated returns when the view was last updated.
func (v *DailySummaryView) GetLastUpdated() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastUpdated
}

// clone creates a copy of the entry to prevent data races.
func (e *DailySummaryEntry) clone() *DailySummaryEntry {
	if e == nil {
		return nil
	}
	entryCopy := *e
	return &entryCopy
}
