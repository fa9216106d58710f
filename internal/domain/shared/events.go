// Package shared contains common domain types, errors and events that are
// used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. These are the broadcast contract for the notification
// layer: every change a connected client cares about is published as one of
// these events.
const (
	// Curriculum events
	EventPlanPublished      EventType = "curriculum.plan_published"
	EventProgressOverridden EventType = "curriculum.progress_overridden"

	// Task events
	EventTaskCompleted EventType = "task.completed"

	// Reward events
	EventTaskSettled       EventType = "reward.task_settled"
	EventRewardsRolledBack EventType = "reward.rolled_back"

	// Student events
	EventLevelUp EventType = "student.level_up"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Curriculum Events
// ═══════════════════════════════════════════════════════════════════════════

// PlanPublishedEvent is emitted when a lesson plan publication has been
// materialized into per-student task records.
type PlanPublishedEvent struct {
	BaseEvent
	SchoolID         string   `json:"school_id"`
	TeacherID        string   `json:"teacher_id"`
	Day              string   `json:"day"`
	StudentsAffected int      `json:"students_affected"`
	TasksCreated     int      `json:"tasks_created"`
	TasksSkipped     int      `json:"tasks_skipped"`
	StudentIDs       []string `json:"student_ids"`
}

// Payload implements Event interface.
func (e PlanPublishedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"school_id":         e.SchoolID,
		"teacher_id":        e.TeacherID,
		"day":               e.Day,
		"students_affected": e.StudentsAffected,
		"tasks_created":     e.TasksCreated,
		"tasks_skipped":     e.TasksSkipped,
		"student_ids":       e.StudentIDs,
	}
}

// NewPlanPublishedEvent creates a new PlanPublishedEvent.
func NewPlanPublishedEvent(publicationID, schoolID, teacherID, day string, affected, created, skipped int, studentIDs []string) PlanPublishedEvent {
	return PlanPublishedEvent{
		BaseEvent:        NewBaseEvent(EventPlanPublished, publicationID),
		SchoolID:         schoolID,
		TeacherID:        teacherID,
		Day:              day,
		StudentsAffected: affected,
		TasksCreated:     created,
		TasksSkipped:     skipped,
		StudentIDs:       studentIDs,
	}
}

// ProgressOverriddenEvent is emitted when a student-specific curriculum
// position patch is written.
type ProgressOverriddenEvent struct {
	BaseEvent
	StudentID string   `json:"student_id"`
	Subjects  []string `json:"subjects"`
}

// Payload implements Event interface.
func (e ProgressOverriddenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"subjects":   e.Subjects,
	}
}

// NewProgressOverriddenEvent creates a new ProgressOverriddenEvent.
func NewProgressOverriddenEvent(studentID string, subjects []string) ProgressOverriddenEvent {
	return ProgressOverriddenEvent{
		BaseEvent: NewBaseEvent(EventProgressOverridden, studentID),
		StudentID: studentID,
		Subjects:  subjects,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Task Events
// ═══════════════════════════════════════════════════════════════════════════

// TaskCompletedEvent is emitted when a task record transitions to COMPLETED.
type TaskCompletedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
}

// Payload implements Event interface.
func (e TaskCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"task_id":    e.TaskID,
		"title":      e.Title,
	}
}

// NewTaskCompletedEvent creates a new TaskCompletedEvent.
func NewTaskCompletedEvent(studentID, taskID, title string) TaskCompletedEvent {
	return TaskCompletedEvent{
		BaseEvent: NewBaseEvent(EventTaskCompleted, studentID),
		StudentID: studentID,
		TaskID:    taskID,
		Title:     title,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// TaskSettledEvent is emitted when a completed task pays out its reward.
// Consumed by the broadcast layer for live balance updates.
type TaskSettledEvent struct {
	BaseEvent
	StudentID     string `json:"student_id"`
	TaskID        string `json:"task_id"`
	ExpGranted    int    `json:"exp_granted"`
	PointsGranted int    `json:"points_granted"`
	NewExpTotal   int    `json:"new_exp_total"`
}

// Payload implements Event interface.
func (e TaskSettledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"task_id":        e.TaskID,
		"exp_granted":    e.ExpGranted,
		"points_granted": e.PointsGranted,
		"new_exp_total":  e.NewExpTotal,
	}
}

// NewTaskSettledEvent creates a new TaskSettledEvent.
func NewTaskSettledEvent(studentID, taskID string, exp, points, newExpTotal int) TaskSettledEvent {
	return TaskSettledEvent{
		BaseEvent:     NewBaseEvent(EventTaskSettled, studentID),
		StudentID:     studentID,
		TaskID:        taskID,
		ExpGranted:    exp,
		PointsGranted: points,
		NewExpTotal:   newExpTotal,
	}
}

// RewardsRolledBackEvent is emitted when settled rewards are reversed
// for a time window.
type RewardsRolledBackEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	TasksReset     int    `json:"tasks_reset"`
	ExpReversed    int    `json:"exp_reversed"`
	PointsReversed int    `json:"points_reversed"`
}

// Payload implements Event interface.
func (e RewardsRolledBackEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":      e.StudentID,
		"tasks_reset":     e.TasksReset,
		"exp_reversed":    e.ExpReversed,
		"points_reversed": e.PointsReversed,
	}
}

// NewRewardsRolledBackEvent creates a new RewardsRolledBackEvent.
func NewRewardsRolledBackEvent(studentID string, tasksReset, expReversed, pointsReversed int) RewardsRolledBackEvent {
	return RewardsRolledBackEvent{
		BaseEvent:      NewBaseEvent(EventRewardsRolledBack, studentID),
		StudentID:      studentID,
		TasksReset:     tasksReset,
		ExpReversed:    expReversed,
		PointsReversed: pointsReversed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a settlement pushes a student past a level
// boundary.
type LevelUpEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(studentID string, oldLevel, newLevel int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, studentID),
		StudentID: studentID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Infrastructure Contracts
// ═══════════════════════════════════════════════════════════════════════════

// SerializedEvent is the wire form of an event for cross-process transports.
type SerializedEvent struct {
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
