package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

// TaskRepository implements task.Repository over the shared Store.
type TaskRepository struct {
	store *Store
}

// Upsert inserts a record by its dedup key. Existing records keep their
// status, attempts and settlement; only content and reward refresh.
func (r *TaskRepository) Upsert(ctx context.Context, record *task.Record) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := record.DedupKey().String()
	if existingID, ok := r.store.tasksByKey[key]; ok {
		existing := r.store.tasks[existingID]
		existing.Content = record.Content
		existing.RewardExp = record.RewardExp
		existing.RewardPoints = record.RewardPoints
		existing.UpdatedAt = time.Now().UTC()
		return false, nil
	}

	r.store.tasks[record.ID] = record.Clone()
	r.store.tasksByKey[key] = record.ID
	return true, nil
}

// GetByID returns a record by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*task.Record, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return rec.Clone(), nil
}

// ListByStudentDay returns a student's records for a calendar day.
func (r *TaskRepository) ListByStudentDay(ctx context.Context, studentID, calendarDay string) ([]*task.Record, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*task.Record
	for _, rec := range r.store.tasks {
		if rec.StudentID == studentID && rec.CalendarDay == calendarDay {
			result = append(result, rec.Clone())
		}
	}
	sortByCreated(result)
	return result, nil
}

// ListByPublication returns the records materialized from a publication.
func (r *TaskRepository) ListByPublication(ctx context.Context, publicationID string) ([]*task.Record, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*task.Record
	for _, rec := range r.store.tasks {
		if rec.PublicationID == publicationID {
			result = append(result, rec.Clone())
		}
	}
	sortByCreated(result)
	return result, nil
}

// ListSettledInWindow returns settled records with SettledAt in [from, to).
func (r *TaskRepository) ListSettledInWindow(ctx context.Context, studentID string, from, to time.Time) ([]*task.Record, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*task.Record
	for _, rec := range r.store.tasks {
		if rec.StudentID != studentID || rec.SettledAt == nil {
			continue
		}
		at := *rec.SettledAt
		if !at.Before(from) && at.Before(to) {
			result = append(result, rec.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SettledAt.Before(*result[j].SettledAt)
	})
	return result, nil
}

// ListCompletedUnsettled returns completed-but-unsettled records older
// than the threshold.
func (r *TaskRepository) ListCompletedUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]*task.Record, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*task.Record
	for _, rec := range r.store.tasks {
		if rec.Status != task.StatusCompleted || rec.SettledAt != nil {
			continue
		}
		if rec.CompletedAt != nil && rec.CompletedAt.Before(olderThan) {
			result = append(result, rec.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt.Before(*result[j].CompletedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkCompleted transitions a record to COMPLETED.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	return rec.MarkCompleted(at)
}

// MarkSettled is the settlement compare-and-set.
func (r *TaskRepository) MarkSettled(ctx context.Context, id string, at time.Time, exp, points int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return settleTask(r.store, id, at, exp, points)
}

// ClearSettlement is the rollback compare-and-set.
func (r *TaskRepository) ClearSettlement(ctx context.Context, id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	won, _, _, _, _, err := clearTaskSettlement(r.store, id)
	return won, err
}

// CountByStudentDay returns the number of a student's records for a day.
func (r *TaskRepository) CountByStudentDay(ctx context.Context, studentID, calendarDay string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, rec := range r.store.tasks {
		if rec.StudentID == studentID && rec.CalendarDay == calendarDay {
			count++
		}
	}
	return count, nil
}

// settleTask mutates the stored record; the caller holds the write lock.
// Shared with the settlement store.
func settleTask(store *Store, id string, at time.Time, exp, points int) (bool, error) {
	rec, ok := store.tasks[id]
	if !ok {
		return false, task.ErrTaskNotFound
	}
	if rec.Status != task.StatusCompleted || rec.SettledAt != nil {
		return false, nil
	}
	if err := rec.Settle(at, exp, points); err != nil {
		return false, err
	}
	return true, nil
}

// clearTaskSettlement resets the settlement marker and returns what had
// been granted; the caller holds the write lock.
func clearTaskSettlement(store *Store, id string) (won bool, schoolID, studentID string, exp, points int, err error) {
	rec, ok := store.tasks[id]
	if !ok {
		return false, "", "", 0, 0, task.ErrTaskNotFound
	}
	if rec.SettledAt == nil {
		return false, "", "", 0, 0, nil
	}
	exp = rec.SettledExp
	points = rec.SettledPoints
	if err := rec.ClearSettlement(); err != nil {
		return false, "", "", 0, 0, err
	}
	return true, rec.SchoolID, rec.StudentID, exp, points, nil
}

func sortByCreated(records []*task.Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
