package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
)

// PolicyRepository implements reward.PolicyRepository over the shared
// Store.
type PolicyRepository struct {
	store *Store
}

// Upsert creates or replaces a policy by its lookup key.
func (r *PolicyRepository) Upsert(ctx context.Context, entry *reward.PolicyEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *entry
	r.store.policies[policyKey(entry.SchoolID, entry.Module, entry.Category, entry.Action)] = &copied
	return nil
}

// Resolve finds the active policy for a settlement, falling back from
// the exact key to the category wildcard.
func (r *PolicyRepository) Resolve(ctx context.Context, schoolID string, module reward.Module, category, action string) (*reward.PolicyEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if entry, ok := r.store.policies[policyKey(schoolID, module, category, action)]; ok && entry.IsActive {
		copied := *entry
		return &copied, nil
	}
	if category != "" {
		if entry, ok := r.store.policies[policyKey(schoolID, module, "", action)]; ok && entry.IsActive {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, reward.ErrPolicyNotFound
}

// ListBySchool returns all policies for a school.
func (r *PolicyRepository) ListBySchool(ctx context.Context, schoolID string) ([]*reward.PolicyEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entries []*reward.PolicyEntry
	for _, entry := range r.store.policies {
		if entry.SchoolID == schoolID {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Module != entries[j].Module {
			return entries[i].Module < entries[j].Module
		}
		return entries[i].Action < entries[j].Action
	})
	return entries, nil
}

// Seed installs the default policies without touching existing ones.
func (r *PolicyRepository) Seed(ctx context.Context, schoolID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, entry := range reward.DefaultPolicies(schoolID) {
		key := policyKey(entry.SchoolID, entry.Module, entry.Category, entry.Action)
		if _, ok := r.store.policies[key]; ok {
			continue
		}
		copied := *entry
		r.store.policies[key] = &copied
	}
	return nil
}

// EventRepository implements reward.EventRepository over the shared
// Store. The slice is append-only.
type EventRepository struct {
	store *Store
}

// Append writes a ledger entry.
func (r *EventRepository) Append(ctx context.Context, event *reward.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	appendEvent(r.store, event)
	return nil
}

// appendEvent assumes the write lock is held. Shared with the
// settlement store.
func appendEvent(store *Store, event *reward.Event) {
	copied := *event
	store.events = append(store.events, &copied)
}

// ListByStudent returns a student's ledger entries in [from, to).
func (r *EventRepository) ListByStudent(ctx context.Context, studentID string, from, to time.Time) ([]*reward.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*reward.Event
	for _, event := range r.store.events {
		if event.StudentID != studentID {
			continue
		}
		if !event.OccurredAt.Before(from) && event.OccurredAt.Before(to) {
			copied := *event
			result = append(result, &copied)
		}
	}
	return result, nil
}

// ListByTask returns the ledger entries tied to one task.
func (r *EventRepository) ListByTask(ctx context.Context, taskID string) ([]*reward.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*reward.Event
	for _, event := range r.store.events {
		if event.TaskID == taskID {
			copied := *event
			result = append(result, &copied)
		}
	}
	return result, nil
}

// SumByStudent returns the net signed totals over a student's ledger.
func (r *EventRepository) SumByStudent(ctx context.Context, studentID string) (int, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	expSum, pointsSum := 0, 0
	for _, event := range r.store.events {
		if event.StudentID == studentID {
			expSum += event.ExpDelta
			pointsSum += event.PointsDelta
		}
	}
	return expSum, pointsSum, nil
}
