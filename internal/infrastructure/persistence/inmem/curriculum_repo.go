package inmem

import (
	"context"
	"sort"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
)

// PublicationRepository implements curriculum.PublicationRepository over
// the shared Store.
type PublicationRepository struct {
	store *Store
}

// Create persists a publication.
func (r *PublicationRepository) Create(ctx context.Context, pub *curriculum.Publication) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.publications[pub.ID]; ok {
		return curriculum.ErrInvalidPublication
	}
	r.store.publications[pub.ID] = clonePublication(pub)
	return nil
}

// GetByID returns a publication by ID.
func (r *PublicationRepository) GetByID(ctx context.Context, id string) (*curriculum.Publication, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	pub, ok := r.store.publications[id]
	if !ok {
		return nil, curriculum.ErrPublicationNotFound
	}
	return clonePublication(pub), nil
}

// ListByTeacherDay returns a teacher's publications for a calendar day,
// oldest first.
func (r *PublicationRepository) ListByTeacherDay(ctx context.Context, schoolID, teacherID, calendarDay string) ([]*curriculum.Publication, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*curriculum.Publication
	for _, pub := range r.store.publications {
		if pub.SchoolID == schoolID && pub.TeacherID == teacherID && pub.CalendarDay == calendarDay {
			result = append(result, clonePublication(pub))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PublishedAt.Before(result[j].PublishedAt)
	})
	return result, nil
}

func clonePublication(pub *curriculum.Publication) *curriculum.Publication {
	clone := *pub
	clone.CourseInfo = make(map[curriculum.Subject]curriculum.Position, len(pub.CourseInfo))
	for subject, pos := range pub.CourseInfo {
		clone.CourseInfo[subject] = pos
	}
	clone.Templates = append([]curriculum.TaskTemplate(nil), pub.Templates...)
	return &clone
}

// ProgressRepository implements curriculum.ProgressRepository over the
// shared Store.
type ProgressRepository struct {
	store *Store
}

// UpsertSnapshot writes the lesson-plan layer for one subject.
func (r *ProgressRepository) UpsertSnapshot(ctx context.Context, snap *curriculum.Snapshot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bySubject, ok := r.store.snapshots[snap.StudentID]
	if !ok {
		bySubject = make(map[curriculum.Subject]*curriculum.Snapshot)
		r.store.snapshots[snap.StudentID] = bySubject
	}
	copied := *snap
	bySubject[snap.Subject] = &copied
	return nil
}

// GetSnapshots returns a student's lesson-plan layer keyed by subject.
func (r *ProgressRepository) GetSnapshots(ctx context.Context, studentID string) (map[curriculum.Subject]*curriculum.Snapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make(map[curriculum.Subject]*curriculum.Snapshot)
	for subject, snap := range r.store.snapshots[studentID] {
		copied := *snap
		result[subject] = &copied
	}
	return result, nil
}

// UpsertOverride writes the manual layer for one subject.
func (r *ProgressRepository) UpsertOverride(ctx context.Context, ov *curriculum.Override) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bySubject, ok := r.store.overrides[ov.StudentID]
	if !ok {
		bySubject = make(map[curriculum.Subject]*curriculum.Override)
		r.store.overrides[ov.StudentID] = bySubject
	}
	copied := *ov
	bySubject[ov.Subject] = &copied
	return nil
}

// GetOverrides returns a student's manual layer keyed by subject.
func (r *ProgressRepository) GetOverrides(ctx context.Context, studentID string) (map[curriculum.Subject]*curriculum.Override, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make(map[curriculum.Subject]*curriculum.Override)
	for subject, ov := range r.store.overrides[studentID] {
		copied := *ov
		result[subject] = &copied
	}
	return result, nil
}

// DeleteOverride removes the manual layer for one subject.
func (r *ProgressRepository) DeleteOverride(ctx context.Context, studentID string, subject curriculum.Subject) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.overrides[studentID], subject)
	return nil
}
