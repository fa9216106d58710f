package inmem

import (
	"context"
	"sort"

	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
)

// StudentRepository implements student.Repository over the shared Store.
type StudentRepository struct {
	store *Store
}

// Create stores a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.students[s.ID]; ok {
		return student.ErrStudentAlreadyExists
	}
	r.store.students[s.ID] = s.Clone()
	return nil
}

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.get(id)
}

// Update replaces a stored student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.get(s.ID); err != nil {
		return err
	}
	r.store.students[s.ID] = s.Clone()
	return nil
}

// Delete soft-deletes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.get(id); err != nil {
		return err
	}
	r.store.deleted[id] = true
	return nil
}

// GetByIDs returns students for the given IDs, skipping missing ones.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*student.Student
	for _, id := range ids {
		if s, err := r.get(id); err == nil {
			result = append(result, s)
		}
	}
	return result, nil
}

// ListActiveByTeacher returns a teacher's active students sorted by name.
func (r *StudentRepository) ListActiveByTeacher(ctx context.Context, schoolID, teacherID string) ([]*student.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*student.Student
	for id, s := range r.store.students {
		if r.store.deleted[id] {
			continue
		}
		if s.SchoolID == schoolID && s.TeacherID == teacherID && s.Status == student.StatusActive {
			result = append(result, s.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ListBySchool returns a school's students with pagination.
func (r *StudentRepository) ListBySchool(ctx context.Context, schoolID string, opts student.ListOptions) ([]*student.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var all []*student.Student
	for id, s := range r.store.students {
		if r.store.deleted[id] || s.SchoolID != schoolID {
			continue
		}
		if !opts.IncludeInactive && s.Status != student.StatusActive {
			continue
		}
		all = append(all, s.Clone())
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if opts.SortDesc {
			a, b = b, a
		}
		switch opts.SortBy {
		case "name":
			return a.Name < b.Name
		case "points":
			return a.Points < b.Points
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.Exp < b.Exp
		}
	})

	if opts.Offset >= len(all) {
		return nil, nil
	}
	end := opts.Offset + opts.Limit
	if opts.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], nil
}

// Count returns the number of students in a school.
func (r *StudentRepository) Count(ctx context.Context, schoolID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for id, s := range r.store.students {
		if !r.store.deleted[id] && s.SchoolID == schoolID {
			count++
		}
	}
	return count, nil
}

// ApplyRewardDelta applies a balance change under the store lock.
func (r *StudentRepository) ApplyRewardDelta(ctx context.Context, id string, expDelta, pointsDelta int) (*student.Student, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return applyDelta(r.store, id, expDelta, pointsDelta)
}

// Exists reports whether a student exists.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.students[id]
	return ok && !r.store.deleted[id], nil
}

// get assumes the lock is held.
func (r *StudentRepository) get(id string) (*student.Student, error) {
	s, ok := r.store.students[id]
	if !ok || r.store.deleted[id] {
		return nil, student.ErrStudentNotFound
	}
	return s.Clone(), nil
}

// applyDelta mutates the stored student directly; the caller holds the
// write lock. Shared with the settlement store.
func applyDelta(store *Store, id string, expDelta, pointsDelta int) (*student.Student, error) {
	s, ok := store.students[id]
	if !ok || store.deleted[id] {
		return nil, student.ErrStudentNotFound
	}
	s.ApplyRewardDelta(expDelta, pointsDelta)
	return s.Clone(), nil
}
