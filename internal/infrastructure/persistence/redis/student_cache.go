package redis

import (
	"context"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
)

// StudentCache implements student.Cache using the generic Redis Cache.
type StudentCache struct {
	cache *Cache
}

// NewStudentCache creates a new StudentCache.
func NewStudentCache(cache *Cache) *StudentCache {
	return &StudentCache{
		cache: cache,
	}
}

// Get gets a student from cache. Returns ErrCacheMiss on miss.
func (s *StudentCache) Get(ctx context.Context, studentID string) (*student.Student, error) {
	var st student.Student
	if err := s.cache.Get(ctx, StudentKey(studentID), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Set sets a student in cache.
func (s *StudentCache) Set(ctx context.Context, st *student.Student, ttl time.Duration) error {
	if st == nil {
		return nil
	}
	return s.cache.Set(ctx, StudentKey(st.ID), st, ttl)
}

// Delete removes a student from cache.
func (s *StudentCache) Delete(ctx context.Context, studentID string) error {
	return s.cache.Delete(ctx, StudentKey(studentID))
}

// Invalidate invalidates all keys for a student.
func (s *StudentCache) Invalidate(ctx context.Context, studentID string) error {
	return s.cache.Delete(ctx, StudentKey(studentID))
}

// InvalidateAll clears the whole student cache.
func (s *StudentCache) InvalidateAll(ctx context.Context) error {
	return s.cache.DeleteByPattern(ctx, PrefixStudent+"*")
}
