package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
)

// StudentCache implements student.Cache in memory with TTL expiry
// checked on read. Used when Redis is disabled.
type StudentCache struct {
	mu      sync.RWMutex
	entries map[string]studentCacheEntry
}

type studentCacheEntry struct {
	student   *student.Student
	expiresAt time.Time
}

// NewStudentCache creates an empty StudentCache.
func NewStudentCache() *StudentCache {
	return &StudentCache{entries: make(map[string]studentCacheEntry)}
}

// Get returns the cached student or ErrStudentNotFound on miss.
func (c *StudentCache) Get(ctx context.Context, studentID string) (*student.Student, error) {
	c.mu.RLock()
	entry, ok := c.entries[studentID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, student.ErrStudentNotFound
	}
	return entry.student, nil
}

// Set stores the student.
func (c *StudentCache) Set(ctx context.Context, st *student.Student, ttl time.Duration) error {
	if st == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[st.ID] = studentCacheEntry{
		student:   st,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a student from the cache.
func (c *StudentCache) Delete(ctx context.Context, studentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, studentID)
	return nil
}

// Invalidate drops all entries for a student.
func (c *StudentCache) Invalidate(ctx context.Context, studentID string) error {
	return c.Delete(ctx, studentID)
}

// InvalidateAll clears the whole cache.
func (c *StudentCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]studentCacheEntry)
	return nil
}
