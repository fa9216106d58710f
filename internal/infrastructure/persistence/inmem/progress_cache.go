package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
)

// ProgressCache implements curriculum.ProgressCache in memory with TTL
// expiry checked on read.
type ProgressCache struct {
	mu      sync.RWMutex
	entries map[string]progressCacheEntry
}

type progressCacheEntry struct {
	progress  *curriculum.ResolvedProgress
	expiresAt time.Time
}

// NewProgressCache creates an empty ProgressCache.
func NewProgressCache() *ProgressCache {
	return &ProgressCache{entries: make(map[string]progressCacheEntry)}
}

// Get returns the cached progress or nil on miss.
func (c *ProgressCache) Get(ctx context.Context, studentID string) (*curriculum.ResolvedProgress, error) {
	c.mu.RLock()
	entry, ok := c.entries[studentID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.progress, nil
}

// Set stores the resolved progress.
func (c *ProgressCache) Set(ctx context.Context, progress *curriculum.ResolvedProgress, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[progress.StudentID] = progressCacheEntry{
		progress:  progress,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate drops a student's cached progress.
func (c *ProgressCache) Invalidate(ctx context.Context, studentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, studentID)
	return nil
}
