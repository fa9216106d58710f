package redis

import (
	"context"
	"errors"
	"time"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
)

// ProgressCache implements curriculum.ProgressCache using the generic
// Redis Cache. Resolved progress is expensive to rebuild (two source
// reads plus the merge), so the read path caches it and the publish and
// override event handlers invalidate it.
type ProgressCache struct {
	cache *Cache
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{
		cache: cache,
	}
}

// Get returns the cached resolved progress or nil on miss.
func (p *ProgressCache) Get(ctx context.Context, studentID string) (*curriculum.ResolvedProgress, error) {
	var progress curriculum.ResolvedProgress
	err := p.cache.Get(ctx, ProgressKey(studentID), &progress)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &progress, nil
}

// Set stores the resolved progress.
func (p *ProgressCache) Set(ctx context.Context, progress *curriculum.ResolvedProgress, ttl time.Duration) error {
	if progress == nil {
		return nil
	}
	return p.cache.Set(ctx, ProgressKey(progress.StudentID), progress, ttl)
}

// Invalidate drops a student's cached progress.
func (p *ProgressCache) Invalidate(ctx context.Context, studentID string) error {
	return p.cache.Delete(ctx, ProgressKey(studentID))
}
