package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollout.
// Rollout buckets are assigned per school so a tenant sees consistent
// behavior across all of its teachers and students.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	schoolOverrides map[string]map[string]bool // schoolID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Schools are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	SchoolID string // Tenant ID
	IsAdmin  bool   // Is admin caller
}

// Predefined feature flag names.
const (
	// === Cache Features ===
	FeatureCacheProgress = "cache.progress" // Redis read-through cache for resolved progress

	// === Settlement Features ===
	FeatureReconcileSettlement = "reconcile.settlement" // Background re-settle of stuck tasks
	FeatureDailySummary        = "ledger.daily_summary" // Daily reward summary projection

	// === Broadcast Features ===
	FeatureBroadcastTaskSettled = "broadcast.task_settled" // Live balance-update events
	FeatureBroadcastLevelUp     = "broadcast.level_up"     // Level-up celebration events
	FeatureBroadcastPublish     = "broadcast.plan_published"

	// === Materializer Features ===
	FeatureSpecialTargeting = "materialize.special_targeting" // Per-name SPECIAL task filtering
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:        make(map[string]*Feature),
		schoolOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureCacheProgress] = &Feature{
		Name:           FeatureCacheProgress,
		Description:    "Cache resolved progress in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureReconcileSettlement] = &Feature{
		Name:           FeatureReconcileSettlement,
		Description:    "Re-settle completed tasks whose reward write was lost",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDailySummary] = &Feature{
		Name:           FeatureDailySummary,
		Description:    "Daily reward summary projection for reporting",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBroadcastTaskSettled] = &Feature{
		Name:           FeatureBroadcastTaskSettled,
		Description:    "Publish reward.task_settled events",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBroadcastLevelUp] = &Feature{
		Name:           FeatureBroadcastLevelUp,
		Description:    "Publish student.level_up events",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBroadcastPublish] = &Feature{
		Name:           FeatureBroadcastPublish,
		Description:    "Publish curriculum.plan_published events",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSpecialTargeting] = &Feature{
		Name:           FeatureSpecialTargeting,
		Description:    "Materialize SPECIAL templates only for targeted students",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_CACHE_PROGRESS=true
// Example: FEATURE_RECONCILE_SETTLEMENT=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "cache.progress" -> "FEATURE_CACHE_PROGRESS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check school overrides first
	if ctx != nil && ctx.SchoolID != "" {
		if overrides, ok := ff.schoolOverrides[ctx.SchoolID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin callers get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.SchoolID != "" {
		return ff.isInRollout(ctx.SchoolID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a school is in the rollout percentage.
// Uses consistent hashing so schools stay in their bucket.
func (ff *FeatureFlags) isInRollout(schoolID, featureName string, percent int) bool {
	// Create a consistent hash for this school+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(schoolID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetSchoolOverride sets a feature override for a specific school.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetSchoolOverride(schoolID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.schoolOverrides[schoolID]; !ok {
		ff.schoolOverrides[schoolID] = make(map[string]bool)
	}
	ff.schoolOverrides[schoolID][featureName] = enabled
}

// ClearSchoolOverrides removes all overrides for a school.
func (ff *FeatureFlags) ClearSchoolOverrides(schoolID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.schoolOverrides, schoolID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// BroadcastEnabled checks if any broadcast events are enabled.
func (ff *FeatureFlags) BroadcastEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureBroadcastTaskSettled, ctx) ||
		ff.IsEnabled(FeatureBroadcastLevelUp, ctx) ||
		ff.IsEnabled(FeatureBroadcastPublish, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
