package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	for _, name := range []string{
		FeatureCacheProgress,
		FeatureReconcileSettlement,
		FeatureDailySummary,
		FeatureBroadcastTaskSettled,
		FeatureSpecialTargeting,
	} {
		assert.True(t, ff.IsEnabled(name, nil), name)
	}

	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestLoadFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_CACHE_PROGRESS", "false")
	t.Setenv("FEATURE_RECONCILE_SETTLEMENT", "0")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureCacheProgress, nil))
	assert.False(t, ff.IsEnabled(FeatureReconcileSettlement, nil))
	assert.True(t, ff.IsEnabled(FeatureDailySummary, nil))
}

func TestFeatureFlags_EnableDisable(t *testing.T) {
	ff := LoadFeatureFlags()

	require.NoError(t, ff.DisableFeature(FeatureSpecialTargeting))
	assert.False(t, ff.IsEnabled(FeatureSpecialTargeting, nil))

	require.NoError(t, ff.EnableFeature(FeatureSpecialTargeting))
	assert.True(t, ff.IsEnabled(FeatureSpecialTargeting, nil))

	assert.Error(t, ff.EnableFeature("no.such.feature"))
}

func TestFeatureFlags_SchoolOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.DisableFeature(FeatureCacheProgress))

	ff.SetSchoolOverride("school-1", FeatureCacheProgress, true)

	// The override applies only to its school.
	assert.True(t, ff.IsEnabled(FeatureCacheProgress, &FeatureContext{SchoolID: "school-1"}))
	assert.False(t, ff.IsEnabled(FeatureCacheProgress, &FeatureContext{SchoolID: "school-2"}))

	ff.ClearSchoolOverrides("school-1")
	assert.False(t, ff.IsEnabled(FeatureCacheProgress, &FeatureContext{SchoolID: "school-1"}))
}

func TestFeatureFlags_Rollout(t *testing.T) {
	ff := LoadFeatureFlags()

	require.NoError(t, ff.SetRolloutPercent(FeatureDailySummary, 0))
	assert.False(t, ff.IsEnabled(FeatureDailySummary, &FeatureContext{SchoolID: "school-1"}))

	require.NoError(t, ff.SetRolloutPercent(FeatureDailySummary, 100))
	assert.True(t, ff.IsEnabled(FeatureDailySummary, &FeatureContext{SchoolID: "school-1"}))

	// The bucket is consistent: the same school always gets the same answer.
	require.NoError(t, ff.SetRolloutPercent(FeatureDailySummary, 50))
	first := ff.IsEnabled(FeatureDailySummary, &FeatureContext{SchoolID: "school-1"})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureDailySummary, &FeatureContext{SchoolID: "school-1"}))
	}

	assert.Error(t, ff.SetRolloutPercent(FeatureDailySummary, 150))
}
