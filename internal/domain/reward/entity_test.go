package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleForBlock(t *testing.T) {
	assert.Equal(t, ModuleProgress, ModuleForBlock("QC"))
	assert.Equal(t, ModuleMethodology, ModuleForBlock("核心教学法"))
	assert.Equal(t, ModulePersonalized, ModuleForBlock("定制加餐"))

	// Всё остальное попадает в общий модуль заданий.
	assert.Equal(t, ModuleTask, ModuleForBlock("作业"))
	assert.Equal(t, ModuleTask, ModuleForBlock(""))
}

func TestModule_IsValid(t *testing.T) {
	assert.True(t, ModuleProgress.IsValid())
	assert.True(t, ModuleTask.IsValid())
	assert.False(t, Module("BONUS").IsValid())
}

func TestKind_IsValid(t *testing.T) {
	assert.True(t, KindAward.IsValid())
	assert.True(t, KindRollback.IsValid())
	assert.False(t, Kind("transfer").IsValid())
}

func TestPolicyEntry_Matches(t *testing.T) {
	entry := &PolicyEntry{
		SchoolID: "school-1",
		Module:   ModuleProgress,
		Category: "",
		Action:   "语文过关",
		IsActive: true,
	}

	// Пустая Category совпадает с любой.
	assert.True(t, entry.Matches(ModuleProgress, "QC", "语文过关"))
	assert.True(t, entry.Matches(ModuleProgress, "", "语文过关"))

	assert.False(t, entry.Matches(ModuleTask, "QC", "语文过关"))
	assert.False(t, entry.Matches(ModuleProgress, "QC", "数学过关"))

	entry.Category = "QC"
	assert.True(t, entry.Matches(ModuleProgress, "QC", "语文过关"))
	assert.False(t, entry.Matches(ModuleProgress, "核心教学法", "语文过关"))

	entry.IsActive = false
	assert.False(t, entry.Matches(ModuleProgress, "QC", "语文过关"))
}

func TestDefaultPolicies(t *testing.T) {
	policies := DefaultPolicies("school-1")
	require.Len(t, policies, 3)

	actions := make([]string, 0, len(policies))
	for _, p := range policies {
		assert.Equal(t, "school-1", p.SchoolID)
		assert.Equal(t, ModuleProgress, p.Module)
		assert.True(t, p.IsActive)
		assert.Equal(t, 10, p.ExpReward)
		assert.Equal(t, 5, p.PointsReward)
		actions = append(actions, p.Action)
	}
	assert.ElementsMatch(t, []string{"语文过关", "数学过关", "英语过关"}, actions)
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

	event, err := NewEvent(NewEventParams{
		ID:          "evt-1",
		SchoolID:    "school-1",
		StudentID:   "stu-1",
		TaskID:      "task-1",
		Kind:        KindRollback,
		ExpDelta:    -10,
		PointsDelta: -5,
		OccurredAt:  at,
	})
	require.NoError(t, err)

	assert.Equal(t, KindRollback, event.Kind)
	assert.Equal(t, -10, event.ExpDelta)
	assert.Equal(t, -5, event.PointsDelta)
	assert.Equal(t, at, event.OccurredAt)
}

func TestNewEvent_Validation(t *testing.T) {
	_, err := NewEvent(NewEventParams{StudentID: "stu-1", Kind: KindAward})
	assert.Error(t, err)

	_, err = NewEvent(NewEventParams{ID: "evt-1", Kind: KindAward})
	assert.Error(t, err)

	_, err = NewEvent(NewEventParams{ID: "evt-1", StudentID: "stu-1", Kind: Kind("transfer")})
	assert.ErrorIs(t, err, ErrInvalidKind)

	// Нулевое время заменяется текущим.
	event, err := NewEvent(NewEventParams{ID: "evt-1", StudentID: "stu-1", Kind: KindAward})
	require.NoError(t, err)
	assert.False(t, event.OccurredAt.IsZero())
}
