package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidCalendarDay(t *testing.T) {
	assert.True(t, IsValidCalendarDay("2026-03-02"))
	assert.True(t, IsValidCalendarDay("1999-12-31"))

	assert.False(t, IsValidCalendarDay("2026-3-2"))
	assert.False(t, IsValidCalendarDay("2026/03/02"))
	assert.False(t, IsValidCalendarDay("02-03-2026"))
	assert.False(t, IsValidCalendarDay(""))
}

func TestDedupKey_String(t *testing.T) {
	key := DedupKey{StudentID: "stu-1", Title: "听写", Type: TypeTask, CalendarDay: "2026-03-02"}
	assert.Equal(t, "stu-1|听写|TASK|2026-03-02", key.String())
}

func newTestRecord(t *testing.T) *Record {
	t.Helper()

	rec, err := NewRecord(NewRecordParams{
		ID:            "task-1",
		SchoolID:      "school-1",
		StudentID:     "stu-1",
		TeacherID:     "teacher-1",
		PublicationID: "pub-1",
		Title:         "听写",
		Type:          TypeTask,
		CalendarDay:   "2026-03-02",
		Content:       Content{Subject: "语文", Unit: "2", Lesson: "1", Block: "核心教学法"},
		RewardExp:     10,
		RewardPoints:  5,
	})
	require.NoError(t, err)
	return rec
}

func TestNewRecord(t *testing.T) {
	rec := newTestRecord(t)

	assert.Equal(t, StatusPending, rec.Status)
	assert.Nil(t, rec.CompletedAt)
	assert.Nil(t, rec.SettledAt)
	assert.False(t, rec.IsCompleted())
	assert.False(t, rec.IsSettled())

	key := rec.DedupKey()
	assert.Equal(t, DedupKey{StudentID: "stu-1", Title: "听写", Type: TypeTask, CalendarDay: "2026-03-02"}, key)
}

func TestNewRecord_Validation(t *testing.T) {
	valid := NewRecordParams{
		ID:          "task-1",
		StudentID:   "stu-1",
		Title:       "听写",
		Type:        TypeTask,
		CalendarDay: "2026-03-02",
	}

	noTitle := valid
	noTitle.Title = "   "
	_, err := NewRecord(noTitle)
	assert.ErrorIs(t, err, ErrInvalidTitle)

	badType := valid
	badType.Type = Type("HOMEWORK")
	_, err = NewRecord(badType)
	assert.ErrorIs(t, err, ErrInvalidType)

	badDay := valid
	badDay.CalendarDay = "03.02.2026"
	_, err = NewRecord(badDay)
	assert.ErrorIs(t, err, ErrInvalidCalendarDay)

	noStudent := valid
	noStudent.StudentID = ""
	_, err = NewRecord(noStudent)
	assert.Error(t, err)
}

func TestRecord_MarkCompleted(t *testing.T) {
	rec := newTestRecord(t)
	at := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	require.NoError(t, rec.MarkCompleted(at))
	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, at, *rec.CompletedAt)
	assert.Equal(t, 1, rec.Attempts)

	assert.ErrorIs(t, rec.MarkCompleted(at), ErrAlreadyCompleted)
	assert.Equal(t, 1, rec.Attempts)
}

func TestRecord_Settle(t *testing.T) {
	rec := newTestRecord(t)
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	// Невыполненное задание рассчитать нельзя.
	assert.ErrorIs(t, rec.Settle(at, 10, 5), ErrNotCompleted)

	require.NoError(t, rec.MarkCompleted(at))
	require.NoError(t, rec.CanSettle())
	require.NoError(t, rec.Settle(at, 10, 5))

	assert.True(t, rec.IsSettled())
	assert.Equal(t, 10, rec.SettledExp)
	assert.Equal(t, 5, rec.SettledPoints)

	// Повторный расчёт невозможен.
	assert.ErrorIs(t, rec.Settle(at, 10, 5), ErrAlreadySettled)
	assert.ErrorIs(t, rec.CanSettle(), ErrAlreadySettled)
}

func TestRecord_ClearSettlement(t *testing.T) {
	rec := newTestRecord(t)
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, rec.ClearSettlement(), ErrNotSettled)

	require.NoError(t, rec.MarkCompleted(at))
	require.NoError(t, rec.Settle(at, 10, 5))
	require.NoError(t, rec.ClearSettlement())

	// Откат возвращает задание в PENDING: награду нужно заработать заново.
	assert.Equal(t, StatusPending, rec.Status)
	assert.Nil(t, rec.CompletedAt)
	assert.Nil(t, rec.SettledAt)
	assert.Zero(t, rec.SettledExp)
	assert.Zero(t, rec.SettledPoints)

	assert.ErrorIs(t, rec.ClearSettlement(), ErrNotSettled)
}

func TestRecord_Clone(t *testing.T) {
	rec := newTestRecord(t)
	require.NoError(t, rec.MarkCompleted(time.Now().UTC()))

	clone := rec.Clone()
	clone.Status = StatusPending
	*clone.CompletedAt = time.Time{}

	assert.Equal(t, StatusCompleted, rec.Status)
	assert.False(t, rec.CompletedAt.IsZero())
	assert.Nil(t, (*Record)(nil).Clone())
}
