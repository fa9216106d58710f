package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLevel(t *testing.T) {
	assert.Equal(t, Level(1), CalculateLevel(0))
	assert.Equal(t, Level(1), CalculateLevel(50))
	assert.Equal(t, Level(1), CalculateLevel(99))
	assert.Equal(t, Level(2), CalculateLevel(100))
	assert.Equal(t, Level(2), CalculateLevel(199))
	assert.Equal(t, Level(3), CalculateLevel(200))
	assert.Equal(t, Level(11), CalculateLevel(1000))

	// Отрицательный Exp не должен давать уровень ниже первого.
	assert.Equal(t, Level(1), CalculateLevel(-10))
}

func TestExp_Add(t *testing.T) {
	assert.Equal(t, Exp(150), Exp(100).Add(50))
	assert.Equal(t, Exp(50), Exp(100).Add(-50))

	// Баланс не опускается ниже нуля.
	assert.Equal(t, Exp(0), Exp(30).Add(-100))
	assert.Equal(t, Exp(0), Exp(0).Add(-1))
}

func TestPoints_Add(t *testing.T) {
	assert.Equal(t, Points(15), Points(10).Add(5))
	assert.Equal(t, Points(0), Points(5).Add(-20))
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusPaused.IsValid())
	assert.True(t, StatusGraduated.IsValid())
	assert.True(t, StatusLeft.IsValid())
	assert.False(t, Status("unknown").IsValid())

	assert.True(t, StatusActive.IsEnrolled())
	assert.True(t, StatusPaused.IsEnrolled())
	assert.False(t, StatusGraduated.IsEnrolled())
	assert.False(t, StatusLeft.IsEnrolled())

	// Задания материализуются только активным ученикам.
	assert.True(t, StatusActive.ReceivesTasks())
	assert.False(t, StatusPaused.ReceivesTasks())
	assert.False(t, StatusGraduated.ReceivesTasks())
}

func TestNewStudent(t *testing.T) {
	s, err := NewStudent(NewStudentParams{
		ID:          "stu-1",
		SchoolID:    "school-1",
		TeacherID:   "teacher-1",
		Name:        "  小明  ",
		EnglishName: " Tom ",
		Grade:       "三年级",
		InitialExp:  120,
	})
	require.NoError(t, err)

	assert.Equal(t, "小明", s.Name)
	assert.Equal(t, "Tom", s.EnglishName)
	assert.Equal(t, Exp(120), s.Exp)
	assert.Equal(t, Points(0), s.Points)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, Level(2), s.Level())
}

func TestNewStudent_Validation(t *testing.T) {
	_, err := NewStudent(NewStudentParams{SchoolID: "s", Name: "n"})
	assert.Error(t, err)

	_, err = NewStudent(NewStudentParams{ID: "id", Name: "n"})
	assert.Error(t, err)

	_, err = NewStudent(NewStudentParams{ID: "id", SchoolID: "s", Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewStudent(NewStudentParams{ID: "id", SchoolID: "s", Name: "n", InitialExp: -1})
	assert.ErrorIs(t, err, ErrInvalidExp)
}

func TestStudent_ApplyRewardDelta(t *testing.T) {
	s := &Student{ID: "stu-1", Exp: 90, Points: 0, Status: StatusActive}

	leveled := s.ApplyRewardDelta(10, 5)
	assert.True(t, leveled)
	assert.Equal(t, Exp(100), s.Exp)
	assert.Equal(t, Points(5), s.Points)
	assert.Equal(t, Level(2), s.Level())

	leveled = s.ApplyRewardDelta(30, 0)
	assert.False(t, leveled)
	assert.Equal(t, Exp(130), s.Exp)

	// Откат уводит обратно на первый уровень.
	leveled = s.ApplyRewardDelta(-40, -5)
	assert.True(t, leveled)
	assert.Equal(t, Exp(90), s.Exp)
	assert.Equal(t, Points(0), s.Points)
}

func TestStudent_MatchesName(t *testing.T) {
	s := &Student{Name: "小明", EnglishName: "Tom"}

	assert.True(t, s.MatchesName("小明"))
	assert.True(t, s.MatchesName("Tom"))
	assert.True(t, s.MatchesName("  小明  "))
	assert.False(t, s.MatchesName("小红"))
	assert.False(t, s.MatchesName(""))

	// Пустое английское имя не должно совпадать с пустым запросом.
	noEnglish := &Student{Name: "小红"}
	assert.False(t, noEnglish.MatchesName("Tom"))
	assert.True(t, noEnglish.MatchesName("小红"))
}

func TestStudent_StatusTransitions(t *testing.T) {
	s := &Student{ID: "stu-1", Status: StatusActive}

	require.NoError(t, s.Pause())
	assert.Equal(t, StatusPaused, s.Status)

	require.NoError(t, s.Resume())
	assert.Equal(t, StatusActive, s.Status)

	require.NoError(t, s.Leave())
	assert.Equal(t, StatusLeft, s.Status)

	assert.ErrorIs(t, s.Pause(), ErrStudentNotEnrolled)
	assert.ErrorIs(t, s.MarkGraduated(), ErrStudentNotEnrolled)
	assert.Error(t, s.Resume())
}

func TestStudent_Clone(t *testing.T) {
	s := &Student{ID: "stu-1", Name: "小明", Exp: 50}

	clone := s.Clone()
	clone.Exp = 999

	assert.Equal(t, Exp(50), s.Exp)
	assert.Nil(t, (*Student)(nil).Clone())
}
