package curriculum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibrary_Title(t *testing.T) {
	lib := NewLibrary()

	assert.Equal(t, "天地人", lib.Title(LookupParams{
		Subject: SubjectChinese, Unit: "1", Lesson: "1",
	}))

	// Lesson по умолчанию - первый урок юнита.
	assert.Equal(t, "天地人", lib.Title(LookupParams{
		Subject: SubjectChinese, Unit: "1",
	}))

	assert.Empty(t, lib.Title(LookupParams{
		Subject: SubjectChinese, Unit: "99", Lesson: "1",
	}))
}

func TestLibrary_LessonData(t *testing.T) {
	lib := NewLibrary()

	item := lib.LessonData(LookupParams{
		Subject: SubjectChinese, Unit: "1", Lesson: "1",
	})
	require.NotNil(t, item)
	require.NotNil(t, item.Pedagogy)
	assert.Equal(t, "情境识字法", item.Pedagogy.Methodology.Name)
	assert.NotEmpty(t, item.Pedagogy.Highlights)

	assert.Nil(t, lib.LessonData(LookupParams{Subject: SubjectMath, Unit: "1"}))
}

func TestLibrary_Syllabus(t *testing.T) {
	lib := NewLibrary()

	lessons := lib.Syllabus(SyllabusParams{Subject: SubjectChinese, Grade: "1"})
	require.Len(t, lessons, 5)
	assert.Equal(t, "天地人", lessons[0].Title)
	assert.Equal(t, "对韵歌", lessons[4].Title)

	second := lib.Syllabus(SyllabusParams{Subject: SubjectChinese})
	require.Len(t, second, 3)
	assert.Equal(t, "小蝌蚪找妈妈", second[0].Title)

	assert.Empty(t, lib.Syllabus(SyllabusParams{Subject: SubjectEnglish}))
}

func TestLibrary_BackfillTitle(t *testing.T) {
	lib := NewLibrary()

	filled := lib.BackfillTitle(SubjectChinese, Position{Unit: "1", Lesson: "2"})
	assert.Equal(t, "金木水火土", filled.Title)

	// Уже заданное название не перезаписывается.
	kept := lib.BackfillTitle(SubjectChinese, Position{Unit: "1", Lesson: "2", Title: "自定义"})
	assert.Equal(t, "自定义", kept.Title)

	// Неизвестная позиция остаётся без названия.
	missing := lib.BackfillTitle(SubjectChinese, Position{Unit: "42", Lesson: "1"})
	assert.Empty(t, missing.Title)
}
