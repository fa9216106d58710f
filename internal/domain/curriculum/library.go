package curriculum

import (
	"sort"
	"strconv"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDARD CURRICULUM LIBRARY
// Встроенный индекс стандартной программы (人教版). Используется для
// дозаполнения названий курсов при публикации и персональных правках.
// ══════════════════════════════════════════════════════════════════════════════

// Methodology описывает основной метод обучения урока.
type Methodology struct {
	// Name - название метода ("情境识字法", "韵文朗读训练", ...).
	Name string

	// Description - цель метода для родительского кабинета.
	Description string
}

// Pedagogy - методическая карта урока.
type Pedagogy struct {
	// Highlights - учебные акценты урока.
	Highlights []string

	// Difficulties - трудные места урока.
	Difficulties []string

	// Methodology - основной метод обучения.
	Methodology Methodology
}

// LibraryItem - запись стандартной библиотеки программ.
type LibraryItem struct {
	Version  string
	Subject  Subject
	Grade    string
	Semester string
	Unit     string
	Lesson   string
	Title    string

	// Pedagogy - методическая карта (есть не у всех уроков).
	Pedagogy *Pedagogy
}

// DefaultVersion - версия программы по умолчанию.
const DefaultVersion = "人教版"

// libraryData - встроенный индекс 2025 新版人教版.
var libraryData = []LibraryItem{
	// 语文 一年级 上册
	{
		Version: DefaultVersion, Subject: SubjectChinese, Grade: "1", Semester: "上", Unit: "1", Lesson: "1", Title: "天地人",
		Pedagogy: &Pedagogy{
			Highlights:   []string{"认识“天、地、人”等6个生字", "理解人与自然的关系"},
			Difficulties: []string{"区分“地”与“他”的字形", "初步建立识字兴趣"},
			Methodology: Methodology{
				Name:        "情境识字法",
				Description: "通过联想自然图景，让孩子在无压力环境下快速建立汉字与实物的联系，培养初步的观察力。",
			},
		},
	},
	{
		Version: DefaultVersion, Subject: SubjectChinese, Grade: "1", Semester: "上", Unit: "1", Lesson: "2", Title: "金木水火土",
		Pedagogy: &Pedagogy{
			Highlights:   []string{"认识五行对应的生字", "背诵课文内容"},
			Difficulties: []string{"理解五行元素的朴素概念", "字音的准确性"},
			Methodology: Methodology{
				Name:        "韵文朗读训练",
				Description: "利用汉语韵律感，训练孩子的节奏捕捉能力和快速记忆力，为后续语感打下基础。",
			},
		},
	},
	{Version: DefaultVersion, Subject: SubjectChinese, Grade: "1", Semester: "上", Unit: "1", Lesson: "3", Title: "口耳目"},
	{Version: DefaultVersion, Subject: SubjectChinese, Grade: "1", Semester: "上", Unit: "1", Lesson: "4", Title: "日月水火"},
	{Version: DefaultVersion, Subject: SubjectChinese, Grade: "1", Semester: "上", Unit: "1", Lesson: "5", Title: "对韵歌"},

	// 语文 二年级 上册
	{
		Version: DefaultVersion, Subject: SubjectChinese, Grade: "2", Semester: "上", Unit: "1", Lesson: "1", Title: "小蝌蚪找妈妈",
		Pedagogy: &Pedagogy{
			Highlights:   []string{"分角色朗读课文", "理解科学常识"},
			Difficulties: []string{"动词“迎、追、游”的区别", "按顺序描述变化"},
			Methodology: Methodology{
				Name:        "交互式阅读",
				Description: "通过角色扮演，锻炼孩子的同理心和口语表达的逻辑连贯性。",
			},
		},
	},
	{Version: DefaultVersion, Subject: SubjectChinese, Grade: "2", Semester: "上", Unit: "1", Lesson: "2", Title: "我是什么"},
	{Version: DefaultVersion, Subject: SubjectChinese, Grade: "2", Semester: "上", Unit: "1", Lesson: "3", Title: "植物妈妈有办法"},
}

// LookupParams - параметры поиска урока в библиотеке.
type LookupParams struct {
	Subject Subject
	Unit    string
	Lesson  string

	// Version - версия программы (по умолчанию 人教版).
	Version string

	// Grade - класс (по умолчанию "2").
	Grade string
}

func (p LookupParams) normalized() LookupParams {
	if p.Lesson == "" {
		p.Lesson = "1"
	}
	if p.Version == "" {
		p.Version = DefaultVersion
	}
	if p.Grade == "" {
		p.Grade = "2"
	}
	return p
}

// Library - доступ к стандартной библиотеке программ.
type Library struct {
	items []LibraryItem
}

// NewLibrary создаёт библиотеку со встроенным индексом.
func NewLibrary() *Library {
	return &Library{items: libraryData}
}

// LessonData находит запись библиотеки по предмету и позиции.
// Возвращает nil, если урок не найден.
func (l *Library) LessonData(params LookupParams) *LibraryItem {
	params = params.normalized()

	for i := range l.items {
		item := &l.items[i]
		if item.Subject == params.Subject &&
			item.Unit == params.Unit &&
			(item.Lesson == params.Lesson || item.Lesson == "") &&
			item.Version == params.Version {
			return item
		}
	}
	return nil
}

// Title возвращает название урока или пустую строку, если урок
// не найден.
func (l *Library) Title(params LookupParams) string {
	if item := l.LessonData(params); item != nil {
		return item.Title
	}
	return ""
}

// SyllabusParams - параметры запроса семестровой карты.
type SyllabusParams struct {
	Subject  Subject
	Version  string
	Grade    string
	Semester string
}

// Syllabus возвращает уроки семестра в порядке юнитов и уроков.
func (l *Library) Syllabus(params SyllabusParams) []LibraryItem {
	if params.Version == "" {
		params.Version = DefaultVersion
	}
	if params.Grade == "" {
		params.Grade = "2"
	}
	if params.Semester == "" {
		params.Semester = "上"
	}

	var result []LibraryItem
	for _, item := range l.items {
		if item.Subject == params.Subject &&
			item.Version == params.Version &&
			item.Grade == params.Grade &&
			item.Semester == params.Semester {
			result = append(result, item)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		unitA, _ := strconv.Atoi(result[i].Unit)
		unitB, _ := strconv.Atoi(result[j].Unit)
		if unitA != unitB {
			return unitA < unitB
		}
		lessonA, _ := strconv.Atoi(result[i].Lesson)
		lessonB, _ := strconv.Atoi(result[j].Lesson)
		return lessonA < lessonB
	})

	return result
}

// BackfillTitle дозаполняет название позиции из библиотеки, если оно
// отсутствует. Позиции с уже заданным названием не меняются.
func (l *Library) BackfillTitle(subject Subject, position Position) Position {
	if position.Title != "" {
		return position
	}
	if title := l.Title(LookupParams{Subject: subject, Unit: position.Unit, Lesson: position.Lesson}); title != "" {
		position.Title = title
	}
	return position
}
