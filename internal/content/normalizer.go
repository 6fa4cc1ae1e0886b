package content

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

type ItemKind string

const (
	KindLecture ItemKind = "lecture"
	KindQuiz    ItemKind = "quiz"
)

// Course is the canonical tree the player navigates. Chapter and item order
// is exactly slice order; nothing downstream re-sorts.
type Course struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

type Chapter struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Item is the canonical content record. Imported payloads arrive in two
// shapes (lectureId/lectureTitle/lectureUrl/lectureDuration vs
// title/videoUrl/duration); both normalize to this one record so consumers
// never branch on the source format.
type Item struct {
	ID              string     `json:"id"`
	Kind            ItemKind   `json:"kind"`
	Title           string     `json:"title"`
	VideoURL        string     `json:"video_url,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	Preview         bool       `json:"preview,omitempty"`
	Resources       []Resource `json:"resources,omitempty"`
	Questions       []Question `json:"questions,omitempty"`
	Completed       bool       `json:"completed"`
}

type Resource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Question struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuestionCount reports the number of questions of a quiz item.
func (i Item) QuestionCount() int {
	return len(i.Questions)
}

// Selectable reports whether the item can be targeted by id. Items without
// an identifier stay in the sequence for playback and counting but cannot
// be jumped to.
func (i Item) Selectable() bool {
	return i.ID != ""
}

// TotalItems counts every item across all chapters.
func (c Course) TotalItems() int {
	total := 0
	for _, chapter := range c.Chapters {
		total += len(chapter.Items)
	}
	return total
}

// FlexID tolerates numeric and string identifiers in imported payloads;
// both normalize to their string form.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string {
	return string(f)
}

// CoursePayload is the wire form accepted by the course importer.
type CoursePayload struct {
	ID       FlexID           `json:"id"`
	Title    string           `json:"title"`
	Chapters []ChapterPayload `json:"chapters"`
}

// ChapterPayload carries either a pre-merged ordered item array ("content")
// or separate lecture and quiz lists that need merging by order field.
type ChapterPayload struct {
	ID    FlexID `json:"id"`
	Title string `json:"title"`
	Order *int   `json:"order"`

	Content  []ItemPayload `json:"content"`
	Lectures []ItemPayload `json:"lectures"`
	Quizzes  []ItemPayload `json:"quizzes"`
}

// ItemPayload accepts both field namings. Exactly one id/title/url set is
// expected per item; the normalizer coalesces whichever is present.
type ItemPayload struct {
	Type  string `json:"type"`
	Order *int   `json:"order"`

	// modern shape
	LectureID       FlexID  `json:"lectureId"`
	LectureTitle    string  `json:"lectureTitle"`
	LectureURL      string  `json:"lectureUrl"`
	LectureDuration float64 `json:"lectureDuration"`

	// legacy shape
	ID       FlexID  `json:"id"`
	Title    string  `json:"title"`
	VideoURL string  `json:"videoUrl"`
	Duration float64 `json:"duration"`

	QuizID      FlexID            `json:"quizId"`
	QuizTitle   string            `json:"quizTitle"`
	Questions   []QuestionPayload `json:"questions"`
	Preview     bool              `json:"isPreviewFree"`
	IsCompleted bool              `json:"isCompleted"`
	Resources   []ResourcePayload `json:"resources"`
}

type QuestionPayload struct {
	Prompt        string   `json:"prompt"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation"`
}

type ResourcePayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Normalize flattens an imported course payload into the canonical tree.
// It is pure and idempotent: the same payload always yields the same tree.
func Normalize(payload CoursePayload) Course {
	course := Course{
		ID:       payload.ID.String(),
		Title:    strings.TrimSpace(payload.Title),
		Chapters: make([]Chapter, 0, len(payload.Chapters)),
	}

	chapters := append([]ChapterPayload(nil), payload.Chapters...)
	sort.SliceStable(chapters, func(i, j int) bool {
		return orderValue(chapters[i].Order) < orderValue(chapters[j].Order)
	})

	for _, chapter := range chapters {
		course.Chapters = append(course.Chapters, Chapter{
			ID:    chapter.ID.String(),
			Title: strings.TrimSpace(chapter.Title),
			Items: chapterItems(chapter),
		})
	}

	return course
}

// chapterItems produces the chapter's ordered item sequence. Pre-merged
// content arrays are taken as-is (after a defensive order sort); separate
// lecture/quiz lists are merged by order field, ties broken by stable input
// order with lectures ahead of quizzes on an exact tie.
func chapterItems(chapter ChapterPayload) []Item {
	if len(chapter.Content) > 0 {
		merged := append([]ItemPayload(nil), chapter.Content...)
		sort.SliceStable(merged, func(i, j int) bool {
			return orderValue(merged[i].Order) < orderValue(merged[j].Order)
		})
		items := make([]Item, 0, len(merged))
		for _, raw := range merged {
			items = append(items, normalizeItem(raw, kindOf(raw)))
		}
		return items
	}

	type entry struct {
		raw  ItemPayload
		kind ItemKind
	}

	combined := make([]entry, 0, len(chapter.Lectures)+len(chapter.Quizzes))
	for _, raw := range chapter.Lectures {
		combined = append(combined, entry{raw: raw, kind: KindLecture})
	}
	for _, raw := range chapter.Quizzes {
		combined = append(combined, entry{raw: raw, kind: KindQuiz})
	}

	// Lectures were appended first, so a stable sort on the order field
	// alone realizes both tie-break rules.
	sort.SliceStable(combined, func(i, j int) bool {
		return orderValue(combined[i].raw.Order) < orderValue(combined[j].raw.Order)
	})

	items := make([]Item, 0, len(combined))
	for _, e := range combined {
		items = append(items, normalizeItem(e.raw, e.kind))
	}
	return items
}

func kindOf(raw ItemPayload) ItemKind {
	switch strings.ToLower(strings.TrimSpace(raw.Type)) {
	case "quiz":
		return KindQuiz
	case "lecture", "video":
		return KindLecture
	}
	if raw.QuizID != "" || len(raw.Questions) > 0 {
		return KindQuiz
	}
	return KindLecture
}

func normalizeItem(raw ItemPayload, kind ItemKind) Item {
	item := Item{
		Kind:      kind,
		Preview:   raw.Preview,
		Completed: raw.IsCompleted,
	}

	if kind == KindQuiz {
		item.ID = firstNonEmpty(raw.QuizID.String(), raw.ID.String())
		item.Title = strings.TrimSpace(firstNonEmpty(raw.QuizTitle, raw.Title))
	} else {
		item.ID = firstNonEmpty(raw.LectureID.String(), raw.ID.String())
		item.Title = strings.TrimSpace(firstNonEmpty(raw.LectureTitle, raw.Title))
	}

	if kind == KindLecture {
		item.VideoURL = firstNonEmpty(raw.LectureURL, raw.VideoURL)
		item.DurationSeconds = durationSeconds(raw)
		for _, res := range raw.Resources {
			item.Resources = append(item.Resources, Resource{Name: res.Name, URL: res.URL})
		}
		return item
	}

	item.Questions = make([]Question, 0, len(raw.Questions))
	for _, q := range raw.Questions {
		item.Questions = append(item.Questions, Question{
			Prompt:        strings.TrimSpace(firstNonEmpty(q.Prompt, q.Question)),
			Options:       append([]string(nil), q.Options...),
			CorrectOption: q.CorrectOption,
			Explanation:   strings.TrimSpace(q.Explanation),
		})
	}
	return item
}

func durationSeconds(raw ItemPayload) int {
	duration := raw.LectureDuration
	if duration == 0 {
		duration = raw.Duration
	}
	if duration < 0 {
		return 0
	}
	return int(duration)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func orderValue(order *int) int {
	if order == nil {
		// unordered entries sort after explicitly ordered ones
		return int(^uint(0) >> 1)
	}
	return *order
}

// ItemIDForLecture and ItemIDForQuiz derive stable string identifiers for
// rows loaded from the database, namespaced per kind so numeric primary
// keys from different tables cannot collide inside one course.
func ItemIDForLecture(id uint) string {
	return "lecture-" + strconv.FormatUint(uint64(id), 10)
}

func ItemIDForQuiz(id uint) string {
	return "quiz-" + strconv.FormatUint(uint64(id), 10)
}

func ItemIDForChapter(id uint) string {
	return "chapter-" + strconv.FormatUint(uint64(id), 10)
}

func ItemIDForCourse(id uint) string {
	return "course-" + strconv.FormatUint(uint64(id), 10)
}

// NumericID recovers the database key from a namespaced identifier such as
// "quiz-42". Returns false when the identifier has a different namespace or
// a non-numeric suffix.
func NumericID(itemID, prefix string) (uint, bool) {
	rest, ok := strings.CutPrefix(itemID, prefix+"-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
