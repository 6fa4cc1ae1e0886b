package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser       = "user"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// User represents a platform account
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"type:varchar(32);default:'user'" json:"role"`
}

// Course represents a published course
type Course struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"not null;uniqueIndex:idx_courses_slug,where:deleted_at IS NULL" json:"slug"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`

	Chapters []Chapter `gorm:"-" json:"chapters"`
}

// Chapter represents an ordered group of content items within a course
type Chapter struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CourseID uint   `gorm:"not null;index" json:"course_id"`
	Title    string `gorm:"not null" json:"title"`
	Position int    `gorm:"not null;default:0" json:"position"`

	Lectures []Lecture `gorm:"-" json:"lectures"`
	Quizzes  []Quiz    `gorm:"-" json:"quizzes"`
}

// Lecture represents a video lecture
type Lecture struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ChapterID       uint   `gorm:"not null;index" json:"chapter_id"`
	Title           string `gorm:"not null" json:"title"`
	Description     string `json:"description"`
	VideoURL        string `gorm:"not null" json:"video_url"`
	DurationSeconds int    `gorm:"not null;default:0" json:"duration_seconds"`
	Preview         bool   `gorm:"not null;default:false" json:"preview"`
	Position        int    `gorm:"not null;default:0" json:"position"`

	Resources LectureResources `gorm:"type:jsonb" json:"resources"`
}

// Quiz represents a quiz inside a chapter
type Quiz struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ChapterID uint   `gorm:"not null;index" json:"chapter_id"`
	Title     string `gorm:"not null" json:"title"`
	Position  int    `gorm:"not null;default:0" json:"position"`

	Questions []QuizQuestion `gorm:"-" json:"questions"`
}

// QuizQuestion represents a single-choice question in a quiz
type QuizQuestion struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuizID        uint            `gorm:"not null;index" json:"quiz_id"`
	Prompt        string          `gorm:"not null" json:"prompt"`
	Options       QuestionOptions `gorm:"type:jsonb" json:"options"`
	CorrectOption int             `gorm:"not null;default:0" json:"-"`
	Explanation   string          `json:"explanation"`
	Position      int             `gorm:"not null;default:0" json:"position"`
}

// Enrollment grants a learner access to a course
type Enrollment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID   uint `gorm:"not null;index;uniqueIndex:idx_enrollments_user_course,priority:1" json:"user_id"`
	CourseID uint `gorm:"not null;index;uniqueIndex:idx_enrollments_user_course,priority:2" json:"course_id"`
}

// LectureCompletion records a finished content item for a learner. Item ids
// are stored as strings because imported payloads carry numeric and string
// identifiers interchangeably.
type LectureCompletion struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID   uint   `gorm:"not null;index;uniqueIndex:idx_completions_user_course_item,priority:1" json:"user_id"`
	CourseID uint   `gorm:"not null;index;uniqueIndex:idx_completions_user_course_item,priority:2" json:"course_id"`
	ItemID   string `gorm:"type:varchar(64);not null;uniqueIndex:idx_completions_user_course_item,priority:3" json:"item_id"`
}

// QuizResult records a graded quiz attempt
type QuizResult struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuizID   uint `gorm:"not null;index" json:"quiz_id"`
	CourseID uint `gorm:"not null;index" json:"course_id"`
	UserID   uint `gorm:"not null;index" json:"user_id"`

	Score        int    `gorm:"not null" json:"score"`
	CorrectCount int    `gorm:"not null" json:"correct_count"`
	TotalCount   int    `gorm:"not null" json:"total_count"`
	Answers      []byte `gorm:"type:jsonb" json:"answers"`
}

// Custom types for JSON fields
type QuestionOptions []string

type LectureResources []LectureResource

type LectureResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
}

func (o QuestionOptions) Value() (driver.Value, error) {
	if len(o) == 0 {
		return nil, nil
	}
	return json.Marshal(o)
}

func (o *QuestionOptions) Scan(value interface{}) error {
	if value == nil {
		*o = QuestionOptions{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan QuestionOptions")
	}

	return json.Unmarshal(bytes, o)
}

func (r LectureResources) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *LectureResources) Scan(value interface{}) error {
	if value == nil {
		*r = LectureResources{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan LectureResources")
	}

	return json.Unmarshal(bytes, r)
}
