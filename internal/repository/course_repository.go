package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"course-player-backend/internal/models"
)

type CourseRepository interface {
	Create(course *models.Course) error
	Update(course *models.Course) error
	Delete(id uint) error
	GetByID(id uint) (*models.Course, error)
	GetBySlug(slug string) (*models.Course, error)
	List() ([]models.Course, error)
	Exists(id uint) (bool, error)
	ReplaceStructure(courseID uint, chapters []models.Chapter) error
	ListStructure(courseID uint) ([]models.Chapter, error)
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(course *models.Course) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.Create(course).Error
}

func (r *courseRepository) Update(course *models.Course) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.Save(course).Error
}

func (r *courseRepository) Delete(id uint) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteStructure(tx, id); err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.LectureCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.QuizResult{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Course{}, id).Error
	})
}

func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) GetBySlug(slug string) (*models.Course, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}
	cleaned := strings.TrimSpace(slug)
	if cleaned == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var course models.Course
	if err := r.db.Where("slug = ?", cleaned).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) List() ([]models.Course, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}
	var courses []models.Course
	if err := r.db.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) Exists(id uint) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("course repository is not initialised")
	}
	var count int64
	if err := r.db.Model(&models.Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReplaceStructure swaps the whole chapter tree of a course in one
// transaction. Positions are reassigned from slice order so imported
// ordering survives verbatim.
func (r *courseRepository) ReplaceStructure(courseID uint, chapters []models.Chapter) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteStructure(tx, courseID); err != nil {
			return err
		}
		for chapterIdx := range chapters {
			chapter := chapters[chapterIdx]
			chapter.ID = 0
			chapter.CourseID = courseID
			chapter.Position = chapterIdx
			lectures := chapter.Lectures
			quizzes := chapter.Quizzes
			chapter.Lectures = nil
			chapter.Quizzes = nil
			if err := tx.Create(&chapter).Error; err != nil {
				return err
			}
			for lectureIdx := range lectures {
				lecture := lectures[lectureIdx]
				lecture.ID = 0
				lecture.ChapterID = chapter.ID
				lecture.Position = lectureIdx
				if err := tx.Create(&lecture).Error; err != nil {
					return err
				}
			}
			for quizIdx := range quizzes {
				quiz := quizzes[quizIdx]
				quiz.ID = 0
				quiz.ChapterID = chapter.ID
				quiz.Position = quizIdx
				questions := quiz.Questions
				quiz.Questions = nil
				if err := tx.Create(&quiz).Error; err != nil {
					return err
				}
				for questionIdx := range questions {
					question := questions[questionIdx]
					question.ID = 0
					question.QuizID = quiz.ID
					question.Position = questionIdx
					if err := tx.Create(&question).Error; err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// ListStructure loads the full chapter tree of a course, chapters and nested
// content ordered by position.
func (r *courseRepository) ListStructure(courseID uint) ([]models.Chapter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}

	var chapters []models.Chapter
	if err := r.db.Where("course_id = ?", courseID).Order("position ASC, id ASC").Find(&chapters).Error; err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return []models.Chapter{}, nil
	}

	chapterIDs := make([]uint, 0, len(chapters))
	for _, chapter := range chapters {
		chapterIDs = append(chapterIDs, chapter.ID)
	}

	var lectures []models.Lecture
	if err := r.db.Where("chapter_id IN ?", chapterIDs).Order("chapter_id ASC, position ASC, id ASC").Find(&lectures).Error; err != nil {
		return nil, err
	}
	lecturesByChapter := make(map[uint][]models.Lecture, len(chapterIDs))
	for _, lecture := range lectures {
		lecturesByChapter[lecture.ChapterID] = append(lecturesByChapter[lecture.ChapterID], lecture)
	}

	var quizzes []models.Quiz
	if err := r.db.Where("chapter_id IN ?", chapterIDs).Order("chapter_id ASC, position ASC, id ASC").Find(&quizzes).Error; err != nil {
		return nil, err
	}

	quizIDs := make([]uint, 0, len(quizzes))
	for _, quiz := range quizzes {
		quizIDs = append(quizIDs, quiz.ID)
	}
	questionsByQuiz := make(map[uint][]models.QuizQuestion, len(quizIDs))
	if len(quizIDs) > 0 {
		var questions []models.QuizQuestion
		if err := r.db.Where("quiz_id IN ?", quizIDs).Order("quiz_id ASC, position ASC, id ASC").Find(&questions).Error; err != nil {
			return nil, err
		}
		for _, question := range questions {
			questionsByQuiz[question.QuizID] = append(questionsByQuiz[question.QuizID], question)
		}
	}

	quizzesByChapter := make(map[uint][]models.Quiz, len(chapterIDs))
	for _, quiz := range quizzes {
		quiz.Questions = questionsByQuiz[quiz.ID]
		quizzesByChapter[quiz.ChapterID] = append(quizzesByChapter[quiz.ChapterID], quiz)
	}

	for idx := range chapters {
		chapters[idx].Lectures = lecturesByChapter[chapters[idx].ID]
		chapters[idx].Quizzes = quizzesByChapter[chapters[idx].ID]
	}

	return chapters, nil
}

func deleteStructure(tx *gorm.DB, courseID uint) error {
	chapterIDs := tx.Model(&models.Chapter{}).Select("id").Where("course_id = ?", courseID)
	quizIDs := tx.Model(&models.Quiz{}).Select("id").Where("chapter_id IN (?)", chapterIDs)
	if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&models.QuizQuestion{}).Error; err != nil {
		return err
	}
	if err := tx.Where("chapter_id IN (?)", chapterIDs).Delete(&models.Quiz{}).Error; err != nil {
		return err
	}
	if err := tx.Where("chapter_id IN (?)", chapterIDs).Delete(&models.Lecture{}).Error; err != nil {
		return err
	}
	return tx.Where("course_id = ?", courseID).Delete(&models.Chapter{}).Error
}
