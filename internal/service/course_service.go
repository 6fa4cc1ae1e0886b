package service

import (
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"course-player-backend/internal/content"
	"course-player-backend/internal/models"
	"course-player-backend/internal/repository"
	"course-player-backend/pkg/cache"
	"course-player-backend/pkg/logger"
	pkgvalidator "course-player-backend/pkg/validator"
)

// ImportCourseInput is the importer's wire form: course metadata plus the
// raw content payload in either supported shape.
type ImportCourseInput struct {
	Slug        string                `json:"slug"`
	Summary     string                `json:"summary"`
	Description string                `json:"description"`
	ImageURL    string                `json:"image_url"`
	Payload     content.CoursePayload `json:"payload" binding:"required"`
}

type CourseService struct {
	courseRepo   repository.CourseRepository
	progressRepo repository.ProgressRepository
	cache        *cache.Cache
}

func NewCourseService(courseRepo repository.CourseRepository, progressRepo repository.ProgressRepository, cacheClient *cache.Cache) *CourseService {
	return &CourseService{
		courseRepo:   courseRepo,
		progressRepo: progressRepo,
		cache:        cacheClient,
	}
}

// ImportCourse normalizes an uploaded content payload and persists it as a
// course with its full chapter tree. Importing over an existing slug
// replaces the structure in place.
func (s *CourseService) ImportCourse(input ImportCourseInput) (*models.Course, error) {
	tree := content.Normalize(input.Payload)
	if tree.Title == "" {
		return nil, newValidationError("course title is required")
	}
	if err := validateTree(tree); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugify(tree.Title)
	}
	if slug == "" {
		return nil, newValidationError("course slug is required")
	}

	course, err := s.courseRepo.GetBySlug(slug)
	switch {
	case err == nil:
		course.Title = tree.Title
		course.Summary = strings.TrimSpace(input.Summary)
		course.Description = pkgvalidator.SanitizeHTML(input.Description)
		course.ImageURL = strings.TrimSpace(input.ImageURL)
		if updateErr := s.courseRepo.Update(course); updateErr != nil {
			return nil, updateErr
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		course = &models.Course{
			Title:       tree.Title,
			Slug:        slug,
			Summary:     strings.TrimSpace(input.Summary),
			Description: pkgvalidator.SanitizeHTML(input.Description),
			ImageURL:    strings.TrimSpace(input.ImageURL),
		}
		if createErr := s.courseRepo.Create(course); createErr != nil {
			if isDuplicateKeyError(createErr) {
				return nil, newValidationError("course slug is already taken")
			}
			return nil, createErr
		}
	default:
		return nil, err
	}

	if err := s.courseRepo.ReplaceStructure(course.ID, chaptersFromTree(tree)); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCourse(course.ID); err != nil {
			logger.Warn("Failed to invalidate course cache", map[string]interface{}{"course_id": course.ID, "error": err})
		}
	}

	logger.Info("Course imported", map[string]interface{}{
		"course_id": course.ID,
		"slug":      course.Slug,
		"chapters":  len(tree.Chapters),
		"items":     tree.TotalItems(),
	})

	return course, nil
}

func (s *CourseService) GetByID(id uint) (*models.Course, error) {
	return s.courseRepo.GetByID(id)
}

func (s *CourseService) GetBySlug(slug string) (*models.Course, error) {
	return s.courseRepo.GetBySlug(slug)
}

func (s *CourseService) List() ([]models.Course, error) {
	return s.courseRepo.List()
}

func (s *CourseService) Delete(id uint) error {
	if err := s.courseRepo.Delete(id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateCourse(id); err != nil {
			logger.Warn("Failed to invalidate course cache", map[string]interface{}{"course_id": id, "error": err})
		}
	}
	return nil
}

// GetTree returns the canonical course tree. The bare tree is cached; when a
// learner is given, their stored completions are applied on a fresh copy so
// the cache never holds per-user state.
func (s *CourseService) GetTree(courseID, userID uint) (content.Course, error) {
	tree, err := s.bareTree(courseID)
	if err != nil {
		return content.Course{}, err
	}
	if userID == 0 {
		return tree, nil
	}

	itemIDs, err := s.progressRepo.ListItemIDs(userID, courseID)
	if err != nil {
		return content.Course{}, err
	}
	applyCompletions(&tree, itemIDs)
	return tree, nil
}

func (s *CourseService) bareTree(courseID uint) (content.Course, error) {
	if s.cache != nil {
		var cached content.Course
		if err := s.cache.GetCachedCourseTree(courseID, &cached); err == nil {
			return cached, nil
		}
	}

	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return content.Course{}, err
	}
	chapters, err := s.courseRepo.ListStructure(courseID)
	if err != nil {
		return content.Course{}, err
	}

	tree := buildTree(course, chapters)

	if s.cache != nil {
		if err := s.cache.CacheCourseTree(courseID, tree); err != nil {
			logger.Warn("Failed to cache course tree", map[string]interface{}{"course_id": courseID, "error": err})
		}
	}

	return tree, nil
}

// buildTree converts stored rows into the canonical tree. Lectures and
// quizzes share one position sequence per chapter, so a two-pointer merge by
// position restores the imported interleaving; lectures win exact ties.
func buildTree(course *models.Course, chapters []models.Chapter) content.Course {
	tree := content.Course{
		ID:       content.ItemIDForCourse(course.ID),
		Title:    course.Title,
		Chapters: make([]content.Chapter, 0, len(chapters)),
	}

	for _, chapter := range chapters {
		items := make([]content.Item, 0, len(chapter.Lectures)+len(chapter.Quizzes))
		lectureIdx, quizIdx := 0, 0
		for lectureIdx < len(chapter.Lectures) || quizIdx < len(chapter.Quizzes) {
			takeLecture := quizIdx >= len(chapter.Quizzes)
			if !takeLecture && lectureIdx < len(chapter.Lectures) {
				takeLecture = chapter.Lectures[lectureIdx].Position <= chapter.Quizzes[quizIdx].Position
			}
			if takeLecture {
				items = append(items, lectureItem(chapter.Lectures[lectureIdx]))
				lectureIdx++
			} else {
				items = append(items, quizItem(chapter.Quizzes[quizIdx]))
				quizIdx++
			}
		}
		tree.Chapters = append(tree.Chapters, content.Chapter{
			ID:    content.ItemIDForChapter(chapter.ID),
			Title: chapter.Title,
			Items: items,
		})
	}

	return tree
}

func lectureItem(lecture models.Lecture) content.Item {
	item := content.Item{
		ID:              content.ItemIDForLecture(lecture.ID),
		Kind:            content.KindLecture,
		Title:           lecture.Title,
		VideoURL:        lecture.VideoURL,
		DurationSeconds: lecture.DurationSeconds,
		Preview:         lecture.Preview,
	}
	for _, res := range lecture.Resources {
		item.Resources = append(item.Resources, content.Resource{Name: res.Name, URL: res.URL})
	}
	return item
}

func quizItem(quiz models.Quiz) content.Item {
	item := content.Item{
		ID:    content.ItemIDForQuiz(quiz.ID),
		Kind:  content.KindQuiz,
		Title: quiz.Title,
	}
	for _, question := range quiz.Questions {
		item.Questions = append(item.Questions, content.Question{
			Prompt:        question.Prompt,
			Options:       append([]string(nil), question.Options...),
			CorrectOption: question.CorrectOption,
			Explanation:   question.Explanation,
		})
	}
	return item
}

func applyCompletions(tree *content.Course, itemIDs []string) {
	if len(itemIDs) == 0 {
		return
	}
	completed := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		completed[id] = struct{}{}
	}
	for chapterIdx := range tree.Chapters {
		for itemIdx := range tree.Chapters[chapterIdx].Items {
			item := &tree.Chapters[chapterIdx].Items[itemIdx]
			if _, ok := completed[item.ID]; ok {
				item.Completed = true
			}
		}
	}
}

// chaptersFromTree maps the canonical tree back to storage rows. The unified
// item index becomes the position of both lectures and quizzes so the order
// survives the round trip.
func chaptersFromTree(tree content.Course) []models.Chapter {
	chapters := make([]models.Chapter, 0, len(tree.Chapters))
	for _, chapter := range tree.Chapters {
		stored := models.Chapter{Title: chapter.Title}
		for itemIdx, item := range chapter.Items {
			switch item.Kind {
			case content.KindQuiz:
				quiz := models.Quiz{
					Title:    item.Title,
					Position: itemIdx,
				}
				for _, question := range item.Questions {
					quiz.Questions = append(quiz.Questions, models.QuizQuestion{
						Prompt:        question.Prompt,
						Options:       models.QuestionOptions(append([]string(nil), question.Options...)),
						CorrectOption: question.CorrectOption,
						Explanation:   question.Explanation,
					})
				}
				stored.Quizzes = append(stored.Quizzes, quiz)
			default:
				lecture := models.Lecture{
					Title:           item.Title,
					VideoURL:        item.VideoURL,
					DurationSeconds: item.DurationSeconds,
					Preview:         item.Preview,
					Position:        itemIdx,
				}
				for _, res := range item.Resources {
					lecture.Resources = append(lecture.Resources, models.LectureResource{Name: res.Name, URL: res.URL})
				}
				stored.Lectures = append(stored.Lectures, lecture)
			}
		}
		chapters = append(chapters, stored)
	}
	return chapters
}

func validateTree(tree content.Course) error {
	for chapterIdx, chapter := range tree.Chapters {
		if chapter.Title == "" {
			return newValidationError("chapter %d title is required", chapterIdx+1)
		}
		for itemIdx, item := range chapter.Items {
			if item.Title == "" {
				return newValidationError("chapter %d item %d title is required", chapterIdx+1, itemIdx+1)
			}
			if item.Kind != content.KindQuiz {
				continue
			}
			// A quiz with no questions could never be answered in full, so
			// the course would be stuck short of 100%.
			if len(item.Questions) == 0 {
				return newValidationError("quiz %q needs at least one question", item.Title)
			}
			for questionIdx, question := range item.Questions {
				if strings.TrimSpace(question.Prompt) == "" {
					return newValidationError("quiz %q question %d prompt is required", item.Title, questionIdx+1)
				}
				if len(question.Options) < 2 {
					return newValidationError("quiz %q question %d needs at least two options", item.Title, questionIdx+1)
				}
				if question.CorrectOption < 0 || question.CorrectOption >= len(question.Options) {
					return newValidationError("quiz %q question %d answer is out of range", item.Title, questionIdx+1)
				}
			}
		}
	}
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
