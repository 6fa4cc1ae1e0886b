package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-player-backend/internal/content"
	"course-player-backend/internal/service"
)

type CourseHandler struct {
	courses     *service.CourseService
	enrollments *service.EnrollmentService
	progress    *service.ProgressService
	quizzes     *service.QuizService
}

func NewCourseHandler(
	courses *service.CourseService,
	enrollments *service.EnrollmentService,
	progress *service.ProgressService,
	quizzes *service.QuizService,
) *CourseHandler {
	return &CourseHandler{
		courses:     courses,
		enrollments: enrollments,
		progress:    progress,
		quizzes:     quizzes,
	}
}

func (h *CourseHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.courses == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "course service unavailable"})
		return false
	}
	return true
}

// Import accepts a course content payload in either supported shape and
// creates or replaces the course structure.
func (h *CourseHandler) Import(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var input service.ImportCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courses.ImportCourse(input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) List(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courses, err := h.courses.List()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) GetBySlug(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	course, err := h.courses.GetBySlug(c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

// Tree serves the canonical course tree with the caller's completion flags.
// Answer keys and explanations are stripped; grading happens server-side.
func (h *CourseHandler) Tree(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	tree, err := h.courses.GetTree(courseID, c.GetUint("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tree": redactTree(tree)})
}

func (h *CourseHandler) Delete(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.courses.Delete(courseID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) Enroll(c *gin.Context) {
	if h == nil || h.enrollments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrollment service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.enrollments.Enroll(userID, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"enrollment": enrollment})
}

func (h *CourseHandler) Unenroll(c *gin.Context) {
	if h == nil || h.enrollments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrollment service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.enrollments.Unenroll(userID, courseID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) MyCourses(c *gin.Context) {
	if h == nil || h.enrollments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrollment service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	courses, err := h.enrollments.ListCourses(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) Progress(c *gin.Context) {
	if h == nil || h.progress == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.progress.Summary(c.Request.Context(), userID, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": summary})
}

// ResetProgress wipes the caller's stored completions for a course so it
// can be taken from scratch.
func (h *CourseHandler) ResetProgress(c *gin.Context) {
	if h == nil || h.progress == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.progress.ResetCourse(c.Request.Context(), userID, courseID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Uncomplete removes a single stored completion, for learners who marked
// the wrong item done.
func (h *CourseHandler) Uncomplete(c *gin.Context) {
	if h == nil || h.progress == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.progress.UnmarkComplete(c.Request.Context(), userID, courseID, c.Param("itemId")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// QuizBest serves the caller's highest-scoring attempt for one quiz.
func (h *CourseHandler) QuizBest(c *gin.Context) {
	if h == nil || h.quizzes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quiz service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	best, attempts, err := h.quizzes.BestResult(c.Param("quizId"), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"best": best, "attempts": attempts})
}

func (h *CourseHandler) QuizHistory(c *gin.Context) {
	if h == nil || h.quizzes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quiz service unavailable"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	results, err := h.quizzes.History(userID, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

type questionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type itemView struct {
	ID              string             `json:"id"`
	Kind            content.ItemKind   `json:"kind"`
	Title           string             `json:"title"`
	VideoURL        string             `json:"video_url,omitempty"`
	DurationSeconds int                `json:"duration_seconds,omitempty"`
	Preview         bool               `json:"preview,omitempty"`
	Resources       []content.Resource `json:"resources,omitempty"`
	Questions       []questionView     `json:"questions,omitempty"`
	Completed       bool               `json:"completed"`
}

type chapterView struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Items []itemView `json:"items"`
}

type treeView struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Chapters []chapterView `json:"chapters"`
}

// redactTree drops correct options and explanations from quiz questions so
// the answer key never reaches the client.
func redactTree(tree content.Course) treeView {
	view := treeView{
		ID:       tree.ID,
		Title:    tree.Title,
		Chapters: make([]chapterView, 0, len(tree.Chapters)),
	}
	for _, chapter := range tree.Chapters {
		cv := chapterView{
			ID:    chapter.ID,
			Title: chapter.Title,
			Items: make([]itemView, 0, len(chapter.Items)),
		}
		for _, item := range chapter.Items {
			iv := itemView{
				ID:              item.ID,
				Kind:            item.Kind,
				Title:           item.Title,
				VideoURL:        item.VideoURL,
				DurationSeconds: item.DurationSeconds,
				Preview:         item.Preview,
				Resources:       item.Resources,
				Completed:       item.Completed,
			}
			for _, question := range item.Questions {
				iv.Questions = append(iv.Questions, questionView{
					Prompt:  question.Prompt,
					Options: append([]string(nil), question.Options...),
				})
			}
			cv.Items = append(cv.Items, iv)
		}
		view.Chapters = append(view.Chapters, cv)
	}
	return view
}
