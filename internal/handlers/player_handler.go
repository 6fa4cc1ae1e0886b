package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-player-backend/internal/models"
	"course-player-backend/internal/player"
	"course-player-backend/internal/service"
)

// PlayerHandler exposes the live player session: navigation, lecture
// completion and the quiz flow. Every route is scoped to the authenticated
// learner's session for the course in the path.
type PlayerHandler struct {
	service *service.PlayerService
}

func NewPlayerHandler(playerService *service.PlayerService) *PlayerHandler {
	return &PlayerHandler{service: playerService}
}

func (h *PlayerHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "player service unavailable"})
		return false
	}
	return true
}

func (h *PlayerHandler) session(c *gin.Context) (*player.Session, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return nil, false
	}

	session, err := h.service.GetSession(userID, courseID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return session, true
}

// Start opens or resumes the player for a course.
func (h *PlayerHandler) Start(c *gin.Context) {
	if !h.ensureService(c) {
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

	session, err := h.service.StartSession(c.Request.Context(), userID, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session.Token(), "state": session.State()})
}

func (h *PlayerHandler) State(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": session.State()})
}

func (h *PlayerHandler) Next(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": session.Next()})
}

func (h *PlayerHandler) Previous(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": session.Previous()})
}

func (h *PlayerHandler) Select(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.SelectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": session.SelectItem(req.ItemID)})
}

func (h *PlayerHandler) CompleteLecture(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	state, err := session.CompleteCurrentLecture(c.Request.Context())
	if err != nil {
		h.writePlayerError(c, err, state)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PlayerHandler) AnswerQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.AnswerQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := session.AnswerQuestion(req.QuestionIndex, req.OptionIndex)
	if err != nil {
		h.writePlayerError(c, err, state)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PlayerHandler) SubmitQuiz(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	state, err := session.SubmitQuiz(c.Request.Context())
	if err != nil {
		h.writePlayerError(c, err, state)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PlayerHandler) RetryQuiz(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	state, err := session.RetryQuiz()
	if err != nil {
		h.writePlayerError(c, err, state)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PlayerHandler) RefreshProgress(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": session.RefreshProgress(c.Request.Context())})
}

func (h *PlayerHandler) Close(c *gin.Context) {
	if !h.ensureService(c) {
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

	h.service.CloseSession(userID, courseID)
	c.Status(http.StatusNoContent)
}

// writePlayerError maps session state-machine errors to conflict responses
// and keeps the usual mapping for everything else. The current state rides
// along so clients can re-render without a second round trip.
func (h *PlayerHandler) writePlayerError(c *gin.Context, err error, state player.Snapshot) {
	switch err {
	case player.ErrQuizLocked,
		player.ErrSubmitInProgress,
		player.ErrRetryUnavailable,
		player.ErrCompletionInProgress,
		player.ErrNotSubmitting:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": state})
	case player.ErrIncompleteAnswers,
		player.ErrInvalidAnswer,
		player.ErrNotLecture,
		player.ErrNotQuiz,
		player.ErrNoActiveItem:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "state": state})
	case player.ErrSessionClosed:
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		writeError(c, err)
	}
}
