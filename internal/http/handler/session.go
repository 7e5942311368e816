package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/internal/http/dto"
	"basegraph.app/ticketsmith/internal/service"
)

var errBlankQuestion = errors.New("question must not be blank")

type SessionHandler struct {
	questions service.QuestionService
}

func NewSessionHandler(questions service.QuestionService) *SessionHandler {
	return &SessionHandler{questions: questions}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.questions.Ingest(c.Request.Context(), req.ProjectKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCreateSessionResponse(result))
}

func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	info, err := h.questions.Session(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(info))
}

func (h *SessionHandler) Delete(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	if err := h.questions.DeleteSession(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Ask(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		badRequest(c, errBlankQuestion)
		return
	}

	answer, err := h.questions.Ask(c.Request.Context(), sessionID, req.Question)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAnswerResponse(answer))
}

func sessionIDParam(c *gin.Context) (int64, bool) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "invalid session id", "id", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, false
	}
	return sessionID, true
}
