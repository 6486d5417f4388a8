package api

import (
	"errors"
	"log"
	"net/http"

	"studi/internal/extract"
	"studi/internal/llm"
	"studi/internal/models"
	"studi/internal/quiz"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createSessionRequest struct {
	FileID       uuid.UUID `json:"fileId" binding:"required"`
	Length       int       `json:"length"`
	Difficulty   string    `json:"difficulty"`
	TotalMinutes int       `json:"totalMinutes"`
}

// HandleCreateSession extracts the file's text, generates a quiz and starts
// an active session. The countdown starts when the session is created.
func (h *Handler) HandleCreateSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileId is required"})
		return
	}

	file, err := h.Store.GetFile(c.Request.Context(), req.FileID, userID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch file", err)
		return
	}

	content, err := extract.Extract(file.FileData, file.FileType, file.FileName)
	if errors.Is(err, extract.ErrUnsupportedFormat) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Unsupported file format"})
		return
	}
	if err != nil {
		h.handleError(c, http.StatusUnprocessableEntity, "Failed to extract content", err)
		return
	}

	difficulty := models.ParseDifficulty(req.Difficulty)
	generated, err := h.LLM.GenerateQuiz(c.Request.Context(), content, file.DisplayName, req.Length, difficulty)
	if err != nil {
		if errors.Is(err, llm.ErrGenerationFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Quiz generation failed. Please try again."})
			return
		}
		h.handleError(c, http.StatusBadGateway, "Failed to generate quiz", err)
		return
	}

	session, err := h.Sessions.Create(userID, file.ID, *generated, req.TotalMinutes, difficulty)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to start quiz session", err)
		return
	}
	log.Printf("INFO: Started quiz session %s for file %s (%d questions)", session.ID, file.ID, len(generated.Questions))

	c.JSON(http.StatusCreated, session.View())
}

// HandleGetSession returns the session snapshot without answer keys.
func (h *Handler) HandleGetSession(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.View())
}

type selectAnswerRequest struct {
	OptionIndex *int `json:"optionIndex" binding:"required"`
}

// HandleSelectAnswer records an option choice for the current question.
func (h *Handler) HandleSelectAnswer(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}

	var req selectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "optionIndex is required"})
		return
	}

	switch err := session.SelectAnswer(*req.OptionIndex); {
	case errors.Is(err, quiz.ErrSessionFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "Quiz already finished"})
		return
	case errors.Is(err, quiz.ErrInvalidOption):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Option index out of range"})
		return
	case err != nil:
		h.handleError(c, http.StatusInternalServerError, "Failed to record answer", err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// HandleNext scores the current question and advances, or finishes the quiz
// when on the last question.
func (h *Handler) HandleNext(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}

	if _, err := session.Next(); err != nil {
		if errors.Is(err, quiz.ErrSessionFinished) {
			c.JSON(http.StatusConflict, gin.H{"error": "Quiz already finished"})
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to advance quiz", err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// HandlePrevious steps back one question. Points and history are untouched.
func (h *Handler) HandlePrevious(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}

	if err := session.Previous(); err != nil {
		if errors.Is(err, quiz.ErrSessionFinished) {
			c.JSON(http.StatusConflict, gin.H{"error": "Quiz already finished"})
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to step back", err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// HandleQuitSession discards a session without saving a result.
func (h *Handler) HandleQuitSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	if err := h.Sessions.Quit(sessionID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quiz session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListResults returns the user's quiz history, newest first, optionally
// filtered to one file via ?fileId=.
func (h *Handler) HandleListResults(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}

	var fileID *uuid.UUID
	if raw := c.Query("fileId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file ID"})
			return
		}
		fileID = &id
	}

	results, err := h.Store.ListResults(c.Request.Context(), userID, fileID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list quiz results", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// sessionFromPath resolves the session named in the URL, scoped to the
// authenticated user. It writes the error response itself on failure.
func (h *Handler) sessionFromPath(c *gin.Context) (*quiz.Session, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return nil, false
	}
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return nil, false
	}

	session, err := h.Sessions.Get(sessionID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quiz session not found"})
		return nil, false
	}
	return session, true
}
