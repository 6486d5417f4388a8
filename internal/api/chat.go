package api

import (
	"errors"
	"net/http"

	"studi/internal/extract"
	"studi/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxChatContextChars caps how much of the study material is sent with each
// tutor prompt.
const maxChatContextChars = 8000

type chatRequest struct {
	FileID  uuid.UUID         `json:"fileId" binding:"required"`
	Message string            `json:"message" binding:"required"`
	History []models.ChatTurn `json:"history"`
}

// HandleChat answers a tutoring question grounded in one study file.
func (h *Handler) HandleChat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileId and message are required"})
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
	if err != nil {
		h.handleError(c, http.StatusUnprocessableEntity, "Failed to extract content", err)
		return
	}
	if runes := []rune(content); len(runes) > maxChatContextChars {
		content = string(runes[:maxChatContextChars])
	}

	reply, err := h.LLM.Chat(c.Request.Context(), file.DisplayName, content, req.Message, req.History)
	if err != nil {
		h.handleError(c, http.StatusBadGateway, "Chat generation failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
