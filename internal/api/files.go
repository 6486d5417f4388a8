package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"studi/internal/extract"
	"studi/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxUploadBytes is the hard cap on an uploaded payload.
const maxUploadBytes = 1 << 20

// allowedFileTypes returns the accepted upload MIME types. Operators can
// override the default set with the ALLOWED_FILE_TYPES env var
// (comma-separated).
func allowedFileTypes() map[string]bool {
	raw := os.Getenv("ALLOWED_FILE_TYPES")
	if raw == "" {
		return map[string]bool{
			extract.MIMEPlainText:  true,
			extract.MIMEWordLegacy: true,
			extract.MIMEWordOOXML:  true,
		}
	}
	allowed := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			allowed[t] = true
		}
	}
	return allowed
}

type uploadFileRequest struct {
	FileName string `json:"fileName" binding:"required"`
	FileType string `json:"fileType" binding:"required"`
	Data     string `json:"data" binding:"required"` // base64 payload
}

// HandleUploadFile stores a study document. The payload lands in Postgres and
// is mirrored to R2 in the background when mirroring is configured.
func (h *Handler) HandleUploadFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}

	var req uploadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileName, fileType and data are required"})
		return
	}

	if !allowedFileTypes()[req.FileType] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "PDF and PowerPoint files are not supported yet. Please upload TXT or DOC/DOCX files.",
		})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File data must be base64 encoded"})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File exceeds the %d KB limit", maxUploadBytes/1024),
		})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is empty"})
		return
	}

	file, err := h.Store.InsertFile(c.Request.Context(), models.StudyFile{
		UserID:      userID,
		FileName:    req.FileName,
		DisplayName: req.FileName,
		FileSize:    int64(len(data)),
		FileType:    req.FileType,
		FileData:    data,
	})
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to store file", err)
		return
	}

	if h.R2 != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := h.R2.MirrorFile(ctx, userID, file.ID, file.FileName, file.FileType, data); err != nil {
				log.Printf("WARN: Failed to mirror file %s: %v", file.ID, err)
			}
		}()
	}

	c.JSON(http.StatusCreated, file)
}

// HandleListFiles returns the user's files, metadata only.
func (h *Handler) HandleListFiles(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}

	files, err := h.Store.ListFiles(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list files", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// HandleGetFile returns one file including its base64-encoded payload.
func (h *Handler) HandleGetFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file ID"})
		return
	}

	file, err := h.Store.GetFile(c.Request.Context(), fileID, userID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch file", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file": file,
		"data": base64.StdEncoding.EncodeToString(file.FileData),
	})
}

type renameFileRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// HandleRenameFile updates a file's display name.
func (h *Handler) HandleRenameFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file ID"})
		return
	}

	var req renameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DisplayName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "displayName is required"})
		return
	}

	file, err := h.Store.RenameFile(c.Request.Context(), fileID, userID, strings.TrimSpace(req.DisplayName))
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to rename file", err)
		return
	}
	c.JSON(http.StatusOK, file)
}

type deleteFilesRequest struct {
	FileIDs []uuid.UUID `json:"fileIds" binding:"required"`
}

// HandleDeleteFiles removes files in bulk. Quiz results for the deleted
// files go with them via the FK cascade.
func (h *Handler) HandleDeleteFiles(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}

	var req deleteFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.FileIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileIds is required"})
		return
	}

	deleted, err := h.Store.DeleteFiles(c.Request.Context(), userID, req.FileIDs)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to delete files", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// HandleExtractContent runs text extraction over a stored file and returns
// the preview the quiz generator would see.
func (h *Handler) HandleExtractContent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthenticated(c)
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file ID"})
		return
	}

	file, err := h.Store.GetFile(c.Request.Context(), fileID, userID)
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

	c.JSON(http.StatusOK, gin.H{"fileName": file.FileName, "content": content})
}
