package api

import (
	"context"
	"log"
	"net/http"

	"studi/internal/models"
	"studi/internal/quiz"
	"studi/internal/r2"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// UserProfile stores information about the authenticated user. It is held in
// the session cookie store, so it must stay gob-registered at startup.
type UserProfile struct {
	DatabaseID uuid.UUID `json:"-"` // internal DB UUID, never sent to clients
	GoogleID   string    `json:"id,omitempty"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Picture    string    `json:"picture,omitempty"`
}

// Session keys. Keep these consistent across handlers and middleware.
const (
	OauthStateSessionKey = "oauthstate"
	ProfileSessionKey    = "profile"
)

// Store is the persistence surface the handlers need.
type Store interface {
	CreateLocalUser(ctx context.Context, email, name, passwordHash string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpsertGoogleUser(ctx context.Context, email, name, googleID, picture string) (models.User, error)

	InsertFile(ctx context.Context, f models.StudyFile) (models.StudyFile, error)
	ListFiles(ctx context.Context, userID uuid.UUID) ([]models.StudyFile, error)
	GetFile(ctx context.Context, fileID, userID uuid.UUID) (models.StudyFile, error)
	RenameFile(ctx context.Context, fileID, userID uuid.UUID, displayName string) (models.StudyFile, error)
	DeleteFiles(ctx context.Context, userID uuid.UUID, fileIDs []uuid.UUID) (int64, error)

	ListResults(ctx context.Context, userID uuid.UUID, fileID *uuid.UUID) ([]models.QuizResult, error)
}

// Generator produces quiz content and tutor replies from study material.
type Generator interface {
	GenerateQuiz(ctx context.Context, text, fileName string, length int, difficulty models.Difficulty) (*models.Quiz, error)
	Chat(ctx context.Context, fileName, fileContent, message string, history []models.ChatTurn) (string, error)
}

// SessionManager owns active quiz sessions. Satisfied by *quiz.Manager.
type SessionManager interface {
	Create(userID, fileID uuid.UUID, qz models.Quiz, totalMinutes int, difficulty models.Difficulty) (*quiz.Session, error)
	Get(id, userID uuid.UUID) (*quiz.Session, error)
	Quit(id, userID uuid.UUID) error
}

// Handler contains the API handlers' dependencies. R2 may be nil, in which
// case uploaded payloads are not mirrored.
type Handler struct {
	OauthConfig *oauth2.Config
	Store       Store
	LLM         Generator
	R2          *r2.Client
	Sessions    SessionManager
}

// NewHandler creates a new Handler.
func NewHandler(oauth *oauth2.Config, store Store, llm Generator, mirror *r2.Client, sessions SessionManager) *Handler {
	return &Handler{
		OauthConfig: oauth,
		Store:       store,
		LLM:         llm,
		R2:          mirror,
		Sessions:    sessions,
	}
}

// handleError logs an error with its context and aborts the request.
func (h *Handler) handleError(c *gin.Context, statusCode int, errorContext string, err error) {
	log.Printf("ERROR: %s: %v", errorContext, err)
	c.AbortWithStatusJSON(statusCode, gin.H{"error": errorContext})
}

// currentUserID reads the user ID seeded by the AuthRequired middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func unauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
}
