package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"studi/internal/db"
	"studi/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// HandleGoogleLogin initiates the Google OAuth flow.
func (h *Handler) HandleGoogleLogin(c *gin.Context) {
	session := sessions.Default(c)

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to generate state", err)
		return
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	session.Set(OauthStateSessionKey, state)
	if err := session.Save(); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	url := h.OauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// HandleGoogleCallback handles the redirect back from Google. The account is
// created on first login and its Google ID and picture refreshed after that.
func (h *Handler) HandleGoogleCallback(c *gin.Context) {
	session := sessions.Default(c)
	retrievedState := session.Get(OauthStateSessionKey)
	originalState := c.Query("state")

	if originalState == "" || retrievedState == nil || retrievedState.(string) != originalState {
		log.Printf("WARN: Invalid OAuth state. Session state: %v, query state: %s", retrievedState, originalState)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid state parameter"})
		return
	}

	token, err := h.OauthConfig.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to exchange code", err)
		return
	}
	if !token.Valid() {
		log.Printf("WARN: Retrieved invalid token.")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Retrieved invalid token"})
		return
	}

	client := h.OauthConfig.Client(context.Background(), token)
	oauth2Service, err := oauth2api.NewService(c.Request.Context(), option.WithHTTPClient(client))
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to create OAuth2 service", err)
		return
	}

	userinfo, err := oauth2Service.Userinfo.V2.Me.Get().Do()
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get user info", err)
		return
	}

	user, err := h.Store.UpsertGoogleUser(c.Request.Context(), userinfo.Email, userinfo.Name, userinfo.Id, userinfo.Picture)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to store user profile", err)
		return
	}
	log.Printf("INFO: Google login for %s (ID: %s)", user.Email, user.ID)

	session.Delete(OauthStateSessionKey)
	if err := h.establishSession(c, user); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "/"
	}
	c.Redirect(http.StatusTemporaryRedirect, frontendURL)
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// HandleSignup registers an email/password account and logs it in.
func (h *Handler) HandleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, name and a password of at least 8 characters are required"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	user, err := h.Store.CreateLocalUser(c.Request.Context(), email, req.Name, string(hash))
	if errors.Is(err, db.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with that email already exists"})
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to create account", err)
		return
	}
	log.Printf("INFO: New signup: %s (ID: %s)", user.Email, user.ID)

	if err := h.establishSession(c, user); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to save session", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin authenticates an email/password account.
func (h *Handler) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.Store.GetUserByEmail(c.Request.Context(), email)
	if errors.Is(err, models.ErrNotFound) || (err == nil && user.PasswordHash == "") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to look up account", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	log.Printf("INFO: Login for %s (ID: %s)", user.Email, user.ID)

	if err := h.establishSession(c, user); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to save session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// establishSession stores the user's profile in the session cookie.
func (h *Handler) establishSession(c *gin.Context, user models.User) error {
	session := sessions.Default(c)
	session.Set(ProfileSessionKey, UserProfile{
		DatabaseID: user.ID,
		GoogleID:   user.GoogleID,
		Email:      user.Email,
		Name:       user.Name,
		Picture:    user.Picture,
	})
	return session.Save()
}

// HandleLogout clears the session.
func (h *Handler) HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1})
	if err := session.Save(); err != nil {
		log.Printf("ERROR: Failed to clear session during logout: %v", err)
	}
	c.Status(http.StatusOK)
}

// HandleAuthStatus reports whether the request carries an authenticated session.
func (h *Handler) HandleAuthStatus(c *gin.Context) {
	session := sessions.Default(c)
	profile, ok := session.Get(ProfileSessionKey).(UserProfile)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": profile})
}

// HandleUserProfile returns the current user's profile.
func (h *Handler) HandleUserProfile(c *gin.Context) {
	profileValue, exists := c.Get("userProfile")
	profile, ok := profileValue.(UserProfile)
	if !exists || !ok {
		unauthenticated(c)
		return
	}
	c.JSON(http.StatusOK, profile)
}
