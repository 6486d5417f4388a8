package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(CORSMiddleware())

	// Google OAuth entry points live outside /api so the browser can follow
	// the redirects directly.
	router.GET("/login", handler.HandleGoogleLogin)
	router.GET("/auth/google/callback", handler.HandleGoogleCallback)

	api := router.Group("/api")
	{
		api.POST("/auth/signup", handler.HandleSignup)
		api.POST("/auth/login", handler.HandleLogin)
		api.GET("/auth/status", handler.HandleAuthStatus)

		authorized := api.Group("/")
		authorized.Use(AuthRequired())
		{
			authorized.POST("/logout", handler.HandleLogout)
			authorized.GET("/user/profile", handler.HandleUserProfile)

			authorized.POST("/files", handler.HandleUploadFile)
			authorized.GET("/files", handler.HandleListFiles)
			authorized.GET("/files/:fileId", handler.HandleGetFile)
			authorized.PATCH("/files/:fileId", handler.HandleRenameFile)
			authorized.DELETE("/files", handler.HandleDeleteFiles)
			authorized.POST("/files/:fileId/extract", handler.HandleExtractContent)

			authorized.POST("/quiz/sessions", handler.HandleCreateSession)
			authorized.GET("/quiz/sessions/:sessionId", handler.HandleGetSession)
			authorized.POST("/quiz/sessions/:sessionId/answers", handler.HandleSelectAnswer)
			authorized.POST("/quiz/sessions/:sessionId/next", handler.HandleNext)
			authorized.POST("/quiz/sessions/:sessionId/previous", handler.HandlePrevious)
			authorized.DELETE("/quiz/sessions/:sessionId", handler.HandleQuitSession)
			authorized.GET("/quiz/results", handler.HandleListResults)

			authorized.POST("/chat", handler.HandleChat)
		}
	}
}
