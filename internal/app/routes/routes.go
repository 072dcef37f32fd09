package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/univgates1-stack/univgates-sub001/internal/app/controllers"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
)

// Controllers groups the HTTP handlers mounted by SetupRouter
type Controllers struct {
	Auth        *controllers.AuthController
	Profile     *controllers.ProfileController
	Application *controllers.ApplicationController
	Document    *controllers.DocumentController
	Chat        *controllers.ChatController
	Function    *controllers.FunctionController
	Admin       *controllers.AdminController
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	chatSocket gin.HandlerFunc,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", c.Auth.SignUp)
		auth.POST("/signin", c.Auth.SignIn)
		auth.GET("/oauth/url", c.Auth.OAuthURL)
		auth.POST("/callback", c.Auth.Callback)
		auth.POST("/refresh", c.Auth.Refresh)
	}

	// Signed download links carry their own token
	v1.GET("/files/*path", c.Chat.Download)

	// Redirect evaluation works for anonymous callers too
	v1.GET("/session/redirect", authMiddleware.OptionalJWTAuth(), c.Auth.Redirect)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/signout", c.Auth.SignOut)
		authenticated.GET("/auth/session", c.Auth.Session)
		authenticated.GET("/session/role", c.Auth.Role)

		functions := authenticated.Group("/functions")
		{
			functions.POST("/delete-user-data", c.Function.DeleteUserData)
			functions.POST("/ensure-university-official-profile", c.Function.EnsureUniversityOfficialProfile)
		}

		// Conversations are open to every role; membership is checked per conversation
		conversations := authenticated.Group("/conversations")
		{
			conversations.GET("", c.Chat.ListConversations)
			conversations.POST("", c.Chat.CreateConversation)
			conversations.GET("/:id/messages", c.Chat.GetMessages)
			conversations.POST("/:id/messages", c.Chat.SendMessage)
			conversations.GET("/:id/ws", chatSocket)
		}
		authenticated.GET("/messages/:id/attachment-url", c.Chat.AttachmentURL)

		// Student-only routes
		students := authenticated.Group("")
		students.Use(authMiddleware.RoleRequired(models.RoleStudent))
		{
			profile := students.Group("/profile")
			{
				profile.GET("", c.Profile.GetProfile)
				profile.GET("/completeness", c.Profile.Completeness)
				profile.GET("/nudge", c.Profile.Nudge)
				profile.POST("/nudge/dismiss", c.Profile.DismissNudge)
				profile.PUT("/personal", c.Profile.SavePersonalInfo)
				profile.POST("/passports", c.Profile.AddPassport)
				profile.GET("/degrees", c.Profile.ListDegrees)
				profile.POST("/degrees", c.Profile.AddDegree)
				profile.POST("/academic/complete", c.Profile.CompleteAcademic)
			}

			documents := students.Group("/documents")
			{
				documents.GET("", c.Document.ListDocuments)
				documents.POST("", c.Document.UploadDocument)
			}

			applications := students.Group("/applications")
			{
				applications.GET("", c.Application.ListApplications)
				applications.POST("", c.Application.Apply)
				applications.GET("/:id", c.Application.GetApplication)
				applications.POST("/:id/confirm", c.Application.Confirm)
				applications.PUT("/:id/documents", c.Application.SaveDocuments)
				applications.POST("/:id/submit", c.Application.Submit)
			}
		}

		authenticated.GET("/programs", c.Application.ListPrograms)

		// Administrator-only routes
		admin := authenticated.Group("/admin")
		admin.Use(authMiddleware.RoleRequired(models.RoleAdministrator))
		{
			admin.GET("/applications", c.Admin.ListApplications)
			admin.GET("/applications/export", c.Admin.ExportApplications)
			admin.DELETE("/users/:id", c.Admin.DeleteUser)
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
	})
}
