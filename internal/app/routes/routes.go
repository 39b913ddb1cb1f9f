package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/machus/backend/internal/app/controllers"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	profileController *controllers.ProfileController,
	postController *controllers.PostController,
	authMiddleware *middleware.AuthMiddleware,
) {
	api := router.Group("/api")

	// --- Public Auth routes ---
	auth := api.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.GET("/verify-email", authController.VerifyEmail)
		auth.POST("/verify-email", authController.VerifyEmail)
		auth.POST("/login", authController.Login)
		auth.POST("/forgot-password", authController.ForgotPassword)
		auth.POST("/reset-password", authController.ResetPassword)
	}

	// Profile routes only need a valid token; completing the profile happens here
	profile := api.Group("/profile")
	profile.Use(authMiddleware.JWTAuth())
	{
		profile.GET("/me", profileController.GetMe)
		profile.PUT("/complete", profileController.CompleteProfile)
		profile.POST("/avatar", profileController.UploadAvatar)
		profile.DELETE("/me", profileController.DeleteAccount)
	}

	posts := api.Group("/posts")
	posts.Use(authMiddleware.JWTAuth(), authMiddleware.ProfileCompletionRequired())
	{
		posts.POST("", postController.CreatePost)
		posts.GET("", postController.ListPosts)
		posts.GET("/:id", postController.GetPost)
		posts.PUT("/:id", postController.UpdatePost)
		posts.DELETE("/:id", postController.DeletePost)

		posts.POST("/:id/participate", postController.Participate)
		posts.DELETE("/:id/participate", postController.CancelParticipation)
		posts.GET("/:id/participants", postController.ListParticipants)
		posts.DELETE("/:id/participants/:userId", postController.KickParticipant)
	}

	// Health check endpoint (public)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
	})
}
