package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/app/services"
	"github.com/machus/backend/internal/middleware"
	"github.com/rs/zerolog"
)

// ProfileController handles the caller's own profile
type ProfileController struct {
	profileService *services.ProfileService
	logger         zerolog.Logger
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService *services.ProfileService, logger zerolog.Logger) *ProfileController {
	return &ProfileController{
		profileService: profileService,
		logger:         logger,
	}
}

func (c *ProfileController) userID(ctx *gin.Context) (int64, bool) {
	id, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
	}
	return id, ok
}

// GetMe returns the caller's profile
// @Summary Get own profile
// @Description Returns the caller's full profile, including real name and admin flag
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.User} "Profile"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /profile/me [get]
func (c *ProfileController) GetMe(ctx *gin.Context) {
	userID, ok := c.userID(ctx)
	if !ok {
		return
	}

	user, err := c.profileService.GetMe(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(user))
}

// CompleteProfile sets the profile fields
// @Summary Complete profile
// @Description Sets every profile field and marks the profile completed, which unlocks posts
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CompleteProfileRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=models.User} "Profile completed"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Router /profile/complete [put]
func (c *ProfileController) CompleteProfile(ctx *gin.Context) {
	userID, ok := c.userID(ctx)
	if !ok {
		return
	}

	var req dto.CompleteProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Int64("userID", userID).Msg("Invalid complete profile payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	user, err := c.profileService.CompleteProfile(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(user, "Profile completed successfully"))
}

// UploadAvatar stores a new avatar image
// @Summary Upload avatar
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image file"
// @Success 200 {object} dto.APIResponse{data=dto.AvatarResponse} "Avatar uploaded"
// @Failure 400 {object} dto.ErrorResponse "Missing file, not an image or too large"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Router /profile/avatar [post]
func (c *ProfileController) UploadAvatar(ctx *gin.Context) {
	userID, ok := c.userID(ctx)
	if !ok {
		return
	}

	fh, err := ctx.FormFile("avatar")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "No file uploaded").WithField("avatar")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	resp, err := c.profileService.UploadAvatar(ctx.Request.Context(), userID, fh)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Avatar uploaded successfully"))
}

// DeleteAccount removes the caller's account
// @Summary Delete own account
// @Description Deletes the account together with its posts and participations
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Account deleted"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /profile/me [delete]
func (c *ProfileController) DeleteAccount(ctx *gin.Context) {
	userID, ok := c.userID(ctx)
	if !ok {
		return
	}

	if err := c.profileService.DeleteAccount(ctx.Request.Context(), userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Account deleted successfully"}))
}
