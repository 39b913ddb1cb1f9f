package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/machus/backend/internal/app/auth"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/app/services"
	"github.com/machus/backend/internal/middleware"
	"github.com/rs/zerolog"
)

// PostController handles post and participation requests
type PostController struct {
	postService services.PostService
	logger      zerolog.Logger
}

// NewPostController creates a new PostController
func NewPostController(postService services.PostService, logger zerolog.Logger) *PostController {
	return &PostController{
		postService: postService,
		logger:      logger,
	}
}

// viewer returns the caller stored by the profile middleware, aborting with 401 when absent.
func (c *PostController) viewer(ctx *gin.Context) (auth.Viewer, bool) {
	viewer, ok := middleware.GetViewer(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
	}
	return viewer, ok
}

func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).WithField(name)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// CreatePost handles post creation
// @Summary Create a post
// @Description Publishes an activity invitation. The author's real name stays hidden from other users until they participate.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePostRequest true "Post content"
// @Success 201 {object} dto.APIResponse{data=models.PostView} "Post created"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 403 {object} dto.ErrorResponse "Profile not completed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts [post]
func (c *PostController) CreatePost(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}

	var req dto.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid create post payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	view, err := c.postService.CreatePost(ctx.Request.Context(), viewer, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(view, "Post created successfully"))
}

// ListPosts handles the feed
// @Summary List posts
// @Description Returns every post, newest first, projected for the caller
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.PostView} "Feed"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 403 {object} dto.ErrorResponse "Profile not completed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts [get]
func (c *PostController) ListPosts(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}

	views, err := c.postService.ListFeed(ctx.Request.Context(), viewer)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(views))
}

// GetPost handles reading one post
// @Summary Get a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=models.PostView} "Post"
// @Failure 400 {object} dto.ErrorResponse "Invalid post ID"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts/{id} [get]
func (c *PostController) GetPost(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	view, err := c.postService.GetPost(ctx.Request.Context(), viewer, postID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(view))
}

// UpdatePost handles partial post updates
// @Summary Update a post
// @Description Updates only the supplied fields. Only the author or an admin may update.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body dto.UpdatePostRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Post} "Updated post"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 403 {object} dto.ErrorResponse "Not the author or an admin"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts/{id} [put]
func (c *PostController) UpdatePost(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	// permission first: a caller who cannot manage the post gets 403 whatever the body
	if err := c.postService.AuthorizeUpdate(ctx.Request.Context(), viewer, postID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Int64("postID", postID).Msg("Invalid update post payload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	post, err := c.postService.UpdatePost(ctx.Request.Context(), viewer, postID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post, "Post updated successfully"))
}

// DeletePost handles post deletion
// @Summary Delete a post
// @Description Deletes the post and all of its participations. Only the author or an admin may delete.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Post deleted"
// @Failure 403 {object} dto.ErrorResponse "Not the author or an admin"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts/{id} [delete]
func (c *PostController) DeletePost(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.postService.DeletePost(ctx.Request.Context(), viewer, postID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Post deleted successfully"}))
}

// Participate handles joining a post
// @Summary Participate in a post
// @Description Joins the post; the response reveals the author's real name
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=models.PostView} "Joined"
// @Failure 400 {object} dto.ErrorResponse "Already participated (PART_001) or own post (PART_004)"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts/{id}/participate [post]
func (c *PostController) Participate(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	view, err := c.postService.Participate(ctx.Request.Context(), viewer, postID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(view, "Participated successfully"))
}

// CancelParticipation handles leaving a post
// @Summary Cancel participation
// @Description Leaves the post; the author's real name is hidden again
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=models.PostView} "Left"
// @Failure 400 {object} dto.ErrorResponse "Not participating (PART_002)"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts/{id}/participate [delete]
func (c *PostController) CancelParticipation(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	view, err := c.postService.CancelParticipation(ctx.Request.Context(), viewer, postID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(view, "Participation cancelled"))
}

// ListParticipants handles the roster
// @Summary List participants
// @Description Participants in join order. Visible to participants, the author and admins.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Participant} "Participants"
// @Failure 403 {object} dto.ErrorResponse "Not allowed to view participants"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts/{id}/participants [get]
func (c *PostController) ListParticipants(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	participants, err := c.postService.ListParticipants(ctx.Request.Context(), viewer, postID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(participants))
}

// KickParticipant handles removing another user from a post
// @Summary Remove a participant
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param userId path int true "Participant user ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Participant removed"
// @Failure 400 {object} dto.ErrorResponse "Targeting yourself (PART_005)"
// @Failure 403 {object} dto.ErrorResponse "Not the author or an admin"
// @Failure 404 {object} dto.ErrorResponse "Post or participant not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /posts/{id}/participants/{userId} [delete]
func (c *PostController) KickParticipant(ctx *gin.Context) {
	viewer, ok := c.viewer(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	targetID, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}

	if err := c.postService.KickParticipant(ctx.Request.Context(), viewer, postID, targetID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Participant removed successfully"}))
}
