package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/machus/backend/internal/app/auth"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/machus/backend/internal/pkg/metrics"
	"github.com/machus/backend/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// PostService runs the post lifecycle. Every method takes the caller explicitly.
type PostService interface {
	CreatePost(ctx context.Context, viewer auth.Viewer, req *dto.CreatePostRequest) (*models.PostView, error)
	ListFeed(ctx context.Context, viewer auth.Viewer) ([]models.PostView, error)
	GetPost(ctx context.Context, viewer auth.Viewer, postID int64) (*models.PostView, error)
	AuthorizeUpdate(ctx context.Context, viewer auth.Viewer, postID int64) error
	UpdatePost(ctx context.Context, viewer auth.Viewer, postID int64, req *dto.UpdatePostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, viewer auth.Viewer, postID int64) error
	Participate(ctx context.Context, viewer auth.Viewer, postID int64) (*models.PostView, error)
	CancelParticipation(ctx context.Context, viewer auth.Viewer, postID int64) (*models.PostView, error)
	KickParticipant(ctx context.Context, viewer auth.Viewer, postID, targetUserID int64) error
	ListParticipants(ctx context.Context, viewer auth.Viewer, postID int64) ([]models.Participant, error)
}

type postServiceImpl struct {
	posts  PostStore
	ledger ParticipationLedger
	users  UserDirectory
	logger zerolog.Logger
}

// NewPostService creates a new PostService
func NewPostService(posts PostStore, ledger ParticipationLedger, users UserDirectory, logger zerolog.Logger) PostService {
	return &postServiceImpl{
		posts:  posts,
		ledger: ledger,
		users:  users,
		logger: logger.With().Str("service", "post").Logger(),
	}
}

// passThrough returns domain errors unchanged and wraps anything else.
func (s *postServiceImpl) passThrough(err error, op string, postID int64) error {
	if _, ok := apperrors.AsCustom(err); ok {
		return err
	}
	s.logger.Error().Err(err).Int64("postID", postID).Str("op", op).Msg("Post store failure")
	return fmt.Errorf("%s: %w", op, err)
}

func (s *postServiceImpl) loadPost(ctx context.Context, postID int64, op string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, s.passThrough(err, op, postID)
	}
	return post, nil
}

// viewFor reads the author and the caller's ledger state and projects post.
func (s *postServiceImpl) viewFor(ctx context.Context, viewer auth.Viewer, post *models.Post, op string) (*models.PostView, error) {
	author, err := s.users.GetByID(ctx, post.AuthorID)
	if err != nil {
		return nil, s.passThrough(err, op, post.ID)
	}
	joined, err := s.ledger.ExistsFor(ctx, post.ID, viewer.ID)
	if err != nil {
		return nil, s.passThrough(err, op, post.ID)
	}
	count, err := s.ledger.CountFor(ctx, post.ID)
	if err != nil {
		return nil, s.passThrough(err, op, post.ID)
	}

	view := auth.BuildPostView(viewer, post, author, joined, count)
	return &view, nil
}

// positive bounds optional counts to the INTEGER columns that store them.
func positive(field string, v dto.Optional[int]) error {
	if !v.Present || v.Null {
		return nil
	}
	if v.Value < 1 {
		return apperrors.NewValidationError(field, field+" must be a positive integer")
	}
	if v.Value > math.MaxInt32 {
		return apperrors.NewValidationError(field, fmt.Sprintf("%s must be at most %d", field, math.MaxInt32))
	}
	return nil
}

func normalizedTags(field string, tags []string) ([]string, error) {
	tags = validation.NormalizeTags(tags)
	if err := validation.CheckTags(tags); err != nil {
		return nil, apperrors.NewValidationError(field, err.Error())
	}
	return tags, nil
}

func trimmedOrNil(v dto.Optional[string]) *string {
	p := v.Ptr()
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil
	}
	return &t
}

func (s *postServiceImpl) CreatePost(ctx context.Context, viewer auth.Viewer, req *dto.CreatePostRequest) (*models.PostView, error) {
	s.logger.Debug().Int64("userID", viewer.ID).Msg("Creating post")

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content", "content is required")
	}
	if len([]rune(content)) > validation.ContentMaxLength {
		return nil, apperrors.NewValidationError("content", fmt.Sprintf("content must be at most %d characters", validation.ContentMaxLength))
	}
	if err := positive("duration", req.Duration); err != nil {
		return nil, err
	}
	if err := positive("targetPeople", req.TargetPeople); err != nil {
		return nil, err
	}
	tags, err := normalizedTags("tags", req.Tags)
	if err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, viewer.ID)
	if err != nil {
		return nil, s.passThrough(err, "create post", 0)
	}

	post, err := s.posts.Create(ctx, models.NewPost{
		AuthorID:        viewer.ID,
		Content:         content,
		EventTime:       dto.TimePtr(req.EventTime),
		DurationMinutes: req.Duration.Ptr(),
		Location:        trimmedOrNil(req.Location),
		TargetPeople:    req.TargetPeople.Ptr(),
		Tags:            tags,
	})
	if err != nil {
		return nil, s.passThrough(err, "create post", 0)
	}

	metrics.PostEventsTotal.WithLabelValues(metrics.EventCreate).Inc()
	s.logger.Info().Int64("postID", post.ID).Int64("userID", viewer.ID).Msg("Post created")

	view := auth.BuildPostView(viewer, post, author, false, 0)
	return &view, nil
}

func (s *postServiceImpl) ListFeed(ctx context.Context, viewer auth.Viewer) ([]models.PostView, error) {
	posts, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, s.passThrough(err, "list feed", 0)
	}
	if len(posts) == 0 {
		return []models.PostView{}, nil
	}

	postIDs := make([]int64, 0, len(posts))
	authorIDs := make([]int64, 0, len(posts))
	seenAuthor := make(map[int64]struct{}, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if _, ok := seenAuthor[p.AuthorID]; !ok {
			seenAuthor[p.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	authors, err := s.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, s.passThrough(err, "list feed", 0)
	}
	counts, err := s.ledger.CountsFor(ctx, postIDs)
	if err != nil {
		return nil, s.passThrough(err, "list feed", 0)
	}
	joined, err := s.ledger.ParticipatedIn(ctx, viewer.ID, postIDs)
	if err != nil {
		return nil, s.passThrough(err, "list feed", 0)
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			// author deleted after the post scan; the cascade removes the post too
			continue
		}
		views = append(views, auth.BuildPostView(viewer, p, author, joined[p.ID], counts[p.ID]))
	}
	return views, nil
}

func (s *postServiceImpl) GetPost(ctx context.Context, viewer auth.Viewer, postID int64) (*models.PostView, error) {
	post, err := s.loadPost(ctx, postID, "get post")
	if err != nil {
		return nil, err
	}
	return s.viewFor(ctx, viewer, post, "get post")
}

// buildPatch validates req and converts it to a column patch. Empty location and
// null clear optional fields; null tags become an empty list.
func buildPatch(req *dto.UpdatePostRequest) (models.PostPatch, error) {
	var patch models.PostPatch

	if req.Content.Present {
		content := ""
		if !req.Content.Null {
			content = strings.TrimSpace(req.Content.Value)
		}
		if content == "" {
			return patch, apperrors.NewValidationError("content", "content cannot be empty")
		}
		if len([]rune(content)) > validation.ContentMaxLength {
			return patch, apperrors.NewValidationError("content", fmt.Sprintf("content must be at most %d characters", validation.ContentMaxLength))
		}
		patch.Content = models.SetTo(content)
	}

	if req.EventTime.Present {
		patch.EventTime = models.FieldUpdate[time.Time]{Set: true, Value: dto.TimePtr(req.EventTime)}
	}

	if req.Duration.Present {
		if err := positive("duration", req.Duration); err != nil {
			return patch, err
		}
		patch.DurationMinutes = models.FieldUpdate[int]{Set: true, Value: req.Duration.Ptr()}
	}

	if req.Location.Present {
		patch.Location = models.FieldUpdate[string]{Set: true, Value: trimmedOrNil(req.Location)}
	}

	if req.TargetPeople.Present {
		if err := positive("targetPeople", req.TargetPeople); err != nil {
			return patch, err
		}
		patch.TargetPeople = models.FieldUpdate[int]{Set: true, Value: req.TargetPeople.Ptr()}
	}

	if req.Tags.Present {
		var raw []string
		if !req.Tags.Null {
			raw = req.Tags.Value
		}
		tags, err := normalizedTags("tags", raw)
		if err != nil {
			return patch, err
		}
		patch.Tags = models.SetTo(tags)
	}

	if patch.IsEmpty() {
		return patch, apperrors.ErrNoFieldsToUpdate
	}
	return patch, nil
}

// AuthorizeUpdate checks, before any body is read, that the post exists and
// viewer may manage it.
func (s *postServiceImpl) AuthorizeUpdate(ctx context.Context, viewer auth.Viewer, postID int64) error {
	post, err := s.loadPost(ctx, postID, "update post")
	if err != nil {
		return err
	}
	if !auth.CanManage(viewer, post) {
		return apperrors.NewForbiddenError("Not authorized to update this post")
	}
	return nil
}

func (s *postServiceImpl) UpdatePost(ctx context.Context, viewer auth.Viewer, postID int64, req *dto.UpdatePostRequest) (*models.Post, error) {
	s.logger.Debug().Int64("postID", postID).Int64("userID", viewer.ID).Msg("Updating post")

	if err := s.AuthorizeUpdate(ctx, viewer, postID); err != nil {
		return nil, err
	}

	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.posts.Update(ctx, postID, patch)
	if err != nil {
		return nil, s.passThrough(err, "update post", postID)
	}

	metrics.PostEventsTotal.WithLabelValues(metrics.EventUpdate).Inc()
	s.logger.Info().Int64("postID", postID).Int64("userID", viewer.ID).Bool("admin", viewer.IsAdmin).Msg("Post updated")
	return updated, nil
}

func (s *postServiceImpl) DeletePost(ctx context.Context, viewer auth.Viewer, postID int64) error {
	post, err := s.loadPost(ctx, postID, "delete post")
	if err != nil {
		return err
	}
	if !auth.CanManage(viewer, post) {
		return apperrors.NewForbiddenError("Not authorized to delete this post")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return s.passThrough(err, "delete post", postID)
	}

	metrics.PostEventsTotal.WithLabelValues(metrics.EventDelete).Inc()
	s.logger.Info().Int64("postID", postID).Int64("userID", viewer.ID).Bool("admin", viewer.IsAdmin).Msg("Post deleted")
	return nil
}

func (s *postServiceImpl) Participate(ctx context.Context, viewer auth.Viewer, postID int64) (*models.PostView, error) {
	s.logger.Debug().Int64("postID", postID).Int64("userID", viewer.ID).Msg("User participating in post")

	post, err := s.loadPost(ctx, postID, "participate")
	if err != nil {
		return nil, err
	}
	if post.AuthorID == viewer.ID {
		return nil, apperrors.ErrCannotJoinOwnPost
	}

	if _, err := s.ledger.Add(ctx, postID, viewer.ID); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyParticipated) {
			metrics.ParticipationEventsTotal.WithLabelValues(metrics.EventDuplicate).Inc()
		}
		return nil, s.passThrough(err, "participate", postID)
	}
	metrics.ParticipationEventsTotal.WithLabelValues(metrics.EventJoin).Inc()

	return s.viewFor(ctx, viewer, post, "participate")
}

func (s *postServiceImpl) CancelParticipation(ctx context.Context, viewer auth.Viewer, postID int64) (*models.PostView, error) {
	s.logger.Debug().Int64("postID", postID).Int64("userID", viewer.ID).Msg("User cancelling participation")

	post, err := s.loadPost(ctx, postID, "cancel participation")
	if err != nil {
		return nil, err
	}

	removed, err := s.ledger.Remove(ctx, postID, viewer.ID)
	if err != nil {
		return nil, s.passThrough(err, "cancel participation", postID)
	}
	if !removed {
		return nil, apperrors.ErrNotParticipating
	}
	metrics.ParticipationEventsTotal.WithLabelValues(metrics.EventCancel).Inc()

	return s.viewFor(ctx, viewer, post, "cancel participation")
}

func (s *postServiceImpl) KickParticipant(ctx context.Context, viewer auth.Viewer, postID, targetUserID int64) error {
	post, err := s.loadPost(ctx, postID, "kick participant")
	if err != nil {
		return err
	}
	if !auth.CanManage(viewer, post) {
		return apperrors.NewForbiddenError("Not authorized to remove participants from this post")
	}
	if !auth.CanKick(viewer, post, targetUserID) {
		return apperrors.ErrSelfKick
	}

	removed, err := s.ledger.Remove(ctx, postID, targetUserID)
	if err != nil {
		return s.passThrough(err, "kick participant", postID)
	}
	if !removed {
		return apperrors.ErrParticipantNotFound
	}

	metrics.ParticipationEventsTotal.WithLabelValues(metrics.EventKick).Inc()
	s.logger.Info().
		Int64("postID", postID).
		Int64("userID", viewer.ID).
		Int64("targetUserID", targetUserID).
		Msg("Participant removed")
	return nil
}

func (s *postServiceImpl) ListParticipants(ctx context.Context, viewer auth.Viewer, postID int64) ([]models.Participant, error) {
	post, err := s.loadPost(ctx, postID, "list participants")
	if err != nil {
		return nil, err
	}

	joined, err := s.ledger.ExistsFor(ctx, postID, viewer.ID)
	if err != nil {
		return nil, s.passThrough(err, "list participants", postID)
	}
	if !auth.CanViewParticipants(viewer, post, joined) {
		return nil, apperrors.NewForbiddenError("Only participants can view the participant list")
	}

	participants, err := s.ledger.ListFor(ctx, postID)
	if err != nil {
		return nil, s.passThrough(err, "list participants", postID)
	}
	return participants, nil
}
