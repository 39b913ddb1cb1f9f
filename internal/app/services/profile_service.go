package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/machus/backend/internal/pkg/filestorage"
	"github.com/machus/backend/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// ProfileStore is the part of the user directory a user edits about themselves.
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	CompleteProfile(ctx context.Context, id int64, p models.ProfileUpdate) (*models.User, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
	Delete(ctx context.Context, id int64) error
}

// AvatarStore keeps uploaded avatar images.
type AvatarStore interface {
	SaveAvatar(userID int64, fh *multipart.FileHeader) (string, error)
	DeleteAvatar(publicPath string) error
}

// ProfileService manages the caller's own profile.
type ProfileService struct {
	users   ProfileStore
	avatars AvatarStore
	logger  zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(users ProfileStore, avatars AvatarStore, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		users:   users,
		avatars: avatars,
		logger:  logger.With().Str("service", "profile").Logger(),
	}
}

func (s *ProfileService) wrap(err error, op string) error {
	if _, ok := apperrors.AsCustom(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetMe returns the caller's full profile, real name included.
func (s *ProfileService) GetMe(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.wrap(err, "get profile")
	}
	return user, nil
}

// CompleteProfile sets every profile field and marks the profile completed.
func (s *ProfileService) CompleteProfile(ctx context.Context, userID int64, req *dto.CompleteProfileRequest) (*models.User, error) {
	tags := validation.UniqueTags(req.Tags)
	if len(tags) == 0 {
		return nil, apperrors.NewValidationError("tags", "at least one tag is required")
	}
	if err := validation.CheckTags(tags); err != nil {
		return nil, apperrors.NewValidationError("tags", err.Error())
	}

	user, err := s.users.CompleteProfile(ctx, userID, models.ProfileUpdate{
		RealName:  req.RealName,
		Nickname:  req.Nickname,
		Grade:     req.Grade,
		Gender:    req.Gender,
		Bio:       req.Bio,
		Tags:      tags,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return nil, s.wrap(err, "complete profile")
	}

	s.logger.Info().Int64("userID", userID).Msg("Profile completed")
	return user, nil
}

// UploadAvatar stores a new avatar and removes the previous local one.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID int64, fh *multipart.FileHeader) (*dto.AvatarResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.wrap(err, "upload avatar")
	}

	url, err := s.avatars.SaveAvatar(userID, fh)
	if err != nil {
		if errors.Is(err, filestorage.ErrNotImage) || errors.Is(err, filestorage.ErrFileTooLarge) {
			return nil, apperrors.NewValidationError("avatar", err.Error())
		}
		return nil, fmt.Errorf("save avatar: %w", err)
	}

	if err := s.users.UpdateAvatar(ctx, userID, url); err != nil {
		_ = s.avatars.DeleteAvatar(url)
		return nil, s.wrap(err, "upload avatar")
	}

	if user.AvatarURL != "" {
		if err := s.avatars.DeleteAvatar(user.AvatarURL); err != nil {
			s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to remove previous avatar")
		}
	}

	s.logger.Info().Int64("userID", userID).Str("avatarUrl", url).Msg("Avatar updated")
	return &dto.AvatarResponse{AvatarURL: url}, nil
}

// DeleteAccount removes the caller; posts, participations and tokens go with them.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return s.wrap(err, "delete account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return s.wrap(err, "delete account")
	}
	if user.AvatarURL != "" {
		if err := s.avatars.DeleteAvatar(user.AvatarURL); err != nil {
			s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to remove avatar of deleted account")
		}
	}

	s.logger.Info().Int64("userID", userID).Msg("Account deleted")
	return nil
}
