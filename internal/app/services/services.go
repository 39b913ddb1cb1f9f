package services

import (
	"context"

	"github.com/machus/backend/internal/app/models"
)

// PostStore persists posts.
type PostStore interface {
	Create(ctx context.Context, post models.NewPost) (*models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListAll(ctx context.Context) ([]*models.Post, error)
	Update(ctx context.Context, id int64, patch models.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id int64) error
}

// ParticipationLedger is the single source of participation state.
type ParticipationLedger interface {
	Add(ctx context.Context, postID, userID int64) (*models.Participation, error)
	Remove(ctx context.Context, postID, userID int64) (bool, error)
	CountFor(ctx context.Context, postID int64) (int, error)
	ExistsFor(ctx context.Context, postID, userID int64) (bool, error)
	ListFor(ctx context.Context, postID int64) ([]models.Participant, error)
	CountsFor(ctx context.Context, postIDs []int64) (map[int64]int, error)
	ParticipatedIn(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}

// UserDirectory resolves post authors.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
}
