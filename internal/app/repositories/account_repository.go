package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/db"
	"github.com/machus/backend/internal/pkg/apperrors"
)

// AccountRepository runs the multi-statement account flows, each in one transaction:
// a token is only spent if the user row change it authorizes commits too.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// VerifyEmail consumes a verification token and marks the address verified.
func (r *AccountRepository) VerifyEmail(ctx context.Context, userID int64, token string, now time.Time) error {
	return db.WithTransaction(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		ok, err := NewTokenRepository(tx).Consume(ctx, models.TokenEmailVerification, userID, token, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrInvalidEmailToken
		}
		return NewUserRepository(tx).MarkEmailVerified(ctx, userID)
	})
}

// ResetPassword consumes a reset token and stores the new hash.
func (r *AccountRepository) ResetPassword(ctx context.Context, userID int64, token, passwordHash string, now time.Time) error {
	return db.WithTransaction(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		ok, err := NewTokenRepository(tx).Consume(ctx, models.TokenPasswordReset, userID, token, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrInvalidResetToken
		}
		return NewUserRepository(tx).UpdatePassword(ctx, userID, passwordHash)
	})
}
