package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/db"
)

// TokenRepository stores single-use account tokens.
type TokenRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(q db.Querier) *TokenRepository {
	return &TokenRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func tokenTable(kind models.TokenKind) (string, error) {
	switch kind {
	case models.TokenEmailVerification:
		return "email_verification_tokens", nil
	case models.TokenPasswordReset:
		return "password_reset_tokens", nil
	default:
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
}

// Issue stores a new token for userID after retiring any unused ones of the same kind.
func (r *TokenRepository) Issue(ctx context.Context, kind models.TokenKind, userID int64, token string, expiresAt time.Time) error {
	table, err := tokenTable(kind)
	if err != nil {
		return err
	}

	retire, retireArgs, err := r.sb.Update(table).
		Set("used", true).
		Where(squirrel.Eq{"user_id": userID, "used": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, retire, retireArgs...); err != nil {
		return fmt.Errorf("error retiring %s tokens: %w", kind, err)
	}

	insert, args, err := r.sb.Insert(table).
		Columns("user_id", "token", "expires_at").
		Values(userID, token, expiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, insert, args...); err != nil {
		return fmt.Errorf("error creating %s token: %w", kind, err)
	}
	return nil
}

// Consume marks a live token used in one statement and reports whether it was live.
func (r *TokenRepository) Consume(ctx context.Context, kind models.TokenKind, userID int64, token string, now time.Time) (bool, error) {
	table, err := tokenTable(kind)
	if err != nil {
		return false, err
	}

	sql, args, err := r.sb.Update(table).
		Set("used", true).
		Where(squirrel.Eq{"user_id": userID, "token": token, "used": false}).
		Where(squirrel.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error consuming %s token: %w", kind, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpired removes tokens past expiry or already used.
func (r *TokenRepository) DeleteExpired(ctx context.Context, kind models.TokenKind, now time.Time) (int64, error) {
	table, err := tokenTable(kind)
	if err != nil {
		return 0, err
	}

	sql, args, err := r.sb.Delete(table).
		Where(squirrel.Or{squirrel.Lt{"expires_at": now}, squirrel.Eq{"used": true}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error deleting %s tokens: %w", kind, err)
	}
	return tag.RowsAffected(), nil
}
