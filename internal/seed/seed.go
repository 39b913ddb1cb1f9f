package seed

import (
	"context"
	"errors"
	"time"

	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// AdminPromoter flags accounts as admins by e-mail.
type AdminPromoter interface {
	PromoteAdmins(ctx context.Context, emails []string) (int64, error)
}

// TokenPruner deletes expired account tokens.
type TokenPruner interface {
	DeleteExpired(ctx context.Context, kind models.TokenKind, now time.Time) (int64, error)
}

// PromoteAdmins flags the configured addresses as admins. Addresses without an
// account yet are picked up on the next start.
func PromoteAdmins(ctx context.Context, users AdminPromoter, emails []string, lgr zerolog.Logger) error {
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = validation.NormalizeEmail(e); e != "" {
			normalized = append(normalized, e)
		}
	}
	if len(normalized) == 0 {
		lgr.Debug().Msg("No admin emails configured")
		return nil
	}

	promoted, err := users.PromoteAdmins(ctx, normalized)
	if err != nil {
		lgr.Error().Err(err).Msg("Error promoting admins")
		return err
	}
	lgr.Info().Int64("promoted", promoted).Int("configured", len(normalized)).Msg("Admin accounts checked")
	return nil
}

// PruneExpiredTokens removes verification and reset tokens past their expiry.
func PruneExpiredTokens(ctx context.Context, tokens TokenPruner, now time.Time, lgr zerolog.Logger) error {
	var finalErr error
	for _, kind := range []models.TokenKind{models.TokenEmailVerification, models.TokenPasswordReset} {
		n, err := tokens.DeleteExpired(ctx, kind, now)
		if err != nil {
			lgr.Error().Err(err).Str("kind", string(kind)).Msg("Error pruning expired tokens")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if n > 0 {
			lgr.Info().Int64("deleted", n).Str("kind", string(kind)).Msg("Expired tokens pruned")
		}
	}
	return finalErr
}
